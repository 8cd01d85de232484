package cmd

const DESCRIPTION = `
recall schedules spaced reminders for the notes and tasks you capture and
delivers them through a local daemon, even after the machine was asleep.
`

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const CaptureDescription = `The capture command hands a note or task to the daemon, which plans its
recall waterfall: +10m, +24h and +72h after capture. Content of sixteen
words or fewer is stored but never recalled.

Example:
        recall capture --kind note "the quick brown fox ..."
        echo "..." | recall capture -
`

const BookmarkDescription = `The bookmark command marks an item as worth keeping. A bookmark placed
within 72 hours of capture extends the waterfall with recalls at +10d
and +30d, and a final one at +120d.

Example:
        recall bookmark <item-id>
`

const ListDescription = `The list command prints schedule records in the order they fall due.

Example:
        recall list --status pending --status sent --limit 20
`

const CatchupDescription = `The catchup command runs one catch-up scan directly against the database,
without a daemon. Every recall that fell due while nothing was running is
printed to the terminal, oldest first.

Example:
        recall catchup --prune
`

const ConfigDescription = `The config command manages the JSONC configuration file in the data
directory ($RECALL_DATA_DIR, or the user config dir).

Example:
        recall config init
        recall config show
`
