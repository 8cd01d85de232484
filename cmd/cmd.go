package cmd

import (
	"fmt"
	"runtime"

	"github.com/recallkit/recall/cmd/common"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// currentBuildArgs is reported by the daemon's system.getVersion.
var currentBuildArgs BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	return newApp(bArgs).Run(args)
}

func newApp(bArgs BuildArgs) *cli.App {
	currentBuildArgs = bArgs
	app := cli.NewApp()
	app.Name = "recall"
	app.HelpName = "recall"
	app.Usage = "Spaced recall reminders for captured notes and tasks."
	app.Version = fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType)
	app.UsageText = "recall <command> [arguments...]"
	app.Description = DESCRIPTION
	app.CustomAppHelpTemplate = HELP_TEMPL
	app.OnUsageError = common.UsageErrorCallback
	app.HideHelp = true
	app.HideVersion = true
	app.Commands = []cli.Command{
		{
			Name:   "daemon",
			Usage:  "runs the delivery daemon in the foreground",
			Action: runDaemon,
		},
		{
			Name:   "stop",
			Usage:  "stops the running daemon",
			Action: stopDaemon,
		},
		{
			Name:                   "capture",
			Aliases:                []string{"c"},
			Usage:                  "registers a note or task and plans its recalls",
			UsageText:              "capture [--kind note|task] [--id ID] <text...|->",
			Description:            CaptureDescription,
			CustomHelpTemplate:     CMD_HELP_TEMPL,
			OnUsageError:           common.UsageErrorCallback,
			Action:                 capture,
			Flags:                  captureFlags,
			UseShortOptionHandling: true,
		},
		{
			Name:               "bookmark",
			Aliases:            []string{"b"},
			Usage:              "bookmarks an item, extending its recalls",
			UsageText:          "bookmark <item-id>",
			Description:        BookmarkDescription,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Action:             bookmark,
		},
		{
			Name:      "cancel",
			Usage:     "cancels every pending recall of an item",
			UsageText: "cancel <item-id>",
			Action:    cancelItem,
		},
		{
			Name:      "delete",
			Usage:     "deletes an item and all of its recalls",
			UsageText: "delete <item-id>",
			Action:    deleteItem,
		},
		{
			Name:               "snooze",
			Usage:              "recalls an item again after the snooze interval",
			UsageText:          "snooze [--record] <id>",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Action:             snooze,
			Flags:              snoozeFlags,
		},
		{
			Name:      "dismiss",
			Usage:     "hides a recall from the spotlight",
			UsageText: "dismiss <record-id>",
			Action:    dismiss,
		},
		{
			Name:   "spotlight",
			Usage:  "shows the recall to feature right now",
			Action: spotlight,
		},
		{
			Name:                   "list",
			Aliases:                []string{"l"},
			Usage:                  "lists schedule records",
			Description:            ListDescription,
			CustomHelpTemplate:     CMD_HELP_TEMPL,
			OnUsageError:           common.UsageErrorCallback,
			Action:                 list,
			Flags:                  lsFlags,
			UseShortOptionHandling: true,
		},
		{
			Name:   "stats",
			Usage:  "prints record counts and the last activation",
			Action: stats,
		},
		{
			Name:   "activate",
			Usage:  "runs a delivery pass in the daemon now",
			Action: activate,
		},
		{
			Name:   "watch",
			Usage:  "prints recalls as the daemon delivers them",
			Action: watch,
		},
		{
			Name:  "score",
			Usage: "reports interactions that rank the spotlight",
			Subcommands: []cli.Command{
				{
					Name:      "signal",
					Usage:     "records an interaction (open or edit)",
					UsageText: "score signal <item-id> <signal>",
					Action:    scoreSignal,
				},
				{
					Name:      "relate",
					Usage:     "links two items",
					UsageText: "score relate <item-a> <item-b>",
					Action:    scoreRelate,
				},
				{
					Name:      "view",
					Usage:     "reports an item entering or leaving the screen",
					UsageText: "score view <item-id> enter|leave",
					Action:    scoreView,
				},
			},
		},
		{
			Name:               "catchup",
			Usage:              "delivers overdue recalls without a daemon",
			Description:        CatchupDescription,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Action:             runCatchup,
			Flags:              catchupFlags,
		},
		{
			Name:        "config",
			Usage:       "manages the configuration file",
			Description: ConfigDescription,
			Subcommands: []cli.Command{
				{
					Name:   "init",
					Usage:  "writes a default config with a fresh RPC secret",
					Action: configInit,
					Flags:  configInitFlags,
				},
				{
					Name:   "show",
					Usage:  "prints the effective configuration",
					Action: configShow,
				},
			},
		},
		{
			Name:    "help",
			Aliases: []string{"h"},
			Usage:   "prints the help message",
			Action:  common.Help,
		},
		{
			Name:               "version",
			Aliases:            []string{"v"},
			Usage:              "prints installed version of recall",
			UsageText:          " ",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Action:             common.GetVersion,
		},
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app
}
