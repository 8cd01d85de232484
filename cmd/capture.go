package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/recallkit/recall/cmd/common"
	"github.com/recallkit/recall/internal/store"
	"github.com/urfave/cli"
)

var (
	captureID        string
	captureKind      string
	captureCreatedAt string

	// stdin is read by "recall capture -".
	stdin io.Reader = os.Stdin

	captureFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "id, i",
			Usage:       "item id (default: a new UUID)",
			Destination: &captureID,
		},
		cli.StringFlag{
			Name:        "kind, k",
			Usage:       "content kind, note or task",
			Value:       string(store.KindNote),
			Destination: &captureKind,
		},
		cli.StringFlag{
			Name:        "created-at",
			Usage:       "capture time in RFC 3339 (default: now)",
			Destination: &captureCreatedAt,
		},
	}
)

func capture(ctx *cli.Context) error {
	if !requireArgs(ctx, 1) {
		return nil
	}
	text, err := captureText(ctx.Args())
	if err != nil {
		common.PrintRuntimeErr(ctx, "capture", "read_text", err)
		return nil
	}
	var createdAt time.Time
	if captureCreatedAt != "" {
		createdAt, err = time.Parse(time.RFC3339, captureCreatedAt)
		if err != nil {
			common.PrintRuntimeErr(ctx, "capture", "parse_created_at", err)
			return nil
		}
	}
	id := captureID
	if id == "" {
		id = uuid.NewString()
	}

	client := getClient(ctx, "capture")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	res, err := client.Register(cctx, id, captureKind, text, createdAt)
	if err != nil {
		common.PrintRuntimeErr(ctx, "capture", "register", err)
		return nil
	}
	w := out(ctx)
	fmt.Fprintf(w, "Captured %s %s\n", captureKind, res.ItemID)
	if res.Warning != "" {
		fmt.Fprintf(w, "warning: %s\n", res.Warning)
	}
	switch {
	case !res.Created:
		fmt.Fprintln(w, "Item already known, text refreshed")
	case len(res.Scheduled) == 0:
		fmt.Fprintln(w, "Too short to recall, nothing scheduled")
	default:
		printSchedule(w, res.Scheduled)
	}
	return nil
}

// captureText joins the arguments, or reads stdin when the only argument
// is "-".
func captureText(args cli.Args) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return strings.Join(args, " "), nil
}

func printSchedule(w io.Writer, recs []store.Record) {
	fmt.Fprintf(w, "Scheduled %d recall(s):\n", len(recs))
	for _, r := range recs {
		fmt.Fprintf(w, "  %-10s %s  %s\n", r.Label, r.ScheduledAt.Local().Format(timeLayout), r.ID)
	}
}
