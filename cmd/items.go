package cmd

import (
	"fmt"

	"github.com/recallkit/recall/cmd/common"
	"github.com/urfave/cli"
)

var (
	snoozeRecord bool

	snoozeFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "record, r",
			Usage:       "treat the id as a recall id and dismiss that recall",
			Destination: &snoozeRecord,
		},
	}
)

func bookmark(ctx *cli.Context) error {
	if !requireArgs(ctx, 1) {
		return nil
	}
	client := getClient(ctx, "bookmark")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	res, err := client.Bookmark(cctx, ctx.Args().First())
	if err != nil {
		common.PrintRuntimeErr(ctx, "bookmark", "bookmark", err)
		return nil
	}
	w := out(ctx)
	if !res.Placed {
		fmt.Fprintf(w, "%s was already bookmarked\n", res.ItemID)
	}
	if len(res.Scheduled) == 0 {
		fmt.Fprintln(w, "No recalls added")
		return nil
	}
	printSchedule(w, res.Scheduled)
	return nil
}

func cancelItem(ctx *cli.Context) error {
	if !requireArgs(ctx, 1) {
		return nil
	}
	client := getClient(ctx, "cancel")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	res, err := client.Cancel(cctx, ctx.Args().First())
	if err != nil {
		common.PrintRuntimeErr(ctx, "cancel", "cancel", err)
		return nil
	}
	fmt.Fprintf(out(ctx), "Cancelled %d recall(s)\n", res.Cancelled)
	return nil
}

func deleteItem(ctx *cli.Context) error {
	if !requireArgs(ctx, 1) {
		return nil
	}
	client := getClient(ctx, "delete")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	if err := client.Delete(cctx, ctx.Args().First()); err != nil {
		common.PrintRuntimeErr(ctx, "delete", "delete", err)
		return nil
	}
	fmt.Fprintf(out(ctx), "Deleted %s\n", ctx.Args().First())
	return nil
}

func snooze(ctx *cli.Context) error {
	if !requireArgs(ctx, 1) {
		return nil
	}
	client := getClient(ctx, "snooze")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()

	id := ctx.Args().First()
	snoozeFn := client.Snooze
	if snoozeRecord {
		snoozeFn = client.SnoozeRecord
	}
	res, err := snoozeFn(cctx, id)
	if err != nil {
		common.PrintRuntimeErr(ctx, "snooze", "snooze", err)
		return nil
	}
	fmt.Fprintf(out(ctx), "Snoozed %s until %s\n", res.Record.ItemID, res.Record.ScheduledAt.Local().Format(timeLayout))
	return nil
}

func dismiss(ctx *cli.Context) error {
	if !requireArgs(ctx, 1) {
		return nil
	}
	client := getClient(ctx, "dismiss")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	ok, err := client.Dismiss(cctx, ctx.Args().First())
	if err != nil {
		common.PrintRuntimeErr(ctx, "dismiss", "dismiss", err)
		return nil
	}
	if !ok {
		fmt.Fprintln(out(ctx), "Already dismissed")
		return nil
	}
	fmt.Fprintln(out(ctx), "Dismissed")
	return nil
}
