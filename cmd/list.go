package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/recallkit/recall/cmd/common"
	"github.com/recallkit/recall/internal/notify"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/recallcli"
	"github.com/urfave/cli"
)

const timeLayout = "2006-01-02 15:04"

var (
	lsItem  string
	lsLimit int

	lsFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "item, i",
			Usage:       "only list recalls of this item",
			Destination: &lsItem,
		},
		cli.StringSliceFlag{
			Name:  "status, s",
			Usage: "filter by status (pending, delivering, sent, ignored), repeatable",
		},
		cli.IntFlag{
			Name:        "limit, n",
			Usage:       "maximum number of records (default: all)",
			Destination: &lsLimit,
		},
	}
)

func list(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client := getClient(ctx, "list")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	l, err := client.List(cctx, &recallcli.ListOpts{
		ItemID: lsItem,
		Status: ctx.StringSlice("status"),
		Limit:  lsLimit,
	})
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "get_list", err)
		return nil
	}
	w := out(ctx)
	if len(l.Records) == 0 {
		fmt.Fprintln(w, "recall: no recalls found")
		return nil
	}
	txt := "Here are your recalls:"
	txt += "\n\n----------------------------------------------------------------------------"
	txt += "\n|Num|         Content         |   Label    |   Scheduled At   |   Status   |"
	txt += "\n|---|-------------------------|------------|------------------|------------|"
	for i, r := range l.Records {
		txt += fmt.Sprintf("\n|%s| %s | %s | %s | %s |",
			common.Beaut(fmt.Sprint(i+1), 3),
			common.Beaut(common.Truncate(r.ContentSnapshot, 23), 23),
			common.Beaut(common.Truncate(r.Label, 10), 10),
			r.ScheduledAt.Local().Format(timeLayout),
			common.Beaut(string(r.Status), 10),
		)
	}
	txt += "\n----------------------------------------------------------------------------"
	fmt.Fprintln(w, txt)
	return nil
}

func spotlight(ctx *cli.Context) error {
	client := getClient(ctx, "spotlight")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	res, err := client.Spotlight(cctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "spotlight", "get_spotlight", err)
		return nil
	}
	w := out(ctx)
	if !res.Found {
		fmt.Fprintln(w, "Nothing to recall right now")
		return nil
	}
	r := res.Record
	fmt.Fprintf(w, "Recall (%s, %s %s):\n%s\n\nrecord: %s\n", r.Label, r.ItemKind, r.ItemID, r.ContentSnapshot, r.ID)
	return nil
}

func stats(ctx *cli.Context) error {
	client := getClient(ctx, "stats")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	res, err := client.Stats(cctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "stats", "get_stats", err)
		return nil
	}
	w := out(ctx)
	statuses := []store.Status{store.StatusPending, store.StatusDelivering, store.StatusSent, store.StatusIgnored}
	for _, s := range statuses {
		fmt.Fprintf(w, "%-11s %d\n", s, res.Counts[s])
	}
	fmt.Fprintf(w, "%-11s %d\n", "timers", res.PendingTimers)
	if last := res.LastActivation; last != nil {
		fmt.Fprintf(w, "last activation: %s at %s, delivered %d of %d, pruned %d\n",
			last.Trigger, last.At.Local().Format(timeLayout),
			last.Scan.Delivered, last.Scan.Found, last.Pruned.Settled+last.Pruned.Stale)
	}
	return nil
}

func activate(ctx *cli.Context) error {
	client := getClient(ctx, "activate")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	res, err := client.Activate(cctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "activate", "activate", err)
		return nil
	}
	fmt.Fprintf(out(ctx), "Delivered %d, failed %d, reclaimed %d, pruned %d, armed %d timer(s)\n",
		res.Scan.Delivered, res.Scan.Failed, res.Reclaimed, res.Pruned.Settled+res.Pruned.Stale, res.Armed)
	return nil
}

func watch(ctx *cli.Context) error {
	client := getClient(ctx, "watch")
	if client == nil {
		return nil
	}
	defer client.Close()
	sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := out(ctx)
	fmt.Fprintln(w, "Watching for recalls, press Ctrl+C to stop")
	err := client.Watch(sctx, func(n notify.Notification) {
		fmt.Fprintf(w, "[%s] %s\n  %s\n  %s/%s\n", n.Tag, n.Title, n.Body, n.DeepLink.ItemKind, n.DeepLink.ItemID)
	})
	if err != nil && sctx.Err() == nil {
		common.PrintRuntimeErr(ctx, "watch", "watch", err)
	}
	return nil
}
