package cmd

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/recallkit/recall/cmd/common"
	"github.com/recallkit/recall/internal/catchup"
	"github.com/recallkit/recall/internal/janitor"
	"github.com/recallkit/recall/internal/notify"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/logger"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
)

var (
	catchupPrune bool
	catchupQuiet bool

	catchupFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "prune, p",
			Usage:       "also delete expired records after the scan",
			Destination: &catchupPrune,
		},
		cli.BoolFlag{
			Name:        "quiet, q",
			Usage:       "hide the progress bar",
			Destination: &catchupQuiet,
		},
	}
)

// runCatchup opens the store directly and delivers overdue recalls to the
// terminal. It is safe to run next to a daemon; claims keep each record
// from being delivered twice.
func runCatchup(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "catchup", "load_config", err)
		return nil
	}
	bctx := context.Background()
	st, err := store.OpenDir(bctx, cfg.DataDir)
	if err != nil {
		common.PrintRuntimeErr(ctx, "catchup", "open_store", err)
		return nil
	}
	defer st.Close()

	l := logger.NewStandardLogger(log.New(errOut(ctx), "catchup: ", 0)).EnableDebug(cfg.Debug)
	now := store.Normalize(time.Now())
	if _, err := st.ReclaimExpired(bctx, now.Add(-cfg.ClaimLease.Std())); err != nil {
		common.PrintRuntimeErr(ctx, "catchup", "reclaim", err)
		return nil
	}

	var (
		mu        sync.Mutex
		delivered []notify.Notification
	)
	collect := notify.Func(func(_ context.Context, n notify.Notification) error {
		mu.Lock()
		delivered = append(delivered, n)
		mu.Unlock()
		return nil
	})
	sc := catchup.New(st, collect, l, nil)

	w := out(ctx)
	var (
		p   *mpb.Progress
		bar *mpb.Bar
	)
	if !catchupQuiet {
		p = mpb.New(mpb.WithOutput(w), mpb.WithWidth(48))
		sc.OnProgress = func(pr catchup.Progress) {
			if bar == nil {
				bar = common.InitScanBar(p, pr.Total)
			}
			bar.Increment()
		}
	}
	rep, err := sc.Scan(bctx, now)
	if p != nil {
		if bar != nil && !bar.Completed() {
			bar.Abort(false)
		}
		p.Wait()
	}
	if err != nil {
		common.PrintRuntimeErr(ctx, "catchup", "scan", err)
		return nil
	}

	for _, n := range delivered {
		fmt.Fprintf(w, "%s\n  %s\n  %s/%s\n", n.Title, n.Body, n.DeepLink.ItemKind, n.DeepLink.ItemID)
	}
	fmt.Fprintf(w, "Found %d overdue, delivered %d, failed %d, skipped %d\n",
		rep.Found, rep.Delivered, rep.Failed, rep.Skipped)

	if !catchupPrune {
		return nil
	}
	j, err := janitor.New(st, janitor.Config{
		SentRetention: cfg.Retention.Sent.Std(),
		StaleAfter:    cfg.Retention.Stale.Std(),
	}, l, nil)
	if err != nil {
		common.PrintRuntimeErr(ctx, "catchup", "janitor", err)
		return nil
	}
	pr, err := j.Prune(bctx, now)
	if err != nil {
		common.PrintRuntimeErr(ctx, "catchup", "prune", err)
		return nil
	}
	fmt.Fprintf(w, "Pruned %d settled and %d stale record(s)\n", pr.Settled, pr.Stale)
	return nil
}
