package cmd

import (
	"fmt"

	"github.com/recallkit/recall/cmd/common"
	"github.com/urfave/cli"
)

func scoreSignal(ctx *cli.Context) error {
	if !requireArgs(ctx, 2) {
		return nil
	}
	client := getClient(ctx, "score")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	score, err := client.Signal(cctx, ctx.Args().Get(0), ctx.Args().Get(1))
	if err != nil {
		common.PrintRuntimeErr(ctx, "score", "signal", err)
		return nil
	}
	fmt.Fprintf(out(ctx), "Score of %s is now %d\n", ctx.Args().Get(0), score)
	return nil
}

func scoreRelate(ctx *cli.Context) error {
	if !requireArgs(ctx, 2) {
		return nil
	}
	client := getClient(ctx, "score")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	created, err := client.Relate(cctx, ctx.Args().Get(0), ctx.Args().Get(1))
	if err != nil {
		common.PrintRuntimeErr(ctx, "score", "relate", err)
		return nil
	}
	if !created {
		fmt.Fprintln(out(ctx), "Items were already related")
		return nil
	}
	fmt.Fprintln(out(ctx), "Related")
	return nil
}

func scoreView(ctx *cli.Context) error {
	if !requireArgs(ctx, 2) {
		return nil
	}
	client := getClient(ctx, "score")
	if client == nil {
		return nil
	}
	defer client.Close()
	cctx, cancel := callContext()
	defer cancel()
	counted, err := client.View(cctx, ctx.Args().Get(0), ctx.Args().Get(1))
	if err != nil {
		common.PrintRuntimeErr(ctx, "score", "view", err)
		return nil
	}
	if counted {
		fmt.Fprintln(out(ctx), "View counted")
	}
	return nil
}
