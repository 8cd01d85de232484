package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/recallkit/recall/cmd/common"
	"github.com/recallkit/recall/internal/config"
	"github.com/recallkit/recall/pkg/recallcli"
	"github.com/urfave/cli"
)

// callTimeout bounds a single CLI request to the daemon.
const callTimeout = 15 * time.Second

// loadConfig is swapped out by tests.
var loadConfig = func() (config.Config, error) {
	return config.Load(os.Getenv)
}

// getClient loads the configuration and returns a client for the daemon
// it describes. Errors are printed and reported as a nil client.
func getClient(ctx *cli.Context, cmd string) *recallcli.Client {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, cmd, "load_config", err)
		return nil
	}
	if cfg.RPCSecret == "" {
		common.PrintRuntimeErr(ctx, cmd, "load_config", errors.New("no RPC secret configured, run 'recall config init'"))
		return nil
	}
	c := recallcli.NewClient(recallcli.Endpoint(cfg.Listen), cfg.RPCSecret)
	c.CheckVersionMismatch(context.Background(), errOut(ctx), currentBuildArgs.Version)
	return c
}

func callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}

func out(ctx *cli.Context) io.Writer {
	if ctx.App.Writer != nil {
		return ctx.App.Writer
	}
	return os.Stdout
}

func errOut(ctx *cli.Context) io.Writer {
	if ctx.App.ErrWriter != nil {
		return ctx.App.ErrWriter
	}
	return os.Stderr
}

// requireArgs prints the command help when fewer than n arguments are given.
func requireArgs(ctx *cli.Context, n int) bool {
	if ctx.Args().First() == "help" {
		_ = cli.ShowCommandHelp(ctx, ctx.Command.Name)
		return false
	}
	if ctx.NArg() < n {
		fmt.Fprintf(out(ctx), "%s: %s: expected %d argument(s), usage: %s\n",
			ctx.App.HelpName, ctx.Command.Name, n, ctx.Command.UsageText)
		return false
	}
	return true
}
