package cmd

import (
	"fmt"
	"os"

	"github.com/recallkit/recall/cmd/common"
	"github.com/urfave/cli"
)

func stopDaemon(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "stop", "load_config", err)
		return nil
	}
	pid, err := ReadPidFile(cfg.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(out(ctx), "Daemon is not running (PID file not found)")
			return nil
		}
		fmt.Fprintf(errOut(ctx), "Error reading PID file: %v\n", err)
		return nil
	}

	fmt.Fprintf(out(ctx), "Stopping daemon (PID %d)...\n", pid)
	if err := killDaemon(pid); err != nil {
		fmt.Fprintf(errOut(ctx), "Error stopping daemon: %v\n", err)
		return nil
	}
	// The daemon removes its PID file on the way out.
	fmt.Fprintln(out(ctx), "Daemon stopped successfully")
	return nil
}
