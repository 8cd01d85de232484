package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/recallkit/recall/cmd/common"
	"github.com/recallkit/recall/internal/config"
	"github.com/urfave/cli"
)

var (
	configForce bool

	configInitFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "force, f",
			Usage:       "overwrite an existing config and rotate the RPC secret",
			Destination: &configForce,
		},
	}
)

func configInit(ctx *cli.Context) error {
	dir, err := config.DataDir(os.Getenv)
	if err != nil {
		common.PrintRuntimeErr(ctx, "config", "data_dir", err)
		return nil
	}
	cfg, err := config.WriteDefault(dir, configForce)
	if errors.Is(err, config.ErrConfigExists) {
		fmt.Fprintf(out(ctx), "%v\nUse --force to overwrite it.\n", err)
		return nil
	}
	if err != nil {
		common.PrintRuntimeErr(ctx, "config", "write", err)
		return nil
	}
	fmt.Fprintf(out(ctx), "Wrote %s\n", cfg.Path())
	return nil
}

func configShow(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "config", "load", err)
		return nil
	}
	if cfg.RPCSecret != "" {
		cfg.RPCSecret = maskSecret(cfg.RPCSecret)
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		common.PrintRuntimeErr(ctx, "config", "encode", err)
		return nil
	}
	fmt.Fprintf(out(ctx), "# %s\n%s\n", cfg.Path(), b)
	return nil
}

// maskSecret keeps the first four characters of s.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
