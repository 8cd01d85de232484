package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/recallkit/recall/cmd/common"
	"github.com/recallkit/recall/internal/config"
	"github.com/recallkit/recall/pkg/logger"
	"github.com/urfave/cli"
)

const logFileName = "daemon.log"

func runDaemon(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "load_config", err)
		return nil
	}
	if cfg.RPCSecret == "" {
		// First run: persist a config so clients can find the secret.
		written, err := config.WriteDefault(cfg.DataDir, false)
		if err != nil && !errors.Is(err, config.ErrConfigExists) {
			common.PrintRuntimeErr(ctx, "daemon", "write_config", err)
			return nil
		}
		if err == nil {
			fmt.Fprintf(out(ctx), "Wrote default config to %s\n", written.Path())
			cfg.RPCSecret = written.RPCSecret
		}
	}
	if cfg.RPCSecret == "" {
		common.PrintRuntimeErr(ctx, "daemon", "load_config", errors.New("no RPC secret configured, run 'recall config init'"))
		return nil
	}

	if pid, err := ReadPidFile(cfg.DataDir); err == nil && isProcessRunning(pid) && pid != os.Getpid() {
		common.PrintRuntimeErr(ctx, "daemon", "pidfile", fmt.Errorf("daemon already running (PID %d)", pid))
		return nil
	}

	l, closeLog, err := daemonLogger(cfg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "open_log", err)
		return nil
	}
	defer closeLog()

	if err := WritePidFile(cfg.DataDir); err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "pidfile", err)
		return nil
	}
	defer func() { _ = RemovePidFile(cfg.DataDir) }()

	sctx, cancel := setupShutdownHandler()
	defer cancel()

	c, err := initDaemonComponents(sctx, cfg, l)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "init", err)
		return nil
	}
	defer c.Close()

	l.Info("recall daemon %s started (data dir %s)", currentBuildArgs.Version, cfg.DataDir)
	if err := c.Run(sctx); err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "run", err)
	}
	return nil
}

// daemonLogger logs to stderr and to a file in the data directory.
func daemonLogger(cfg config.Config) (logger.Logger, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(cfg.DataDir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	console := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags)).EnableDebug(cfg.Debug)
	file := logger.NewStandardLogger(log.New(f, "", log.LstdFlags|log.Lmicroseconds)).EnableDebug(cfg.Debug)
	l := logger.NewMultiLogger(console, file)
	return l, func() {
		_ = l.Close()
		_ = f.Close()
	}, nil
}
