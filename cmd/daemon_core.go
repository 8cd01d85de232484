package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/recallkit/recall/internal/catchup"
	"github.com/recallkit/recall/internal/config"
	"github.com/recallkit/recall/internal/daemon"
	"github.com/recallkit/recall/internal/engine"
	"github.com/recallkit/recall/internal/janitor"
	"github.com/recallkit/recall/internal/metrics"
	"github.com/recallkit/recall/internal/notify"
	"github.com/recallkit/recall/internal/server"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// DaemonComponents holds all initialized daemon components.
type DaemonComponents struct {
	Config   config.Config
	Store    *store.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Notifier *server.RPCNotifier
	Scanner  *catchup.Scanner
	Janitor  *janitor.Janitor
	Runner   *daemon.Runner
	Engine   *engine.Engine
	RPC      *server.RPCServer
	Web      *server.WebServer
	logger   logger.Logger
}

// Close releases all daemon component resources in reverse order of initialization.
func (c *DaemonComponents) Close() {
	if c.logger != nil {
		c.logger.Info("Shutting down daemon...")
	}
	if c.Web != nil {
		_ = c.Web.Shutdown(context.Background())
	}
	if c.RPC != nil {
		c.RPC.Close()
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil && c.logger != nil {
			c.logger.Error("close store: %v", err)
		}
	}
	if c.logger != nil {
		c.logger.Info("Daemon stopped")
	}
}

// surfaces builds the delivery chain configured in cfg.
func surfaces(cfg config.Config, n *server.RPCNotifier, log logger.Logger) (notify.Deliverer, error) {
	var ds []notify.Deliverer
	if cfg.HasSurface(config.SurfaceRPC) {
		ds = append(ds, n)
	}
	if cfg.HasSurface(config.SurfaceLog) {
		ds = append(ds, notify.NewLog(log))
	}
	return notify.NewDedup(notify.NewMulti(ds...), cfg.DedupSize)
}

// initDaemonComponents opens the store and wires the delivery daemon,
// the engine and the web server on top of it.
//
// On error, any partially initialized components are cleaned up before returning.
var initDaemonComponents = func(ctx context.Context, cfg config.Config, log logger.Logger) (*DaemonComponents, error) {
	st, err := store.OpenDir(ctx, cfg.DataDir)
	if err != nil {
		log.Error("Store initialization failed: %v", err)
		return nil, err
	}
	c := &DaemonComponents{Config: cfg, Store: st, logger: log}

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.MustNewMetrics(c.Registry)

	c.Notifier = server.NewRPCNotifier(log)
	deliver, err := surfaces(cfg, c.Notifier, log)
	if err != nil {
		log.Error("Delivery surface initialization failed: %v", err)
		c.Close()
		return nil, err
	}
	c.Scanner = catchup.New(st, deliver, log, c.Metrics)

	c.Janitor, err = janitor.New(st, janitor.Config{
		SentRetention: cfg.Retention.Sent.Std(),
		StaleAfter:    cfg.Retention.Stale.Std(),
	}, log, c.Metrics)
	if err != nil {
		log.Error("Janitor initialization failed: %v", err)
		c.Close()
		return nil, err
	}

	c.Runner, err = daemon.New(&daemon.Config{
		Heartbeat:       cfg.Heartbeat,
		Horizon:         cfg.Horizon.Std(),
		ClaimLease:      cfg.ClaimLease.Std(),
		ShutdownTimeout: shutdownTimeout,
	}, &daemon.Dependencies{
		Store:   st,
		Scanner: c.Scanner,
		Janitor: c.Janitor,
		Logger:  log,
		Metrics: c.Metrics,
	})
	if err != nil {
		log.Error("Daemon initialization failed: %v", err)
		c.Close()
		return nil, err
	}

	c.Engine, err = engine.New(engine.Options{
		Store:           st,
		Daemon:          c.Runner,
		Logger:          log,
		Snooze:          cfg.Snooze.Std(),
		SpotlightWindow: cfg.Retention.Sent.Std(),
	})
	if err != nil {
		log.Error("Engine initialization failed: %v", err)
		c.Close()
		return nil, err
	}

	c.RPC = server.NewRPCServer(&server.RPCConfig{
		Secret:    cfg.RPCSecret,
		Version:   currentBuildArgs.Version,
		Commit:    currentBuildArgs.Commit,
		BuildType: currentBuildArgs.BuildType,
	}, c.Engine, c.Runner, log)
	c.Web = server.NewWebServer(server.WebConfig{
		Listen:         cfg.Listen,
		AllowedOrigins: cfg.AllowedOrigins,
	}, c.RPC, c.Notifier, c.Registry, log)
	return c, nil
}

// Run starts the delivery loop and the web server and blocks until ctx
// is cancelled or either of them fails.
func (c *DaemonComponents) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := c.Runner.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := c.Web.Start(); err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return c.Web.Shutdown(context.Background())
	})
	return g.Wait()
}
