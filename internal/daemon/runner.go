// Package daemon runs the recall delivery loop.
//
// Each activation reclaims abandoned claims, runs the catch-up scan,
// prunes the store and re-arms near-term timers. Activations are
// serialized; triggers arriving while one runs are coalesced into a
// single follow-up activation.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/recallkit/recall/internal/catchup"
	"github.com/recallkit/recall/internal/janitor"
	"github.com/recallkit/recall/internal/metrics"
	"github.com/recallkit/recall/internal/scheduler"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/logger"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// Activation triggers.
const (
	TriggerStartup   = "startup"
	TriggerCapture   = "capture"
	TriggerHeartbeat = "heartbeat"
	TriggerTimer     = "timer"
	TriggerRPC       = "rpc"
	TriggerManual    = "manual"
)

const (
	heartbeatKey = "heartbeat"
	recordKey    = "record:"
)

// Defaults applied to zero Config fields.
const (
	DefaultHorizon    = time.Hour
	DefaultClaimLease = 2 * time.Minute
	DefaultHeartbeat  = "*/5 * * * *"
)

// Config holds the configuration for the daemon runner.
type Config struct {
	// Heartbeat is a cron expression for periodic activations.
	// Empty disables the heartbeat.
	Heartbeat string

	// Horizon bounds how far ahead timers are armed after an activation.
	Horizon time.Duration

	// ClaimLease is how long a delivering claim may be held before another
	// activation returns it to pending.
	ClaimLease time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// A zero value means no timeout.
	ShutdownTimeout time.Duration
}

// Store is the persistence the runner needs directly.
type Store interface {
	ReclaimExpired(ctx context.Context, before time.Time) (int, error)
	QueryUpcoming(ctx context.Context, from, to time.Time) ([]store.Record, error)
}

// Scanner runs catch-up scans.
type Scanner interface {
	Scan(ctx context.Context, now time.Time) (catchup.Report, error)
}

// Pruner runs retention passes.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (janitor.Report, error)
}

// Timers queues wake-ups.
type Timers interface {
	Add(scheduler.Event)
	Len() int
}

// Dependencies holds the external dependencies for the daemon runner.
// This enables dependency injection for testing.
type Dependencies struct {
	Store   Store
	Scanner Scanner
	Janitor Pruner

	// Logger receives activation summaries. Nil discards them.
	Logger logger.Logger
	// Metrics may be nil.
	Metrics *metrics.Metrics

	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time

	// TimerFactory starts the timer heap for one run.
	// If nil, scheduler.New is used.
	TimerFactory func(ctx context.Context, onFire func(key string)) Timers

	// ShutdownFunc is called during shutdown to clean up resources.
	// If nil, no cleanup function is called.
	ShutdownFunc func() error
}

// Result describes one activation.
type Result struct {
	Trigger   string         `json:"trigger"`
	At        time.Time      `json:"at"`
	Reclaimed int            `json:"reclaimed"`
	Scan      catchup.Report `json:"scan"`
	Pruned    janitor.Report `json:"pruned"`
	Armed     int            `json:"armed"`
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config *Config
	deps   *Dependencies
	log    logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	timers  Timers
	last    *Result

	// actMu serializes activations.
	actMu    sync.Mutex
	triggers chan string
}

// New creates a new daemon runner with the given configuration and dependencies.
// If config is nil, default values are used.
func New(config *Config, deps *Dependencies) (*Runner, error) {
	cfg := applyConfigDefaults(config)
	d := applyDependencyDefaults(deps)
	if d.Store == nil || d.Scanner == nil || d.Janitor == nil {
		return nil, errors.New("daemon: store, scanner and janitor are required")
	}
	return &Runner{
		config:   cfg,
		deps:     d,
		log:      logger.OrNop(d.Logger),
		triggers: make(chan string, 1),
	}, nil
}

// applyConfigDefaults returns a Config with default values applied for zero fields.
func applyConfigDefaults(config *Config) *Config {
	if config == nil {
		return &Config{
			Heartbeat:  DefaultHeartbeat,
			Horizon:    DefaultHorizon,
			ClaimLease: DefaultClaimLease,
		}
	}
	cfg := *config
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = DefaultClaimLease
	}
	return &cfg
}

// applyDependencyDefaults returns Dependencies with default values applied.
func applyDependencyDefaults(deps *Dependencies) *Dependencies {
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.TimerFactory == nil {
		deps.TimerFactory = func(ctx context.Context, onFire func(string)) Timers {
			return scheduler.New(ctx, onFire)
		}
	}
	return deps
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Start runs the startup activation and then serves triggers until the
// context is canceled or Shutdown is called.
// Returns ErrAlreadyRunning if the daemon is already started.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.timers = r.deps.TimerFactory(ctx, r.onFire)
	r.running = true
	r.mu.Unlock()

	if err := r.armHeartbeat(); err != nil {
		r.log.Warning("heartbeat disabled: %v", err)
	}

	if _, err := r.Activate(ctx, TriggerStartup); err != nil && ctx.Err() == nil {
		r.log.Error("startup activation: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.cleanupOnStop()
			return ctx.Err()
		case reason := <-r.triggers:
			if _, err := r.Activate(ctx, reason); err != nil && ctx.Err() == nil {
				r.log.Error("%s activation: %v", reason, err)
			}
		}
	}
}

func (r *Runner) armHeartbeat() error {
	if r.config.Heartbeat == "" {
		return nil
	}
	next, err := scheduler.NextCron(r.config.Heartbeat, r.deps.Now())
	if err != nil {
		return fmt.Errorf("cron %q: %w", r.config.Heartbeat, err)
	}
	r.currentTimers().Add(scheduler.Event{Key: heartbeatKey, At: next, Cron: r.config.Heartbeat})
	return nil
}

func (r *Runner) onFire(key string) {
	if key == heartbeatKey {
		r.Trigger(TriggerHeartbeat)
		return
	}
	r.Trigger(TriggerTimer)
}

// Trigger requests an activation without waiting for it. Requests made
// while one is already queued are merged into it.
func (r *Runner) Trigger(reason string) {
	select {
	case r.triggers <- reason:
	default:
	}
}

// Activate runs one activation synchronously and returns its result.
// It may be called without Start, in which case no timers are armed.
// A janitor failure is logged and does not fail the activation.
func (r *Runner) Activate(ctx context.Context, reason string) (Result, error) {
	r.actMu.Lock()
	defer r.actMu.Unlock()

	now := r.deps.Now()
	res := Result{Trigger: reason, At: now}
	r.deps.Metrics.Activation(reason)

	n, err := r.deps.Store.ReclaimExpired(ctx, now.Add(-r.config.ClaimLease))
	if err != nil {
		r.log.Error("reclaim expired claims: %v", err)
	}
	res.Reclaimed = n
	if n > 0 {
		r.log.Warning("returned %d abandoned deliveries to pending", n)
	}

	res.Scan, err = r.deps.Scanner.Scan(ctx, now)
	if err != nil {
		r.remember(res)
		return res, fmt.Errorf("activation: %w", err)
	}

	res.Pruned, err = r.deps.Janitor.Prune(ctx, now)
	if err != nil {
		r.log.Error("retention: %v", err)
	}

	res.Armed, err = r.rearm(ctx, now)
	if err != nil {
		r.log.Error("re-arm timers: %v", err)
	}

	r.log.Debug("activation (%s): found %d, delivered %d, failed %d, pruned %d, armed %d",
		reason, res.Scan.Found, res.Scan.Delivered, res.Scan.Failed,
		res.Pruned.Settled+res.Pruned.Stale, res.Armed)
	r.remember(res)
	return res, nil
}

// rearm queues a timer for every pending record due within the horizon.
func (r *Runner) rearm(ctx context.Context, now time.Time) (int, error) {
	timers := r.currentTimers()
	if timers == nil {
		return 0, nil
	}
	upcoming, err := r.deps.Store.QueryUpcoming(ctx, now, now.Add(r.config.Horizon))
	if err != nil {
		return 0, err
	}
	for _, rec := range upcoming {
		timers.Add(scheduler.Event{Key: recordKey + rec.ID, At: rec.ScheduledAt})
	}
	return len(upcoming), nil
}

func (r *Runner) currentTimers() Timers {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timers
}

func (r *Runner) remember(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &res
}

// Last returns the most recent activation result.
func (r *Runner) Last() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Result{}, false
	}
	return *r.last, true
}

// PendingTimers returns the number of armed timers, including the heartbeat.
func (r *Runner) PendingTimers() int {
	timers := r.currentTimers()
	if timers == nil {
		return 0
	}
	return timers.Len()
}

// cleanupOnStop performs cleanup when the daemon stops.
func (r *Runner) cleanupOnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	r.timers = nil
}

// Shutdown gracefully stops the daemon.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if the shutdown function exceeds the configured timeout.
func (r *Runner) Shutdown() error {
	if err := r.validateRunning(); err != nil {
		return err
	}

	if err := r.executeShutdownFunc(); err != nil {
		return err
	}

	r.performShutdown()
	return nil
}

// validateRunning checks if the daemon is running.
func (r *Runner) validateRunning() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}
	return nil
}

// executeShutdownFunc runs the shutdown function with timeout if configured.
func (r *Runner) executeShutdownFunc() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}

	if r.config.ShutdownTimeout > 0 {
		return r.executeWithTimeout(r.deps.ShutdownFunc, r.config.ShutdownTimeout)
	}

	// Shutdown must proceed regardless of cleanup errors.
	_ = r.deps.ShutdownFunc()
	return nil
}

// executeWithTimeout runs a function with a timeout.
// Returns ErrShutdownTimeout if the function exceeds the timeout.
func (r *Runner) executeWithTimeout(fn func() error, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		r.performShutdown()
		return ErrShutdownTimeout
	}
}

// performShutdown cancels the run context.
func (r *Runner) performShutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
