// Package janitor bounds the schedule store by deleting records that no
// longer serve any purpose.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recallkit/recall/internal/metrics"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/logger"
)

// Store is the persistence the janitor needs.
type Store interface {
	DeleteWhere(ctx context.Context, p store.Predicate) (int, error)
}

// Config holds the retention thresholds.
type Config struct {
	// SentRetention is how long a settled (sent or ignored) record is kept.
	SentRetention time.Duration
	// StaleAfter is how far past its time a pending record may fall before
	// it is dropped undelivered.
	StaleAfter time.Duration
}

// Report counts deleted records.
type Report struct {
	Settled int
	Stale   int
}

// Janitor prunes the store.
type Janitor struct {
	store   Store
	cfg     Config
	log     logger.Logger
	metrics *metrics.Metrics
}

// New returns a janitor. Both thresholds must be positive.
func New(st Store, cfg Config, l logger.Logger, m *metrics.Metrics) (*Janitor, error) {
	if cfg.SentRetention <= 0 || cfg.StaleAfter <= 0 {
		return nil, fmt.Errorf("janitor: thresholds must be positive (sent %s, stale %s)", cfg.SentRetention, cfg.StaleAfter)
	}
	return &Janitor{store: st, cfg: cfg, log: logger.OrNop(l), metrics: m}, nil
}

// Prune deletes settled records older than the sent retention and pending
// records overdue by more than the stale threshold. Both passes run even
// if one fails; the joined error is returned and the next call retries.
func (j *Janitor) Prune(ctx context.Context, now time.Time) (Report, error) {
	var (
		rep  Report
		errs []error
	)

	n, err := j.store.DeleteWhere(ctx, store.Predicate{
		Statuses:      []store.Status{store.StatusSent, store.StatusIgnored},
		SettledBefore: now.Add(-j.cfg.SentRetention),
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("prune settled: %w", err))
	} else {
		rep.Settled = n
		j.metrics.Pruned(metrics.ReasonSettled, n)
	}

	n, err = j.store.DeleteWhere(ctx, store.Predicate{
		Statuses:        []store.Status{store.StatusPending},
		ScheduledBefore: now.Add(-j.cfg.StaleAfter),
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("prune stale: %w", err))
	} else {
		rep.Stale = n
		j.metrics.Pruned(metrics.ReasonStale, n)
	}

	if rep.Settled+rep.Stale > 0 {
		j.log.Info("janitor: pruned %d settled and %d stale records", rep.Settled, rep.Stale)
	}
	return rep, errors.Join(errs...)
}
