// Package catchup delivers every overdue recall after the host was
// suspended, killed or offline.
//
// The scan is the correctness mechanism of the engine: timers only make
// delivery prompt, while a scan after any gap in execution makes it
// complete. Records are claimed with a compare-and-set before delivery
// and marked sent right after, so overlapping scans never deliver the
// same record twice.
package catchup

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/recallkit/recall/internal/metrics"
	"github.com/recallkit/recall/internal/notify"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/logger"
)

// Store is the persistence the scanner needs.
type Store interface {
	QueryDue(ctx context.Context, now time.Time) ([]store.Record, error)
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	Release(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id string, now time.Time) (bool, error)
}

// Report summarizes one scan.
type Report struct {
	// Found is the number of overdue records at the start of the scan.
	Found int
	// Delivered records were handed to the surface and marked sent.
	Delivered int
	// Failed records stay pending and are retried by the next scan.
	Failed int
	// Skipped records were claimed or settled by someone else meanwhile.
	Skipped int
}

// Progress describes one processed record.
type Progress struct {
	Index  int
	Total  int
	Record store.Record
	// Outcome is one of the metrics result labels.
	Outcome string
	Err     error
}

// Scanner runs catch-up scans.
type Scanner struct {
	store   Store
	deliver notify.Deliverer
	log     logger.Logger
	metrics *metrics.Metrics

	// OnProgress, when set, is called after each record.
	OnProgress func(Progress)
}

// New returns a scanner. Logger and metrics may be nil.
func New(st Store, d notify.Deliverer, l logger.Logger, m *metrics.Metrics) *Scanner {
	return &Scanner{store: st, deliver: d, log: logger.OrNop(l), metrics: m}
}

// Scan delivers every pending record scheduled at or before now, one at a
// time in ascending scheduled order. A failed delivery is logged and the
// record released; the scan continues with the next one. Scan only
// returns an error when the due records cannot be read or ctx ends.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()
	due, err := s.store.QueryDue(ctx, now)
	if err != nil {
		return Report{}, fmt.Errorf("catch-up scan: %w", err)
	}
	rep := Report{Found: len(due)}
	defer func() { s.metrics.Scan(rep.Found, time.Since(start)) }()

	if len(due) > 0 {
		s.log.Info("catch-up: %d overdue recalls", len(due))
	}
	for i, r := range due {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		outcome, derr := s.deliverOne(ctx, r, now)
		switch outcome {
		case metrics.ResultSent:
			rep.Delivered++
		case metrics.ResultFailed:
			rep.Failed++
		default:
			rep.Skipped++
		}
		s.metrics.Delivery(outcome)
		if s.OnProgress != nil {
			s.OnProgress(Progress{Index: i, Total: len(due), Record: r, Outcome: outcome, Err: derr})
		}
		runtime.Gosched()
	}
	return rep, nil
}

func (s *Scanner) deliverOne(ctx context.Context, r store.Record, now time.Time) (string, error) {
	won, err := s.store.Claim(ctx, r.ID, now)
	if err != nil {
		s.log.Error("catch-up: claim %s: %v", r.ID, err)
		return metrics.ResultFailed, err
	}
	if !won {
		s.log.Debug("catch-up: %s already claimed or settled", r.ID)
		return metrics.ResultSkipped, nil
	}

	if err := s.deliver.Deliver(ctx, notify.FromRecord(r)); err != nil {
		s.log.Warning("catch-up: deliver %s (item %s, due %s): %v", r.ID, r.ItemID, r.ScheduledAt.Format(time.RFC3339), err)
		if _, rerr := s.store.Release(context.WithoutCancel(ctx), r.ID); rerr != nil {
			s.log.Error("catch-up: release %s: %v", r.ID, rerr)
		}
		return metrics.ResultFailed, err
	}

	// The surface already has it; settle even if ctx was cancelled meanwhile.
	if _, err := s.store.MarkSent(context.WithoutCancel(ctx), r.ID, now); err != nil {
		s.log.Error("catch-up: mark %s sent: %v", r.ID, err)
		return metrics.ResultFailed, err
	}
	s.log.Debug("catch-up: delivered %s (due %s)", r.ID, r.ScheduledAt.Format(time.RFC3339))
	return metrics.ResultSent, nil
}
