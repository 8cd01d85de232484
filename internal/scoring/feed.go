package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/logger"
)

// Store is the persistence the feed needs.
type Store interface {
	AddScore(ctx context.Context, id string, delta int) (int, error)
	AddRelation(ctx context.Context, a, b string, now time.Time) (bool, error)
	SpotlightCandidates(ctx context.Context, now, sentSince time.Time) ([]store.Candidate, error)
}

// Feed applies interaction signals to items and picks the spotlight.
type Feed struct {
	store Store
	log   logger.Logger
	// SentWindow is how long a delivered recall stays eligible for the
	// spotlight after it was sent.
	SentWindow time.Duration
}

// NewFeed creates a feed over st. A nil logger discards output.
func NewFeed(st Store, log logger.Logger, sentWindow time.Duration) *Feed {
	return &Feed{store: st, log: logger.OrNop(log), SentWindow: sentWindow}
}

// Record applies a reported open or edit signal to an item and returns its
// new score. Visible and relation signals are rejected with
// ErrNotReportable; use ReportVisible and Relate for those.
func (f *Feed) Record(ctx context.Context, itemID string, s Signal) (int, error) {
	if _, ok := weights[s]; !ok {
		return 0, fmt.Errorf("record signal: unknown signal %q", s)
	}
	if !Reportable(s) {
		return 0, fmt.Errorf("record signal: %w: %s", ErrNotReportable, s)
	}
	return f.apply(ctx, itemID, s)
}

func (f *Feed) apply(ctx context.Context, itemID string, s Signal) (int, error) {
	score, err := f.store.AddScore(ctx, itemID, Weight(s))
	if err != nil {
		return 0, fmt.Errorf("record %s signal: %w", s, err)
	}
	f.log.Debug("%s signal on %s, score now %d", s, itemID, score)
	return score, nil
}

// ReportVisible scores a visibility span. Spans shorter than MinVisible
// are dropped and reported as not counted.
func (f *Feed) ReportVisible(ctx context.Context, itemID string, d time.Duration) (counted bool, err error) {
	if d < MinVisible {
		return false, nil
	}
	if _, err := f.apply(ctx, itemID, SignalVisible); err != nil {
		return false, err
	}
	return true, nil
}

// Relate records a relation between two items. Both endpoints gain the
// relation weight the first time the pair is related; repeats return false.
func (f *Feed) Relate(ctx context.Context, a, b string, now time.Time) (bool, error) {
	created, err := f.store.AddRelation(ctx, a, b, now)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}
	for _, id := range []string{a, b} {
		if _, err := f.apply(ctx, id, SignalRelation); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Spotlight returns the highest ranked recall currently eligible for
// surfacing. ok is false when nothing is due.
func (f *Feed) Spotlight(ctx context.Context, now time.Time) (rec store.Record, ok bool, err error) {
	cands, err := f.store.SpotlightCandidates(ctx, now, now.Add(-f.SentWindow))
	if err != nil {
		return store.Record{}, false, err
	}
	if len(cands) == 0 {
		return store.Record{}, false, nil
	}
	Rank(cands)
	return cands[0].Record, true, nil
}
