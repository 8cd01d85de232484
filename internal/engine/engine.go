// Package engine is the entry point used by capture and presentation
// code. It plans recall waterfalls, persists them, and wakes the
// delivery daemon.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recallkit/recall/internal/daemon"
	"github.com/recallkit/recall/internal/scoring"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/internal/waterfall"
	"github.com/recallkit/recall/pkg/logger"
)

// Triggerer wakes the delivery daemon.
type Triggerer interface {
	Trigger(reason string)
}

// Options configures an Engine.
type Options struct {
	Store *store.Store
	// Daemon is woken after schedules change. It may be nil.
	Daemon Triggerer
	Logger logger.Logger
	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time
	// Snooze is how far ahead a snoozed recall is rescheduled.
	Snooze time.Duration
	// SpotlightWindow keeps sent recalls eligible for the spotlight.
	SpotlightWindow time.Duration
}

// Engine implements the recall operations on top of the store.
type Engine struct {
	store   *store.Store
	daemon  Triggerer
	log     logger.Logger
	now     func() time.Time
	snooze  time.Duration
	feed    *scoring.Feed
	tracker *scoring.VisibilityTracker
}

// New returns an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Snooze <= 0 {
		return nil, fmt.Errorf("engine: snooze must be positive, got %s", opts.Snooze)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := logger.OrNop(opts.Logger)
	return &Engine{
		store:   opts.Store,
		daemon:  opts.Daemon,
		log:     log,
		now:     func() time.Time { return store.Normalize(now()) },
		snooze:  opts.Snooze,
		feed:    scoring.NewFeed(opts.Store, log, opts.SpotlightWindow),
		tracker: scoring.NewVisibilityTracker(now),
	}, nil
}

func (e *Engine) wake(reason string) {
	if e.daemon != nil {
		e.daemon.Trigger(reason)
	}
}

// Content is a captured item as handed over by the capture collaborator.
type Content struct {
	ID   string
	Kind store.Kind
	Text string
	// CreatedAt is the capture time. Zero means now.
	CreatedAt time.Time
}

// Registration is the outcome of RegisterContent.
type Registration struct {
	ItemID string `json:"itemId"`
	// Created is false when the item was already known; its text is
	// refreshed but no new recalls are planned.
	Created   bool           `json:"created"`
	Scheduled []store.Record `json:"scheduled"`
}

// RegisterContent mirrors a captured item and plans its capture
// waterfall. Registering a known item only refreshes its text.
func (e *Engine) RegisterContent(ctx context.Context, c Content) (Registration, error) {
	if c.ID == "" {
		return Registration{}, errors.New("register content: id is required")
	}
	if _, err := store.ParseKind(string(c.Kind)); err != nil {
		return Registration{}, fmt.Errorf("register content %s: %w", c.ID, err)
	}
	now := e.now()
	origin := store.Normalize(c.CreatedAt)
	if origin.IsZero() {
		origin = now
	}

	reg := Registration{ItemID: c.ID}
	created, err := e.store.UpsertItem(ctx, store.Item{ID: c.ID, Kind: c.Kind, Text: c.Text, CreatedAt: origin}, now)
	if err != nil {
		return reg, fmt.Errorf("register content %s: %w", c.ID, err)
	}
	reg.Created = created
	if !created {
		return reg, nil
	}

	slots := waterfall.Capture(c.Text, origin)
	if len(slots) == 0 {
		e.log.Debug("%s %s has %d words, not scheduled", c.Kind, c.ID, waterfall.WordCount(c.Text))
		return reg, nil
	}
	reg.Scheduled, err = e.persist(ctx, c.ID, c.Kind, c.Text, slots, waterfall.StageNew, now)
	if len(reg.Scheduled) > 0 {
		e.wake(daemon.TriggerCapture)
	}
	return reg, err
}

// persist writes one record per slot and advances the item's stage to
// the last slot written. Slots that already exist are skipped.
func (e *Engine) persist(ctx context.Context, itemID string, kind store.Kind, text string, slots []waterfall.Slot, from waterfall.Stage, now time.Time) ([]store.Record, error) {
	var (
		out  []store.Record
		errs []error
	)
	reached := from
	for _, slot := range slots {
		id, err := store.NewID()
		if err != nil {
			errs = append(errs, err)
			break
		}
		r := store.Record{
			ID:              id,
			ItemID:          itemID,
			ItemKind:        kind,
			ContentSnapshot: text,
			ScheduledAt:     slot.At,
			Status:          store.StatusPending,
			CreatedAt:       now,
			Label:           slot.Label,
		}
		err = e.store.Put(ctx, r)
		switch {
		case errors.Is(err, store.ErrDuplicateKey):
			reached = slot.Stage
			continue
		case err != nil:
			errs = append(errs, err)
			continue
		}
		reached = slot.Stage
		out = append(out, r)
	}
	if reached != from {
		if err := e.store.SetStage(ctx, itemID, int(reached)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		e.log.Error("schedule %s: %v", itemID, err)
		return out, fmt.Errorf("schedule %s: %w", itemID, err)
	}
	e.log.Debug("scheduled %d recalls for %s through %s", len(out), itemID, reached)
	return out, nil
}

// Extension is the outcome of ExtendOnBookmark.
type Extension struct {
	ItemID string `json:"itemId"`
	// Placed is false when the item was already bookmarked.
	Placed    bool           `json:"placed"`
	Scheduled []store.Record `json:"scheduled"`
}

// ExtendOnBookmark records a bookmark and, when it falls inside the
// validity window, plans the long-term recalls past the capture
// waterfall. The first bookmark time is authoritative.
func (e *Engine) ExtendOnBookmark(ctx context.Context, itemID string) (Extension, error) {
	now := e.now()
	ext := Extension{ItemID: itemID}
	placed, err := e.store.SetBookmark(ctx, itemID, now)
	if err != nil {
		return ext, fmt.Errorf("bookmark %s: %w", itemID, err)
	}
	ext.Placed = placed

	it, err := e.store.GetItem(ctx, itemID)
	if err != nil {
		return ext, fmt.Errorf("bookmark %s: %w", itemID, err)
	}
	stage := waterfall.Stage(it.ReviewStage)
	slots := waterfall.Extend(it.Text, it.CreatedAt, stage, it.BookmarkedAt)
	if len(slots) == 0 {
		if placed && !waterfall.BookmarkInWindow(it.CreatedAt, it.BookmarkedAt) {
			e.log.Debug("bookmark on %s after the validity window, chain ends at %s", itemID, stage)
		}
		return ext, nil
	}
	ext.Scheduled, err = e.persist(ctx, itemID, it.Kind, it.Text, slots, stage, now)
	if len(ext.Scheduled) > 0 {
		e.wake(daemon.TriggerCapture)
	}
	return ext, err
}

// CancelSchedules settles every live recall of an item as ignored and
// returns how many were cancelled. The item's chain is terminated, so a
// later bookmark does not revive it.
func (e *Engine) CancelSchedules(ctx context.Context, itemID string) (int, error) {
	n, err := e.store.IgnorePending(ctx, itemID, e.now())
	if err != nil {
		return 0, err
	}
	err = e.store.SetStage(ctx, itemID, int(waterfall.StageTerminated))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return n, fmt.Errorf("cancel %s: %w", itemID, err)
	}
	if n > 0 {
		e.log.Info("cancelled %d recalls for %s", n, itemID)
	}
	return n, nil
}

// DeleteContent removes an item and all of its recalls.
func (e *Engine) DeleteContent(ctx context.Context, itemID string) error {
	if err := e.store.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	e.log.Info("deleted %s and its recalls", itemID)
	return nil
}
