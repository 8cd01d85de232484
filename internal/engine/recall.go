package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recallkit/recall/internal/daemon"
	"github.com/recallkit/recall/internal/scoring"
	"github.com/recallkit/recall/internal/store"
)

// Snooze schedules one new recall of an item at now plus the snooze
// interval. Existing recalls are left untouched. Repeating the snooze at
// the same instant returns the record already scheduled there.
func (e *Engine) Snooze(ctx context.Context, itemID string) (store.Record, error) {
	it, err := e.store.GetItem(ctx, itemID)
	if err != nil {
		return store.Record{}, fmt.Errorf("snooze %s: %w", itemID, err)
	}
	id, err := store.NewID()
	if err != nil {
		return store.Record{}, err
	}
	now := e.now()
	r := store.Record{
		ID:              id,
		ItemID:          it.ID,
		ItemKind:        it.Kind,
		ContentSnapshot: it.Text,
		ScheduledAt:     now.Add(e.snooze),
		Status:          store.StatusPending,
		CreatedAt:       now,
		Label:           "snoozed " + shortDuration(e.snooze),
	}
	if err := e.store.Put(ctx, r); err != nil {
		if !errors.Is(err, store.ErrDuplicateKey) {
			return store.Record{}, fmt.Errorf("snooze %s: %w", itemID, err)
		}
		existing, gerr := e.store.GetAt(ctx, it.ID, r.ScheduledAt)
		if gerr != nil {
			return store.Record{}, fmt.Errorf("snooze %s: %w", itemID, gerr)
		}
		return existing, nil
	}
	e.wake(daemon.TriggerCapture)
	return r, nil
}

// SnoozeRecord dismisses a surfaced recall and snoozes its item.
func (e *Engine) SnoozeRecord(ctx context.Context, recordID string) (store.Record, error) {
	r, err := e.store.Get(ctx, recordID)
	if err != nil {
		return store.Record{}, err
	}
	if _, err := e.store.Dismiss(ctx, recordID, e.now()); err != nil {
		return store.Record{}, err
	}
	return e.Snooze(ctx, r.ItemID)
}

// Dismiss hides a recall from the spotlight; a recall not yet delivered
// is cancelled. It reports false when the recall was already dismissed.
func (e *Engine) Dismiss(ctx context.Context, recordID string) (bool, error) {
	if _, err := e.store.Get(ctx, recordID); err != nil {
		return false, err
	}
	return e.store.Dismiss(ctx, recordID, e.now())
}

// GetDueSpotlight returns the single recall to feature right now.
func (e *Engine) GetDueSpotlight(ctx context.Context) (store.Record, bool, error) {
	return e.feed.Spotlight(ctx, e.now())
}

// Records lists schedule records.
func (e *Engine) Records(ctx context.Context, f store.ListFilter) ([]store.Record, error) {
	return e.store.List(ctx, f)
}

// Stats returns record counts per status.
func (e *Engine) Stats(ctx context.Context) (map[store.Status]int, error) {
	return e.store.Counts(ctx)
}

// RecordSignal applies a reported open or edit signal and returns the new
// score.
func (e *Engine) RecordSignal(ctx context.Context, itemID string, s scoring.Signal) (int, error) {
	return e.feed.Record(ctx, itemID, s)
}

// Relate links two items; both gain score the first time.
func (e *Engine) Relate(ctx context.Context, a, b string) (bool, error) {
	return e.feed.Relate(ctx, a, b, e.now())
}

// ViewEnter marks an item as visible on screen.
func (e *Engine) ViewEnter(itemID string) {
	e.tracker.Enter(itemID)
}

// ViewLeave ends an item's visibility span and scores it when it lasted
// long enough.
func (e *Engine) ViewLeave(ctx context.Context, itemID string) (bool, error) {
	d, ok := e.tracker.Leave(itemID)
	if !ok {
		return false, nil
	}
	return e.feed.ReportVisible(ctx, itemID, d)
}

func shortDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	}
	return d.String()
}
