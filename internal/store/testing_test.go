package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

var base = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), DBFileName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedItem(t *testing.T, s *Store, id string) Item {
	t.Helper()
	it := Item{ID: id, Kind: KindNote, Text: "some captured text", CreatedAt: base}
	if _, err := s.UpsertItem(context.Background(), it, base); err != nil {
		t.Fatalf("seed item %s: %v", id, err)
	}
	return it
}

func putRecord(t *testing.T, s *Store, itemID string, at time.Time) Record {
	t.Helper()
	id, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	r := Record{
		ID:              id,
		ItemID:          itemID,
		ItemKind:        KindNote,
		ContentSnapshot: "snapshot of " + itemID,
		ScheduledAt:     at,
		Status:          StatusPending,
		CreatedAt:       base,
		Label:           "test recall",
	}
	if err := s.Put(context.Background(), r); err != nil {
		t.Fatalf("put record: %v", err)
	}
	return r
}

func recordIDs(rs []Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
