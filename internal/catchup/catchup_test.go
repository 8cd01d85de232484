package catchup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/recallkit/recall/internal/metrics"
	"github.com/recallkit/recall/internal/notify"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/internal/waterfall"
	"github.com/recallkit/recall/pkg/logger"
)

var origin = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

const twentyWords = "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty"

type surface struct {
	mu     sync.Mutex
	tags   []string
	failOn map[string]bool
}

func (s *surface) Deliver(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[n.Tag] {
		return errors.New("surface offline")
	}
	s.tags = append(s.tags, n.Tag)
	return nil
}

func (s *surface) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tags...)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), store.DBFileName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// capture mirrors the note and persists its capture waterfall.
func capture(t *testing.T, st *store.Store, itemID string) []store.Record {
	t.Helper()
	ctx := context.Background()
	if _, err := st.UpsertItem(ctx, store.Item{ID: itemID, Kind: store.KindNote, Text: twentyWords, CreatedAt: origin}, origin); err != nil {
		t.Fatal(err)
	}
	var out []store.Record
	for i, slot := range waterfall.Capture(twentyWords, origin) {
		r := store.Record{
			ID:              fmt.Sprintf("%s-%d", itemID, i),
			ItemID:          itemID,
			ItemKind:        store.KindNote,
			ContentSnapshot: twentyWords,
			ScheduledAt:     slot.At,
			Status:          store.StatusPending,
			CreatedAt:       origin,
			Label:           slot.Label,
		}
		if err := st.Put(ctx, r); err != nil {
			t.Fatal(err)
		}
		out = append(out, r)
	}
	return out
}

func tagsOf(rs []store.Record) []string {
	var out []string
	for _, r := range rs {
		out = append(out, notify.TagFor(r.ID))
	}
	return out
}

func TestScan_FiveDaySuspension(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	recs := capture(t, st, "note")
	surf := &surface{}
	sc := New(st, surf, logger.NewMockLogger(), metrics.MustNewMetrics(prometheus.NewRegistry()))

	rep, err := sc.Scan(ctx, origin.Add(5*24*time.Hour))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if diff := cmp.Diff(Report{Found: 3, Delivered: 3}, rep); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(tagsOf(recs), surf.delivered()); diff != "" {
		t.Fatalf("delivery order mismatch (-want +got):\n%s", diff)
	}

	// A sent record is never delivered again.
	rep, err = sc.Scan(ctx, origin.Add(6*24*time.Hour))
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if rep.Found != 0 || len(surf.delivered()) != 3 {
		t.Fatalf("rescan redelivered: report=%+v delivered=%v", rep, surf.delivered())
	}
	for _, r := range recs {
		got, _ := st.Get(ctx, r.ID)
		if got.Status != store.StatusSent {
			t.Fatalf("%s: expected sent, got %s", r.ID, got.Status)
		}
	}
}

func TestScan_OnlyDueRecords(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	recs := capture(t, st, "note")
	surf := &surface{}
	sc := New(st, surf, nil, nil)

	rep, err := sc.Scan(ctx, origin.Add(10*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Delivered != 1 {
		t.Fatalf("expected only the first recall, got %+v", rep)
	}
	if diff := cmp.Diff(tagsOf(recs[:1]), surf.delivered()); diff != "" {
		t.Fatalf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestScan_FailureIsRetried(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	recs := capture(t, st, "note")
	failTag := notify.TagFor(recs[1].ID)
	surf := &surface{failOn: map[string]bool{failTag: true}}
	log := logger.NewMockLogger()
	sc := New(st, surf, log, nil)

	var progress []string
	sc.OnProgress = func(p Progress) {
		progress = append(progress, fmt.Sprintf("%d/%d %s %s", p.Index+1, p.Total, p.Record.ID, p.Outcome))
	}

	at := origin.Add(100 * time.Hour)
	rep, err := sc.Scan(ctx, at)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Report{Found: 3, Delivered: 2, Failed: 1}, rep); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	wantProgress := []string{
		"1/3 note-0 sent",
		"2/3 note-1 failed",
		"3/3 note-2 sent",
	}
	if diff := cmp.Diff(wantProgress, progress); diff != "" {
		t.Fatalf("progress mismatch (-want +got):\n%s", diff)
	}
	if len(log.Warnings()) != 1 {
		t.Fatalf("expected one per-record warning, got %v", log.Warnings())
	}
	got, _ := st.Get(ctx, recs[1].ID)
	if got.Status != store.StatusPending {
		t.Fatalf("failed record must be released to pending, got %s", got.Status)
	}

	surf.mu.Lock()
	surf.failOn = nil
	surf.mu.Unlock()
	rep, err = sc.Scan(ctx, at)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Report{Found: 1, Delivered: 1}, rep); diff != "" {
		t.Fatalf("retry report mismatch (-want +got):\n%s", diff)
	}
}

// lostClaims wraps a store and loses every claim race.
type lostClaims struct {
	Store
}

func (lostClaims) Claim(context.Context, string, time.Time) (bool, error) { return false, nil }

func TestScan_SkipsLostClaims(t *testing.T) {
	st := openStore(t)
	capture(t, st, "note")
	surf := &surface{}
	sc := New(lostClaims{st}, surf, nil, nil)

	rep, err := sc.Scan(context.Background(), origin.Add(100*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Report{Found: 3, Skipped: 3}, rep); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	if len(surf.delivered()) != 0 {
		t.Fatalf("nothing should be delivered, got %v", surf.delivered())
	}
}

func TestScan_StopsOnCancel(t *testing.T) {
	st := openStore(t)
	capture(t, st, "note")
	surf := &surface{}
	sc := New(st, surf, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sc.OnProgress = func(Progress) { cancel() }

	rep, err := sc.Scan(ctx, origin.Add(100*time.Hour))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if rep.Delivered != 1 || len(surf.delivered()) != 1 {
		t.Fatalf("expected one delivery before cancel, got %+v", rep)
	}
}

func TestScan_QueryFailure(t *testing.T) {
	st := openStore(t)
	_ = st.Close()
	sc := New(st, &surface{}, nil, nil)
	if _, err := sc.Scan(context.Background(), origin); err == nil {
		t.Fatal("expected error from closed store")
	}
}
