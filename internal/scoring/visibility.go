package scoring

import (
	"sync"
	"time"
)

// VisibilityTracker turns enter/leave events of a viewport into visibility
// spans. It is safe for concurrent use.
type VisibilityTracker struct {
	mu      sync.Mutex
	now     func() time.Time
	entered map[string]time.Time
}

// NewVisibilityTracker returns a tracker reading time from now, or from
// time.Now when now is nil.
func NewVisibilityTracker(now func() time.Time) *VisibilityTracker {
	if now == nil {
		now = time.Now
	}
	return &VisibilityTracker{now: now, entered: make(map[string]time.Time)}
}

// Enter marks an item as visible. Repeated calls keep the first entry time.
func (t *VisibilityTracker) Enter(itemID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entered[itemID]; !ok {
		t.entered[itemID] = t.now()
	}
}

// Leave ends the visibility span of an item and returns its length.
// ok is false when the item was never entered.
func (t *VisibilityTracker) Leave(itemID string) (d time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start, ok := t.entered[itemID]
	if !ok {
		return 0, false
	}
	delete(t.entered, itemID)
	return t.now().Sub(start), true
}

// Visible returns the number of items currently in view.
func (t *VisibilityTracker) Visible() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entered)
}
