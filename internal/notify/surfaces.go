package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/recallkit/recall/pkg/logger"
)

// Log is a surface that writes notifications to a logger. It never fails.
type Log struct {
	log logger.Logger
}

// NewLog returns a log surface.
func NewLog(l logger.Logger) *Log {
	return &Log{log: logger.OrNop(l)}
}

// Deliver logs n.
func (s *Log) Deliver(_ context.Context, n Notification) error {
	s.log.Info("%s [%s] %s (%s %s)", n.Title, n.Tag, n.Body, n.DeepLink.ItemKind, n.DeepLink.ItemID)
	return nil
}

// Multi fans a notification out to several surfaces. Delivery succeeds
// when at least one surface accepts it; otherwise the joined errors are
// returned.
type Multi struct {
	surfaces []Deliverer
}

// NewMulti combines surfaces. Nil entries are skipped.
func NewMulti(surfaces ...Deliverer) *Multi {
	m := &Multi{}
	for _, s := range surfaces {
		if s != nil {
			m.surfaces = append(m.surfaces, s)
		}
	}
	return m
}

// Deliver hands n to every surface.
func (m *Multi) Deliver(ctx context.Context, n Notification) error {
	if len(m.surfaces) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	delivered := false
	for _, s := range m.surfaces {
		if err := s.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return errors.Join(errs...)
}

// Dedup suppresses notifications whose tag was delivered recently. Only
// successful deliveries are remembered, so a failed tag may be retried.
type Dedup struct {
	next Deliverer
	mu   sync.Mutex
	seen *lru.Cache[string, struct{}]
}

// NewDedup wraps next and remembers up to size tags.
func NewDedup(next Deliverer, size int) (*Dedup, error) {
	seen, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("dedup cache: %w", err)
	}
	return &Dedup{next: next, seen: seen}, nil
}

// Deliver forwards n unless its tag was already delivered.
func (d *Dedup) Deliver(ctx context.Context, n Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n.Tag != "" && d.seen.Contains(n.Tag) {
		return nil
	}
	if err := d.next.Deliver(ctx, n); err != nil {
		return err
	}
	if n.Tag != "" {
		d.seen.Add(n.Tag, struct{}{})
	}
	return nil
}
