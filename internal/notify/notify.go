// Package notify defines the delivery surfaces a due recall is handed to.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/recallkit/recall/internal/store"
)

// TagPrefix prefixes every notification tag so surfaces can collapse
// repeats of the same record.
const TagPrefix = "recall-"

// ErrNoSubscribers reports a push surface with nobody listening.
var ErrNoSubscribers = errors.New("no subscribers")

// DeepLink points a notification back at the captured item.
type DeepLink struct {
	ItemKind store.Kind `json:"itemKind"`
	ItemID   string     `json:"itemId"`
}

// Notification is the payload handed to a delivery surface.
type Notification struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Tag      string   `json:"tag"`
	DeepLink DeepLink `json:"deepLink"`
}

// Deliverer shows a notification to the user.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// Func adapts a function to Deliverer.
type Func func(ctx context.Context, n Notification) error

// Deliver calls f.
func (f Func) Deliver(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// TagFor returns the notification tag of a record.
func TagFor(recordID string) string {
	return TagPrefix + recordID
}

// maxBody bounds the body so long notes stay readable in a toast.
const maxBody = 140

// FromRecord builds the notification for a schedule record.
func FromRecord(r store.Record) Notification {
	title := "Recall"
	if r.Label != "" {
		title = fmt.Sprintf("Recall: %s", r.Label)
	}
	return Notification{
		Title: title,
		Body:  truncate(strings.TrimSpace(r.ContentSnapshot), maxBody),
		Tag:   TagFor(r.ID),
		DeepLink: DeepLink{
			ItemKind: r.ItemKind,
			ItemID:   r.ItemID,
		},
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
