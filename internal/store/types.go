package store

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a schedule record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusDelivering Status = "delivering"
	StatusSent       Status = "sent"
	StatusIgnored    Status = "ignored"
)

var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusDelivering: true,
	StatusSent:       true,
	StatusIgnored:    true,
}

// IsValid returns true if the status is one of the recognized values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusIgnored
}

// Kind is the type of captured content a record points back to.
type Kind string

const (
	KindTask Kind = "task"
	KindNote Kind = "note"
)

// ParseKind validates a content kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindTask, KindNote:
		return Kind(s), nil
	}
	return "", fmt.Errorf("invalid content kind %q", s)
}

// Record is one persisted recall obligation.
type Record struct {
	ID              string    `json:"id"`
	ItemID          string    `json:"itemId"`
	ItemKind        Kind      `json:"itemKind"`
	ContentSnapshot string    `json:"contentSnapshot"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	Label           string    `json:"label"`

	// ClaimedAt is set while the record is being delivered.
	ClaimedAt time.Time `json:"-"`
	// SettledAt is set when the record reaches a terminal status.
	SettledAt time.Time `json:"-"`
	// DismissedAt is set when the user dismissed the recall.
	DismissedAt time.Time `json:"-"`
}

// Item is the engine's read-only mirror of a captured content item.
type Item struct {
	ID               string
	Kind             Kind
	Text             string
	CreatedAt        time.Time
	Bookmarked       bool
	BookmarkedAt     time.Time
	ReviewStage      int
	InteractionScore int
	UpdatedAt        time.Time
}

// Candidate is a due record joined with the ranking inputs of its item.
type Candidate struct {
	Record     Record
	Score      int
	Bookmarked bool
}

// ListFilter narrows List results. Zero fields do not filter.
type ListFilter struct {
	ItemID   string
	Statuses []Status
	Limit    int
}
