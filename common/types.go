package common

import (
	"time"

	"github.com/recallkit/recall/internal/daemon"
	"github.com/recallkit/recall/internal/store"
)

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// RegisterParams is the input for content.register.
type RegisterParams struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// RegisterResult is the response for content.register. Accepted is true
// whenever the content itself was valid; Warning carries a persistence
// failure that did not reject the capture.
type RegisterResult struct {
	ItemID    string         `json:"itemId"`
	Accepted  bool           `json:"accepted"`
	Created   bool           `json:"created"`
	Scheduled []store.Record `json:"scheduled"`
	Warning   string         `json:"warning,omitempty"`
}

// ItemParam is a common input with just an item id.
type ItemParam struct {
	ItemID string `json:"itemId"`
}

// RecordParam is a common input with just a record id.
type RecordParam struct {
	RecordID string `json:"recordId"`
}

// BookmarkResult is the response for content.bookmark.
type BookmarkResult struct {
	ItemID    string         `json:"itemId"`
	Placed    bool           `json:"placed"`
	Scheduled []store.Record `json:"scheduled"`
}

// CancelResult is the response for content.cancel.
type CancelResult struct {
	Cancelled int `json:"cancelled"`
}

// SnoozeParams is the input for recall.snooze. Exactly one of the ids
// must be set; RecordID also dismisses the record being snoozed.
type SnoozeParams struct {
	ItemID   string `json:"itemId,omitempty"`
	RecordID string `json:"recordId,omitempty"`
}

// RecordResult wraps a single record.
type RecordResult struct {
	Record store.Record `json:"record"`
}

// DismissResult is the response for recall.dismiss.
type DismissResult struct {
	Dismissed bool `json:"dismissed"`
}

// SpotlightResult is the response for recall.spotlight.
type SpotlightResult struct {
	Found  bool          `json:"found"`
	Record *store.Record `json:"record,omitempty"`
}

// ListParams is the input for recall.list.
type ListParams struct {
	ItemID string   `json:"itemId,omitempty"`
	Status []string `json:"status,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

// ListResult is the response for recall.list.
type ListResult struct {
	Records []store.Record `json:"records"`
}

// StatsResult is the response for recall.stats.
type StatsResult struct {
	Counts         map[store.Status]int `json:"counts"`
	PendingTimers  int                  `json:"pendingTimers"`
	LastActivation *daemon.Result       `json:"lastActivation,omitempty"`
}

// SignalParams is the input for score.signal.
type SignalParams struct {
	ItemID string `json:"itemId"`
	Signal string `json:"signal"`
}

// ScoreResult is the response for score.signal.
type ScoreResult struct {
	Score int `json:"score"`
}

// RelateParams is the input for score.relate.
type RelateParams struct {
	A string `json:"a"`
	B string `json:"b"`
}

// RelateResult is the response for score.relate.
type RelateResult struct {
	Created bool `json:"created"`
}

// ViewParams is the input for score.view.
type ViewParams struct {
	ItemID string `json:"itemId"`
	Event  string `json:"event"`
}

// ViewResult is the response for score.view. Counted is only meaningful
// for leave events.
type ViewResult struct {
	Counted bool `json:"counted"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}
