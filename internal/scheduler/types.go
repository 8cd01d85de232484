package scheduler

import "time"

// Event is one pending wake-up in the scheduler heap. Keys are unique:
// adding an event replaces any queued event with the same key.
type Event struct {
	// Key identifies the event and is passed to the callback on fire.
	Key string
	// At is the wall-clock time the event fires.
	At time.Time
	// Cron is a cron expression for recurring events.
	// Empty string means one-shot: the event is dropped after firing.
	Cron string
}
