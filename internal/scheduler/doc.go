// Package scheduler wakes the delivery daemon at known future times.
// It implements a single-goroutine scheduler using a min-heap of Events
// sorted by trigger time, with a 60-second max-sleep-cap so wall-clock
// steps and host suspension are noticed within a minute.
//
// The scheduler holds no durable state and never delivers anything: a
// firing event only calls the registered callback with the event key.
// The heap is rebuilt from the store after every daemon activation.
package scheduler
