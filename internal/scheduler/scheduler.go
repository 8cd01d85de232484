package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

const maxSleepCap = 60 * time.Second

// Scheduler fires events from a min-heap on a background goroutine.
type Scheduler struct {
	addChan    chan Event
	removeChan chan string
	lenChan    chan chan int
	ctx        context.Context
}

// New creates and starts a Scheduler.
// onTrigger is invoked with the event key when an event fires; it runs on
// the scheduler goroutine and must not block.
// The scheduler goroutine exits when ctx is cancelled.
func New(ctx context.Context, onTrigger func(string)) *Scheduler {
	s := &Scheduler{
		addChan:    make(chan Event, 64),
		removeChan: make(chan string, 64),
		lenChan:    make(chan chan int),
		ctx:        ctx,
	}
	go s.run(onTrigger)
	return s
}

// Add enqueues an event, replacing any queued event with the same key.
func (s *Scheduler) Add(event Event) {
	select {
	case s.addChan <- event:
	case <-s.ctx.Done():
	}
}

// Remove drops a queued event by key.
func (s *Scheduler) Remove(key string) {
	select {
	case s.removeChan <- key:
	case <-s.ctx.Done():
	}
}

// Len returns the number of queued events, or 0 once the scheduler stopped.
func (s *Scheduler) Len() int {
	reply := make(chan int, 1)
	select {
	case s.lenChan <- reply:
		return <-reply
	case <-s.ctx.Done():
		return 0
	}
}

// run is the core scheduler goroutine implementing the active-object pattern.
// It maintains a min-heap of events and sleeps with a 60s max-sleep-cap.
// Recurring events are re-added at their next cron occurrence after firing.
func (s *Scheduler) run(onTrigger func(string)) {
	h := &eventHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			// Nothing queued: block on the channels only.
			return nil
		}
		dur := time.Until((*h)[0].At)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event := <-s.addChan:
			heapPush(h, event)
			timerCh = resetTimer()

		case key := <-s.removeChan:
			heapRemove(h, key)
			timerCh = resetTimer()

		case reply := <-s.lenChan:
			reply <- h.Len()

		case <-timerCh:
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].At.After(now) {
				event := heapPop(h)
				onTrigger(event.Key)
				if event.Cron != "" {
					next, err := NextCron(event.Cron, time.Now())
					if err == nil {
						heapPush(h, Event{Key: event.Key, At: next, Cron: event.Cron})
					}
				}
			}
			timerCh = resetTimer()
		}
	}
}

// NextCron returns the next time the cron expression fires strictly
// after start.
func NextCron(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}

// ValidateCron checks that expr is a 5-field cron expression that fires at
// least once within a year of from.
func ValidateCron(expr string, from time.Time) error {
	// gronx.IsValid also accepts a 6-field form with seconds.
	if len(strings.Fields(expr)) != 5 || !gronx.IsValid(expr) {
		return fmt.Errorf("invalid cron expression %q", expr)
	}
	next, err := NextCron(expr, from)
	if err != nil {
		return fmt.Errorf("cron expression %q: %w", expr, err)
	}
	if !next.Before(from.Add(365 * 24 * time.Hour)) {
		return fmt.Errorf("cron expression %q never fires within a year", expr)
	}
	return nil
}
