package waterfall

import (
	"strings"
	"time"
)

const (
	// MinWords is the substance threshold: content must have strictly more
	// words than this to enter R1.
	MinWords = 16

	// ValidityWindow bounds how long after origin a bookmark still extends
	// the chain past R3.
	ValidityWindow = 72 * time.Hour
)

// Input is everything the planner needs to know about one item.
type Input struct {
	// Text is the item's current content.
	Text string
	// Origin is the item's capture time. All offsets are relative to it.
	Origin time.Time
	// Stage is the last stage already planned for the item.
	Stage Stage
	// Bookmarked reports whether the user kept the item.
	Bookmarked bool
	// BookmarkedAt is when the bookmark was placed. Ignored unless Bookmarked.
	BookmarkedAt time.Time
}

// Slot is one planned recall.
type Slot struct {
	Stage Stage
	At    time.Time
	Label string
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Eligible reports whether text is substantial enough to be recalled.
func Eligible(text string) bool {
	return WordCount(text) > MinWords
}

// BookmarkInWindow reports whether a bookmark placed at at still extends a
// chain that started at origin.
func BookmarkInWindow(origin, at time.Time) bool {
	return !at.Before(origin) && at.Sub(origin) <= ValidityWindow
}

// Plan walks the stage machine from in.Stage and returns every slot that
// can be planned now, in ascending order. The walk stops at the first
// transition whose preconditions do not hold.
func Plan(in Input) []Slot {
	if !in.Stage.Valid() || !Eligible(in.Text) {
		return nil
	}
	var slots []Slot
	for s := in.Stage; s != StageTerminated; {
		t := transitions[s]
		if t.needsBookmark && !(in.Bookmarked && BookmarkInWindow(in.Origin, in.BookmarkedAt)) {
			break
		}
		slots = append(slots, Slot{Stage: t.to, At: in.Origin.Add(t.offset), Label: t.label})
		s = t.to
	}
	return slots
}

// Capture plans the waterfall for a freshly captured item.
func Capture(text string, origin time.Time) []Slot {
	return Plan(Input{Text: text, Origin: origin, Stage: StageNew})
}

// Extend plans the bookmark extension for an item whose waterfall has
// already been planned through stage.
func Extend(text string, origin time.Time, stage Stage, bookmarkedAt time.Time) []Slot {
	return Plan(Input{
		Text:         text,
		Origin:       origin,
		Stage:        stage,
		Bookmarked:   true,
		BookmarkedAt: bookmarkedAt,
	})
}

// Timestamps projects slots to their times.
func Timestamps(slots []Slot) []time.Time {
	if len(slots) == 0 {
		return nil
	}
	out := make([]time.Time, len(slots))
	for i, s := range slots {
		out[i] = s.At
	}
	return out
}

// Last returns the stage reached by the final slot, or from when slots is empty.
func Last(slots []Slot, from Stage) Stage {
	if len(slots) == 0 {
		return from
	}
	return slots[len(slots)-1].Stage
}
