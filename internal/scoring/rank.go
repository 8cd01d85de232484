package scoring

import (
	"cmp"
	"slices"
	"unicode/utf8"

	"github.com/recallkit/recall/internal/store"
)

// Rank orders candidates for the spotlight: higher score first, then
// bookmarked, then longer content, then earliest scheduled time, then id.
// The order is total, so ranking is deterministic.
func Rank(cands []store.Candidate) {
	slices.SortFunc(cands, compareCandidates)
}

func compareCandidates(a, b store.Candidate) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if a.Bookmarked != b.Bookmarked {
		if a.Bookmarked {
			return -1
		}
		return 1
	}
	la := utf8.RuneCountInString(a.Record.ContentSnapshot)
	lb := utf8.RuneCountInString(b.Record.ContentSnapshot)
	if c := cmp.Compare(lb, la); c != 0 {
		return c
	}
	if c := a.Record.ScheduledAt.Compare(b.Record.ScheduledAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Record.ID, b.Record.ID)
}
