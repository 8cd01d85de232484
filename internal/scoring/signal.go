package scoring

import (
	"errors"
	"fmt"
	"time"
)

// Signal is a kind of user interaction with an item.
type Signal string

const (
	SignalVisible  Signal = "visible"
	SignalOpen     Signal = "open"
	SignalRelation Signal = "relation"
	SignalEdit     Signal = "edit"
)

// MinVisible is the continuous visibility an item needs before it scores.
const MinVisible = 3 * time.Second

var weights = map[Signal]int{
	SignalVisible:  1,
	SignalOpen:     5,
	SignalRelation: 10,
	SignalEdit:     0,
}

// Weight returns the score delta of a signal. Unknown signals weigh 0.
func Weight(s Signal) int {
	return weights[s]
}

// ErrNotReportable is returned for signals that only the engine derives
// itself: visibility comes from timed view spans, relations from Relate.
var ErrNotReportable = errors.New("signal is not reportable")

// ParseSignal validates a signal name.
func ParseSignal(s string) (Signal, error) {
	if _, ok := weights[Signal(s)]; !ok {
		return "", fmt.Errorf("unknown signal %q", s)
	}
	return Signal(s), nil
}

// Reportable reports whether callers may submit s directly.
func Reportable(s Signal) bool {
	return s == SignalOpen || s == SignalEdit
}

// ParseReported validates a signal submitted by a client. Only open and
// edit are accepted.
func ParseReported(s string) (Signal, error) {
	sig, err := ParseSignal(s)
	if err != nil {
		return "", err
	}
	if !Reportable(sig) {
		return "", fmt.Errorf("%w: %s", ErrNotReportable, sig)
	}
	return sig, nil
}
