package waterfall

import (
	"fmt"
	"time"
)

// Stage is a position in the recall stage machine.
type Stage int

const (
	StageNew Stage = iota
	StageR1
	StageR2
	StageR3
	StageR4
	StageR5
	StageTerminated
)

var stageNames = [...]string{"new", "r1", "r2", "r3", "r4", "r5", "terminated"}

func (s Stage) String() string {
	if s < StageNew || s > StageTerminated {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s >= StageNew && s <= StageTerminated
}

// ParseStage maps a stage name back to its Stage.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return StageNew, fmt.Errorf("unknown stage %q", name)
}

// transition describes the single slot produced when leaving a stage.
type transition struct {
	to            Stage
	offset        time.Duration
	label         string
	needsBookmark bool
}

// transitions is indexed by the stage being left.
var transitions = map[Stage]transition{
	StageNew: {to: StageR1, offset: 10 * time.Minute, label: "10m recall"},
	StageR1:  {to: StageR2, offset: 24 * time.Hour, label: "24h recall"},
	StageR2:  {to: StageR3, offset: 72 * time.Hour, label: "72h recall"},
	StageR3:  {to: StageR4, offset: 10 * 24 * time.Hour, label: "10d recall", needsBookmark: true},
	StageR4:  {to: StageR5, offset: 30 * 24 * time.Hour, label: "30d recall"},
	StageR5:  {to: StageTerminated, offset: 120 * 24 * time.Hour, label: "120d recall"},
}

// Offset returns the distance from origin at which stage s is reached.
// StageNew has a zero offset.
func Offset(s Stage) time.Duration {
	for _, t := range transitions {
		if t.to == s {
			return t.offset
		}
	}
	return 0
}
