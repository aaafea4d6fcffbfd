package state

import (
	"strconv"
	"time"

	"github.com/doridoridoriand/netsav-go/internal/config"
)

// State represents the reachability of a target.
type State int

// The numeric values are part of the event payload handed to plugins.
const (
	Unavailable State = 0
	Available   State = 1
	Unknown     State = 2
)

// String returns the label used in logs and notifications.
func (s State) String() string {
	switch s {
	case Unavailable:
		return "UNAVAILABLE"
	case Available:
		return "AVAILABLE"
	case Unknown:
		return "UNKNOWN"
	default:
		return strconv.Itoa(int(s))
	}
}

// CyclePoint records the outcome of one poll cycle.
type CyclePoint struct {
	Time      time.Time
	Attempts  int
	Successes int
	State     State
}

// TargetStatus captures the observed state and history for a target.
type TargetStatus struct {
	Name           string
	Address        string
	Port           int
	Reference      bool
	State          State
	LastChangeAt   time.Time
	LastCycleAt    time.Time
	Remaining      int
	Cycles         int
	SkippedCycles  int
	TotalAttempts  int
	TotalSuccesses int
	LastAttempts   int
	LastSuccesses  int
	History        []CyclePoint
}

// Store defines operations for tracking target state.
type Store interface {
	UpdateTargets(targets []config.TargetConfig)
	RecordCycle(name string, point CyclePoint)
	RecordSkip(name string)
	SetRemaining(name string, remaining int)
	GetSnapshot() []TargetStatus
	GetTargetStatus(name string) (TargetStatus, bool)
}
