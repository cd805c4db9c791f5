package session

import (
	"time"
)

// Interval is one contiguous stay in the monitored room. A nil Leave
// means the user is still present (open interval). Within one user's
// sequence at most one interval is open, and it is always the last.
type Interval struct {
	Enter time.Time
	Leave *time.Time
}

// Open reports whether the interval has not been closed yet.
func (iv Interval) Open() bool {
	return iv.Leave == nil
}

// UserIntervals is the drained record for one user, produced by End
// and consumed by the aggregator.
type UserIntervals struct {
	User      string
	Intervals []Interval
}

// State is the tracking epoch lifecycle.
type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}
