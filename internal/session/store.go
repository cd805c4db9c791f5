package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goodtune/muster/internal/metrics"
)

// ErrNotActive is returned by End when no tracking epoch is active. A
// second end trigger within the same idle period gets this error and
// is treated as a no-op by both the command layer and the scheduler.
var ErrNotActive = errors.New("tracking is not active")

// Store holds the per-user presence intervals for the current tracking
// epoch. It is the sole shared-state boundary between the event stream
// and the finalize triggers: one mutex guards all four operations, and
// no I/O happens under the lock.
type Store struct {
	mu       sync.Mutex
	state    State
	epochID  string
	sessions map[string][]Interval
	logger   zerolog.Logger
}

// NewStore creates an idle store with no sessions.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		state:    StateIdle,
		sessions: make(map[string][]Interval),
		logger:   logger.With().Str("component", "session-store").Logger(),
	}
}

// Start begins a new tracking epoch. Any previous epoch state is
// discarded, and every already-present user is seeded with a single
// open interval starting now. Returns whether an active epoch was
// discarded so the caller can tell the operator.
func (s *Store) Start(present []string, now time.Time) (restarted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	restarted = s.state == StateActive
	if restarted {
		s.logger.Warn().
			Str("epoch_id", s.epochID).
			Int("discarded_users", len(s.sessions)).
			Msg("Restarting tracking, discarding in-flight sessions")
	}

	s.state = StateActive
	s.epochID = uuid.NewString()
	s.sessions = make(map[string][]Interval, len(present))
	for _, user := range present {
		s.sessions[user] = []Interval{{Enter: now}}
	}

	metrics.EpochsStarted.Inc()
	metrics.OpenSessions.Set(float64(len(present)))

	s.logger.Info().
		Str("epoch_id", s.epochID).
		Int("already_present", len(present)).
		Time("started_at", now).
		Msg("Tracking started")

	return restarted
}

// OnEnter records a user entering the monitored room. Duplicate enter
// events (last interval still open) and events outside an active epoch
// are dropped without touching the store.
func (s *Store) OnEnter(user string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		metrics.MembershipEventsTotal.WithLabelValues("idle").Inc()
		return
	}

	intervals := s.sessions[user]
	if n := len(intervals); n > 0 && intervals[n-1].Open() {
		metrics.MembershipEventsTotal.WithLabelValues("duplicate_enter").Inc()
		s.logger.Debug().Str("user", user).Msg("Duplicate enter event ignored")
		return
	}

	s.sessions[user] = append(intervals, Interval{Enter: now})
	metrics.MembershipEventsTotal.WithLabelValues("opened").Inc()
	metrics.OpenSessions.Inc()

	s.logger.Debug().
		Str("user", user).
		Time("enter", now).
		Int("interval_count", len(s.sessions[user])).
		Msg("User entered room")
}

// OnLeave closes the user's open interval. A leave with no matching
// open interval is dropped: the membership source is best-effort and
// may duplicate or reorder transitions.
func (s *Store) OnLeave(user string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		metrics.MembershipEventsTotal.WithLabelValues("idle").Inc()
		return
	}

	intervals := s.sessions[user]
	n := len(intervals)
	if n == 0 || !intervals[n-1].Open() {
		metrics.MembershipEventsTotal.WithLabelValues("orphan_leave").Inc()
		s.logger.Debug().Str("user", user).Msg("Orphan leave event ignored")
		return
	}

	leave := now
	intervals[n-1].Leave = &leave
	metrics.MembershipEventsTotal.WithLabelValues("closed").Inc()
	metrics.OpenSessions.Dec()

	s.logger.Debug().
		Str("user", user).
		Time("leave", now).
		Dur("interval", now.Sub(intervals[n-1].Enter)).
		Msg("User left room")
}

// End finishes the active epoch, draining every user's intervals in
// user order and returning the store to idle. Open intervals are
// returned as-is; resolving them against "now" is the aggregator's
// job. Returns ErrNotActive when no epoch is running.
func (s *Store) End(now time.Time) ([]UserIntervals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil, ErrNotActive
	}

	drained := make([]UserIntervals, 0, len(s.sessions))
	for user, intervals := range s.sessions {
		drained = append(drained, UserIntervals{User: user, Intervals: intervals})
	}
	sort.Slice(drained, func(i, j int) bool { return drained[i].User < drained[j].User })

	s.logger.Info().
		Str("epoch_id", s.epochID).
		Int("users", len(drained)).
		Time("ended_at", now).
		Msg("Tracking ended")

	s.state = StateIdle
	s.epochID = ""
	s.sessions = make(map[string][]Interval)
	metrics.OpenSessions.Set(0)

	return drained, nil
}

// Active reports whether a tracking epoch is in progress.
func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateActive
}

// EpochID returns the identifier of the running epoch, or "" when idle.
func (s *Store) EpochID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epochID
}
