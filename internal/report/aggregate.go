package report

import (
	"time"

	"github.com/goodtune/muster/internal/session"
	"github.com/goodtune/muster/internal/window"
)

// Entry is one user's row in the attendance report. Derived at
// finalize time and never mutated afterwards.
type Entry struct {
	User     string
	JoinedAt time.Time
	LeftAt   time.Time
	Duration time.Duration
}

// Aggregate turns drained presence intervals into per-user totals.
//
// Open intervals are resolved against now, a single snapshot shared by
// every user in the run. When a tracking window is in effect on now's
// calendar day, each interval is clipped to it and the reported
// joined/left bounds are the window's own, reflecting presence within
// the official window rather than raw session bounds. Without a
// window, full interval durations are summed and the raw first-enter /
// last-leave bounds are reported. Users with zero countable duration
// are omitted. Durations are truncated to whole seconds.
func Aggregate(records []session.UserIntervals, policy *window.Policy, now time.Time) []Entry {
	win, bounded := policy.For(now)

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		if len(rec.Intervals) == 0 {
			continue
		}

		var total time.Duration
		joinedAt := rec.Intervals[0].Enter
		leftAt := now
		for _, iv := range rec.Intervals {
			leave := now
			if !iv.Open() {
				leave = *iv.Leave
			}
			if bounded {
				total += win.Clip(iv.Enter, leave)
			} else {
				total += leave.Sub(iv.Enter)
			}
			leftAt = leave
		}

		total = total.Truncate(time.Second)
		if total <= 0 {
			continue
		}

		entry := Entry{User: rec.User, JoinedAt: joinedAt, LeftAt: leftAt, Duration: total}
		if bounded {
			entry.JoinedAt = win.Start
			entry.LeftAt = win.End
		}
		entries = append(entries, entry)
	}

	return entries
}
