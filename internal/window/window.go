package window

import (
	"fmt"
	"strings"
	"time"
)

// Window is the concrete [Start, End) interval that bounds countable
// presence on one calendar day.
type Window struct {
	Start time.Time
	End   time.Time
}

// Clip returns the length of the overlap between [enter, leave) and
// the window. An interval entirely outside the window contributes
// zero; the result is never negative.
func (w Window) Clip(enter, leave time.Time) time.Duration {
	if enter.Before(w.Start) {
		enter = w.Start
	}
	if leave.After(w.End) {
		leave = w.End
	}
	if !leave.After(enter) {
		return 0
	}
	return leave.Sub(enter)
}

// Policy maps a calendar timestamp to the tracking window in effect on
// that day, if any. It is pure: the decision depends only on the
// timestamp's weekday and the fixed daily time-of-day range configured
// at startup.
type Policy struct {
	weekdays    map[time.Weekday]bool
	startHour   int
	startMinute int
	endHour     int
	endMinute   int
}

// Config defines the daily tracking window.
type Config struct {
	Weekdays []time.Weekday
	Start    string // HH:MM
	End      string // HH:MM
}

// NewPolicy parses the configured time-of-day range. A config with no
// weekdays yields a policy that never bounds presence.
func NewPolicy(cfg Config) (*Policy, error) {
	start, err := time.Parse("15:04", cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid window start %q: %w", cfg.Start, err)
	}
	end, err := time.Parse("15:04", cfg.End)
	if err != nil {
		return nil, fmt.Errorf("invalid window end %q: %w", cfg.End, err)
	}
	startMinutes := start.Hour()*60 + start.Minute()
	endMinutes := end.Hour()*60 + end.Minute()
	if len(cfg.Weekdays) > 0 && endMinutes <= startMinutes {
		return nil, fmt.Errorf("window end %q is not after start %q", cfg.End, cfg.Start)
	}

	p := &Policy{
		weekdays:    make(map[time.Weekday]bool, len(cfg.Weekdays)),
		startHour:   start.Hour(),
		startMinute: start.Minute(),
		endHour:     end.Hour(),
		endMinute:   end.Minute(),
	}
	for _, d := range cfg.Weekdays {
		p.weekdays[d] = true
	}
	return p, nil
}

// For returns the window on t's calendar day in t's location. ok is
// false on days with no bounded window, meaning presence counts in
// full without clipping.
func (p *Policy) For(t time.Time) (Window, bool) {
	if p == nil || !p.weekdays[t.Weekday()] {
		return Window{}, false
	}
	return Window{
		Start: time.Date(t.Year(), t.Month(), t.Day(), p.startHour, p.startMinute, 0, 0, t.Location()),
		End:   time.Date(t.Year(), t.Month(), t.Day(), p.endHour, p.endMinute, 0, 0, t.Location()),
	}, true
}

// NextEnd returns the end of the next enabled window at or after t,
// and false if no weekday is enabled. Used by the finalize scheduler.
func (p *Policy) NextEnd(t time.Time) (time.Time, bool) {
	if p == nil || len(p.weekdays) == 0 {
		return time.Time{}, false
	}
	// At most a week ahead by construction.
	for i := 0; i < 8; i++ {
		day := t.AddDate(0, 0, i)
		if !p.weekdays[day.Weekday()] {
			continue
		}
		end := time.Date(day.Year(), day.Month(), day.Day(), p.endHour, p.endMinute, 0, 0, t.Location())
		if end.After(t) {
			return end, true
		}
	}
	return time.Time{}, false
}

// ParseWeekdays converts config day names ("monday", "thursday") to
// weekdays, rejecting unknown names.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	byName := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		d, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		days = append(days, d)
	}
	return days, nil
}
