package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/muster/internal/session"
	"github.com/goodtune/muster/internal/window"
)

// 2024-01-04 is a Thursday; 2024-01-02 is a Tuesday.
func thursday(hour, min int) time.Time {
	return time.Date(2024, 1, 4, hour, min, 0, 0, time.UTC)
}

func tuesday(hour, min int) time.Time {
	return time.Date(2024, 1, 2, hour, min, 0, 0, time.UTC)
}

func thursdayPolicy(t *testing.T) *window.Policy {
	t.Helper()
	p, err := window.NewPolicy(window.Config{
		Weekdays: []time.Weekday{time.Thursday},
		Start:    "14:00",
		End:      "15:00",
	})
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}
	return p
}

func closed(enter, leave time.Time) session.Interval {
	return session.Interval{Enter: enter, Leave: &leave}
}

func TestAggregateClipsToWindow(t *testing.T) {
	policy := thursdayPolicy(t)

	records := []session.UserIntervals{
		{User: "alice", Intervals: []session.Interval{closed(thursday(13, 30), thursday(14, 20))}},
	}

	entries := Aggregate(records, policy, thursday(15, 10))
	if len(entries) != 1 {
		t.Fatalf("Aggregate() returned %d entries, want 1", len(entries))
	}
	if got, want := entries[0].Duration, 20*time.Minute; got != want {
		t.Errorf("clipped duration = %v, want %v", got, want)
	}
	// In clipped mode the reported bounds are the window's, not the raw
	// session's.
	if !entries[0].JoinedAt.Equal(thursday(14, 0)) {
		t.Errorf("JoinedAt = %v, want window start", entries[0].JoinedAt)
	}
	if !entries[0].LeftAt.Equal(thursday(15, 0)) {
		t.Errorf("LeftAt = %v, want window end", entries[0].LeftAt)
	}
}

func TestAggregateOmitsZeroDurationUsers(t *testing.T) {
	policy := thursdayPolicy(t)

	records := []session.UserIntervals{
		{User: "early", Intervals: []session.Interval{closed(thursday(12, 0), thursday(13, 0))}},
		{User: "late", Intervals: []session.Interval{closed(thursday(15, 30), thursday(16, 0))}},
		{User: "inside", Intervals: []session.Interval{closed(thursday(14, 0), thursday(14, 30))}},
	}

	entries := Aggregate(records, policy, thursday(16, 30))
	if len(entries) != 1 {
		t.Fatalf("Aggregate() returned %d entries, want 1", len(entries))
	}
	if entries[0].User != "inside" {
		t.Errorf("surviving user = %s, want inside", entries[0].User)
	}
}

func TestAggregateResolvesOpenIntervalAgainstNow(t *testing.T) {
	// No window in effect on a Tuesday.
	policy := thursdayPolicy(t)

	records := []session.UserIntervals{
		{User: "alice", Intervals: []session.Interval{{Enter: tuesday(9, 0)}}},
	}

	entries := Aggregate(records, policy, tuesday(9, 5))
	if len(entries) != 1 {
		t.Fatalf("Aggregate() returned %d entries, want 1", len(entries))
	}
	if got, want := entries[0].Duration, 5*time.Minute; got != want {
		t.Errorf("open interval duration = %v, want %v", got, want)
	}
	if !entries[0].LeftAt.Equal(tuesday(9, 5)) {
		t.Errorf("LeftAt = %v, want the finalize snapshot", entries[0].LeftAt)
	}
}

func TestAggregateEmptyStore(t *testing.T) {
	entries := Aggregate(nil, thursdayPolicy(t), thursday(15, 0))
	if len(entries) != 0 {
		t.Errorf("Aggregate(nil) = %v, want empty", entries)
	}
}

// Scenario from the tracking design: window 14:00-15:00 on Thursday.
// A is present from before the window and leaves mid-window; B enters
// late and is still present at finalize after the window closed.
func TestAggregateWindowScenario(t *testing.T) {
	policy := thursdayPolicy(t)

	records := []session.UserIntervals{
		{User: "A", Intervals: []session.Interval{closed(thursday(13, 55), thursday(14, 30))}},
		{User: "B", Intervals: []session.Interval{{Enter: thursday(14, 50)}}},
	}

	entries := Aggregate(records, policy, thursday(15, 10))
	if len(entries) != 2 {
		t.Fatalf("Aggregate() returned %d entries, want 2", len(entries))
	}

	byUser := map[string]Entry{}
	for _, e := range entries {
		byUser[e.User] = e
	}
	if got, want := byUser["A"].Duration, 30*time.Minute; got != want {
		t.Errorf("A duration = %v, want %v", got, want)
	}
	if got, want := byUser["B"].Duration, 10*time.Minute; got != want {
		t.Errorf("B duration = %v, want %v (clipped at window end, not finalize time)", got, want)
	}
}

// Scenario: no window in effect; two enter/leave cycles sum, and the
// reported bounds are the raw first enter and last leave.
func TestAggregateNoWindowScenario(t *testing.T) {
	policy := thursdayPolicy(t)

	records := []session.UserIntervals{
		{User: "C", Intervals: []session.Interval{
			closed(tuesday(9, 0), tuesday(9, 5)),
			closed(tuesday(9, 10), tuesday(9, 12)),
		}},
	}

	entries := Aggregate(records, policy, tuesday(10, 0))
	if len(entries) != 1 {
		t.Fatalf("Aggregate() returned %d entries, want 1", len(entries))
	}
	e := entries[0]
	if got, want := e.Duration, 7*time.Minute; got != want {
		t.Errorf("duration = %v, want %v", got, want)
	}
	if !e.JoinedAt.Equal(tuesday(9, 0)) {
		t.Errorf("JoinedAt = %v, want first enter", e.JoinedAt)
	}
	if !e.LeftAt.Equal(tuesday(9, 12)) {
		t.Errorf("LeftAt = %v, want last leave", e.LeftAt)
	}
}

func TestAggregateTruncatesToWholeSeconds(t *testing.T) {
	policy := thursdayPolicy(t)

	enter := tuesday(9, 0)
	leave := enter.Add(90*time.Second + 700*time.Millisecond)
	records := []session.UserIntervals{
		{User: "alice", Intervals: []session.Interval{closed(enter, leave)}},
	}

	entries := Aggregate(records, policy, tuesday(10, 0))
	if got, want := entries[0].Duration, 90*time.Second; got != want {
		t.Errorf("duration = %v, want %v (sub-second precision stripped)", got, want)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Minute, "0:30:00"},
		{10 * time.Minute, "0:10:00"},
		{7 * time.Minute, "0:07:00"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{26 * time.Hour, "26:00:00"},
		{0, "0:00:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	got := FormatTimestamp(time.Date(2024, 1, 4, 13, 55, 7, 0, time.UTC))
	if want := "2024-01-04 13:55:07"; got != want {
		t.Errorf("FormatTimestamp() = %q, want %q", got, want)
	}
}

func TestWriteCSV(t *testing.T) {
	entries := []Entry{
		{
			User:     "alice",
			JoinedAt: thursday(14, 0),
			LeftAt:   thursday(15, 0),
			Duration: 30 * time.Minute,
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, entries); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv has %d lines, want 2", len(lines))
	}
	if lines[0] != "User,Joined At,Left At,Duration" {
		t.Errorf("csv header = %q (column order is a compatibility contract)", lines[0])
	}
	if lines[1] != "alice,2024-01-04 14:00:00,2024-01-04 15:00:00,0:30:00" {
		t.Errorf("csv row = %q", lines[1])
	}
}
