package clock

import "time"

// Clock provides the authoritative wall-clock time for attendance math.
// All readings are pinned to a single reference timezone so that every
// timestamp in one tracking run is comparable.
// This interface allows time to be mocked in tests.
type Clock interface {
	Now() time.Time
}

// RealClock provides actual system time in a fixed location.
type RealClock struct {
	Location *time.Location
}

// NewReal creates a RealClock pinned to the named IANA timezone.
func NewReal(timezone string) (*RealClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &RealClock{Location: loc}, nil
}

// Now returns the current system time in the reference timezone.
func (c *RealClock) Now() time.Time {
	return time.Now().In(c.Location)
}

// TestClock provides fixed time for testing.
type TestClock struct {
	CurrentTime time.Time
}

// Now returns the test time.
func (t *TestClock) Now() time.Time {
	return t.CurrentTime
}

// Advance moves the test time forward.
func (t *TestClock) Advance(d time.Duration) {
	t.CurrentTime = t.CurrentTime.Add(d)
}
