package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodtune/muster/internal/clock"
	"github.com/goodtune/muster/internal/session"
	"github.com/goodtune/muster/internal/tracking"
	"github.com/goodtune/muster/internal/window"
)

type stubDirectory struct{ users []string }

func (d *stubDirectory) PresentUsers(ctx context.Context, room string) ([]string, error) {
	return d.users, nil
}

type stubSink struct{}

func (s *stubSink) UploadCSV(ctx context.Context, filename string, content []byte, message string) error {
	return nil
}

func (s *stubSink) Notify(ctx context.Context, message string) error {
	return nil
}

func TestSchedulerFinalizesAtWindowEnd(t *testing.T) {
	policy, err := window.NewPolicy(window.Config{
		Weekdays: []time.Weekday{time.Thursday},
		Start:    "14:00",
		End:      "15:00",
	})
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	// Just before the Thursday window closes, so the scheduler's first
	// wait is a few real milliseconds.
	clk := &clock.TestClock{CurrentTime: time.Date(2024, 1, 4, 14, 59, 59, int(950*time.Millisecond), time.UTC)}
	store := session.NewStore(zerolog.Nop())
	service := tracking.NewService(store, policy, clk, &stubDirectory{users: []string{"alice"}}, &stubSink{}, "GVG", zerolog.Nop())

	if err := service.StartTracking(context.Background(), "admin", true); err != nil {
		t.Fatalf("StartTracking() error = %v", err)
	}

	s := New(service, policy, clk, zerolog.Nop())
	s.Start()
	defer s.Stop()

	deadline := time.After(5 * time.Second)
	for store.Active() {
		select {
		case <-deadline:
			t.Fatal("scheduler did not finalize the epoch at window end")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerIdleWithoutWindow(t *testing.T) {
	policy, err := window.NewPolicy(window.Config{Start: "14:00", End: "15:00"})
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	clk := &clock.TestClock{CurrentTime: time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC)}
	store := session.NewStore(zerolog.Nop())
	service := tracking.NewService(store, policy, clk, &stubDirectory{}, &stubSink{}, "GVG", zerolog.Nop())

	// With no enabled weekdays the run loop exits on its own; Stop on
	// an already-exited scheduler must not panic or block.
	s := New(service, policy, clk, zerolog.Nop())
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()
}
