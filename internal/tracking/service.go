package tracking

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goodtune/muster/internal/clock"
	"github.com/goodtune/muster/internal/gateway"
	"github.com/goodtune/muster/internal/metrics"
	"github.com/goodtune/muster/internal/report"
	"github.com/goodtune/muster/internal/session"
	"github.com/goodtune/muster/internal/sink"
	"github.com/goodtune/muster/internal/window"
)

// TriggerManual and TriggerScheduled label the two callers of
// EndTracking; both drive the same finalize path.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// Service implements the operator command surface: it connects the
// session store to the room directory, the window policy and the
// delivery sink, and consumes gateway events as the single writer.
type Service struct {
	store     *session.Store
	policy    *window.Policy
	clock     clock.Clock
	directory gateway.Directory
	sink      sink.Sink
	room      string
	logger    zerolog.Logger
}

// NewService wires the tracking service.
func NewService(store *session.Store, policy *window.Policy, clk clock.Clock, directory gateway.Directory, snk sink.Sink, room string, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		policy:    policy,
		clock:     clk,
		directory: directory,
		sink:      snk,
		room:      room,
		logger:    logger.With().Str("component", "tracking").Logger(),
	}
}

// StartTracking begins a tracking epoch, seeding users already present
// in the monitored room. The privilege boolean is supplied by the
// caller; the service holds no authorization logic of its own. The
// operator is answered exactly once per invocation.
func (s *Service) StartTracking(ctx context.Context, requester string, privileged bool) error {
	if !privileged {
		s.logger.Warn().Str("requester", requester).Msg("Start tracking denied")
		return s.notify(ctx, fmt.Sprintf("%s is not allowed to start attendance tracking.", requester))
	}

	present, err := s.directory.PresentUsers(ctx, s.room)
	if err != nil {
		s.logger.Error().Err(err).Str("room", s.room).Msg("Failed to query room occupancy")
		_ = s.notify(ctx, "Could not start tracking: room occupancy lookup failed.")
		return fmt.Errorf("query present users: %w", err)
	}

	restarted := s.store.Start(present, s.clock.Now())

	msg := fmt.Sprintf("Attendance tracking started for %s (%d already present).", s.room, len(present))
	if restarted {
		msg = fmt.Sprintf("Attendance tracking restarted for %s, previous run discarded (%d already present).", s.room, len(present))
	}
	return s.notify(ctx, msg)
}

// EndTracking finalizes the active epoch and delivers the report. A
// trigger while idle is a no-op, so a manual end racing the scheduler
// produces exactly one report. The store is cleared before any I/O:
// export failure never re-opens the epoch.
func (s *Service) EndTracking(ctx context.Context, requester string, trigger string, privileged bool) error {
	if !privileged {
		s.logger.Warn().Str("requester", requester).Msg("End tracking denied")
		return s.notify(ctx, fmt.Sprintf("%s is not allowed to end attendance tracking.", requester))
	}

	now := s.clock.Now()
	records, err := s.store.End(now)
	if errors.Is(err, session.ErrNotActive) {
		s.logger.Debug().Str("trigger", trigger).Msg("End trigger while idle ignored")
		if trigger == TriggerManual {
			return s.notify(ctx, "No attendance tracking is active.")
		}
		return nil
	}
	if err != nil {
		return err
	}

	metrics.EpochsEnded.WithLabelValues(trigger).Inc()

	entries := report.Aggregate(records, s.policy, now)
	if len(entries) == 0 {
		s.logger.Info().Str("trigger", trigger).Msg("Tracking ended with no countable attendance")
		return s.notify(ctx, fmt.Sprintf("Attendance tracking ended: nobody attended %s.", s.room))
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, entries); err != nil {
		metrics.ReportUploadErrors.Inc()
		_ = s.notify(ctx, "Attendance report could not be generated.")
		return fmt.Errorf("serialize report: %w", err)
	}

	filename := fmt.Sprintf("attendance_%s.csv", now.Format("2006-01-02_150405"))
	message := fmt.Sprintf("Attendance log for %s (%d users):", s.room, len(entries))
	if err := s.sink.UploadCSV(ctx, filename, buf.Bytes(), message); err != nil {
		metrics.ReportUploadErrors.Inc()
		s.logger.Error().Err(err).Str("filename", filename).Msg("Report upload failed")
		_ = s.notify(ctx, "Attendance report upload failed; the tracking run is closed.")
		return fmt.Errorf("deliver report: %w", err)
	}

	metrics.ReportsUploaded.Inc()
	s.logger.Info().
		Str("trigger", trigger).
		Int("users", len(entries)).
		Str("filename", filename).
		Msg("Attendance report delivered")
	return nil
}

// HandleMembership consumes a room transition event from the gateway.
func (s *Service) HandleMembership(user string, entered, left bool) {
	now := s.clock.Now()
	switch {
	case entered:
		s.store.OnEnter(user, now)
	case left:
		s.store.OnLeave(user, now)
	}
}

// HandleCommand consumes an administrative trigger from the gateway.
func (s *Service) HandleCommand(ctx context.Context, command, requester string, privileged bool) {
	var err error
	switch command {
	case gateway.CommandStart:
		err = s.StartTracking(ctx, requester, privileged)
	case gateway.CommandEnd:
		err = s.EndTracking(ctx, requester, TriggerManual, privileged)
	default:
		s.logger.Debug().Str("command", command).Msg("Unknown command ignored")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("command", command).Str("requester", requester).Msg("Command failed")
	}
}

func (s *Service) notify(ctx context.Context, message string) error {
	if err := s.sink.Notify(ctx, message); err != nil {
		s.logger.Error().Err(err).Msg("Operator notice failed")
		return err
	}
	return nil
}
