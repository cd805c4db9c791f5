package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodtune/muster/internal/clock"
	"github.com/goodtune/muster/internal/tracking"
	"github.com/goodtune/muster/internal/window"
)

// Scheduler ends the active tracking epoch when the tracking window
// closes. It is a second caller of the same finalize operation the
// manual command uses; a tick that fires while idle is a no-op.
type Scheduler struct {
	service  *tracking.Service
	policy   *window.Policy
	clock    clock.Clock
	logger   zerolog.Logger
	stopChan chan struct{}
}

// New creates a finalize scheduler.
func New(service *tracking.Service, policy *window.Policy, clk clock.Clock, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		service:  service,
		policy:   policy,
		clock:    clk,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	go s.run()
	s.logger.Info().Msg("Finalize scheduler started")
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.logger.Info().Msg("Finalize scheduler stopped")
}

func (s *Scheduler) run() {
	for {
		now := s.clock.Now()
		next, ok := s.policy.NextEnd(now)
		if !ok {
			s.logger.Info().Msg("No tracking window configured, scheduler idle")
			return
		}

		wait := next.Sub(now)
		s.logger.Info().
			Time("next_end", next).
			Dur("wait_duration", wait).
			Msg("Scheduled next window-close finalize")

		select {
		case <-time.After(wait):
			s.fire()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) fire() {
	s.logger.Info().Msg("Tracking window closed, finalizing")
	if err := s.service.EndTracking(context.Background(), "scheduler", tracking.TriggerScheduled, true); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled finalize failed")
	}
}
