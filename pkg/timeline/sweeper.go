package timeline

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper runs the periodic retention sweep. It subscribes to aggregator
// events so that a sweep-interval change reschedules the ticker without a
// restart.
type Sweeper struct {
	agg    *Aggregator
	logger *slog.Logger

	// kick receives the new interval when config-updated reports a change.
	kick chan time.Duration
}

// NewSweeper creates a sweeper for the aggregator. Call Subscribe with it
// to enable rescheduling, then Run it on its own goroutine.
func NewSweeper(agg *Aggregator, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		agg:    agg,
		logger: logger,
		kick:   make(chan time.Duration, 1),
	}
}

// Name implements Listener.
func (s *Sweeper) Name() string { return "sweeper" }

// HandleEvent implements Listener. Runs on the aggregator's dispatch path,
// so it only nudges the run loop and never calls the aggregator.
func (s *Sweeper) HandleEvent(event Event) {
	if event.Type != EventConfigUpdated || event.SweepInterval <= 0 {
		return
	}
	select {
	case s.kick <- event.SweepInterval:
	default:
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.agg.Config().SweepInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case next := <-s.kick:
			if next != interval {
				interval = next
				ticker.Reset(interval)
				s.logger.Info("sweep rescheduled", "interval", interval)
			}
		case <-ticker.C:
			removed := s.agg.Cleanup()
			s.logger.Debug("sweep complete", "removed", removed)
		}
	}
}
