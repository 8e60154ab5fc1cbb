package purge

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the time between two purge runs.
const DefaultInterval = 24 * time.Hour

// Scheduler runs the worker periodically.
type Scheduler struct {
	run      func(context.Context) Result
	interval time.Duration
	log      zerolog.Logger
}

// NewScheduler returns a scheduler for w. interval <= 0 means DefaultInterval.
func NewScheduler(w *Worker, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{run: w.Run, interval: interval, log: log.With().Str("component", "purge-scheduler").Logger()}
}

// Start runs a purge immediately, then on every tick, until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("purge scheduler started")
	s.run(ctx)

	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-ctx.Done():
			s.log.Info().Msg("purge scheduler stopped")
			return
		}
	}
}
