package retention

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs the archiver on a fixed interval (daily in production).
// The first run happens immediately at startup so a long-stopped instance
// catches up without waiting a day.
type Scheduler struct {
	archiver *Archiver
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates the retention scheduler.
func NewScheduler(archiver *Archiver, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{archiver: archiver, interval: interval, logger: logger}
}

// Run blocks until the context is cancelled. Archiver failures are logged
// and retried on the next tick; a broken run never stops the schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.archiver.Run(ctx); err != nil {
		s.logger.ErrorContext(ctx, "retention run failed", "error", err)
	}
}
