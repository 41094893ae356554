package cache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/roach88/focusql/internal/logging"
)

// DefaultSweepInterval is how often expired memory entries are purged.
const DefaultSweepInterval = 30 * time.Second

// Sweeper periodically purges expired entries from a Sweepable backend.
type Sweeper struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// StartSweeper schedules Sweep every interval and starts the scheduler.
func StartSweeper(target Sweepable, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	logger = logging.Default(logger).With("component", "cache-sweeper")

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := target.Sweep(); n > 0 {
				logger.Debug("swept expired entries", "count", n)
			}
		}),
		gocron.WithName("cache-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	s.Start()
	return &Sweeper{scheduler: s, logger: logger}, nil
}

// Stop shuts the scheduler down and waits for a running sweep.
func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}
