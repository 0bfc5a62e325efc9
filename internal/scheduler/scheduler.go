package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/city-weather-tracker/internal/weather"
)

// Refresher is the work the scheduler fires on every tick.
type Refresher interface {
	RefreshAll(ctx context.Context) (weather.RefreshReport, error)
}

// Scheduler periodically refreshes every tracked city. Runs are not
// serialized: a slow run may overlap the next tick.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

// New creates a new Scheduler.
func New(interval time.Duration, refresher Refresher, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		logger:    logger.With(slog.String("component", "scheduler")),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the refresh job. The first run happens one interval after
// Start, not immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		s.runs.Add(1)
		defer s.runs.Done()
		s.RunOnce(s.ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

// RunOnce performs one refresh-all and logs its outcome. Errors never escape.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.logger.InfoContext(ctx, "running weather sync job")

	report, err := s.refresher.RefreshAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "weather sync job failed", slog.Any("error", err))
		return
	}
	if len(report.Failed) > 0 {
		names := make([]string, 0, len(report.Failed))
		for _, f := range report.Failed {
			names = append(names, f.Name)
		}
		s.logger.WarnContext(ctx, "weather sync job finished with failures",
			slog.Int("updated", report.Updated),
			slog.Any("failed", names),
		)
		return
	}
	s.logger.InfoContext(ctx, "weather sync job completed", slog.Int("updated", report.Updated))
}

// Stop cancels in-flight runs, stops future ticks and waits for running jobs
// to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
	s.runs.Wait()
	s.logger.Info("scheduler stopped")
}
