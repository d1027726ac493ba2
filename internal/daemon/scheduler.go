package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// Scheduler wraps gocron for the periodic reload.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a scheduler. A nil clock uses the real clock.
func NewScheduler(clock clockwork.Clock) (*Scheduler, error) {
	var opts []gocron.SchedulerOption
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to create scheduler").Build()
	}
	return &Scheduler{scheduler: s}, nil
}

// SchedulePeriodicReload runs fn every interval. A run still in progress is
// not overlapped by the next one. Returns the job ID.
func (s *Scheduler) SchedulePeriodicReload(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { fn(ctx) }),
		gocron.WithName("periodic-reinitialize"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryConfig, "failed to create periodic reload job").
			WithContext("interval", interval.String()).Build()
	}
	return job.ID().String(), nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}
