// Package scheduler runs periodic background jobs on top of gocron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialclaw/internal/logging"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const slowThreshold = 5 * time.Second

type Scheduler struct {
	scheduler gocron.Scheduler
	log       *zap.Logger
}

func New(log *zap.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logging.NewGocronLogger(log)),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, log: log}, nil
}

// Every registers job to run at a fixed interval. Each run gets a context
// bounded by the interval; overlapping runs are skipped.
func (s *Scheduler) Every(name string, interval time.Duration, job func(ctx context.Context) error) error {
	if name == "" {
		return errors.New("empty job name")
	}
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	if job == nil {
		return errors.New("nil job function")
	}
	task := func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
		if d := time.Since(start); d > slowThreshold {
			s.log.Warn("slow scheduled job", zap.String("job", name), zap.Duration("duration", d))
		}
	}
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	s.log.Info("job scheduled", zap.String("job", name), zap.Duration("interval", interval))
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.scheduler.Start()
	<-ctx.Done()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}
