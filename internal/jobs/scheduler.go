// Package jobs runs periodic maintenance: expired refresh token cleanup and
// audit log retention. Each run holds a lock so only one instance executes it.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	// ErrJobNotFound is returned when a job cannot be found by name
	ErrJobNotFound = errors.New("job not found")
	// ErrJobRunning is returned when another run holds the job lock
	ErrJobRunning = errors.New("job is already running")
)

// Job is a named unit of scheduled work
type Job struct {
	Name string
	// Schedule in cron format (e.g. "0 * * * *" for hourly)
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler handles the scheduling and execution of jobs
type Scheduler struct {
	jobs    []Job
	cron    *cron.Cron
	locker  Locker
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(locker Locker, lockTTL time.Duration, logger *zap.Logger) *Scheduler {
	// Standard five field specs, seconds disabled
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))

	return &Scheduler{
		jobs:    make([]Job, 0),
		cron:    c,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger.With(zap.String("component", "jobs")),
	}
}

// Register adds a job to the scheduler
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

// Jobs returns the registered jobs
func (s *Scheduler) Jobs() []Job {
	return s.jobs
}

// RunJob executes a job by name under its lock
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.run(ctx, job)
		}
	}
	return ErrJobNotFound
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	acquired, err := s.locker.TryLock(ctx, job.Name, s.lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrJobRunning
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), job.Name); err != nil {
			s.logger.Warn("failed to release job lock", zap.String("job", job.Name), zap.Error(err))
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		return fmt.Errorf("job %s: %w", job.Name, err)
	}
	s.logger.Info("job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	return nil
}

// Start schedules every job and blocks until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	for _, j := range s.jobs {
		if j.Schedule == "" {
			return fmt.Errorf("job %s has no schedule configured", j.Name)
		}

		job := j
		_, err := s.cron.AddFunc(job.Schedule, func() {
			switch err := s.run(ctx, job); {
			case errors.Is(err, ErrJobRunning):
				s.logger.Info("skipping job, previous run still active", zap.String("job", job.Name))
			case err != nil:
				s.logger.Error("job failed", zap.String("job", job.Name), zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
		}

		s.logger.Info("scheduled job", zap.String("job", job.Name), zap.String("schedule", job.Schedule))
	}

	s.cron.Start()
	s.logger.Info("job scheduler started")

	<-ctx.Done()
	s.logger.Info("stopping job scheduler")
	<-s.cron.Stop().Done()

	return nil
}
