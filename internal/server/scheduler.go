package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// RebuildScheduler wraps gocron for periodic pipeline rebuilds in serve mode.
type RebuildScheduler struct {
	scheduler gocron.Scheduler
}

// NewRebuildScheduler creates a scheduler instance.
func NewRebuildScheduler() (*RebuildScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &RebuildScheduler{scheduler: s}, nil
}

// SchedulePeriodicRebuild registers a rebuild task at the given interval and
// returns the job ID.
func (s *RebuildScheduler) SchedulePeriodicRebuild(interval time.Duration, rebuild func(ctx context.Context)) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			slog.Info("Executing scheduled rebuild", "interval", interval)
			rebuild(context.Background())
		}),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic rebuild job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *RebuildScheduler) Start() {
	slog.Info("Starting rebuild scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts the scheduler down.
func (s *RebuildScheduler) Stop() error {
	slog.Info("Stopping rebuild scheduler")
	return s.scheduler.Shutdown()
}
