package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/climatescope/climatescope/internal/logger"
)

// Reconciler is the job run on every tick.
type Reconciler interface {
	ReconcileUserReports(ctx context.Context) error
}

// Scheduler periodically repairs the user report lists.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	reconciler Reconciler
	interval   time.Duration
}

// New creates a new Scheduler.
func New(reconciler Reconciler, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:  s,
		reconciler: reconciler,
		interval:   interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.reconciler.ReconcileUserReports(ctx); err != nil {
			logger.Log.Errorw("scheduled reconciliation failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
