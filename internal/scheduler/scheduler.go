package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epeers/marketetl/internal/models"
	"github.com/epeers/marketetl/internal/services"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Runner is a pipeline that can be triggered on a schedule
type Runner interface {
	Run(ctx context.Context) (*models.RunReport, error)
}

// Scheduler triggers pipeline runs from a cron spec.
// Specs are evaluated in New York time unless they carry a CRON_TZ= prefix.
type Scheduler struct {
	Cron    *cron.Cron
	runner  Runner
	ctx     context.Context
	timeout time.Duration
}

// NewScheduler creates a Scheduler. A run still in progress when the next tick fires is skipped.
func NewScheduler(ctx context.Context, runner Runner, timeout time.Duration) *Scheduler {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Errorf("Failed to load location 'America/New_York': %v. Falling back to UTC.", err)
		loc = time.UTC
	}
	logger := cron.PrintfLogger(log.StandardLogger())
	return &Scheduler{
		Cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		runner:  runner,
		ctx:     ctx,
		timeout: timeout,
	}
}

// Register schedules the pipeline run
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register pipeline run %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.Cron.Start()
	for _, e := range s.Cron.Entries() {
		log.Infof("Scheduler started, next run at %s", e.Next.Format(time.RFC3339))
	}
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("Scheduler stopped")
}

// RunNow executes one pipeline run synchronously
func (s *Scheduler) RunNow() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rep, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, services.ErrRunInProgress):
		log.Warn("Scheduled run skipped: a manual run is in progress")
		return
	case errors.Is(err, context.Canceled):
		log.Warn("Scheduled run cancelled")
		return
	case err != nil:
		log.Errorf("Scheduled run failed: %v", err)
		return
	}
	log.Infof("Scheduled run %s finished: %d prices, %d indicator rows, %d summaries, %d failed",
		rep.RunID, rep.PricesLoaded, rep.IndicatorsLoaded, rep.Summaries, len(rep.Failed))
}
