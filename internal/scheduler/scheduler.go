// Package scheduler runs the daily bank feed jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/ledger-service/internal/banksync"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper is the part of the reconciler the jobs drive.
type Sweeper interface {
	SyncAllActive(ctx context.Context) (*banksync.SweepResult, error)
	RetryErrored(ctx context.Context) (*banksync.SweepResult, error)
	ReportErrored(ctx context.Context) (*banksync.ReportResult, error)
}

// Schedules holds a cron spec per job. An empty spec disables the job.
type Schedules struct {
	Sync   string
	Report string
	Retry  string
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	log     *logrus.Logger
	timeout time.Duration
}

// New registers the three jobs. A job that is still running when its next
// tick fires is skipped.
func New(sweeper Sweeper, schedules Schedules, jobTimeout time.Duration, log *logrus.Logger) (*Scheduler, error) {
	cronLog := cron.PrintfLogger(log)
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		sweeper: sweeper,
		log:     log,
		timeout: jobTimeout,
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context)
	}{
		{"sync", schedules.Sync, s.runSync},
		{"report", schedules.Report, s.runReport},
		{"retry", schedules.Retry, s.runRetry},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		run := job.run
		if _, err := s.cron.AddFunc(job.spec, func() { s.withTimeout(run) }); err != nil {
			return nil, fmt.Errorf("invalid %s schedule %q: %w", job.name, job.spec, err)
		}
		log.Infof("Scheduled %s job: %s", job.name, job.spec)
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stopped before running jobs finished")
	}
}

func (s *Scheduler) withTimeout(run func(ctx context.Context)) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	run(ctx)
}

func (s *Scheduler) runSync(ctx context.Context) {
	res, err := s.sweeper.SyncAllActive(ctx)
	if err != nil {
		s.log.Errorf("Scheduled sync failed: %v", err)
		return
	}
	s.log.WithFields(logrus.Fields{"total": res.Total, "failed": res.Failed}).Info("Scheduled sync done")
}

func (s *Scheduler) runRetry(ctx context.Context) {
	res, err := s.sweeper.RetryErrored(ctx)
	if err != nil {
		s.log.Errorf("Scheduled retry failed: %v", err)
		return
	}
	s.log.WithFields(logrus.Fields{"total": res.Total, "recovered": res.Succeeded}).Info("Scheduled retry done")
}

func (s *Scheduler) runReport(ctx context.Context) {
	res, err := s.sweeper.ReportErrored(ctx)
	if err != nil {
		s.log.Errorf("Scheduled error report failed: %v", err)
		return
	}
	s.log.WithFields(logrus.Fields{"errored": res.Errored, "notified": res.Notified}).Info("Scheduled error report done")
}
