// Package scheduler runs the periodic maintenance jobs of the pipeline
// worker: counter reconciliation and the overdue SLA sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Lifecycle is the slice of the lifecycle service the jobs drive.
type Lifecycle interface {
	ReconcileAllCounters(ctx context.Context) (int, error)
	SweepOverdue(ctx context.Context) (int, error)
}

// Config holds cron specs. An empty spec disables the job.
type Config struct {
	ReconcileSpec string
	OverdueSpec   string
	RunOnStart    bool
	JobTimeout    time.Duration
}

// Scheduler wraps robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	lifecycle Lifecycle
	cfg       Config
	logger    *zap.Logger
}

// New creates a scheduler. Overlapping runs of the same job are skipped.
func New(lifecycle Lifecycle, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		lifecycle: lifecycle,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.ReconcileSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.ReconcileSpec, func() { s.runReconcile(ctx) }); err != nil {
			return fmt.Errorf("schedule counter reconciliation %q: %w", s.cfg.ReconcileSpec, err)
		}
	}
	if s.cfg.OverdueSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.OverdueSpec, func() { s.runOverdueSweep(ctx) }); err != nil {
			return fmt.Errorf("schedule overdue sweep %q: %w", s.cfg.OverdueSpec, err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("reconcile", s.cfg.ReconcileSpec),
		zap.String("overdue", s.cfg.OverdueSpec),
		zap.Int("jobs", len(s.cron.Entries())),
	)

	if s.cfg.RunOnStart && s.cfg.ReconcileSpec != "" {
		go s.runReconcile(ctx)
	}
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runReconcile(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	reconciled, err := s.lifecycle.ReconcileAllCounters(ctx)
	if err != nil {
		s.logger.Warn("counter reconciliation finished with errors", zap.Int("projects", reconciled), zap.Error(err))
		return
	}
	s.logger.Info("counter reconciliation finished", zap.Int("projects", reconciled), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) runOverdueSweep(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	overdue, err := s.lifecycle.SweepOverdue(ctx)
	if err != nil {
		s.logger.Warn("overdue sweep failed", zap.Error(err))
		return
	}
	if overdue > 0 {
		s.logger.Warn("profiles breaching screening SLA", zap.Int("overdue", overdue))
	}
}
