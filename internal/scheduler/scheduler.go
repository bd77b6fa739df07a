package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/autocareer/internal/model"
)

// ScanStarter starts a scan of every source.
type ScanStarter interface {
	StartScan(ctx context.Context, ids []int64) (string, error)
}

// Scheduler triggers a full scan on a cron schedule. A tick that lands while
// a scan is still running is skipped.
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	scans      ScanStarter
	runOnStart bool
	logger     *slog.Logger
}

// NewScheduler validates spec (standard five-field cron or a descriptor such
// as "@every 6h") and returns a scheduler that is not yet running.
func NewScheduler(spec string, scans ScanStarter, runOnStart bool, logger *slog.Logger) (*Scheduler, error) {
	if err := ValidateSpec(spec); err != nil {
		return nil, err
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(slogLogger{logger})),
		spec:       spec,
		scans:      scans,
		runOnStart: runOnStart,
		logger:     logger,
	}, nil
}

// ValidateSpec reports whether spec is a schedule the scheduler accepts.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Run starts the schedule and blocks until ctx is cancelled. It waits for a
// tick in progress to return before exiting; scans it started keep running
// under their own lifecycle.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runScan(ctx) }); err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}

	s.logger.Info("starting scheduler", "schedule", s.spec)
	s.cron.Start()
	if s.runOnStart {
		go s.runScan(ctx)
	}

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("shutting down scheduler")
	return nil
}

// runScan is one tick.
func (s *Scheduler) runScan(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	scanID, err := s.scans.StartScan(ctx, nil)
	switch {
	case errors.Is(err, model.ErrScanInProgress):
		s.logger.Info("scheduled scan skipped, scan already running")
	case err != nil:
		s.logger.Error("scheduled scan failed to start", "error", err)
	default:
		s.logger.Info("scheduled scan started", "scan_id", scanID)
	}
}

// slogLogger adapts slog to cron.Logger.
type slogLogger struct {
	logger *slog.Logger
}

func (l slogLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l slogLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
