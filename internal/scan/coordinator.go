package scan

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/autocareer/internal/filter"
	"github.com/amishk599/autocareer/internal/metrics"
	"github.com/amishk599/autocareer/internal/model"
)

// SourceRunner scans a single source.
type SourceRunner interface {
	ScanSource(ctx context.Context, src model.Source, criteria Criteria, sink ProgressSink) SourceResult
}

// Coordinator owns the lifecycle of scans. At most one scan runs at a time;
// all progress and report state is guarded by mu.
type Coordinator struct {
	sources     model.SourceStore
	settings    model.SettingsStore
	runner      SourceRunner
	notifier    model.Notifier // optional
	sourceLimit int
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	progress Progress
	running  []string // names of sources currently being scanned
	last     *Report
	cancel   context.CancelFunc
	aborted  bool
	done     chan struct{}
}

// NewCoordinator creates a coordinator that scans up to sourceLimit sources
// concurrently. notifier may be nil.
func NewCoordinator(
	sources model.SourceStore,
	settings model.SettingsStore,
	runner SourceRunner,
	notifier model.Notifier,
	sourceLimit int,
	logger *slog.Logger,
) *Coordinator {
	if sourceLimit < 1 {
		sourceLimit = 1
	}
	return &Coordinator{
		sources:     sources,
		settings:    settings,
		runner:      runner,
		notifier:    notifier,
		sourceLimit: sourceLimit,
		logger:      logger,
		now:         time.Now,
	}
}

// StartScan begins a scan of the given sources, or of every source when ids
// is empty, and returns its ID without waiting for it to finish. It fails
// fast with model.ErrScanInProgress while another scan is active. A scan
// that resolves to no sources completes immediately.
//
// The scan outlives ctx's cancellation; use Abort to stop it.
func (c *Coordinator) StartScan(ctx context.Context, ids []int64) (string, error) {
	scanID := uuid.NewString()
	started := c.now()

	c.mu.Lock()
	if c.progress.Active {
		c.mu.Unlock()
		metrics.IncreaseScansTotal("rejected")
		return "", model.ErrScanInProgress
	}
	prevProgress, prevLast := c.progress, c.last
	c.progress = Progress{ScanID: scanID, Active: true, StartedAt: &started}
	c.running = nil
	c.last = nil
	c.aborted = false
	c.done = make(chan struct{})
	c.mu.Unlock()
	metrics.SetScanActive(true)

	sources, criteria, err := c.prepare(ctx, ids)
	if err != nil {
		c.release(prevProgress, prevLast)
		return "", err
	}
	if len(sources) == 0 {
		c.logger.Info("scan has no sources", "scan_id", scanID)
		c.finish(scanID)
		return scanID, nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Lock()
	c.progress.TotalSources = len(sources)
	c.cancel = cancel
	c.mu.Unlock()
	metrics.IncreaseScansTotal("started")

	c.logger.Info("scan started", "scan_id", scanID, "sources", len(sources))
	go c.run(runCtx, scanID, sources, criteria)
	return scanID, nil
}

// prepare resolves the source set and loads the scoring criteria shared by
// every source.
func (c *Coordinator) prepare(ctx context.Context, ids []int64) ([]model.Source, map[int64]Criteria, error) {
	var (
		sources []model.Source
		err     error
	)
	if len(ids) > 0 {
		sources, err = c.sources.GetSources(ctx, ids)
	} else {
		sources, err = c.sources.ListSources(ctx)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("resolving sources: %w", err)
	}

	global, err := c.settings.GetSetting(ctx, model.SettingGlobalFilter)
	if err != nil {
		return nil, nil, fmt.Errorf("loading global filter: %w", err)
	}
	profile, err := c.settings.GetSetting(ctx, model.SettingProfile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading profile: %w", err)
	}

	criteria := make(map[int64]Criteria, len(sources))
	for _, src := range sources {
		criteria[src.ID] = Criteria{Filter: filter.Combine(global, src.FilterText), Profile: profile}
	}
	return sources, criteria, nil
}

// run fans sources out under the source gate and aggregates their results
// through a single channel. finish always runs, even if a scanner panics.
func (c *Coordinator) run(ctx context.Context, scanID string, sources []model.Source, criteria map[int64]Criteria) {
	defer c.finish(scanID)

	results := make(chan SourceResult)
	go func() {
		var g errgroup.Group
		g.SetLimit(c.sourceLimit)
		for _, src := range sources {
			if ctx.Err() != nil {
				results <- SourceResult{SourceID: src.ID, SourceName: src.Name, SourceURL: src.URL, Error: errAborted.Error()}
				continue
			}
			g.Go(func() error {
				results <- c.scanOne(ctx, src, criteria[src.ID])
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	for res := range results {
		c.record(res)
	}
}

// scanOne runs one source, converting a panic into a source-level error.
func (c *Coordinator) scanOne(ctx context.Context, src model.Source, criteria Criteria) (res SourceResult) {
	c.markRunning(src.Name)
	defer c.unmarkRunning(src.Name)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while scanning source", "source", src.Name, "panic", r)
			res = SourceResult{SourceID: src.ID, SourceName: src.Name, SourceURL: src.URL,
				Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	res = c.runner.ScanSource(ctx, src, criteria, c)
	if res.Error == "" && ctx.Err() == nil {
		if err := c.sources.MarkSourceScanned(ctx, src.ID, c.now()); err != nil {
			c.logger.Warn("failed to record scan time", "source", src.Name, "error", err)
		}
	}
	return res
}

// AddFound implements ProgressSink.
func (c *Coordinator) AddFound(n int) {
	c.mu.Lock()
	c.progress.JobsFound += n
	c.mu.Unlock()
}

// AddScored implements ProgressSink.
func (c *Coordinator) AddScored(n int) {
	c.mu.Lock()
	c.progress.JobsScored += n
	c.mu.Unlock()
}

func (c *Coordinator) markRunning(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = append(c.running, name)
	c.progress.CurrentSource = name
}

func (c *Coordinator) unmarkRunning(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.running, name); i >= 0 {
		c.running = slices.Delete(c.running, i, i+1)
	}
}

func (c *Coordinator) record(res SourceResult) {
	c.mu.Lock()
	c.progress.Results = append(c.progress.Results, res)
	c.progress.CompletedSources++
	c.progress.CurrentSource = ""
	if n := len(c.running); n > 0 {
		c.progress.CurrentSource = c.running[n-1]
	}
	c.mu.Unlock()

	if res.Error != "" {
		metrics.IncreaseSourcesTotal("error")
	} else {
		metrics.IncreaseSourcesTotal("ok")
	}
	metrics.AddJobs("added", res.Added)
	counts := make(map[SkipReason]int)
	for _, sj := range res.SkippedJobs {
		counts[sj.Reason]++
	}
	for reason, n := range counts {
		metrics.AddJobs(string(reason), n)
	}
}

// finish freezes the report and clears the active flag.
func (c *Coordinator) finish(scanID string) {
	finished := c.now()

	c.mu.Lock()
	report := &Report{
		ScanID:     scanID,
		FinishedAt: finished,
		Aborted:    c.aborted,
		Results:    slices.Clone(c.progress.Results),
	}
	if c.progress.StartedAt != nil {
		report.StartedAt = *c.progress.StartedAt
	}
	c.last = report
	c.progress.Active = false
	c.progress.CurrentSource = ""
	c.progress.FinishedAt = &finished
	c.running = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	done := c.done
	c.mu.Unlock()

	metrics.SetScanActive(false)
	metrics.ObserveScanDuration(finished.Sub(report.StartedAt))

	found, added, skipped, failed := report.Totals()
	c.logger.Info("scan finished",
		"scan_id", scanID,
		"sources", len(report.Results),
		"failed_sources", failed,
		"found", found,
		"added", added,
		"skipped", skipped,
		"duration", finished.Sub(report.StartedAt).Round(time.Millisecond),
	)

	if jobs := report.AddedJobs(); c.notifier != nil && len(jobs) > 0 {
		if err := c.notifier.Notify(jobs); err != nil {
			c.logger.Error("scan notification failed", "scan_id", scanID, "error", err)
		}
	}

	close(done)
}

// release abandons a scan that failed before any source was launched and
// restores the state of the previous scan.
func (c *Coordinator) release(prev Progress, last *Report) {
	c.mu.Lock()
	c.progress = prev
	c.last = last
	done := c.done
	c.mu.Unlock()
	metrics.SetScanActive(false)
	close(done)
}

// GetStatus returns a consistent snapshot of the current or last scan.
func (c *Coordinator) GetStatus() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.clone()
}

// LastReport returns the report of the most recently finished scan. It is
// cleared when a new scan starts.
func (c *Coordinator) LastReport() (*Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.last != nil
}

// Wait blocks until the active scan, if any, has finished.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Abort cancels all outstanding work of the active scan. Results already
// recorded stay in the report. It reports whether a scan was running.
func (c *Coordinator) Abort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.progress.Active || c.cancel == nil {
		return false
	}
	c.aborted = true
	c.cancel()
	return true
}
