package scan

import (
	"slices"
	"time"

	"github.com/amishk599/autocareer/internal/model"
)

// SkipReason explains why a discovered listing is not in the added bucket.
type SkipReason string

const (
	SkipAlreadyExists SkipReason = "already_exists"
	SkipLowScore      SkipReason = "low_score"
	SkipError         SkipReason = "error"
)

// SkippedJob is a listing reported as skipped. Low-score skips are persisted
// and carry their JobID; error skips are not persisted.
type SkippedJob struct {
	Title   string     `json:"title"`
	Company string     `json:"company"`
	URL     string     `json:"url"`
	Reason  SkipReason `json:"reason"`
	Score   *int       `json:"score"`
	JobID   int64      `json:"job_id,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// SourceResult is the outcome of scanning one source.
// Found always equals Added + Skipped.
type SourceResult struct {
	SourceID    int64        `json:"source_id"`
	SourceName  string       `json:"source_name"`
	SourceURL   string       `json:"source_url"`
	Found       int          `json:"found"`
	Added       int          `json:"added"`
	Skipped     int          `json:"skipped"`
	Scored      int          `json:"scored"`
	AddedJobs   []model.Job  `json:"added_jobs"`
	SkippedJobs []SkippedJob `json:"skipped_jobs"`
	Error       string       `json:"error,omitempty"`
}

// Progress is a point-in-time snapshot of the current or most recent scan.
type Progress struct {
	ScanID           string         `json:"scan_id,omitempty"`
	Active           bool           `json:"active"`
	TotalSources     int            `json:"total_sources"`
	CompletedSources int            `json:"completed_sources"`
	JobsFound        int            `json:"jobs_found"`
	JobsScored       int            `json:"jobs_scored"`
	CurrentSource    string         `json:"current_source,omitempty"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	FinishedAt       *time.Time     `json:"finished_at,omitempty"`
	Results          []SourceResult `json:"results"`
}

// Report is the frozen result of a finished scan.
type Report struct {
	ScanID     string         `json:"scan_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Aborted    bool           `json:"aborted"`
	Results    []SourceResult `json:"results"`
}

// AddedJobs returns every job added across all sources.
func (r *Report) AddedJobs() []model.Job {
	var jobs []model.Job
	for _, res := range r.Results {
		jobs = append(jobs, res.AddedJobs...)
	}
	return jobs
}

// Totals sums the per-source counters.
func (r *Report) Totals() (found, added, skipped, failed int) {
	for _, res := range r.Results {
		found += res.Found
		added += res.Added
		skipped += res.Skipped
		if res.Error != "" {
			failed++
		}
	}
	return found, added, skipped, failed
}

func (p Progress) clone() Progress {
	p.Results = slices.Clone(p.Results)
	return p
}
