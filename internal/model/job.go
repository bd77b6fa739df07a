package model

import (
	"context"
	"time"
)

// Source is a configured job-board search page that scans read from.
type Source struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	FilterText    string     `json:"filter_text,omitempty"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Listing is a job reference extracted from a source page, not yet persisted.
// URL may be relative until it is resolved against the source URL.
type Listing struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	URL     string `json:"url"`
}

// Job is a persisted application opportunity. URL is the dedup key.
type Job struct {
	ID           int64     `json:"id"`
	URL          string    `json:"url"`
	Company      string    `json:"company"`
	Title        string    `json:"title"`
	Score        *int      `json:"score"` // nil until scored
	Status       JobStatus `json:"status"`
	SourceID     *int64    `json:"source_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Requirements []string  `json:"requirements,omitempty"`
	DocumentPath string    `json:"document_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Format selects how a fetched page is rendered.
type Format string

const (
	FormatText   Format = "text"
	FormatMarkup Format = "markup"
)

// Page is the result of fetching a URL.
type Page struct {
	Title   string
	Content string
	URL     string
}

// ContentFetcher turns a URL into page content.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string, format Format) (Page, error)
}

// JobStore is the dedup store consulted and appended to during a scan.
type JobStore interface {
	Exists(ctx context.Context, url string) (bool, error)
	Insert(ctx context.Context, job Job) (Job, error)
}

// SourceStore gives the scan coordinator access to configured sources.
type SourceStore interface {
	ListSources(ctx context.Context) ([]Source, error)
	GetSources(ctx context.Context, ids []int64) ([]Source, error)
	MarkSourceScanned(ctx context.Context, id int64, at time.Time) error
}

// SettingsStore holds single-valued text settings such as the candidate profile.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Setting keys.
const (
	SettingGlobalFilter = "global_filter"
	SettingProfile      = "profile"
)

// Notifier sends notifications for newly added jobs.
type Notifier interface {
	Notify(jobs []Job) error
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
