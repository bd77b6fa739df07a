package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/autocareer/internal/llm"
	"github.com/amishk599/autocareer/internal/scheduler"
)

// EnvPath names the environment variable consulted when no --config flag is
// given.
const EnvPath = "AUTOCAREER_CONFIG"

// DefaultPath is used when neither the flag nor EnvPath is set.
const DefaultPath = "config.yaml"

// Fetcher modes.
const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

// Config is the root configuration for autocareer.
type Config struct {
	Database     DatabaseConfig
	Scan         ScanConfig
	Fetcher      FetcherConfig
	LLM          llm.Config
	Notification NotificationConfig
	Server       ServerConfig
	Tailor       TailorConfig
	ProfileFile  string // optional file that seeds the candidate profile
}

type DatabaseConfig struct {
	Path string
}

// ScanConfig bounds and paces scans.
type ScanConfig struct {
	SourceConcurrency int
	JobConcurrency    int
	LowScoreThreshold int
	FetchTimeout      time.Duration
	LLMTimeout        time.Duration
	JobDelay          time.Duration // spacing between job dispatches within a source
	Schedule          string        // cron spec; empty disables scheduled scans
}

// FetcherConfig selects how pages are retrieved.
type FetcherConfig struct {
	Mode           string // "http" or "browser"
	UserAgent      string
	MaxRetries     int
	RetryBaseDelay time.Duration
	HostDelay      time.Duration // minimum gap between requests to one host
	BrowserSettle  time.Duration // wait after load for client-side rendering
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// TailorConfig configures document tailoring.
type TailorConfig struct {
	MasterResume string `yaml:"master_resume"`
	OutputDir    string `yaml:"output_dir"`
	Compiler     string `yaml:"compiler"`
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Database     rawDatabaseConfig `yaml:"database"`
	Scan         rawScanConfig      `yaml:"scan"`
	Fetcher      rawFetcherConfig   `yaml:"fetcher"`
	LLM          rawLLMConfig       `yaml:"llm"`
	Notification NotificationConfig `yaml:"notification"`
	Server       ServerConfig       `yaml:"server"`
	Tailor       TailorConfig       `yaml:"tailor"`
	ProfileFile  string             `yaml:"profile_file"`
}

type rawDatabaseConfig struct {
	Path string `yaml:"path"`
}

type rawScanConfig struct {
	SourceConcurrency *int   `yaml:"source_concurrency"`
	JobConcurrency    *int   `yaml:"job_concurrency"`
	LowScoreThreshold *int   `yaml:"low_score_threshold"`
	FetchTimeout      string `yaml:"fetch_timeout"`
	LLMTimeout        string `yaml:"llm_timeout"`
	JobDelay          string `yaml:"job_delay"`
	Schedule          string `yaml:"schedule"`
}

type rawFetcherConfig struct {
	Mode           string `yaml:"mode"`
	UserAgent      string `yaml:"user_agent"`
	MaxRetries     *int   `yaml:"max_retries"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
	HostDelay      string `yaml:"host_delay"`
	BrowserSettle  string `yaml:"browser_settle"`
}

type rawLLMConfig struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ResolvePath picks the config file: the flag value, then EnvPath, then
// DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, then decodes and validates it.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{Path: orDefault(raw.Database.Path, "autocareer.db")},
		Scan: ScanConfig{
			SourceConcurrency: intOr(raw.Scan.SourceConcurrency, 5),
			JobConcurrency:    intOr(raw.Scan.JobConcurrency, 10),
			LowScoreThreshold: intOr(raw.Scan.LowScoreThreshold, 50),
			Schedule:          strings.TrimSpace(raw.Scan.Schedule),
		},
		Fetcher: FetcherConfig{
			Mode:       orDefault(raw.Fetcher.Mode, FetcherHTTP),
			UserAgent:  raw.Fetcher.UserAgent,
			MaxRetries: intOr(raw.Fetcher.MaxRetries, 2),
		},
		LLM: llm.Config{
			Provider:          orDefault(raw.LLM.Provider, llm.ProviderOpenAI),
			BaseURL:           raw.LLM.BaseURL,
			Model:             raw.LLM.Model,
			APIKey:            raw.LLM.APIKey,
			RequestsPerSecond: raw.LLM.RequestsPerSecond,
		},
		Notification: NotificationConfig{
			Type:       orDefault(raw.Notification.Type, "log"),
			WebhookURL: raw.Notification.WebhookURL,
		},
		Server: ServerConfig{Addr: orDefault(raw.Server.Addr, ":8080")},
		Tailor: TailorConfig{
			MasterResume: orDefault(raw.Tailor.MasterResume, "master.tex"),
			OutputDir:    orDefault(raw.Tailor.OutputDir, "output"),
			Compiler:     orDefault(raw.Tailor.Compiler, "pdflatex"),
		},
		ProfileFile: raw.ProfileFile,
	}
	if cfg.LLM.Provider == llm.ProviderOpenAI && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = llm.DefaultOpenAIBaseURL
	}

	durations := []struct {
		name string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"scan.fetch_timeout", raw.Scan.FetchTimeout, 60 * time.Second, &cfg.Scan.FetchTimeout},
		{"scan.llm_timeout", raw.Scan.LLMTimeout, 60 * time.Second, &cfg.Scan.LLMTimeout},
		{"scan.job_delay", raw.Scan.JobDelay, 0, &cfg.Scan.JobDelay},
		{"fetcher.retry_base_delay", raw.Fetcher.RetryBaseDelay, 5 * time.Second, &cfg.Fetcher.RetryBaseDelay},
		{"fetcher.host_delay", raw.Fetcher.HostDelay, 0, &cfg.Fetcher.HostDelay},
		{"fetcher.browser_settle", raw.Fetcher.BrowserSettle, 2 * time.Second, &cfg.Fetcher.BrowserSettle},
	}
	for _, d := range durations {
		*d.dst = d.def
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = v
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	s := cfg.Scan
	check(s.SourceConcurrency >= 1, "scan.source_concurrency must be at least 1, got %d", s.SourceConcurrency)
	check(s.JobConcurrency >= 1, "scan.job_concurrency must be at least 1, got %d", s.JobConcurrency)
	check(s.LowScoreThreshold >= 0 && s.LowScoreThreshold <= 100,
		"scan.low_score_threshold must be between 0 and 100, got %d", s.LowScoreThreshold)
	check(s.FetchTimeout > 0, "scan.fetch_timeout must be positive, got %v", s.FetchTimeout)
	check(s.LLMTimeout > 0, "scan.llm_timeout must be positive, got %v", s.LLMTimeout)
	check(s.JobDelay >= 0, "scan.job_delay must not be negative, got %v", s.JobDelay)
	if s.Schedule != "" {
		if err := scheduler.ValidateSpec(s.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("scan.schedule: %w", err))
		}
	}

	f := cfg.Fetcher
	check(f.Mode == FetcherHTTP || f.Mode == FetcherBrowser,
		"fetcher.mode must be %q or %q, got %q", FetcherHTTP, FetcherBrowser, f.Mode)
	check(f.MaxRetries >= 0, "fetcher.max_retries must not be negative, got %d", f.MaxRetries)
	check(f.RetryBaseDelay > 0, "fetcher.retry_base_delay must be positive, got %v", f.RetryBaseDelay)
	check(f.HostDelay >= 0, "fetcher.host_delay must not be negative, got %v", f.HostDelay)

	l := cfg.LLM
	providers := []string{llm.ProviderOpenAI, llm.ProviderGemini, llm.ProviderClaude}
	check(slices.Contains(providers, l.Provider), "llm.provider must be one of %s, got %q",
		strings.Join(providers, ", "), l.Provider)
	check(l.APIKey != "", "llm.api_key is required")
	check(l.Model != "", "llm.model is required")
	check(l.RequestsPerSecond >= 0, "llm.requests_per_second must not be negative")

	n := cfg.Notification
	switch n.Type {
	case "log":
	case "slack":
		check(n.WebhookURL != "", "notification.webhook_url is required when type is \"slack\"")
		check(n.WebhookURL == "" || strings.HasPrefix(n.WebhookURL, "https://hooks.slack.com/"),
			"notification.webhook_url must start with https://hooks.slack.com/")
	default:
		errs = append(errs, fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", n.Type))
	}

	return errors.Join(errs...)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
