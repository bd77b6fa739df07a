package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimal = `
llm:
  model: gpt-4o-mini
  api_key: sk-test
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Scan.SourceConcurrency != 5 || cfg.Scan.JobConcurrency != 10 {
		t.Errorf("concurrency = %d/%d, want 5/10", cfg.Scan.SourceConcurrency, cfg.Scan.JobConcurrency)
	}
	if cfg.Scan.LowScoreThreshold != 50 {
		t.Errorf("LowScoreThreshold = %d, want 50", cfg.Scan.LowScoreThreshold)
	}
	if cfg.Scan.FetchTimeout != 60*time.Second || cfg.Scan.LLMTimeout != 60*time.Second {
		t.Errorf("timeouts = %v/%v, want 60s", cfg.Scan.FetchTimeout, cfg.Scan.LLMTimeout)
	}
	if cfg.Scan.JobDelay != 0 || cfg.Scan.Schedule != "" {
		t.Errorf("JobDelay=%v Schedule=%q, want zero", cfg.Scan.JobDelay, cfg.Scan.Schedule)
	}
	if cfg.Fetcher.Mode != FetcherHTTP || cfg.Fetcher.MaxRetries != 2 || cfg.Fetcher.RetryBaseDelay != 5*time.Second {
		t.Errorf("Fetcher = %+v", cfg.Fetcher)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Notification.Type != "log" || cfg.Server.Addr != ":8080" || cfg.Database.Path != "autocareer.db" {
		t.Errorf("Notification=%+v Server=%+v Database=%+v", cfg.Notification, cfg.Server, cfg.Database)
	}
	if cfg.Tailor.Compiler != "pdflatex" {
		t.Errorf("Tailor.Compiler = %q", cfg.Tailor.Compiler)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "secret-from-env")
	path := writeConfig(t, `
database:
  path: /var/lib/autocareer/jobs.db
scan:
  source_concurrency: 2
  job_concurrency: 4
  low_score_threshold: 0
  fetch_timeout: 20s
  llm_timeout: 90s
  job_delay: 500ms
  schedule: "0 */6 * * *"
fetcher:
  mode: browser
  max_retries: 0
  retry_base_delay: 1s
  host_delay: 2s
llm:
  provider: gemini
  model: gemini-2.5-flash
  api_key: ${TEST_GEMINI_KEY}
  requests_per_second: 1.5
notification:
  type: slack
  webhook_url: https://hooks.slack.com/services/T/B/X
server:
  addr: 127.0.0.1:9000
profile_file: profile.md
tailor:
  master_resume: resume/master.tex
  output_dir: pdfs
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LLM.APIKey != "secret-from-env" {
		t.Errorf("APIKey = %q, want expanded env var", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "" {
		t.Errorf("BaseURL = %q, gemini has no default base url", cfg.LLM.BaseURL)
	}
	if cfg.LLM.RequestsPerSecond != 1.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.LLM.RequestsPerSecond)
	}
	if cfg.Scan.LowScoreThreshold != 0 {
		t.Errorf("an explicit zero threshold must be kept, got %d", cfg.Scan.LowScoreThreshold)
	}
	if cfg.Fetcher.MaxRetries != 0 {
		t.Errorf("an explicit zero max_retries must be kept, got %d", cfg.Fetcher.MaxRetries)
	}
	if cfg.Scan.JobDelay != 500*time.Millisecond || cfg.Fetcher.HostDelay != 2*time.Second {
		t.Errorf("JobDelay=%v HostDelay=%v", cfg.Scan.JobDelay, cfg.Fetcher.HostDelay)
	}
	if cfg.Scan.Schedule != "0 */6 * * *" || cfg.Fetcher.Mode != FetcherBrowser {
		t.Errorf("Schedule=%q Mode=%q", cfg.Scan.Schedule, cfg.Fetcher.Mode)
	}
	if cfg.ProfileFile != "profile.md" || cfg.Tailor.OutputDir != "pdfs" || cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("ProfileFile=%q OutputDir=%q Addr=%q", cfg.ProfileFile, cfg.Tailor.OutputDir, cfg.Server.Addr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "scan: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"zero source concurrency", minimal + "scan:\n  source_concurrency: 0\n", "scan.source_concurrency"},
		{"zero job concurrency", minimal + "scan:\n  job_concurrency: 0\n", "scan.job_concurrency"},
		{"threshold above range", minimal + "scan:\n  low_score_threshold: 101\n", "scan.low_score_threshold"},
		{"negative threshold", minimal + "scan:\n  low_score_threshold: -1\n", "scan.low_score_threshold"},
		{"zero fetch timeout", minimal + "scan:\n  fetch_timeout: 0s\n", "scan.fetch_timeout"},
		{"bad duration", minimal + "scan:\n  llm_timeout: soon\n", "scan.llm_timeout"},
		{"bad schedule", minimal + "scan:\n  schedule: every morning\n", "scan.schedule"},
		{"unknown fetcher", minimal + "fetcher:\n  mode: curl\n", "fetcher.mode"},
		{"unknown provider", "llm:\n  provider: llama\n  model: m\n  api_key: k\n", "llm.provider"},
		{"missing api key", "llm:\n  model: m\n", "llm.api_key"},
		{"missing model", "llm:\n  api_key: k\n", "llm.model"},
		{"slack without webhook", minimal + "notification:\n  type: slack\n", "webhook_url is required"},
		{"bad slack webhook", minimal + "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n", "hooks.slack.com"},
		{"unknown notifier", minimal + "notification:\n  type: email\n", "notification.type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	_, err := Load(writeConfig(t, "scan:\n  job_concurrency: 0\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"scan.job_concurrency", "llm.api_key", "llm.model"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "")
	if got := ResolvePath(""); got != DefaultPath {
		t.Errorf("ResolvePath(\"\") = %q, want %q", got, DefaultPath)
	}

	t.Setenv(EnvPath, "/etc/autocareer.yaml")
	if got := ResolvePath(""); got != "/etc/autocareer.yaml" {
		t.Errorf("ResolvePath with env = %q", got)
	}
	if got := ResolvePath("flag.yaml"); got != "flag.yaml" {
		t.Errorf("flag must win, got %q", got)
	}
}
