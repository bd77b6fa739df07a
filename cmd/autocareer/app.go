package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/amishk599/autocareer/internal/config"
	"github.com/amishk599/autocareer/internal/fetch"
	"github.com/amishk599/autocareer/internal/llm"
	"github.com/amishk599/autocareer/internal/model"
	"github.com/amishk599/autocareer/internal/notifier"
	"github.com/amishk599/autocareer/internal/ratelimit"
	"github.com/amishk599/autocareer/internal/retry"
	"github.com/amishk599/autocareer/internal/scan"
	"github.com/amishk599/autocareer/internal/store"
	"github.com/amishk599/autocareer/internal/tailor"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.SQLiteStore
	httpClient *http.Client
}

// openApp loads the config and opens the database. Callers must call close.
func openApp(logger *slog.Logger) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}

// seedProfile copies profile_file into the profile setting when the setting
// is still empty. An edited profile is never overwritten.
func (a *app) seedProfile(ctx context.Context) error {
	if a.cfg.ProfileFile == "" {
		return nil
	}
	current, err := a.store.GetSetting(ctx, model.SettingProfile)
	if err != nil {
		return err
	}
	if strings.TrimSpace(current) != "" {
		return nil
	}
	data, err := os.ReadFile(a.cfg.ProfileFile)
	if err != nil {
		return fmt.Errorf("read profile file: %w", err)
	}
	a.logger.Info("seeding profile", "file", a.cfg.ProfileFile)
	return a.store.SetSetting(ctx, model.SettingProfile, string(data))
}

// fetcher builds the page fetcher: the configured backend, retried on
// transient failures and spaced per host.
func (a *app) fetcher() model.ContentFetcher {
	fc := a.cfg.Fetcher
	var f model.ContentFetcher
	switch fc.Mode {
	case config.FetcherBrowser:
		a.logger.Info("using headless browser fetcher")
		f = fetch.NewBrowserFetcher(fc.UserAgent, fc.BrowserSettle, a.logger)
	default:
		f = fetch.NewHTTPFetcher(a.httpClient, fc.UserAgent, a.logger)
	}
	f = retry.NewRetryFetcher(f, fc.MaxRetries, fc.RetryBaseDelay, a.logger)
	if fc.HostDelay > 0 {
		f = ratelimit.NewHostLimitedFetcher(f, ratelimit.NewKeyedLimiter(fc.HostDelay))
	}
	return f
}

func (a *app) provider(ctx context.Context) (llm.Provider, error) {
	p, err := llm.NewProvider(ctx, a.cfg.LLM, a.httpClient)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	a.logger.Debug("llm provider configured", "provider", a.cfg.LLM.Provider, "model", a.cfg.LLM.Model)
	return p, nil
}

func (a *app) notifier() model.Notifier {
	switch a.cfg.Notification.Type {
	case "slack":
		a.logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(a.cfg.Notification.WebhookURL, a.httpClient, a.logger)
	default:
		return notifier.NewLogNotifier(a.logger)
	}
}

// coordinator wires the scan pipeline. jobs receives discovered jobs and
// sources is where scan times are recorded, so dry runs can substitute
// no-op stores for both.
func (a *app) coordinator(ctx context.Context, jobs model.JobStore, sources model.SourceStore) (*scan.Coordinator, error) {
	p, err := a.provider(ctx)
	if err != nil {
		return nil, err
	}
	sc := a.cfg.Scan
	f := a.fetcher()

	var delay *ratelimit.KeyedLimiter
	if sc.JobDelay > 0 {
		delay = ratelimit.NewKeyedLimiter(sc.JobDelay)
	}
	scanner := scan.NewSourceScanner(
		f,
		llm.NewDiscoverer(p),
		scan.NewJobScorer(f, llm.NewScorer(p), sc.FetchTimeout, sc.LLMTimeout),
		jobs,
		delay,
		scan.ScannerOptions{
			JobConcurrency:    sc.JobConcurrency,
			LowScoreThreshold: sc.LowScoreThreshold,
			FetchTimeout:      sc.FetchTimeout,
			LLMTimeout:        sc.LLMTimeout,
		},
		a.logger,
	)
	return scan.NewCoordinator(sources, a.store, scanner, a.notifier(), sc.SourceConcurrency, a.logger), nil
}

func (a *app) tailor(ctx context.Context) (*tailor.Tailor, error) {
	p, err := a.provider(ctx)
	if err != nil {
		return nil, err
	}
	tc := a.cfg.Tailor
	return tailor.New(
		a.store,
		a.fetcher(),
		llm.NewExtractor(p),
		llm.NewRewriter(p),
		tailor.NewLatexCompiler(tc.Compiler),
		tailor.Options{
			MasterPath: tc.MasterResume,
			OutputDir:  tc.OutputDir,
			LLMTimeout: a.cfg.Scan.LLMTimeout,
		},
		a.logger,
	), nil
}

// dryRunSources reads sources from the real store but records nothing.
type dryRunSources struct {
	model.SourceStore
}

func (dryRunSources) MarkSourceScanned(context.Context, int64, time.Time) error { return nil }
