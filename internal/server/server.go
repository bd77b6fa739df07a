package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/autocareer/internal/metrics"
	"github.com/amishk599/autocareer/internal/model"
	"github.com/amishk599/autocareer/internal/scan"
)

// ScanService is the scan coordinator as seen by the API.
type ScanService interface {
	StartScan(ctx context.Context, ids []int64) (string, error)
	GetStatus() scan.Progress
	LastReport() (*scan.Report, bool)
	Abort() bool
}

// Store is the persistence the API reads and edits.
type Store interface {
	ListSources(ctx context.Context) ([]model.Source, error)
	GetSource(ctx context.Context, id int64) (model.Source, error)
	CreateSource(ctx context.Context, src model.Source) (model.Source, error)
	UpdateSource(ctx context.Context, src model.Source) error
	DeleteSource(ctx context.Context, id int64) error

	Insert(ctx context.Context, job model.Job) (model.Job, error)
	GetJob(ctx context.Context, id int64) (model.Job, error)
	ListJobs(ctx context.Context, status model.JobStatus) ([]model.Job, error)
	UpdateJobStatus(ctx context.Context, id int64, to model.JobStatus, errMsg string) (model.Job, error)

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// TailorService starts the tailoring workflow for a job in the background.
type TailorService interface {
	Start(ctx context.Context, jobID int64) (model.Job, error)
}

type Options struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Server exposes the scan coordinator and the store over HTTP.
type Server struct {
	scans    ScanService
	store    Store
	tailor   TailorService // nil disables tailoring endpoints
	validate *validator.Validate
	router   chi.Router
	logger   *slog.Logger
}

func New(scans ScanService, store Store, tailor TailorService, opts Options, logger *slog.Logger) *Server {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		scans:    scans,
		store:    store,
		tailor:   tailor,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}

	mw := metrics.NewMiddleware("autocareer")
	mw.MustRegister(opts.Registerer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(mw.Handler)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/scan", func(r chi.Router) {
			r.Post("/", s.startScan)
			r.Get("/status", s.scanStatus)
			r.Get("/report", s.scanReport)
			r.Post("/abort", s.abortScan)
		})
		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.listSources)
			r.Post("/", s.createSource)
			r.Put("/{id}", s.updateSource)
			r.Delete("/{id}", s.deleteSource)
		})
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.listJobs)
			r.Post("/", s.createJob)
			r.Get("/{id}", s.getJob)
			r.Get("/{id}/document", s.jobDocument)
			r.Patch("/{id}/status", s.setJobStatus)
			r.Post("/{id}/tailor", s.tailorJob)
		})
		r.Route("/settings", func(r chi.Router) {
			r.Get("/filter", s.getSetting(model.SettingGlobalFilter))
			r.Put("/filter", s.putSetting(model.SettingGlobalFilter))
			r.Get("/profile", s.getSetting(model.SettingProfile))
			r.Put("/profile", s.putSetting(model.SettingProfile))
		})
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down api")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
