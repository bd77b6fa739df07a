package tailor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/amishk599/autocareer/internal/llm"
	"github.com/amishk599/autocareer/internal/model"
)

// DefaultAttempts is how many rewrites are tried before giving up on a
// malformed document.
const DefaultAttempts = 3

// JobStore is the subset of the store the workflow needs.
type JobStore interface {
	GetJob(ctx context.Context, id int64) (model.Job, error)
	UpdateJobStatus(ctx context.Context, id int64, to model.JobStatus, errMsg string) (model.Job, error)
	UpdateJobDetails(ctx context.Context, job model.Job) error
}

// PostingExtractor analyses a job description.
type PostingExtractor interface {
	Extract(ctx context.Context, description string) (llm.Posting, error)
}

// DocumentRewriter tailors the master document to a posting.
type DocumentRewriter interface {
	Rewrite(ctx context.Context, master string, posting llm.Posting) (string, error)
}

// Compiler turns document source into a file under outputDir named
// baseName plus the compiler's extension, and returns its path.
type Compiler interface {
	Compile(ctx context.Context, source, outputDir, baseName string) (string, error)
}

type Options struct {
	MasterPath string
	OutputDir  string
	Attempts   int
	LLMTimeout time.Duration
}

// Tailor runs the application workflow for one job at a time per call:
// suggested or failed -> processing -> applied, or failed on any error.
type Tailor struct {
	store     JobStore
	fetcher   model.ContentFetcher
	extractor PostingExtractor
	rewriter  DocumentRewriter
	compiler  Compiler
	opts      Options
	now       func() time.Time
	logger    *slog.Logger

	wg sync.WaitGroup
}

func New(store JobStore, fetcher model.ContentFetcher, extractor PostingExtractor, rewriter DocumentRewriter,
	compiler Compiler, opts Options, logger *slog.Logger) *Tailor {
	if opts.Attempts < 1 {
		opts.Attempts = DefaultAttempts
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = 2 * time.Minute
	}
	return &Tailor{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		rewriter:  rewriter,
		compiler:  compiler,
		opts:      opts,
		now:       time.Now,
		logger:    logger,
	}
}

// Run tailors the job synchronously and returns its final state. A job that
// cannot enter processing is rejected with model.ErrInvalidTransition and
// left unchanged.
func (t *Tailor) Run(ctx context.Context, jobID int64) (model.Job, error) {
	job, err := t.claim(ctx, jobID)
	if err != nil {
		return model.Job{}, err
	}
	return t.process(ctx, job)
}

// Start claims the job and tailors it in the background. The claim itself is
// synchronous so callers learn about unknown jobs and invalid transitions.
func (t *Tailor) Start(ctx context.Context, jobID int64) (model.Job, error) {
	job, err := t.claim(ctx, jobID)
	if err != nil {
		return model.Job{}, err
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.process(context.WithoutCancel(ctx), job)
	}()
	return job, nil
}

// Wait blocks until every background run has finished.
func (t *Tailor) Wait() {
	t.wg.Wait()
}

func (t *Tailor) claim(ctx context.Context, jobID int64) (model.Job, error) {
	job, err := t.store.UpdateJobStatus(ctx, jobID, model.StatusProcessing, "")
	if err != nil {
		return model.Job{}, fmt.Errorf("claiming job %d: %w", jobID, err)
	}
	return job, nil
}

func (t *Tailor) process(ctx context.Context, job model.Job) (model.Job, error) {
	log := t.logger.With("job_id", job.ID, "url", job.URL)
	log.Info("tailoring started")

	path, err := t.tailor(ctx, &job)
	if err != nil {
		log.Error("tailoring failed", "error", err)
		failed, uerr := t.store.UpdateJobStatus(context.WithoutCancel(ctx), job.ID, model.StatusFailed, err.Error())
		if uerr != nil {
			log.Error("failed to record tailoring failure", "error", uerr)
			return job, errors.Join(err, uerr)
		}
		return failed, err
	}

	job.DocumentPath = path
	if err := t.store.UpdateJobDetails(ctx, job); err != nil {
		return job, fmt.Errorf("saving document path: %w", err)
	}
	applied, err := t.store.UpdateJobStatus(ctx, job.ID, model.StatusApplied, "")
	if err != nil {
		return job, fmt.Errorf("marking job applied: %w", err)
	}
	log.Info("tailoring finished", "document", path)
	return applied, nil
}

// tailor runs the linear steps and returns the compiled document path. Job
// details are persisted as soon as they are extracted.
func (t *Tailor) tailor(ctx context.Context, job *model.Job) (string, error) {
	master, err := os.ReadFile(t.opts.MasterPath)
	if err != nil {
		return "", fmt.Errorf("reading master document: %w", err)
	}

	page, err := t.fetcher.Fetch(ctx, job.URL, model.FormatText)
	if err != nil {
		return "", &model.FetchError{URL: job.URL, Err: err}
	}

	llmCtx, cancel := context.WithTimeout(ctx, t.opts.LLMTimeout)
	posting, err := t.extractor.Extract(llmCtx, page.Content)
	cancel()
	if err != nil {
		return "", fmt.Errorf("extracting posting details: %w", err)
	}

	if posting.Company != llm.UnknownCompany || job.Company == "" {
		job.Company = posting.Company
	}
	job.Title = posting.Title
	job.Requirements = posting.Requirements
	if err := t.store.UpdateJobDetails(ctx, *job); err != nil {
		return "", fmt.Errorf("saving posting details: %w", err)
	}

	doc, err := t.rewrite(ctx, string(master), posting)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(t.opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path, err := t.compiler.Compile(ctx, doc, t.opts.OutputDir, t.documentName(job.Company))
	if err != nil {
		return "", fmt.Errorf("compiling document: %w", err)
	}
	return path, nil
}

// rewrite asks for a tailored document until one passes validation.
func (t *Tailor) rewrite(ctx context.Context, master string, posting llm.Posting) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= t.opts.Attempts; attempt++ {
		llmCtx, cancel := context.WithTimeout(ctx, t.opts.LLMTimeout)
		doc, err := t.rewriter.Rewrite(llmCtx, master, posting)
		cancel()
		if err == nil {
			err = ValidateDocument(doc)
		}
		if err == nil {
			return doc, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		t.logger.Warn("rewrite rejected", "attempt", attempt, "error", err)
		lastErr = err
	}
	return "", fmt.Errorf("rewriting document after %d attempts: %w", t.opts.Attempts, lastErr)
}

var requiredMarkers = []string{`\documentclass`, `\begin{document}`, `\end{document}`}

// ValidateDocument checks that doc is a complete LaTeX document.
func ValidateDocument(doc string) error {
	var missing []string
	for _, m := range requiredMarkers {
		if !strings.Contains(doc, m) {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("document missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func (t *Tailor) documentName(company string) string {
	return "Resume_" + SanitizeFilename(company) + "_" + t.now().Format("2006-01-02")
}

// SanitizeFilename keeps letters, digits, dashes and underscores, turning
// runs of anything else into a single underscore.
func SanitizeFilename(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	if b.Len() == 0 {
		return "Company"
	}
	return b.String()
}
