package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/autocareer/internal/model"
	"github.com/amishk599/autocareer/internal/ratelimit"
)

// Discoverer extracts listings from a fetched source page.
type Discoverer interface {
	Discover(ctx context.Context, page model.Page, filter string) ([]model.Listing, error)
}

// ListingScorer scores one listing with an absolute URL.
type ListingScorer interface {
	Score(ctx context.Context, listing model.Listing, filter, profile string) (int, error)
}

// ProgressSink receives live counter updates while a source is scanned.
// Implementations serialize concurrent calls.
type ProgressSink interface {
	AddFound(n int)
	AddScored(n int)
}

// Criteria is what a source's listings are judged against.
type Criteria struct {
	Filter  string // global and source filter combined
	Profile string
}

// ScannerOptions tunes a SourceScanner.
type ScannerOptions struct {
	JobConcurrency    int
	LowScoreThreshold int
	FetchTimeout      time.Duration
	LLMTimeout        time.Duration
}

// SourceScanner processes one source end to end:
// fetch, discover, resolve, dedupe, score, persist.
type SourceScanner struct {
	fetcher    model.ContentFetcher
	discoverer Discoverer
	scorer     ListingScorer
	store      model.JobStore
	delay      *ratelimit.KeyedLimiter // spacing between job dispatches per source, may be nil
	opts       ScannerOptions
	logger     *slog.Logger
}

func NewSourceScanner(
	fetcher model.ContentFetcher,
	discoverer Discoverer,
	scorer ListingScorer,
	store model.JobStore,
	delay *ratelimit.KeyedLimiter,
	opts ScannerOptions,
	logger *slog.Logger,
) *SourceScanner {
	if opts.JobConcurrency < 1 {
		opts.JobConcurrency = 1
	}
	return &SourceScanner{
		fetcher:    fetcher,
		discoverer: discoverer,
		scorer:     scorer,
		store:      store,
		delay:      delay,
		opts:       opts,
		logger:     logger,
	}
}

// outcome is the classification of one listing.
type outcome struct {
	added   *model.Job
	skipped *SkippedJob
	scored  bool
}

func skip(l model.Listing, reason SkipReason, score *int, err error) outcome {
	sj := &SkippedJob{Title: l.Title, Company: l.Company, URL: l.URL, Reason: reason, Score: score}
	if err != nil {
		sj.Error = err.Error()
	}
	return outcome{skipped: sj}
}

var errAborted = errors.New("scan aborted")

// repeatOf classifies a listing whose URL already appeared earlier on the
// same page. It is already_exists only if the earlier occurrence is stored;
// otherwise it shares the earlier failure.
func repeatOf(l model.Listing, firstOutcome outcome) outcome {
	switch {
	case firstOutcome.added != nil:
		return skip(l, SkipAlreadyExists, firstOutcome.added.Score, nil)
	case firstOutcome.skipped == nil:
		return skip(l, SkipError, nil, errors.New("listing not processed"))
	}
	sk := firstOutcome.skipped
	if sk.Reason != SkipError {
		return skip(l, SkipAlreadyExists, sk.Score, nil)
	}
	return skip(l, SkipError, nil, fmt.Errorf("same URL as %q: %s", sk.Title, sk.Error))
}

// ScanSource never returns an error: source-fatal failures are recorded in
// SourceResult.Error and per-listing failures as error skips.
func (s *SourceScanner) ScanSource(ctx context.Context, src model.Source, criteria Criteria, sink ProgressSink) SourceResult {
	res := SourceResult{SourceID: src.ID, SourceName: src.Name, SourceURL: src.URL}
	log := s.logger.With("source", src.Name, "source_id", src.ID)

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	page, err := s.fetcher.Fetch(fetchCtx, src.URL, model.FormatMarkup)
	cancel()
	if err != nil {
		res.Error = (&model.FetchError{URL: src.URL, Err: err}).Error()
		log.Warn("source fetch failed", "error", err)
		return res
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.opts.LLMTimeout)
	listings, err := s.discoverer.Discover(llmCtx, page, criteria.Filter)
	cancel()
	if err != nil {
		var extErr *model.ExtractionError
		if !errors.As(err, &extErr) {
			err = &model.ExtractionError{Err: err}
		}
		res.Error = err.Error()
		log.Warn("listing extraction failed", "error", err)
		return res
	}

	res.Found = len(listings)
	sink.AddFound(len(listings))

	outcomes := make([]outcome, len(listings))
	var pending []int
	first := make(map[string]int, len(listings)) // URL -> index of its first occurrence
	repeats := make(map[int]int)                 // index -> index of its first occurrence
	for i, l := range listings {
		abs, err := ResolveURL(src.URL, l.URL)
		if err != nil {
			outcomes[i] = skip(l, SkipError, nil, err)
			continue
		}
		l.URL = abs
		listings[i] = l

		if j, ok := first[abs]; ok {
			repeats[i] = j
			continue
		}
		first[abs] = i

		exists, err := s.store.Exists(ctx, abs)
		if err != nil {
			outcomes[i] = skip(l, SkipError, nil, err)
			continue
		}
		if exists {
			outcomes[i] = skip(l, SkipAlreadyExists, nil, nil)
			continue
		}
		pending = append(pending, i)
	}

	s.scoreAll(ctx, src, listings, pending, outcomes, criteria, sink)
	for i, j := range repeats {
		outcomes[i] = repeatOf(listings[i], outcomes[j])
	}

	for _, o := range outcomes {
		if o.scored {
			res.Scored++
		}
		switch {
		case o.added != nil:
			res.Added++
			res.AddedJobs = append(res.AddedJobs, *o.added)
		case o.skipped != nil:
			res.Skipped++
			res.SkippedJobs = append(res.SkippedJobs, *o.skipped)
		}
	}

	log.Info("scanned source",
		"found", res.Found,
		"added", res.Added,
		"skipped", res.Skipped,
	)
	return res
}

// scoreAll scores the pending listings under the job gate. Each worker writes
// only its own slot in outcomes; Wait is the join point.
func (s *SourceScanner) scoreAll(ctx context.Context, src model.Source, listings []model.Listing, pending []int,
	outcomes []outcome, criteria Criteria, sink ProgressSink) {
	var g errgroup.Group
	g.SetLimit(s.opts.JobConcurrency)
	delayKey := "source:" + strconv.FormatInt(src.ID, 10)

	for _, i := range pending {
		l := listings[i]
		// The delay is taken before a gate slot is requested so waiting
		// never occupies the gate.
		if err := s.delay.Wait(ctx, delayKey); err != nil || ctx.Err() != nil {
			outcomes[i] = skip(l, SkipError, nil, errAborted)
			continue
		}
		g.Go(func() error {
			outcomes[i] = s.processListing(ctx, src, l, criteria, sink)
			return nil
		})
	}
	g.Wait()
}

func (s *SourceScanner) processListing(ctx context.Context, src model.Source, l model.Listing, criteria Criteria,
	sink ProgressSink) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while scoring listing", "url", l.URL, "panic", r)
			o = skip(l, SkipError, nil, fmt.Errorf("panic: %v", r))
		}
	}()

	score, err := s.scorer.Score(ctx, l, criteria.Filter, criteria.Profile)
	if err != nil {
		s.logger.Debug("listing not scored", "url", l.URL, "error", err)
		return skip(l, SkipError, nil, err)
	}
	sink.AddScored(1)

	job, err := s.store.Insert(ctx, model.Job{
		URL:      l.URL,
		Company:  l.Company,
		Title:    l.Title,
		Score:    &score,
		Status:   model.StatusSuggested,
		SourceID: &src.ID,
	})
	switch {
	case errors.Is(err, model.ErrDuplicate):
		o = skip(l, SkipAlreadyExists, &score, nil)
	case err != nil:
		var pErr *model.PersistenceError
		if !errors.As(err, &pErr) {
			err = &model.PersistenceError{Op: "inserting job " + l.URL, Err: err}
		}
		s.logger.Warn("listing not persisted", "url", l.URL, "error", err)
		o = skip(l, SkipError, &score, err)
	case score < s.opts.LowScoreThreshold:
		o = skip(l, SkipLowScore, &score, nil)
		o.skipped.JobID = job.ID
	default:
		o = outcome{added: &job}
	}
	o.scored = true
	return o
}
