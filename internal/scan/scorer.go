package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/amishk599/autocareer/internal/model"
)

// ScoreModel rates a listing's description against a profile and filter.
type ScoreModel interface {
	Score(ctx context.Context, listing model.Listing, description, profile, filter string) (int, error)
}

// JobScorer scores one discovered listing: it fetches the listing page for
// the full description, then asks the model for a score.
type JobScorer struct {
	fetcher      model.ContentFetcher
	model        ScoreModel
	fetchTimeout time.Duration
	llmTimeout   time.Duration
}

func NewJobScorer(fetcher model.ContentFetcher, m ScoreModel, fetchTimeout, llmTimeout time.Duration) *JobScorer {
	return &JobScorer{
		fetcher:      fetcher,
		model:        m,
		fetchTimeout: fetchTimeout,
		llmTimeout:   llmTimeout,
	}
}

// Score returns an integer in [0, 100] or an error. listing.URL must already
// be absolute.
func (s *JobScorer) Score(ctx context.Context, listing model.Listing, filter, profile string) (int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	page, err := s.fetcher.Fetch(fetchCtx, listing.URL, model.FormatText)
	cancel()
	if err != nil {
		return 0, &model.FetchError{URL: listing.URL, Err: err}
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()
	score, err := s.model.Score(llmCtx, listing, page.Content, profile, filter)
	if err != nil {
		return 0, err
	}
	if score < 0 || score > 100 {
		return 0, &model.ScoringError{URL: listing.URL, Err: fmt.Errorf("score %d out of range 0..100", score)}
	}
	return score, nil
}
