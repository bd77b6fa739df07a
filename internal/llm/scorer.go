package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amishk599/autocareer/internal/model"
)

const maxDescriptionChars = 40_000

var scoreSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"score":     map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		"reasoning": map[string]any{"type": "string"},
	},
	"required": []string{"score", "reasoning"},
}

// Scorer rates one listing against the candidate profile.
type Scorer struct {
	provider Provider
}

func NewScorer(provider Provider) *Scorer {
	return &Scorer{provider: provider}
}

// Score returns an integer in [0, 100]. Failures are *model.ScoringError so a
// failed call is never mistaken for a score of zero.
func (s *Scorer) Score(ctx context.Context, listing model.Listing, description, profile, filter string) (int, error) {
	prompt, err := render(scoreTemplate, struct {
		Title, Company, URL, Profile, Filter, Description string
	}{listing.Title, listing.Company, listing.URL, profile, filter, truncate(description, maxDescriptionChars)})
	if err != nil {
		return 0, &model.ScoringError{URL: listing.URL, Err: err}
	}

	raw, err := s.provider.Complete(ctx, Request{
		System:     "You are a recruiter scoring job fit for a candidate.",
		Prompt:     prompt,
		SchemaName: "job_score",
		Schema:     scoreSchema,
		MaxTokens:  512,
	})
	if err != nil {
		return 0, &model.ScoringError{URL: listing.URL, Err: err}
	}

	score, err := parseScore(raw)
	if err != nil {
		return 0, &model.ScoringError{URL: listing.URL, Err: err}
	}
	return score, nil
}

type rawScore struct {
	Score     *int   `json:"score"`
	Reasoning string `json:"reasoning"`
}

func parseScore(raw string) (int, error) {
	var parsed rawScore
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return 0, fmt.Errorf("unmarshal score: %w", err)
	}
	if parsed.Score == nil {
		return 0, errors.New(`response has no "score" field`)
	}
	if *parsed.Score < 0 || *parsed.Score > 100 {
		return 0, fmt.Errorf("score %d out of range 0..100", *parsed.Score)
	}
	return *parsed.Score, nil
}
