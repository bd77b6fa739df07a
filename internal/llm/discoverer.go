package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amishk599/autocareer/internal/model"
)

const maxPageChars = 120_000

var listingsSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"jobs": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"title":   map[string]any{"type": "string"},
					"company": map[string]any{"type": "string"},
					"url":     map[string]any{"type": "string"},
				},
				"required": []string{"title", "company", "url"},
			},
		},
	},
	"required": []string{"jobs"},
}

// Discoverer extracts job listings from a fetched source page.
type Discoverer struct {
	provider Provider
}

func NewDiscoverer(provider Provider) *Discoverer {
	return &Discoverer{provider: provider}
}

// Discover asks the model for the listings on page that match filter.
// Any failure, including an unusable reply, is an *model.ExtractionError;
// a well-formed empty list is a legitimate zero result.
func (d *Discoverer) Discover(ctx context.Context, page model.Page, filter string) ([]model.Listing, error) {
	prompt, err := render(discoverTemplate, struct {
		Title, URL, Filter, Content string
	}{page.Title, page.URL, filter, truncate(page.Content, maxPageChars)})
	if err != nil {
		return nil, &model.ExtractionError{Err: err}
	}

	raw, err := d.provider.Complete(ctx, Request{
		System:     "You extract structured job listings from web pages.",
		Prompt:     prompt,
		SchemaName: "job_listings",
		Schema:     listingsSchema,
		MaxTokens:  8192,
	})
	if err != nil {
		return nil, &model.ExtractionError{Err: err}
	}

	listings, err := parseListings(raw)
	if err != nil {
		return nil, &model.ExtractionError{Err: err}
	}
	return listings, nil
}

type rawListings struct {
	Jobs *[]rawListing `json:"jobs"`
}

type rawListing struct {
	Title   *string `json:"title"`
	Company *string `json:"company"`
	URL     *string `json:"url"`
}

// parseListings decodes the strict {"jobs":[...]} shape. title and url must be
// present and non-empty on every entry; nothing is coerced.
func parseListings(raw string) ([]model.Listing, error) {
	raw = stripCodeFence(raw)
	if raw == "" {
		return nil, errors.New("empty model response")
	}

	var parsed rawListings
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal listings: %w", err)
	}
	if parsed.Jobs == nil {
		return nil, errors.New(`response has no "jobs" field`)
	}

	listings := make([]model.Listing, 0, len(*parsed.Jobs))
	for i, rl := range *parsed.Jobs {
		if rl.Title == nil || strings.TrimSpace(*rl.Title) == "" {
			return nil, fmt.Errorf("listing %d: missing title", i)
		}
		if rl.URL == nil || strings.TrimSpace(*rl.URL) == "" {
			return nil, fmt.Errorf("listing %d: missing url", i)
		}
		l := model.Listing{Title: strings.TrimSpace(*rl.Title), URL: strings.TrimSpace(*rl.URL)}
		if rl.Company != nil {
			l.Company = strings.TrimSpace(*rl.Company)
		}
		listings = append(listings, l)
	}
	return listings, nil
}
