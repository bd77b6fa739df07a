package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// UnknownCompany stands in for a company the model could not identify.
const UnknownCompany = "Unknown Company"

// Posting is the structured analysis of a job description used for tailoring.
type Posting struct {
	Company      string   `json:"company"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	Requirements []string `json:"key_requirements"`
}

var postingSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"company": map[string]any{"type": "string"},
		"title":   map[string]any{"type": "string"},
		"summary": map[string]any{"type": "string"},
		"key_requirements": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []string{"company", "title", "summary", "key_requirements"},
}

// Extractor turns a raw job description into a Posting.
type Extractor struct {
	provider Provider
}

func NewExtractor(provider Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract analyzes description.
func (e *Extractor) Extract(ctx context.Context, description string) (Posting, error) {
	prompt, err := render(extractTemplate, struct{ Description string }{truncate(description, maxDescriptionChars)})
	if err != nil {
		return Posting{}, err
	}
	raw, err := e.provider.Complete(ctx, Request{
		System:     "You are an expert HR assistant.",
		Prompt:     prompt,
		SchemaName: "job_posting",
		Schema:     postingSchema,
	})
	if err != nil {
		return Posting{}, fmt.Errorf("extract posting: %w", err)
	}

	var p Posting
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &p); err != nil {
		return Posting{}, fmt.Errorf("unmarshal posting: %w", err)
	}
	if p.Title == "" {
		return Posting{}, errors.New("extract posting: missing title")
	}
	if p.Company == "" {
		p.Company = UnknownCompany
	}
	return p, nil
}

// Rewriter tailors a master LaTeX document to a posting.
type Rewriter struct {
	provider Provider
}

func NewRewriter(provider Provider) *Rewriter {
	return &Rewriter{provider: provider}
}

// Rewrite returns the model's tailored document with any code fence removed.
// The result is not validated here.
func (r *Rewriter) Rewrite(ctx context.Context, master string, posting Posting) (string, error) {
	prompt, err := render(tailorTemplate, struct {
		Master  string
		Posting Posting
	}{master, posting})
	if err != nil {
		return "", err
	}
	raw, err := r.provider.Complete(ctx, Request{
		System:    "You are an expert resume writer and LaTeX specialist.",
		Prompt:    prompt,
		MaxTokens: 8192,
	})
	if err != nil {
		return "", fmt.Errorf("rewrite document: %w", err)
	}
	return stripCodeFence(raw), nil
}
