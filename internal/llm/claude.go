package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeProvider calls the Anthropic Messages API. The API has no schema
// enforcement, so the schema is appended to the system prompt and fences are
// stripped from the reply.
type ClaudeProvider struct {
	client anthropic.Client
	model  string
}

// NewClaudeProvider creates an Anthropic client. baseURL overrides the API
// endpoint when non-empty.
func NewClaudeProvider(apiKey, model, baseURL string) *ClaudeProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &ClaudeProvider{client: anthropic.NewClient(opts...), model: model}
}

// Complete sends the request as a single user message.
func (p *ClaudeProvider) Complete(ctx context.Context, r Request) (string, error) {
	system := r.System
	if r.Schema != nil {
		schema, err := json.Marshal(r.Schema)
		if err != nil {
			return "", fmt.Errorf("marshal schema: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON object matching this JSON Schema and nothing else:\n" + string(schema))
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens(r)),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(r.Prompt))},
		Temperature: anthropic.Float(0),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("claude returned no text")
	}
	return stripCodeFence(text.String()), nil
}
