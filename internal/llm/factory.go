package llm

import (
	"context"
	"fmt"
	"net/http"
)

// Supported provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// DefaultOpenAIBaseURL is used when no base URL is configured for OpenAI.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// Config selects and configures a provider.
type Config struct {
	Provider          string
	BaseURL           string
	Model             string
	APIKey            string
	RequestsPerSecond float64
}

// NewProvider builds the configured provider, wrapped with a rate limiter
// when RequestsPerSecond is positive.
func NewProvider(ctx context.Context, cfg Config, httpClient *http.Client) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case ProviderOpenAI, "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOpenAIBaseURL
		}
		p = NewOpenAIProvider(baseURL, cfg.APIKey, cfg.Model, httpClient)
	case ProviderGemini:
		gp, err := NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		p = gp
	case ProviderClaude:
		p = NewClaudeProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	if cfg.RequestsPerSecond > 0 {
		p = NewRateLimitedProvider(p, cfg.RequestsPerSecond)
	}
	return p, nil
}
