package llm

import (
	"context"
	"strings"
)

// Request is one model call. Schema, when set, is a JSON Schema the reply
// must conform to; providers enforce it natively where they can.
type Request struct {
	System     string
	Prompt     string
	SchemaName string
	Schema     map[string]any
	MaxTokens  int
}

// Provider sends a request to a language model and returns the raw text reply.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

const defaultMaxTokens = 2048

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}

// stripCodeFence removes a surrounding markdown code fence, which some models
// add even when told to reply with bare JSON or LaTeX.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the info string, e.g. "json"
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
