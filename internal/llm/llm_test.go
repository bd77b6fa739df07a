package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/amishk599/autocareer/internal/model"
)

// stubProvider returns canned replies and records requests.
type stubProvider struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []Request
}

func (s *stubProvider) Complete(_ context.Context, r Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
	return s.reply, s.err
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n\\documentclass{article}\n```\n", `\documentclass{article}`},
		{"  plain  ", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"caf\u00e9 menu", 4, "caf"}, // é is two bytes starting at 3
		{"caf\u00e9 menu", 5, "caf\u00e9"},
		{"\u65e5\u672c", 2, ""}, // first rune is three bytes
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		assert.Equal(t, tt.want, got, "truncate(%q, %d)", tt.in, tt.n)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestParseListings(t *testing.T) {
	listings, err := parseListings(`{"jobs":[{"title":" Go Engineer ","company":"Acme","url":"/jobs/1"},{"title":"SRE","company":"","url":"https://x.example.com/2"}]}`)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, model.Listing{Title: "Go Engineer", Company: "Acme", URL: "/jobs/1"}, listings[0])
	assert.Equal(t, "", listings[1].Company)
}

func TestParseListings_EmptyListIsNotAnError(t *testing.T) {
	listings, err := parseListings(`{"jobs":[]}`)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestParseListings_Rejects(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":         "",
		"not json":      "Sorry, I could not find any jobs.",
		"missing jobs":  `{"listings":[]}`,
		"null jobs":     `{"jobs":null}`,
		"missing url":   `{"jobs":[{"title":"x","company":"y"}]}`,
		"blank title":   `{"jobs":[{"title":"  ","company":"y","url":"/1"}]}`,
		"wrong type":    `{"jobs":"none"}`,
		"bare array":    `[{"title":"x","url":"/1"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseListings(raw)
			assert.Error(t, err)
		})
	}
}

func TestDiscoverer_WrapsFailuresAsExtractionError(t *testing.T) {
	page := model.Page{Title: "Jobs", URL: "https://board.example.com", Content: "listing text"}

	d := NewDiscoverer(&stubProvider{err: errors.New("quota exceeded")})
	_, err := d.Discover(context.Background(), page, "remote")
	var extErr *model.ExtractionError
	assert.ErrorAs(t, err, &extErr)

	d = NewDiscoverer(&stubProvider{reply: "not json"})
	_, err = d.Discover(context.Background(), page, "remote")
	assert.ErrorAs(t, err, &extErr)
}

func TestDiscoverer_RendersPrompt(t *testing.T) {
	stub := &stubProvider{reply: `{"jobs":[{"title":"Go Engineer","company":"Acme","url":"/jobs/1"}]}`}
	d := NewDiscoverer(stub)

	listings, err := d.Discover(context.Background(),
		model.Page{Title: "Acme Careers", URL: "https://acme.example.com/careers", Content: "Go Engineer /jobs/1"},
		"Global:\nremote only")
	require.NoError(t, err)
	require.Len(t, listings, 1)

	require.Len(t, stub.requests, 1)
	req := stub.requests[0]
	assert.Equal(t, "job_listings", req.SchemaName)
	assert.Contains(t, req.Prompt, "Acme Careers")
	assert.Contains(t, req.Prompt, "remote only")
	assert.Contains(t, req.Prompt, "Go Engineer /jobs/1")
}

func TestParseScore(t *testing.T) {
	for raw, want := range map[string]int{
		`{"score":0,"reasoning":"no"}`:    0,
		`{"score":100,"reasoning":"yes"}`: 100,
		"```json\n{\"score\":64,\"reasoning\":\"\"}\n```": 64,
	} {
		got, err := parseScore(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	for _, raw := range []string{`{"score":101}`, `{"score":-1}`, `{"reasoning":"x"}`, `{"score":"high"}`, `{"score":7.5}`, ``} {
		_, err := parseScore(raw)
		assert.Error(t, err, raw)
	}
}

func TestScorer_ScoringErrorIsDistinctFromZero(t *testing.T) {
	s := NewScorer(&stubProvider{reply: `{"score":0,"reasoning":"irrelevant"}`})
	score, err := s.Score(context.Background(), model.Listing{URL: "https://x/1"}, "desc", "profile", "filter")
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	s = NewScorer(&stubProvider{reply: `{"score":250,"reasoning":"great"}`})
	_, err = s.Score(context.Background(), model.Listing{URL: "https://x/1"}, "desc", "profile", "filter")
	var scoreErr *model.ScoringError
	assert.ErrorAs(t, err, &scoreErr)
}

func TestExtractor(t *testing.T) {
	e := NewExtractor(&stubProvider{reply: `{"company":"","title":"Platform Engineer","summary":"Builds things.","key_requirements":["Go","Kubernetes"]}`})
	p, err := e.Extract(context.Background(), "We need a platform engineer")
	require.NoError(t, err)
	assert.Equal(t, "Unknown Company", p.Company)
	assert.Equal(t, []string{"Go", "Kubernetes"}, p.Requirements)
}

func TestRewriter_RendersRequirements(t *testing.T) {
	stub := &stubProvider{reply: "```latex\n\\documentclass{article}\n```"}
	r := NewRewriter(stub)
	out, err := r.Rewrite(context.Background(), `\documentclass{article}`, Posting{
		Company: "Acme", Title: "SRE", Requirements: []string{"Terraform", "On-call"},
	})
	require.NoError(t, err)
	assert.Equal(t, `\documentclass{article}`, out)
	assert.True(t, strings.Contains(stub.requests[0].Prompt, "- Terraform\n- On-call"))
	assert.Nil(t, stub.requests[0].Schema)
}

func TestRateLimitedProvider_Throttles(t *testing.T) {
	stub := &stubProvider{reply: "ok"}
	p := NewRateLimitedProvider(stub, 20) // one call per 50ms

	start := time.Now()
	for range 3 {
		_, err := p.Complete(context.Background(), Request{})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRateLimitedProvider_ContextCancelled(t *testing.T) {
	p := NewRateLimitedProvider(&stubProvider{}, 0.001)
	_, _ = p.Complete(context.Background(), Request{}) // consume the burst

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Complete(ctx, Request{})
	assert.Error(t, err)
}

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(scoreSchema)
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"score", "reasoning"}, s.Required)
	score := s.Properties["score"]
	require.NotNil(t, score)
	assert.Equal(t, genai.TypeInteger, score.Type)
	require.NotNil(t, score.Maximum)
	assert.Equal(t, 100.0, *score.Maximum)

	listings := toGeminiSchema(listingsSchema)
	assert.Equal(t, genai.TypeArray, listings.Properties["jobs"].Type)
	assert.Equal(t, genai.TypeString, listings.Properties["jobs"].Items.Properties["url"].Type)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "k", Model: "m"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIProvider{}, p)

	p, err = NewProvider(context.Background(), Config{Provider: ProviderClaude, APIKey: "k", Model: "m", RequestsPerSecond: 2}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RateLimitedProvider{}, p)

	_, err = NewProvider(context.Background(), Config{Provider: "bard"}, nil)
	assert.Error(t, err)
}
