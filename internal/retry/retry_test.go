package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/autocareer/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockFetcher calls a function on each invocation, tracking call count.
type mockFetcher struct {
	calls int
	fn    func(attempt int) (model.Page, error)
}

func (m *mockFetcher) Fetch(_ context.Context, _ string, _ model.Format) (model.Page, error) {
	m.calls++
	return m.fn(m.calls)
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (model.Page, error) {
		return model.Page{Title: "Careers"}, nil
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rf.Fetch(context.Background(), "https://acme.example.com", model.FormatText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Careers" {
		t.Fatalf("unexpected page: %+v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockFetcher{fn: func(attempt int) (model.Page, error) {
		if attempt == 1 {
			return model.Page{}, &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return model.Page{Content: "jobs"}, nil
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rf.Fetch(context.Background(), "https://acme.example.com", model.FormatMarkup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content != "jobs" {
		t.Fatalf("unexpected page: %+v", got)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn429WithRetryAfter(t *testing.T) {
	mock := &mockFetcher{fn: func(attempt int) (model.Page, error) {
		if attempt == 1 {
			return model.Page{}, &model.HTTPError{StatusCode: 429, RetryAfter: 5 * time.Millisecond}
		}
		return model.Page{}, nil
	}}

	rf := NewRetryFetcher(mock, 2, time.Hour, discardLogger())
	if _, err := rf.Fetch(context.Background(), "https://acme.example.com", model.FormatText); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	for _, code := range []int{403, 404} {
		mock := &mockFetcher{fn: func(_ int) (model.Page, error) {
			return model.Page{}, &model.HTTPError{StatusCode: code, Err: errors.New("refused")}
		}}

		rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
		_, err := rf.Fetch(context.Background(), "https://acme.example.com", model.FormatText)
		var httpErr *model.HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != code {
			t.Fatalf("expected HTTPError with status %d, got %v", code, err)
		}
		if mock.calls != 1 {
			t.Fatalf("status %d: expected 1 call (no retry), got %d", code, mock.calls)
		}
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (model.Page, error) {
		return model.Page{}, &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := rf.Fetch(context.Background(), "https://acme.example.com", model.FormatText)
	if err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (model.Page, error) {
		return model.Page{}, errors.New("connection reset")
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rf := NewRetryFetcher(mock, 2, time.Second, discardLogger())
	_, err := rf.Fetch(ctx, "https://acme.example.com", model.FormatText)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"429", &model.HTTPError{StatusCode: 429}, true},
		{"502", &model.HTTPError{StatusCode: 502}, true},
		{"401", &model.HTTPError{StatusCode: 401}, false},
		{"network", errors.New("dial tcp: connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
