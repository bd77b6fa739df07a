package model

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses() {
		got, err := ParseStatus(string(s))
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q", s, got)
		}
	}
	for _, bad := range []string{"", "SUGGESTED", "hired"} {
		if _, err := ParseStatus(bad); err == nil {
			t.Errorf("ParseStatus(%q) expected error", bad)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{StatusSuggested, StatusProcessing, true},
		{StatusSuggested, StatusDismissed, true},
		{StatusSuggested, StatusApplied, false},
		{StatusProcessing, StatusApplied, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusSuggested, false},
		{StatusFailed, StatusProcessing, true},
		{StatusFailed, StatusDismissed, true},
		{StatusApplied, StatusInterviewing, true},
		{StatusApplied, StatusRejected, true},
		{StatusInterviewing, StatusOffer, true},
		{StatusOffer, StatusRejected, true},
		{StatusDismissed, StatusSuggested, true},
		{StatusRejected, StatusSuggested, false},
		{StatusRejected, StatusOffer, false},
		{StatusSuggested, StatusSuggested, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestHTTPError_IsBlocked(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests} {
		err := fmt.Errorf("wrapped: %w", &HTTPError{StatusCode: code})
		if !errors.Is(err, ErrBlocked) {
			t.Errorf("HTTP %d should classify as blocked", code)
		}
	}
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		if errors.Is(&HTTPError{StatusCode: code}, ErrBlocked) {
			t.Errorf("HTTP %d should not classify as blocked", code)
		}
	}
}

func TestTypedErrors_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	errs := []error{
		&FetchError{URL: "https://x", Err: cause},
		&ExtractionError{Err: cause},
		&ScoringError{URL: "https://x", Err: cause},
		&PersistenceError{Op: "insert", Err: cause},
	}
	for _, err := range errs {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}
