package model

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrDuplicate is returned by the store when a job URL already exists.
	ErrDuplicate = errors.New("duplicate job url")
	// ErrScanInProgress rejects a scan request while another scan is running.
	ErrScanInProgress = errors.New("scan already in progress")
	ErrNotFound       = errors.New("not found")
	// ErrInvalidTransition is returned for a disallowed job status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrBlocked marks a remote that refused automated access.
	ErrBlocked = errors.New("blocked by remote")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Is reports 401, 403 and 429 responses as ErrBlocked.
func (e *HTTPError) Is(target error) bool {
	if target != ErrBlocked {
		return false
	}
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

// FetchError is a source page that could not be fetched.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError means the model returned no usable listing structure.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return fmt.Sprintf("extract listings: %v", e.Err) }
func (e *ExtractionError) Unwrap() error { return e.Err }

// ScoringError means a score call failed or produced an out-of-range value.
type ScoringError struct {
	URL string
	Err error
}

func (e *ScoringError) Error() string { return fmt.Sprintf("score %s: %v", e.URL, e.Err) }
func (e *ScoringError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure other than a duplicate conflict.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
