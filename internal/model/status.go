package model

import (
	"fmt"
	"slices"
)

// JobStatus is a job's position in the application lifecycle.
//
//	suggested ──► processing ──► applied ──► interviewing ──► offer
//	    │  ▲           │            │              │            │
//	    ▼  │           ▼            └──────────────┴────────────┴──► rejected
//	 dismissed ◄─── failed
type JobStatus string

const (
	StatusSuggested    JobStatus = "suggested"
	StatusDismissed    JobStatus = "dismissed"
	StatusProcessing   JobStatus = "processing"
	StatusApplied      JobStatus = "applied"
	StatusFailed       JobStatus = "failed"
	StatusInterviewing JobStatus = "interviewing"
	StatusRejected     JobStatus = "rejected"
	StatusOffer        JobStatus = "offer"
)

var allStatuses = []JobStatus{
	StatusSuggested, StatusDismissed, StatusProcessing, StatusApplied,
	StatusFailed, StatusInterviewing, StatusRejected, StatusOffer,
}

var validTransitions = map[JobStatus][]JobStatus{
	StatusSuggested:    {StatusDismissed, StatusProcessing},
	StatusProcessing:   {StatusApplied, StatusFailed},
	StatusFailed:       {StatusProcessing, StatusDismissed},
	StatusApplied:      {StatusInterviewing, StatusRejected},
	StatusInterviewing: {StatusOffer, StatusRejected},
	StatusOffer:        {StatusRejected},
	StatusDismissed:    {StatusSuggested},
	// rejected is terminal
}

// Statuses returns every known status in lifecycle order.
func Statuses() []JobStatus {
	return slices.Clone(allStatuses)
}

// ParseStatus converts a raw string to a JobStatus.
func ParseStatus(s string) (JobStatus, error) {
	st := JobStatus(s)
	if slices.Contains(allStatuses, st) {
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	return slices.Contains(validTransitions[from], to)
}
