package domain

import "errors"

// Missing-optional-input conditions. All are non-fatal: processing degrades
// to an explicit "unavailable" result instead of approximating.
var (
	// ErrNormalsUnavailable means no baseline exists for a record's
	// calendar day, so anomalies cannot be computed for it.
	ErrNormalsUnavailable = errors.New("no normal for date")

	// ErrInsufficientHistory means fewer than two runs exist for a model,
	// so there is nothing to diff.
	ErrInsufficientHistory = errors.New("insufficient run history")

	// ErrInsufficientOverlap means the two most recent runs share no
	// forecast dates; comparing them would extrapolate beyond the data.
	ErrInsufficientOverlap = errors.New("no overlapping dates between runs")
)
