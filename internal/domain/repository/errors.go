package repository

import (
	"errors"
	"fmt"
)

// FailReason classifies an adapter failure. Fallback logic treats every
// reason as "advance to the next source"; Malformed is additionally logged
// at error level because it signals an upstream schema change.
type FailReason string

const (
	ReasonRateLimited FailReason = "rate_limited"
	ReasonUnavailable FailReason = "unavailable"
	ReasonMalformed   FailReason = "malformed"
	ReasonTimeout     FailReason = "timeout"
)

// SourceError is a structured per-adapter failure.
type SourceError struct {
	Source string
	Reason FailReason
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError wraps err with source attribution and a failure reason.
func NewSourceError(source string, reason FailReason, err error) *SourceError {
	return &SourceError{Source: source, Reason: reason, Err: err}
}

// ReasonOf extracts the failure reason, defaulting to Unavailable for
// errors that did not come from an adapter.
func ReasonOf(err error) FailReason {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ReasonUnavailable
}

var (
	// ErrMarketDataUnavailable is surfaced after all sources are exhausted.
	// Non-fatal to context assembly: the market facts facet is omitted.
	ErrMarketDataUnavailable = errors.New("market data unavailable from all sources")

	// ErrIndexNotReady means no retrieval snapshot has been installed.
	// Fatal to the query: passages cannot be fabricated.
	ErrIndexNotReady = errors.New("retrieval index not ready")
)
