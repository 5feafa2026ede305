package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrNotLinked is returned when an admin has no associated platform username.
	ErrNotLinked = errors.New("twitter account not linked")

	// ErrTokenNotConfigured is returned when neither an override nor a
	// static bearer token is available.
	ErrTokenNotConfigured = errors.New("no bearer token configured")

	// ErrCacheMiss is returned when no cache entry exists for a key.
	ErrCacheMiss = errors.New("cache entry not found")

	// ErrIdentityNotFound is returned when no identity record exists for an admin.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrRateLimited is returned when the platform API rate-limits us.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrNoJobs is returned when there are no refresh jobs to process.
	ErrNoJobs = errors.New("no jobs available")

	// ErrJobNotFound is returned when a refresh job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidCacheKind is returned for feed kinds other than photos/videos.
	ErrInvalidCacheKind = errors.New("invalid cache kind")
)

// UpstreamError carries the platform API's HTTP status so the caller
// can propagate it (and tell rate limiting apart from other failures).
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream API error (status %d)", e.StatusCode)
}

// RateLimited reports whether the upstream rejected us with 429.
func (e *UpstreamError) RateLimited() bool {
	return e.StatusCode == 429
}

// PipelineError wraps an error with pipeline context.
type PipelineError struct {
	Username string
	Op       string
	Err      error
}

func (e *PipelineError) Error() string {
	if e.Username != "" {
		return e.Op + " [" + e.Username + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(username, op string, err error) *PipelineError {
	return &PipelineError{
		Username: username,
		Op:       op,
		Err:      err,
	}
}
