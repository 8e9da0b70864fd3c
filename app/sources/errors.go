package sources

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a fetch failure. The kind decides the retry and
// source-health behavior downstream.
type ErrorKind string

const (
	// ErrTransient covers network failures and 5xx responses. Retried with
	// backoff.
	ErrTransient ErrorKind = "transient"
	// ErrRateLimited is never retried locally; the source is deferred until
	// the reported reset time.
	ErrRateLimited ErrorKind = "rate_limited"
	// ErrAuth is a fatal configuration error. Surfaced immediately, excluded
	// from the degrade ladder.
	ErrAuth ErrorKind = "auth"
	// ErrMalformed marks an unparseable response body.
	ErrMalformed ErrorKind = "malformed_response"
)

// FetchError is the typed failure a fetch client returns.
type FetchError struct {
	Kind      ErrorKind
	Source    string
	ResetAt   time.Time // rate_limited only
	Remaining int       // rate_limited only
	Err       error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch error (%s): %v", e.Kind, e.Source, e.Err)
	}
	return fmt.Sprintf("%s fetch error (%s)", e.Kind, e.Source)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the retry helper may attempt the call again.
func (e *FetchError) Retryable() bool {
	return e.Kind == ErrTransient
}

func NewTransientError(source string, err error) *FetchError {
	return &FetchError{Kind: ErrTransient, Source: source, Err: err}
}

func NewRateLimitError(source string, resetAt time.Time, remaining int) *FetchError {
	return &FetchError{Kind: ErrRateLimited, Source: source, ResetAt: resetAt, Remaining: remaining}
}

func NewAuthError(source string, err error) *FetchError {
	return &FetchError{Kind: ErrAuth, Source: source, Err: err}
}

func NewMalformedError(source string, err error) *FetchError {
	return &FetchError{Kind: ErrMalformed, Source: source, Err: err}
}

// AsFetchError unwraps err to a FetchError when one is present.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
