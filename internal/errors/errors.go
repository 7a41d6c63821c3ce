package errors

import (
	"errors"
	"fmt"
)

// Custom error types for the URL shortener application

// ErrShortCodeNotFound is returned when a short code doesn't exist in the store
// (or, for redirects, exists but has been deleted).
var ErrShortCodeNotFound = errors.New("short code not found")

// ErrMissingCode is returned when a request does not carry a short code.
var ErrMissingCode = errors.New("missing short code")

// ErrMissingTarget is returned when a create request carries no target URL.
var ErrMissingTarget = errors.New("missing target URL")

// ErrInvalidTarget is returned when the target URL is not an absolute http(s) URL.
var ErrInvalidTarget = errors.New("invalid target URL, include protocol (http/https)")

// ErrForbiddenScheme is returned for javascript: and data: targets.
var ErrForbiddenScheme = errors.New("invalid URL scheme")

// ErrInvalidCustomCode is returned when a custom code is not 6-8 alphanumeric characters.
var ErrInvalidCustomCode = errors.New("custom code must be 6-8 alphanumeric characters")

// ErrCodeConflict is returned when a custom code is already taken.
var ErrCodeConflict = errors.New("code already exists")

// ErrShortCodeGenerationFailed is returned when we can't generate a unique short code
var ErrShortCodeGenerationFailed = errors.New("failed to generate unique short code")

// ErrDuplicateShortCode is returned by repositories when an insert violates the
// unique constraint on the code column. The link service recovers from it.
var ErrDuplicateShortCode = errors.New("short code already stored")

// StoreError wraps any unexpected persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err unless it is nil or already a StoreError.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// ErrClickRecordingFailed is returned when the click counter of a link could not be updated
type ErrClickRecordingFailed struct {
	Code   string
	Reason string
}

func (e ErrClickRecordingFailed) Error() string {
	return fmt.Sprintf("failed to record click for link %s: %s", e.Code, e.Reason)
}

// ErrURLCheckFailed is returned when URL health check fails
type ErrURLCheckFailed struct {
	URL    string
	Reason string
}

func (e ErrURLCheckFailed) Error() string {
	return fmt.Sprintf("failed to check URL %s: %s", e.URL, e.Reason)
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}

// Kind classifies errors for the HTTP boundary and the CLI.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindConflict
	KindNotFound
	KindExhausted
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindExhausted:
		return "generation_exhausted"
	case KindStore:
		return "store_error"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of err. Input errors win over store errors so that a
// wrapped validation failure is never reported as a server error.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrMissingTarget),
		errors.Is(err, ErrInvalidTarget),
		errors.Is(err, ErrForbiddenScheme),
		errors.Is(err, ErrInvalidCustomCode),
		errors.Is(err, ErrMissingCode):
		return KindInvalidInput
	case errors.Is(err, ErrCodeConflict):
		return KindConflict
	case errors.Is(err, ErrShortCodeNotFound):
		return KindNotFound
	case errors.Is(err, ErrShortCodeGenerationFailed):
		return KindExhausted
	}
	var se *StoreError
	if errors.As(err, &se) {
		return KindStore
	}
	return KindUnknown
}
