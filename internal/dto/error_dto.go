package dto

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Fatal errors are never retried; transient errors
// count against the task's retry budget.
var (
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	ErrIndexWriteFailed     = errors.New("index write failed")
)

// Request-level sentinels mapped to HTTP statuses by the server error handler.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrAccessDenied = errors.New("access denied")
	// ErrDocumentNotFailed rejects a requeue of a document that is not in the
	// failed state.
	ErrDocumentNotFailed = errors.New("document is not in a failed state")
)

// PipelineError wraps a taxonomy sentinel with step context and a fatality
// flag so the coordinator can decide between retry and fail-fast.
type PipelineError struct {
	Step  string
	Err   error
	Fatal bool
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func NewFatalError(step string, err error) *PipelineError {
	return &PipelineError{Step: step, Err: err, Fatal: true}
}

func NewTransientError(step string, err error) *PipelineError {
	return &PipelineError{Step: step, Err: err}
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Fatal
	}
	return errors.Is(err, ErrUnsupportedFormat)
}

// SearchUnavailableError distinguishes "search is down" from "no matches";
// the latter is an empty result list, never an error.
type SearchUnavailableError struct {
	Cause error
}

func (e *SearchUnavailableError) Error() string {
	return fmt.Sprintf("search backend unavailable: %v", e.Cause)
}

func (e *SearchUnavailableError) Unwrap() error {
	return e.Cause
}
