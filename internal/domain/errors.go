package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Failure kinds. Callers match them with errors.Is.
var (
	// ErrNotFound indicates the input file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidFormat indicates the input is not a supported document type.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrEmptyInput indicates empty text, query or passage list.
	ErrEmptyInput = errors.New("empty input")

	// ErrEmptyStore indicates a query against a collection with no entries.
	ErrEmptyStore = errors.New("no documents in vector store")

	// ErrNoRelevantInformation indicates a query that matched nothing.
	ErrNoRelevantInformation = errors.New("no relevant information found in the document")

	// ErrUpstream indicates a failure in the extraction, embedding,
	// generation or index service.
	ErrUpstream = errors.New("upstream failure")

	// ErrTimeout indicates an upstream call that ran out of time.
	// It also matches ErrUpstream.
	ErrTimeout = errors.New("upstream timeout")

	// ErrUnknown indicates an unexpected failure at a stage boundary.
	ErrUnknown = errors.New("unknown failure")
)

// ErrEmptyQuery is the EmptyInput variant for blank queries.
var ErrEmptyQuery = fmt.Errorf("query is empty: %w", ErrEmptyInput)

// Stage labels used when the agent re-wraps a failure.
const (
	StageExtraction = "PDF extraction"
	StageChunking   = "Chunking"
	StageStorage    = "Vector storage"
)

// StageError labels a failure with the pipeline stage it came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + " failed: " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Stage wraps err with a stage label. A nil err stays nil.
func Stage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

type upstreamError struct {
	op      string
	err     error
	timeout bool
}

func (e *upstreamError) Error() string { return e.op + ": " + e.err.Error() }

func (e *upstreamError) Unwrap() error { return e.err }

func (e *upstreamError) Is(target error) bool {
	if target == ErrUpstream {
		return true
	}
	return target == ErrTimeout && e.timeout
}

// Upstream classifies an error returned by a remote collaborator.
// Deadline and network timeouts match ErrTimeout; everything matches ErrUpstream.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var ue *upstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &upstreamError{op: op, err: err, timeout: isTimeout(err)}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsClientError reports whether err was caused by the caller's input
// rather than by the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrEmptyStore) ||
		errors.Is(err, ErrNotFound)
}
