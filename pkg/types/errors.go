// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies why a source call or request failed. The execution
// engine branches on kind, never on message text.
// Implements: prd011-execution R4.1-R4.3.
type FailureKind string

const (
	// FailureSourceUnavailable means the source is missing or not executable.
	FailureSourceUnavailable FailureKind = "source_unavailable"

	// FailureSourceError means the source call returned or raised a failure.
	FailureSourceError FailureKind = "source_error"

	// FailureTimeout means a time budget was exceeded.
	FailureTimeout FailureKind = "timeout"

	// FailureAllExhausted means every candidate failed or was skipped.
	FailureAllExhausted FailureKind = "all_sources_exhausted"

	// FailureCache marks a non-fatal cache problem, treated as a miss.
	FailureCache FailureKind = "cache_error"
)

// Failure is a tagged error carrying the failure kind and the source it
// occurred on. It wraps the underlying cause when there is one.
type Failure struct {
	Kind   FailureKind
	Source string
	Err    error
}

// NewFailure builds a Failure for source with the given kind and cause.
func NewFailure(kind FailureKind, source string, err error) *Failure {
	return &Failure{Kind: kind, Source: source, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		if f.Source == "" {
			return string(f.Kind)
		}
		return fmt.Sprintf("%s: %s", f.Source, f.Kind)
	}
	if f.Source == "" {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Source, f.Kind, f.Err)
}

// Unwrap exposes the cause for errors.Is/errors.As chains.
func (f *Failure) Unwrap() error { return f.Err }

// KindOf classifies an arbitrary error. Context cancellation and deadline
// expiry count as timeouts; tagged failures report their own kind; anything
// else is a plain source error. A nil error has no kind.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureTimeout
	}
	return FailureSourceError
}
