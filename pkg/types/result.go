// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AttemptRecord is one entry in the execution log: a single attempt against a
// single source, or a skip decision.
type AttemptRecord struct {
	Source  string  `json:"source" yaml:"source"`
	Attempt int     `json:"attempt" yaml:"attempt"`
	Score   float64 `json:"score" yaml:"score"`
	Success bool    `json:"success" yaml:"success"`
	Skipped bool    `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Reason  string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	Error   string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// ExecutionStatus describes how a request was (or was not) executed. Failure
// is a normal, typed outcome: Executed is false and Reason explains why,
// never a raw error to the caller.
// Implements: prd011-execution R2.1-R2.5.
type ExecutionStatus struct {
	Executed bool `json:"executed" yaml:"executed"`

	// SourceUsed names the source that produced the result, empty on failure.
	SourceUsed string `json:"source_used,omitempty" yaml:"source_used,omitempty"`

	// SourceScore is the recommendation score of the source that ran.
	SourceScore float64 `json:"source_score,omitempty" yaml:"source_score,omitempty"`

	// Attempts counts calls made against SourceUsed, including the first.
	Attempts int `json:"attempts,omitempty" yaml:"attempts,omitempty"`

	// FallbackUsed is set when a non-primary candidate produced the result.
	FallbackUsed bool `json:"fallback_used,omitempty" yaml:"fallback_used,omitempty"`

	// PrimaryFailed names the primary candidate when a fallback ran instead.
	PrimaryFailed string `json:"primary_failed,omitempty" yaml:"primary_failed,omitempty"`

	// Reason is a human-readable explanation for Executed == false.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// FailureKind tags the overall failure class for Executed == false.
	FailureKind FailureKind `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`

	// FailedSources lists candidates that were attempted and exhausted.
	FailedSources []string `json:"failed_sources,omitempty" yaml:"failed_sources,omitempty"`

	// SkippedSources lists candidates skipped by the circuit breaker.
	SkippedSources []string `json:"skipped_sources,omitempty" yaml:"skipped_sources,omitempty"`

	// Log records every attempt and skip in order.
	Log []AttemptRecord `json:"execution_log,omitempty" yaml:"execution_log,omitempty"`
}

// TaskResponse is the top-level result shape returned to callers.
type TaskResponse struct {
	Task      string          `json:"task" yaml:"task"`
	Query     string          `json:"query,omitempty" yaml:"query,omitempty"`
	Execution ExecutionStatus `json:"execution" yaml:"execution"`

	// Results is the raw payload of the winning source, nil on failure.
	Results any `json:"results" yaml:"results"`

	// Citations is the deduplicated, paginated citation block, when any
	// evidence was produced.
	Citations *CitationBlock `json:"citations,omitempty" yaml:"citations,omitempty"`

	// Cached is set when the response was served from the response cache.
	Cached bool `json:"cached,omitempty" yaml:"cached,omitempty"`

	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}
