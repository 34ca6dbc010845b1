// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine drives the try → retry → fallback sequence for one logical
// request across an ordered candidate list. Failure is always a typed,
// well-formed result; the engine never returns an error to its caller.
// Implements: prd011-execution (R1-R4);
//
//	docs/ARCHITECTURE § Execution Engine.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/fallback"
	"github.com/pdiddy/evidence-engine/internal/recommend"
	"github.com/pdiddy/evidence-engine/internal/source"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// skipReasonCircuitOpen is the canonical skip reason recorded when the
// circuit breaker blocks a candidate.
const skipReasonCircuitOpen = "circuit_breaker_open"

// Outcome is the engine's result: execution status plus the winning
// source's payload and evidence.
type Outcome struct {
	Execution types.ExecutionStatus
	Results   any
	Evidence  []types.EvidenceItem
	Note      string
}

// Engine executes candidates against the registry under the fallback
// policy. The backoff sleep is the engine's only intentional blocking point
// besides the source call itself, and both honor context cancellation.
type Engine struct {
	reg    *source.Registry
	policy *fallback.Policy
	log    *zap.Logger

	// sleep is an injection point so tests never wait for real backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an Engine. A nil logger disables logging.
func New(reg *source.Registry, policy *fallback.Policy, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		reg:    reg,
		policy: policy,
		log:    log,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Execute runs the candidate sequence: the primary first, falling back to
// later candidates when one is exhausted or skipped. Within one candidate,
// attempts are strictly ordered with jittered exponential backoff between
// them, up to the configured attempt ceiling.
func (e *Engine) Execute(ctx context.Context, candidates []recommend.Candidate, in source.Inputs, tc source.TaskContext) *Outcome {
	if len(candidates) == 0 {
		return &Outcome{
			Execution: types.ExecutionStatus{
				Executed:    false,
				Reason:      "no candidate sources for this request",
				FailureKind: types.FailureAllExhausted,
			},
			Note: "no sources available for execution",
		}
	}

	var log []types.AttemptRecord
	var failed, skipped []string
	primary := candidates[0].Name

	for i, cand := range candidates {
		if !e.policy.ShouldTry(cand.Name) {
			e.log.Info("skipping source, circuit open", zap.String("source", cand.Name))
			log = append(log, types.AttemptRecord{
				Source:  cand.Name,
				Score:   cand.Score,
				Skipped: true,
				Reason:  skipReasonCircuitOpen,
			})
			skipped = append(skipped, cand.Name)
			continue
		}

		res, attempts, err := e.tryWithRetries(ctx, cand, in, tc, &log)
		if err == nil {
			e.policy.RecordSuccess(cand.Name)
			out := &Outcome{
				Execution: types.ExecutionStatus{
					Executed:       true,
					SourceUsed:     cand.Name,
					SourceScore:    cand.Score,
					Attempts:       attempts,
					FailedSources:  failed,
					SkippedSources: skipped,
					Log:            log,
				},
				Note: fmt.Sprintf("task executed with %s", cand.Name),
			}
			if i > 0 {
				out.Execution.FallbackUsed = true
				out.Execution.PrimaryFailed = primary
			}
			if res != nil {
				out.Results = res.Raw
				out.Evidence = res.Evidence
				if res.Note != "" {
					out.Note = res.Note
				}
			}
			return out
		}

		e.policy.RecordFailure(cand.Name)
		failed = append(failed, cand.Name)
		e.log.Warn("source exhausted",
			zap.String("source", cand.Name),
			zap.Int("attempts", attempts),
			zap.String("kind", string(types.KindOf(err))),
			zap.Error(err))

		// The whole request deadline is gone: trying further candidates
		// would only burn their health stats.
		if ctx.Err() != nil {
			break
		}
	}

	return &Outcome{
		Execution: types.ExecutionStatus{
			Executed:       false,
			Reason:         "all candidate sources failed or were skipped",
			FailureKind:    types.FailureAllExhausted,
			FailedSources:  failed,
			SkippedSources: skipped,
			Log:            log,
		},
		Note: "all sources failed; consider degraded mode or manual intervention",
	}
}

// tryWithRetries runs one candidate up to the attempt ceiling. It returns
// the winning result and attempt count on success, or the last typed
// failure on exhaustion.
func (e *Engine) tryWithRetries(ctx context.Context, cand recommend.Candidate, in source.Inputs, tc source.TaskContext, log *[]types.AttemptRecord) (*source.Result, int, error) {
	src, ok := e.reg.Get(cand.Name)
	if !ok {
		*log = append(*log, types.AttemptRecord{
			Source:  cand.Name,
			Attempt: 1,
			Score:   cand.Score,
			Reason:  "source_not_registered",
		})
		return nil, 0, types.NewFailure(types.FailureSourceUnavailable, cand.Name, nil)
	}

	maxAttempts := e.policy.Config().MaxAttempts
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := e.policy.ComputeBackoff(attempt - 1)
			e.log.Debug("backing off before retry",
				zap.String("source", cand.Name),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))
			if err := e.sleep(ctx, backoff); err != nil {
				return nil, attempt - 1, types.NewFailure(types.FailureTimeout, cand.Name, err)
			}
		}

		res, err := src.Execute(ctx, in, tc)
		if err == nil {
			*log = append(*log, types.AttemptRecord{
				Source:  cand.Name,
				Attempt: attempt,
				Score:   cand.Score,
				Success: true,
			})
			return res, attempt, nil
		}

		kind := types.KindOf(err)
		lastErr = types.NewFailure(kind, cand.Name, err)
		*log = append(*log, types.AttemptRecord{
			Source:  cand.Name,
			Attempt: attempt,
			Score:   cand.Score,
			Reason:  string(kind),
			Error:   err.Error(),
		})

		// Stop only when the request budget itself is spent; a source's own
		// deadline is transient and retried like any other failure.
		if ctx.Err() != nil {
			return nil, attempt, lastErr
		}
		// Retry only while the policy still allows this source.
		if !e.policy.ShouldTry(cand.Name) {
			return nil, attempt, lastErr
		}
	}
	return nil, maxAttempts, lastErr
}
