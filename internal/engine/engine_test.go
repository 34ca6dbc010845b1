// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/fallback"
	"github.com/pdiddy/evidence-engine/internal/recommend"
	"github.com/pdiddy/evidence-engine/internal/source"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// scriptedSource returns the scripted errors in order, then succeeds with
// its result on every later call.
type scriptedSource struct {
	name   string
	errs   []error
	result *source.Result
	calls  int
}

func (s *scriptedSource) Name() string                      { return s.name }
func (s *scriptedSource) CanHandle(source.TaskContext) bool { return true }
func (s *scriptedSource) Metadata() source.Metadata         { return source.Metadata{} }
func (s *scriptedSource) Execute(_ context.Context, _ source.Inputs, _ source.TaskContext) (*source.Result, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return nil, s.errs[s.calls-1]
	}
	if s.result != nil {
		return s.result, nil
	}
	return &source.Result{Raw: s.name + "-payload"}, nil
}

func testEngine(t *testing.T, srcs ...*scriptedSource) (*Engine, *fallback.Policy, *[]time.Duration) {
	t.Helper()
	reg := source.NewRegistry()
	for i, s := range srcs {
		reg.Register(s, len(srcs)-i)
	}
	policy := fallback.NewPolicy(types.FallbackConfig{}, nil)
	e := New(reg, policy, nil)
	var slept []time.Duration
	e.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return e, policy, &slept
}

func candidates(srcs ...*scriptedSource) []recommend.Candidate {
	out := make([]recommend.Candidate, 0, len(srcs))
	for i, s := range srcs {
		out = append(out, recommend.Candidate{Name: s.name, Score: float64(len(srcs) - i)})
	}
	return out
}

func TestSucceedsFirstAttempt(t *testing.T) {
	primary := &scriptedSource{name: "web_search"}
	e, _, slept := testEngine(t, primary)

	out := e.Execute(context.Background(), candidates(primary), source.Inputs{}, source.TaskContext{Goal: "q"})
	require.True(t, out.Execution.Executed)
	assert.Equal(t, "web_search", out.Execution.SourceUsed)
	assert.Equal(t, 1, out.Execution.Attempts)
	assert.False(t, out.Execution.FallbackUsed)
	assert.Empty(t, *slept)
	assert.Equal(t, "web_search-payload", out.Results)
}

func TestRetriesThenSucceeds(t *testing.T) {
	primary := &scriptedSource{
		name: "web_search",
		errs: []error{errors.New("flaky"), errors.New("flaky again")},
	}
	e, _, slept := testEngine(t, primary)

	out := e.Execute(context.Background(), candidates(primary), source.Inputs{}, source.TaskContext{Goal: "q"})
	require.True(t, out.Execution.Executed)
	assert.Equal(t, 3, out.Execution.Attempts)
	assert.False(t, out.Execution.FallbackUsed)
	assert.Len(t, *slept, 2, "one backoff before each retry")
	require.Len(t, out.Execution.Log, 3)
	assert.False(t, out.Execution.Log[0].Success)
	assert.True(t, out.Execution.Log[2].Success)
}

func TestFallbackAfterPrimaryExhausted(t *testing.T) {
	primary := &scriptedSource{
		name: "web_search",
		errs: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	backup := &scriptedSource{name: "arxiv_search"}
	e, policy, _ := testEngine(t, primary, backup)

	out := e.Execute(context.Background(), candidates(primary, backup), source.Inputs{}, source.TaskContext{Goal: "q"})
	require.True(t, out.Execution.Executed)
	assert.Equal(t, "arxiv_search", out.Execution.SourceUsed)
	assert.True(t, out.Execution.FallbackUsed)
	assert.Equal(t, "web_search", out.Execution.PrimaryFailed)
	assert.Equal(t, []string{"web_search"}, out.Execution.FailedSources)

	// The primary's exhaustion counts as exactly one policy failure.
	info, ok := policy.HealthSummary()["web_search"]
	require.True(t, ok)
	assert.Equal(t, 1, info.FailureCount)
}

func TestCircuitOpenSourceSkipped(t *testing.T) {
	primary := &scriptedSource{name: "web_search"}
	backup := &scriptedSource{name: "research_guidelines"}
	e, policy, _ := testEngine(t, primary, backup)

	for i := 0; i < 3; i++ {
		policy.RecordFailure("web_search")
	}
	require.Equal(t, fallback.StateCircuitOpen, policy.EffectiveState("web_search"))

	out := e.Execute(context.Background(), candidates(primary, backup), source.Inputs{}, source.TaskContext{Goal: "q"})
	require.True(t, out.Execution.Executed)
	assert.Equal(t, "research_guidelines", out.Execution.SourceUsed)
	assert.True(t, out.Execution.FallbackUsed)
	assert.Equal(t, []string{"web_search"}, out.Execution.SkippedSources)
	assert.Equal(t, 0, primary.calls, "open circuit must block the call entirely")

	require.NotEmpty(t, out.Execution.Log)
	assert.True(t, out.Execution.Log[0].Skipped)
	assert.Equal(t, "circuit_breaker_open", out.Execution.Log[0].Reason)
}

func TestAllSourcesExhausted(t *testing.T) {
	a := &scriptedSource{name: "alpha", errs: []error{errors.New("x"), errors.New("x"), errors.New("x")}}
	b := &scriptedSource{name: "beta", errs: []error{errors.New("y"), errors.New("y"), errors.New("y")}}
	e, _, _ := testEngine(t, a, b)

	out := e.Execute(context.Background(), candidates(a, b), source.Inputs{}, source.TaskContext{Goal: "q"})
	assert.False(t, out.Execution.Executed)
	assert.Equal(t, types.FailureAllExhausted, out.Execution.FailureKind)
	assert.Equal(t, []string{"alpha", "beta"}, out.Execution.FailedSources)
	assert.Len(t, out.Execution.Log, 6)
}

func TestTransientTimeoutRetried(t *testing.T) {
	primary := &scriptedSource{
		name: "web_search",
		errs: []error{context.DeadlineExceeded},
	}
	e, _, slept := testEngine(t, primary)

	out := e.Execute(context.Background(), candidates(primary), source.Inputs{}, source.TaskContext{Goal: "q"})
	require.True(t, out.Execution.Executed)
	assert.Equal(t, "web_search", out.Execution.SourceUsed)
	assert.Equal(t, 2, primary.calls, "a source-local deadline is transient while the request is alive")
	assert.False(t, out.Execution.FallbackUsed)
	assert.Len(t, *slept, 1)
}

func TestTimeoutsExhaustAttemptsThenFallBack(t *testing.T) {
	primary := &scriptedSource{
		name: "web_search",
		errs: []error{context.DeadlineExceeded, context.DeadlineExceeded, context.DeadlineExceeded},
	}
	backup := &scriptedSource{name: "arxiv_search"}
	e, _, slept := testEngine(t, primary, backup)

	out := e.Execute(context.Background(), candidates(primary, backup), source.Inputs{}, source.TaskContext{Goal: "q"})
	require.True(t, out.Execution.Executed)
	assert.Equal(t, "arxiv_search", out.Execution.SourceUsed)
	assert.Equal(t, 3, primary.calls, "timeouts consume the full attempt ceiling")
	assert.Len(t, *slept, 2)
	assert.Equal(t, "web_search", out.Execution.PrimaryFailed)
}

func TestCancelledContextStopsFallbackChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &scriptedSource{
		name: "web_search",
		errs: []error{context.Canceled, context.Canceled, context.Canceled},
	}
	backup := &scriptedSource{name: "arxiv_search"}
	e, _, _ := testEngine(t, primary, backup)
	cancel()

	out := e.Execute(ctx, candidates(primary, backup), source.Inputs{}, source.TaskContext{Goal: "q"})
	assert.False(t, out.Execution.Executed)
	assert.Equal(t, 0, backup.calls, "no budget left for further candidates")
}

func TestNoCandidates(t *testing.T) {
	e, _, _ := testEngine(t)
	out := e.Execute(context.Background(), nil, source.Inputs{}, source.TaskContext{})
	assert.False(t, out.Execution.Executed)
	assert.Equal(t, types.FailureAllExhausted, out.Execution.FailureKind)
}

func TestUnregisteredCandidateFallsThrough(t *testing.T) {
	backup := &scriptedSource{name: "arxiv_search"}
	e, _, _ := testEngine(t, backup)

	cands := []recommend.Candidate{{Name: "ghost", Score: 2}, {Name: "arxiv_search", Score: 1}}
	out := e.Execute(context.Background(), cands, source.Inputs{}, source.TaskContext{Goal: "q"})
	require.True(t, out.Execution.Executed)
	assert.Equal(t, "arxiv_search", out.Execution.SourceUsed)
	assert.True(t, out.Execution.FallbackUsed)
	assert.Equal(t, "ghost", out.Execution.PrimaryFailed)
}
