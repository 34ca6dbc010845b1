// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/fallback"
	"github.com/pdiddy/evidence-engine/internal/source"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// mockSource is a minimal Source with declared capabilities.
type mockSource struct {
	name      string
	taskTypes []string
	domains   []string
	handles   func(source.TaskContext) bool
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) CanHandle(tc source.TaskContext) bool {
	if m.handles == nil {
		return true
	}
	return m.handles(tc)
}

func (m *mockSource) Execute(context.Context, source.Inputs, source.TaskContext) (*source.Result, error) {
	return &source.Result{}, nil
}

func (m *mockSource) Metadata() source.Metadata {
	return source.Metadata{
		Identity:     source.Identity{Name: m.name, Version: "1.0"},
		Capabilities: source.Capabilities{TaskTypes: m.taskTypes, Domains: m.domains},
	}
}

func testRegistry() *source.Registry {
	reg := source.NewRegistry()
	reg.Register(&mockSource{
		name:      "web_search",
		taskTypes: []string{"literature_search", "web_search", "fact_lookup"},
		domains:   []string{"web"},
	}, 3)
	reg.Register(&mockSource{
		name:      "arxiv_search",
		taskTypes: []string{"literature_search", "paper_lookup"},
		domains:   []string{"arxiv.org"},
	}, 2)
	reg.Register(&mockSource{
		name:      "research_guidelines",
		taskTypes: []string{"guidance", "methodology_guidance"},
		domains:   []string{"gwern.net", "colah.github.io"},
		handles: func(tc source.TaskContext) bool {
			return containsAny(tc.Goal, guidanceTerms)
		},
	}, 1)
	return reg
}

func names(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Name
	}
	return out
}

func scoreOf(t *testing.T, cands []Candidate, name string) float64 {
	t.Helper()
	for _, c := range cands {
		if c.Name == name {
			return c.Score
		}
	}
	t.Fatalf("candidate %q not found in %v", name, names(cands))
	return 0
}

func TestLiteratureQueryPrefersWebSearch(t *testing.T) {
	reg := testRegistry()
	policy := fallback.NewPolicy(types.FallbackConfig{}, nil)

	cands := Score("find recent papers on transformers", reg, policy)
	require.NotEmpty(t, cands)
	assert.Equal(t, "web_search", cands[0].Name)
	assert.Greater(t, scoreOf(t, cands, "web_search"), scoreOf(t, cands, "arxiv_search"))
	assert.Greater(t, scoreOf(t, cands, "arxiv_search"), scoreOf(t, cands, "research_guidelines"))
}

func TestKeywordQueryBiasesWebSearch(t *testing.T) {
	reg := testRegistry()
	policy := fallback.NewPolicy(types.FallbackConfig{}, nil)

	cands := Score("arxiv search transformer", reg, policy)
	require.NotEmpty(t, cands)
	assert.Equal(t, "web_search", cands[0].Name)
}

func TestGuidanceQueryPrefersGuidelines(t *testing.T) {
	reg := testRegistry()
	policy := fallback.NewPolicy(types.FallbackConfig{}, nil)

	cands := Score("how to choose a research direction", reg, policy)
	require.NotEmpty(t, cands)
	assert.Equal(t, "research_guidelines", cands[0].Name)
	assert.Greater(t, scoreOf(t, cands, "research_guidelines"), scoreOf(t, cands, "web_search"))
}

func TestEmptyGoalRanksByStaticPriority(t *testing.T) {
	reg := testRegistry()
	policy := fallback.NewPolicy(types.FallbackConfig{}, nil)

	cands := Score("", reg, policy)
	require.Len(t, cands, 3)
	assert.Equal(t, []string{"web_search", "arxiv_search", "research_guidelines"}, names(cands))
	for _, c := range cands {
		assert.Contains(t, c.Reason, "static priority")
	}
}

func TestGarbageGoalStillReturnsAllSources(t *testing.T) {
	reg := testRegistry()
	policy := fallback.NewPolicy(types.FallbackConfig{}, nil)

	cands := Score("qwxzzk 123 %%%", reg, policy)
	assert.Len(t, cands, 3)
	for _, c := range cands {
		assert.Greater(t, c.Score, 0.0)
	}
}

func TestCircuitOpenSourceStaysVisibleButPenalized(t *testing.T) {
	reg := testRegistry()
	policy := fallback.NewPolicy(types.FallbackConfig{CircuitFailureThreshold: 3}, nil)

	healthy := Score("find recent papers on transformers", reg, policy)
	require.Equal(t, "web_search", healthy[0].Name)

	for i := 0; i < 3; i++ {
		policy.RecordFailure("web_search")
	}
	require.False(t, policy.ShouldTry("web_search"))

	degraded := Score("find recent papers on transformers", reg, policy)
	assert.Equal(t, "arxiv_search", degraded[0].Name, "healthy alternative should outrank the open circuit")

	webScore := scoreOf(t, degraded, "web_search")
	assert.Greater(t, webScore, 0.0, "open circuit keeps a positive score so callers can observe the block")
	assert.Less(t, webScore, scoreOf(t, healthy, "web_search"))
}

func TestDegradedPenaltySmallerThanOpenPenalty(t *testing.T) {
	reg := testRegistry()
	goal := "find recent papers on transformers"

	openPolicy := fallback.NewPolicy(types.FallbackConfig{CircuitFailureThreshold: 3}, nil)
	for i := 0; i < 3; i++ {
		openPolicy.RecordFailure("web_search")
	}
	openScore := scoreOf(t, Score(goal, reg, openPolicy), "web_search")

	// A lone failure below threshold keeps the source healthy, so force the
	// degraded path via recovery: open with threshold 1, then let it lapse.
	lapsed := fallback.NewPolicy(types.FallbackConfig{CircuitFailureThreshold: 1, CircuitRecovery: 1}, nil)
	lapsed.RecordFailure("web_search")
	degradedScore := scoreOf(t, Score(goal, reg, lapsed), "web_search")

	assert.Greater(t, degradedScore, openScore)
}

func TestTieBreakIsDeterministic(t *testing.T) {
	reg := source.NewRegistry()
	reg.Register(&mockSource{name: "beta", taskTypes: []string{"web_search"}}, 1)
	reg.Register(&mockSource{name: "alpha", taskTypes: []string{"web_search"}}, 1)
	policy := fallback.NewPolicy(types.FallbackConfig{}, nil)

	for i := 0; i < 5; i++ {
		cands := Score("", reg, policy)
		assert.Equal(t, []string{"alpha", "beta"}, names(cands))
	}
}
