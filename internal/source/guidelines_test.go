// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuidelines(t *testing.T) *GuidelinesSource {
	t.Helper()
	c, err := DefaultCorpus()
	require.NoError(t, err)
	return NewGuidelinesSource(c, 0)
}

func TestGuidelinesCanHandle(t *testing.T) {
	s := newGuidelines(t)

	cases := []struct {
		goal string
		want bool
	}{
		{"how to choose a research direction", true},
		{"research methodology for my PhD", true},
		{"develop taste in research", true},
		{"mentoring for graduate school", true},
		{"latest diffusion model papers", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.CanHandle(TaskContext{Goal: tc.goal}), "goal %q", tc.goal)
	}
}

func TestGuidelinesExecute(t *testing.T) {
	s := newGuidelines(t)

	res, err := s.Execute(context.Background(), Inputs{"topic": "research taste"}, TaskContext{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Evidence)
	assert.LessOrEqual(t, len(res.Evidence), 8, "default per-call limit")
	assert.Contains(t, res.Note, "curated guidelines")
}

func TestGuidelinesExecuteFallsBackToGoal(t *testing.T) {
	s := newGuidelines(t)

	res, err := s.Execute(context.Background(), Inputs{}, TaskContext{Goal: "picking problems"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Evidence)
}

func TestGuidelinesExecuteEmptyTopic(t *testing.T) {
	s := newGuidelines(t)

	_, err := s.Execute(context.Background(), Inputs{}, TaskContext{})
	require.Error(t, err)
}

func TestGuidelinesExecuteHonorsLimit(t *testing.T) {
	s := newGuidelines(t)

	res, err := s.Execute(context.Background(), Inputs{"topic": "research", "limit": 2}, TaskContext{})
	require.NoError(t, err)
	assert.Len(t, res.Evidence, 2)
}

func TestGuidelinesMetadata(t *testing.T) {
	s := newGuidelines(t)
	meta := s.Metadata()
	assert.Equal(t, "research_guidelines", meta.Identity.Name)
	assert.Contains(t, meta.Capabilities.TaskTypes, "guidance")
	assert.NotEmpty(t, meta.Capabilities.Domains)
}
