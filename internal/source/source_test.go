// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedSource struct{ name string }

func (s *namedSource) Name() string               { return s.name }
func (s *namedSource) CanHandle(TaskContext) bool { return true }
func (s *namedSource) Metadata() Metadata         { return Metadata{} }
func (s *namedSource) Execute(context.Context, Inputs, TaskContext) (*Result, error) {
	return &Result{}, nil
}

func TestRegistryOrdersByPriorityThenName(t *testing.T) {
	r := NewRegistry()
	r.Register(&namedSource{"beta"}, 1)
	r.Register(&namedSource{"alpha"}, 1)
	r.Register(&namedSource{"gamma"}, 5)

	assert.Equal(t, []string{"gamma", "alpha", "beta"}, r.Names())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 5, r.Priority("gamma"))

	src, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", src.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistryReRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(&namedSource{"alpha"}, 1)
	r.Register(&namedSource{"alpha"}, 7)

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 7, r.Priority("alpha"))
}

func TestInputsCoercion(t *testing.T) {
	in := Inputs{"query": "hello", "limit": "8", "count": 3}

	assert.Equal(t, "hello", in.String("query"))
	assert.Equal(t, "", in.String("missing"))
	assert.Equal(t, 8, in.Int("limit", 1), "string numbers coerce")
	assert.Equal(t, 3, in.Int("count", 1))
	assert.Equal(t, 42, in.Int("missing", 42))
}

func TestTaskContextText(t *testing.T) {
	assert.Equal(t, "goal text", TaskContext{Goal: "goal text"}.Text())
	assert.Equal(t, "query text", TaskContext{Query: "query text"}.Text())
	assert.Equal(t, "goal and query", TaskContext{Goal: "goal", Query: "and query"}.Text())
	assert.Equal(t, "", TaskContext{}.Text())
}
