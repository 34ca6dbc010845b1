// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source defines the evidence source contract, the registry of named
// sources, and the concrete adapters (curated guidelines, web search, arXiv).
// Implements: prd012-sources (R1-R4);
//
//	docs/ARCHITECTURE § Evidence Sources.
package source

import (
	"context"
	"sort"
	"sync"

	"github.com/spf13/cast"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// TaskContext carries the routing signals a source may inspect when deciding
// whether it can handle a request.
type TaskContext struct {
	Goal     string
	Query    string
	TaskType string
}

// Text returns the combined free text of the context.
func (tc TaskContext) Text() string {
	switch {
	case tc.Goal != "" && tc.Query != "" && tc.Goal != tc.Query:
		return tc.Goal + " " + tc.Query
	case tc.Goal != "":
		return tc.Goal
	default:
		return tc.Query
	}
}

// Inputs is the loosely-typed input bag passed to a source call.
type Inputs map[string]any

// String returns the string value for key, or "" when absent.
func (in Inputs) String(key string) string { return cast.ToString(in[key]) }

// Int returns the integer value for key, or fallback when absent or zero.
func (in Inputs) Int(key string, fallback int) int {
	if v := cast.ToInt(in[key]); v > 0 {
		return v
	}
	return fallback
}

// Result is what a source call produces: structured evidence plus the raw
// source-specific payload for callers that want it.
type Result struct {
	Evidence []types.EvidenceItem
	Raw      any
	Note     string
}

// Identity names a source for metadata consumers.
type Identity struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Owner   string `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// Capabilities declares what a source can do; the scorer matches these
// against request signals.
type Capabilities struct {
	TaskTypes []string `json:"task_types" yaml:"task_types"`
	Domains   []string `json:"domains" yaml:"domains"`
}

// Operational describes cost and latency expectations.
type Operational struct {
	CostEstimate   string `json:"cost_estimate" yaml:"cost_estimate"`
	LatencyProfile string `json:"latency_profile" yaml:"latency_profile"`
}

// Metadata is the full declared contract of a source.
type Metadata struct {
	Identity     Identity     `json:"identity" yaml:"identity"`
	Capabilities Capabilities `json:"capabilities" yaml:"capabilities"`
	Operational  Operational  `json:"operational" yaml:"operational"`
}

// Source is one pluggable evidence capability. The engine never inspects a
// source beyond this contract; each adapter is one concrete type.
type Source interface {
	Name() string
	CanHandle(tc TaskContext) bool
	Execute(ctx context.Context, in Inputs, tc TaskContext) (*Result, error)
	Metadata() Metadata
}

// Registry holds named sources with their static priority. Registration
// happens at startup; lookups are concurrent-safe.
type Registry struct {
	mu       sync.RWMutex
	sources  map[string]Source
	priority map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources:  make(map[string]Source),
		priority: make(map[string]int),
	}
}

// Register adds a source under its own name with a static priority. Higher
// priority wins score ties. Re-registering replaces the previous entry.
func (r *Registry) Register(s Source, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
	r.priority[s.Name()] = priority
}

// Get returns the source registered under name.
func (r *Registry) Get(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	return s, ok
}

// Priority returns the static priority for name (0 when unknown).
func (r *Registry) Priority(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.priority[name]
}

// Names returns all registered names ordered by priority descending, then
// name ascending, so iteration order is deterministic.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if r.priority[names[i]] != r.priority[names[j]] {
			return r.priority[names[i]] > r.priority[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// Len reports the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
