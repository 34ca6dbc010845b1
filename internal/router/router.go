// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package router is the entry point for task execution: it checks the
// response cache, ranks candidate sources, drives the execution engine or
// the evidence collector, folds evidence into the citation block, and
// memoizes the merged result. Callers always get a well-formed response;
// failures are typed statuses inside it.
// Implements: prd010-routing (R1-R5);
//
//	docs/ARCHITECTURE § Task Router.
package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/cache"
	"github.com/pdiddy/evidence-engine/internal/citation"
	"github.com/pdiddy/evidence-engine/internal/collector"
	"github.com/pdiddy/evidence-engine/internal/engine"
	"github.com/pdiddy/evidence-engine/internal/fallback"
	"github.com/pdiddy/evidence-engine/internal/recommend"
	"github.com/pdiddy/evidence-engine/internal/source"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Task names routed to the multi-source collector; everything else runs
// through the single-winner execution engine.
const (
	TaskGuidelines = "guidelines"
)

// Request describes one task invocation.
type Request struct {
	// Task selects the execution path (e.g. "literature_search",
	// "guidelines").
	Task string

	// Query is the goal or topic text.
	Query string

	// Mode is "fast" or "thorough"; collector tasks only.
	Mode string

	// Source pins the primary candidate, skipping recommendation order for
	// the first slot. Remaining candidates still serve as fallbacks.
	Source string

	// PageSize bounds the citation page; zero means the default.
	PageSize int

	// PageToken continues citation pagination from a previous response.
	PageToken string
}

// Router wires the pipeline together. One router serves many requests; all
// cross-request state lives in the policy's health map and the cache.
type Router struct {
	cfg    types.RouterConfig
	reg    *source.Registry
	policy *fallback.Policy
	engine *engine.Engine
	col    *collector.Collector
	store  *cache.Store
	log    *zap.Logger
}

// New builds a Router. The cache store may be nil, which disables caching
// regardless of configuration.
func New(cfg types.RouterConfig, reg *source.Registry, policy *fallback.Policy, eng *engine.Engine, col *collector.Collector, store *cache.Store, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{cfg: cfg, reg: reg, policy: policy, engine: eng, col: col, store: store, log: log}
}

// ExecuteTask runs one request end to end. It never returns an error: a
// failed execution is a response with Executed == false and a typed reason.
func (r *Router) ExecuteTask(ctx context.Context, req Request) *types.TaskResponse {
	if r.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RequestTimeout)
		defer cancel()
	}

	key := r.cacheKey(req)
	if resp := r.cacheGet(ctx, key); resp != nil {
		return resp
	}

	var resp *types.TaskResponse
	if req.Task == TaskGuidelines {
		resp = r.runCollector(ctx, req)
	} else {
		resp = r.runEngine(ctx, req)
	}

	if resp.Execution.Executed {
		r.cacheSet(ctx, key, req.Query, resp)
	}
	return resp
}

// runEngine resolves a single winning source for the request.
func (r *Router) runEngine(ctx context.Context, req Request) *types.TaskResponse {
	candidates := recommend.Score(req.Query, r.reg, r.policy)
	if req.Source != "" {
		candidates = pinPrimary(candidates, req.Source)
	}

	tc := source.TaskContext{Goal: req.Query, TaskType: req.Task}
	out := r.engine.Execute(ctx, candidates, source.Inputs{"query": req.Query}, tc)

	resp := &types.TaskResponse{
		Task:      req.Task,
		Query:     req.Query,
		Execution: out.Execution,
		Results:   out.Results,
		Note:      out.Note,
	}
	if len(out.Evidence) > 0 {
		resp.Citations = r.citationBlock(out.Execution.SourceUsed, out.Evidence, req)
	}
	return resp
}

// runCollector fans out across the curated domains and merges the evidence
// into one collection. Partial evidence is a success, not a failure.
func (r *Router) runCollector(ctx context.Context, req Request) *types.TaskResponse {
	col := r.col.Collect(ctx, req.Query, req.Mode)

	resp := &types.TaskResponse{
		Task:  req.Task,
		Query: req.Query,
		Execution: types.ExecutionStatus{
			Executed:   true,
			SourceUsed: "evidence_collector",
		},
		Results: col,
		Note:    "evidence collected across curated domains",
	}
	if len(col.Evidence) == 0 {
		resp.Note = "no evidence collected within budget"
	}
	resp.Citations = r.citationBlock("evidence_collector", col.Evidence, req)
	return resp
}

// citationBlock dedups evidence into citations, slices the requested page,
// and scores the whole set so callers can judge citation quality without a
// second pass.
func (r *Router) citationBlock(origin string, evidence []types.EvidenceItem, req Request) *types.CitationBlock {
	agg := citation.NewAggregator()
	agg.FromEvidence(origin, evidence)
	page, next := citation.Paginate(agg.All(), req.PageSize, req.PageToken)
	block := citation.OutputBlock(page, next)

	cv := citation.ValidateCitations(agg.All())
	block.Total = agg.Len()
	block.ValidCount = cv.ValidCount
	block.QualityScore = cv.Score
	return block
}

// cacheKey folds every output-affecting request parameter into the key.
func (r *Router) cacheKey(req Request) string {
	return cache.Key(req.Task, req.Query, map[string]any{
		"mode":       req.Mode,
		"source":     req.Source,
		"page_size":  req.PageSize,
		"page_token": req.PageToken,
	})
}

// cacheGet returns the cached response, or nil on miss. Cache errors are
// logged and treated as misses; the cache never fails a request.
func (r *Router) cacheGet(ctx context.Context, key string) *types.TaskResponse {
	if r.store == nil || !r.cfg.Cache.Enabled {
		return nil
	}
	resp, ok, err := r.store.Get(ctx, key)
	if err != nil {
		r.log.Warn("cache read failed, treating as miss",
			zap.String("kind", string(types.FailureCache)),
			zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	resp.Cached = true
	return resp
}

// cacheSet stores a successful response, best effort.
func (r *Router) cacheSet(ctx context.Context, key, query string, resp *types.TaskResponse) {
	if r.store == nil || !r.cfg.Cache.Enabled {
		return
	}
	if err := r.store.Set(ctx, key, query, resp); err != nil {
		r.log.Warn("cache write failed",
			zap.String("kind", string(types.FailureCache)),
			zap.Error(err))
	}
}

// pinPrimary moves the named candidate to the front, preserving the rest
// of the order. An unknown name is prepended with a zero score so the
// engine records the miss and falls back normally.
func pinPrimary(cands []recommend.Candidate, name string) []recommend.Candidate {
	for i, c := range cands {
		if c.Name == name {
			out := make([]recommend.Candidate, 0, len(cands))
			out = append(out, c)
			out = append(out, cands[:i]...)
			out = append(out, cands[i+1:]...)
			return out
		}
	}
	return append([]recommend.Candidate{{Name: name, Reason: "explicitly requested"}}, cands...)
}

// HealthSummary exposes the per-source circuit breaker view.
func (r *Router) HealthSummary() map[string]fallback.HealthInfo {
	return r.policy.HealthSummary()
}

// ClearCache drops every cached response and reports how many were
// removed. A nil store clears nothing.
func (r *Router) ClearCache(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	return r.store.Clear(ctx)
}

// CacheStats reports cache counters; zero stats when caching is off.
func (r *Router) CacheStats(ctx context.Context) (cache.Stats, error) {
	if r.store == nil {
		return cache.Stats{}, nil
	}
	return r.store.Stats(ctx)
}
