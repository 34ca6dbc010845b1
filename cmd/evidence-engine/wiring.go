// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/cache"
	"github.com/pdiddy/evidence-engine/internal/collector"
	"github.com/pdiddy/evidence-engine/internal/engine"
	"github.com/pdiddy/evidence-engine/internal/fallback"
	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/internal/router"
	"github.com/pdiddy/evidence-engine/internal/source"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Source registration priorities. Higher ranks first on keyword-only goals.
const (
	priorityWebSearch  = 3
	priorityArxiv      = 2
	priorityGuidelines = 1
)

// loadRouterConfig starts from the documented defaults and applies any
// overrides present in the config file or environment.
func loadRouterConfig() types.RouterConfig {
	cfg := types.DefaultRouterConfig()

	if v := viper.GetInt("fallback.max_attempts"); v > 0 {
		cfg.Fallback.MaxAttempts = v
	}
	if v := viper.GetDuration("fallback.base_backoff"); v > 0 {
		cfg.Fallback.BaseBackoff = v
	}
	if v := viper.GetDuration("fallback.circuit_recovery"); v > 0 {
		cfg.Fallback.CircuitRecovery = v
	}
	if v := viper.GetInt("fallback.circuit_failure_threshold"); v > 0 {
		cfg.Fallback.CircuitFailureThreshold = v
	}
	if v := viper.GetDuration("collector.global_budget"); v > 0 {
		cfg.Collector.GlobalBudget = v
	}
	if v := viper.GetInt("collector.max_per_source"); v > 0 {
		cfg.Collector.MaxPerSource = v
	}
	if v := viper.GetInt("collector.parallelism"); v > 0 {
		cfg.Collector.Parallelism = v
	}
	if viper.IsSet("search.enable_arxiv") {
		cfg.Search.EnableArxiv = viper.GetBool("search.enable_arxiv")
	}
	if viper.IsSet("search.enable_web_search") {
		cfg.Search.EnableWebSearch = viper.GetBool("search.enable_web_search")
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := viper.GetDuration("cache.ttl"); v > 0 {
		cfg.Cache.TTL = v
	}
	if v := viper.GetDuration("request_timeout"); v > 0 {
		cfg.RequestTimeout = v
	}

	cfg.Search.WebSearchAPIKey = secretDefault("tavily-api-key", cfg.Search.WebSearchAPIKey)
	return cfg
}

// buildRouter wires the full pipeline for one CLI invocation. The returned
// cleanup closes the cache store and flushes the logger.
func buildRouter(cmd *cobra.Command) (*router.Router, func(), error) {
	log := newLogger(cmd)
	httputil.Logger = log
	cfg := loadRouterConfig()

	corpus, err := source.DefaultCorpus()
	if err != nil {
		return nil, nil, fmt.Errorf("loading curated corpus: %w", err)
	}

	reg := source.NewRegistry()
	reg.Register(source.NewGuidelinesSource(corpus, 0), priorityGuidelines)

	var webSearch source.Source
	if cfg.Search.EnableWebSearch {
		if cfg.Search.WebSearchAPIKey == "" {
			log.Warn("web search enabled but no tavily-api-key secret found; source left unregistered")
		} else {
			ws := source.NewWebSearchSource(nil, cfg.Search)
			reg.Register(ws, priorityWebSearch)
			webSearch = ws
		}
	}
	if cfg.Search.EnableArxiv {
		reg.Register(source.NewArxivSource(nil, cfg.Search), priorityArxiv)
	}

	policy := fallback.NewPolicy(cfg.Fallback, log)
	eng := engine.New(reg, policy, log)
	col := collector.New(cfg.Collector, corpus, webSearch, log)

	var store *cache.Store
	if cfg.Cache.Enabled {
		store, err = cache.Open(cfg.Cache, log)
		if err != nil {
			// The cache is best effort: run uncached rather than fail.
			log.Warn("opening response cache failed, continuing uncached", zap.Error(err))
			store = nil
		}
	}

	cleanup := func() {
		if store != nil {
			store.Close()
		}
		log.Sync()
	}
	return router.New(cfg, reg, policy, eng, col, store, log), cleanup, nil
}

// formatDuration renders durations compactly for table output.
func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
