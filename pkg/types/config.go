// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by networked source adapters.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FallbackConfig holds the circuit breaker and retry settings.
// Per prd010-fallback R5.1-R5.6. The retry ceiling and circuit threshold are
// deliberately configuration, not constants.
type FallbackConfig struct {
	// MaxAttempts is the total attempt ceiling per source, including the
	// first call (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseBackoff is the delay before the first retry (default 1s).
	BaseBackoff time.Duration `json:"base_backoff" yaml:"base_backoff"`

	// MaxBackoff caps the exponential backoff delay (default 10s).
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`

	// CircuitFailureThreshold is the consecutive-failure count that opens a
	// source's circuit (default 3).
	CircuitFailureThreshold int `json:"circuit_failure_threshold" yaml:"circuit_failure_threshold"`

	// CircuitRecovery is how long an open circuit blocks a source before one
	// trial call is allowed (default 60s).
	CircuitRecovery time.Duration `json:"circuit_recovery" yaml:"circuit_recovery"`

	// JitterFactor jitters backoff delays multiplicatively by ±factor
	// (default 0.1).
	JitterFactor float64 `json:"jitter_factor" yaml:"jitter_factor"`
}

// SearchConfig holds settings for the networked search adapters.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the per-call result limit (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EnableArxiv controls whether the arXiv source is registered.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// EnableWebSearch controls whether the web search source is registered.
	EnableWebSearch bool `json:"enable_web_search" yaml:"enable_web_search"`

	// WebSearchAPIKey authenticates against the web search API. Usually
	// loaded from the secrets directory rather than config.
	WebSearchAPIKey string `json:"web_search_api_key,omitempty" yaml:"web_search_api_key,omitempty"`
}

// CollectorConfig holds the evidence collection budgets.
// Per prd013-collection R3.1-R3.5.
type CollectorConfig struct {
	// GlobalBudget is the wall-clock cutoff for one whole collection run
	// (default 8s). A zero or negative budget yields an empty collection.
	GlobalBudget time.Duration `json:"global_budget" yaml:"global_budget"`

	// PerSourceBudget is the soft cutoff for one source's queries
	// (default 1500ms).
	PerSourceBudget time.Duration `json:"per_source_budget" yaml:"per_source_budget"`

	// MaxPerSource caps accepted items per source (default 3).
	MaxPerSource int `json:"max_per_source" yaml:"max_per_source"`

	// ResultCap caps the whole collection (default 24).
	ResultCap int `json:"result_cap" yaml:"result_cap"`

	// Parallelism bounds the fan-out worker pool across sources. 1 keeps
	// collection sequential (default 1).
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

// CacheConfig holds the response cache settings.
type CacheConfig struct {
	// Enabled controls whether responses are cached at all.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the directory holding the cache database.
	Dir string `json:"dir" yaml:"dir"`

	// TTL is how long a cached response stays fresh (default 24h). Older
	// entries are treated as misses and lazily purged.
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// RouterConfig groups all component configurations for the router.
type RouterConfig struct {
	Fallback  FallbackConfig  `json:"fallback" yaml:"fallback"`
	Search    SearchConfig    `json:"search" yaml:"search"`
	Collector CollectorConfig `json:"collector" yaml:"collector"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`

	// RequestTimeout bounds one whole ExecuteTask call (default 30s).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// DefaultRouterConfig returns the documented defaults for every knob.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Fallback: FallbackConfig{
			MaxAttempts:             3,
			BaseBackoff:             time.Second,
			MaxBackoff:              10 * time.Second,
			CircuitFailureThreshold: 3,
			CircuitRecovery:         60 * time.Second,
			JitterFactor:            0.1,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   10 * time.Second,
				UserAgent: "evidence-engine/0.1",
			},
			MaxResults:      10,
			EnableArxiv:     true,
			EnableWebSearch: true,
		},
		Collector: CollectorConfig{
			GlobalBudget:    8 * time.Second,
			PerSourceBudget: 1500 * time.Millisecond,
			MaxPerSource:    3,
			ResultCap:       24,
			Parallelism:     1,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     "cache",
			TTL:     24 * time.Hour,
		},
		RequestTimeout: 30 * time.Second,
	}
}
