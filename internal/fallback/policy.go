// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fallback tracks per-source health and decides when a source may be
// tried, when to back off, and when a circuit is open.
// Implements: prd010-fallback (R1-R5);
//
//	docs/ARCHITECTURE § Fallback Policy.
package fallback

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// State is the health state of one source.
type State string

const (
	StateHealthy     State = "healthy"
	StateDegraded    State = "degraded"
	StateCircuitOpen State = "circuit_open"
)

// SourceHealth is the mutable health record for one source. It is owned by
// the Policy and mutated only through RecordSuccess/RecordFailure; records
// are never destroyed, only reset by explicit operator action.
type SourceHealth struct {
	Name                string
	FailureCount        int
	SuccessCount        int
	ConsecutiveFailures int
	LastFailureTime     time.Time
	LastSuccessTime     time.Time
	State               State
	CircuitOpenUntil    time.Time
}

// HealthInfo is the read-only summary exposed per source (R4.4).
type HealthInfo struct {
	State               State      `json:"state" yaml:"state"`
	SuccessRate         float64    `json:"success_rate" yaml:"success_rate"`
	SuccessCount        int        `json:"success_count" yaml:"success_count"`
	FailureCount        int        `json:"failure_count" yaml:"failure_count"`
	ConsecutiveFailures int        `json:"consecutive_failures" yaml:"consecutive_failures"`
	LastFailure         *time.Time `json:"last_failure,omitempty" yaml:"last_failure,omitempty"`
	LastSuccess         *time.Time `json:"last_success,omitempty" yaml:"last_success,omitempty"`
}

// Policy holds the immutable fallback configuration and the health map. The
// health map is shared across requests; all access goes through the mutex so
// concurrent writers are safe. Critical sections are short by construction.
type Policy struct {
	cfg types.FallbackConfig
	log *zap.Logger

	mu     sync.Mutex
	health map[string]*SourceHealth

	// now and randFloat are injection points for tests.
	now       func() time.Time
	randFloat func() float64
}

// NewPolicy builds a Policy, filling zero config fields with the documented
// defaults. A nil logger disables logging.
func NewPolicy(cfg types.FallbackConfig, log *zap.Logger) *Policy {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.CircuitFailureThreshold <= 0 {
		cfg.CircuitFailureThreshold = 3
	}
	if cfg.CircuitRecovery <= 0 {
		cfg.CircuitRecovery = 60 * time.Second
	}
	if cfg.JitterFactor <= 0 {
		cfg.JitterFactor = 0.1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Policy{
		cfg:       cfg,
		log:       log,
		health:    make(map[string]*SourceHealth),
		now:       time.Now,
		randFloat: rand.Float64,
	}
}

// Config returns the effective (defaulted) configuration.
func (p *Policy) Config() types.FallbackConfig { return p.cfg }

// ShouldTry reports whether source may be called right now. It is free of
// side effects: an expired open circuit reads as try-able (the half-open
// trial), but the state transition itself happens on the next recorded
// outcome.
func (p *Policy) ShouldTry(source string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.health[source]
	if !ok || h.State != StateCircuitOpen {
		return true
	}
	return !p.now().Before(h.CircuitOpenUntil)
}

// RecordSuccess notes a successful call. Any success resets the consecutive
// failure counter; while degraded, every third cumulative success restores
// the source to healthy (R2.4).
func (p *Policy) RecordSuccess(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.record(source)
	h.SuccessCount++
	h.ConsecutiveFailures = 0
	h.LastSuccessTime = p.now()

	if h.State == StateDegraded && h.SuccessCount%3 == 0 {
		h.State = StateHealthy
		p.log.Info("source restored to healthy", zap.String("source", source))
	}
}

// RecordFailure notes a failed call and opens the circuit once the
// consecutive failure threshold is reached (R2.2).
func (p *Policy) RecordFailure(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.record(source)
	h.FailureCount++
	h.ConsecutiveFailures++
	h.LastFailureTime = p.now()

	if h.ConsecutiveFailures >= p.cfg.CircuitFailureThreshold {
		h.State = StateCircuitOpen
		h.CircuitOpenUntil = p.now().Add(p.cfg.CircuitRecovery)
		p.log.Warn("circuit breaker opened",
			zap.String("source", source),
			zap.Int("consecutive_failures", h.ConsecutiveFailures),
			zap.Time("open_until", h.CircuitOpenUntil))
	}
}

// record returns the health entry for source, creating it on first use and
// resolving an expired open circuit to degraded (the half-open trial has
// just completed, whichever way it went).
func (p *Policy) record(source string) *SourceHealth {
	h, ok := p.health[source]
	if !ok {
		h = &SourceHealth{Name: source, State: StateHealthy}
		p.health[source] = h
	}
	if h.State == StateCircuitOpen && !p.now().Before(h.CircuitOpenUntil) {
		h.State = StateDegraded
		h.CircuitOpenUntil = time.Time{}
		p.log.Info("circuit breaker entering recovery", zap.String("source", source))
	}
	return h
}

// ComputeBackoff returns the jittered delay before retry number attempt
// (attempt 1 is the first retry). The delay grows exponentially from
// BaseBackoff, is capped at MaxBackoff, and is jittered multiplicatively by
// ±JitterFactor without exceeding the cap.
func (p *Policy) ComputeBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	d := float64(p.cfg.BaseBackoff) * math.Pow(2, float64(attempt-1))
	if d > float64(p.cfg.MaxBackoff) {
		d = float64(p.cfg.MaxBackoff)
	}

	jitter := (p.randFloat()*2 - 1) * p.cfg.JitterFactor
	d *= 1 + jitter
	if d > float64(p.cfg.MaxBackoff) {
		d = float64(p.cfg.MaxBackoff)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// HealthSummary returns the observability view of every tracked source. An
// expired open circuit is reported as degraded even though the stored state
// has not been rewritten yet.
func (p *Policy) HealthSummary() map[string]HealthInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]HealthInfo, len(p.health))
	for name, h := range p.health {
		info := HealthInfo{
			State:               h.State,
			SuccessCount:        h.SuccessCount,
			FailureCount:        h.FailureCount,
			ConsecutiveFailures: h.ConsecutiveFailures,
		}
		if h.State == StateCircuitOpen && !p.now().Before(h.CircuitOpenUntil) {
			info.State = StateDegraded
		}
		total := h.SuccessCount + h.FailureCount
		if total > 0 {
			info.SuccessRate = float64(h.SuccessCount) / float64(total)
		}
		if !h.LastFailureTime.IsZero() {
			t := h.LastFailureTime
			info.LastFailure = &t
		}
		if !h.LastSuccessTime.IsZero() {
			t := h.LastSuccessTime
			info.LastSuccess = &t
		}
		out[name] = info
	}
	return out
}

// EffectiveState returns the summary state for one source. Unknown sources
// are healthy.
func (p *Policy) EffectiveState(source string) State {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.health[source]
	if !ok {
		return StateHealthy
	}
	if h.State == StateCircuitOpen && !p.now().Before(h.CircuitOpenUntil) {
		return StateDegraded
	}
	return h.State
}

// Reset clears the health record for one source. Operator action only.
func (p *Policy) Reset(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.health, source)
}

// ResetAll clears every health record. Operator and test use only.
func (p *Policy) ResetAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health = make(map[string]*SourceHealth)
}

// TrackedSources returns the names of all sources with a health record,
// sorted for determinism.
func (p *Policy) TrackedSources() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.health))
	for name := range p.health {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetClock overrides the policy's time source. Test use only.
func (p *Policy) SetClock(now func() time.Time) { p.now = now }

// SetJitterSource overrides the jitter randomness. Test use only.
func (p *Policy) SetJitterSource(f func() float64) { p.randFloat = f }
