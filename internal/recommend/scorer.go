// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recommend ranks registered evidence sources for a request using
// capability match, static priority, and live health. Scoring is keyword
// heuristics, deliberately not ML: results must be cheap and reproducible.
// Implements: prd012-recommendation (R1-R4);
//
//	docs/ARCHITECTURE § Recommendation.
package recommend

import (
	"sort"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/fallback"
	"github.com/pdiddy/evidence-engine/internal/source"
)

// Candidate is one ranked source with a human-readable reason. Transient;
// produced per request and never persisted.
type Candidate struct {
	Name   string  `json:"name" yaml:"name"`
	Score  float64 `json:"score" yaml:"score"`
	Reason string  `json:"reason" yaml:"reason"`
}

// Score weights. Capability match dominates; health only adjusts.
const (
	taskTypeWeight  = 3.0
	domainCueWeight = 2.0
	canHandleWeight = 1.0
	keywordWeight   = 1.5
	priorityWeight  = 0.5

	degradedPenalty    = 0.6
	circuitOpenPenalty = 0.25

	// floorScore keeps every registered source visible: an open circuit
	// lowers a source, it never hides it.
	floorScore = 0.1
)

var literatureTerms = []string{"paper", "papers", "literature", "arxiv", "survey", "citations", "publication", "preprint", "recent work"}

var guidanceTerms = []string{"methodology", "taste", "career", "advice", "mentoring", "phd", "choose", "direction", "how to", "guidance", "problem selection"}

// Score ranks every registered source for goal, descending. It never
// returns an empty list while the registry has sources, and never fails on
// an empty or garbage goal: with no keyword signals the registry comes back
// ranked by static priority alone.
func Score(goal string, reg *source.Registry, policy *fallback.Policy) []Candidate {
	lower := strings.ToLower(strings.TrimSpace(goal))
	literature := containsAny(lower, literatureTerms)
	guidance := containsAny(lower, guidanceTerms)
	domainCue := strings.Contains(lower, "site:")
	keywordOnly := lower != "" && !guidance && len(strings.Fields(lower)) <= 4

	tc := source.TaskContext{Goal: goal}

	var out []Candidate
	for _, name := range reg.Names() {
		src, ok := reg.Get(name)
		if !ok {
			continue
		}
		meta := src.Metadata()

		score := float64(reg.Priority(name)) * priorityWeight
		var reasons []string
		if lower == "" {
			reasons = append(reasons, "static priority (no goal signals)")
		}

		if lower != "" {
			if literature && hasTaskType(meta, "literature_search", "paper_lookup") {
				score += taskTypeWeight
				reasons = append(reasons, "matches literature search")
			}
			if guidance && hasTaskType(meta, "guidance", "methodology_guidance", "academic_mentoring") {
				score += taskTypeWeight
				reasons = append(reasons, "matches guidance request")
			}
			if domainCue && matchesDomain(lower, meta) {
				score += domainCueWeight
				reasons = append(reasons, "explicit domain cue")
			}
			// Keyword-only queries lean on generic web search rather than
			// specialized sources.
			if keywordOnly && hasTaskType(meta, "web_search") {
				score += keywordWeight
				reasons = append(reasons, "keyword query favors web search")
			}
			if src.CanHandle(tc) {
				score += canHandleWeight
				reasons = append(reasons, "source accepts the task")
			}
		}

		switch policy.EffectiveState(name) {
		case fallback.StateCircuitOpen:
			score *= circuitOpenPenalty
			reasons = append(reasons, "circuit open: heavily penalized")
		case fallback.StateDegraded:
			score *= degradedPenalty
			reasons = append(reasons, "degraded: penalized")
		}

		if score < floorScore {
			score = floorScore
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "static priority")
		}

		out = append(out, Candidate{Name: name, Score: score, Reason: strings.Join(reasons, "; ")})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if reg.Priority(out[i].Name) != reg.Priority(out[j].Name) {
			return reg.Priority(out[i].Name) > reg.Priority(out[j].Name)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func hasTaskType(meta source.Metadata, wanted ...string) bool {
	for _, tt := range meta.Capabilities.TaskTypes {
		for _, w := range wanted {
			if tt == w {
				return true
			}
		}
	}
	return false
}

func matchesDomain(goal string, meta source.Metadata) bool {
	for _, d := range meta.Capabilities.Domains {
		if d != "" && strings.Contains(goal, strings.ToLower(d)) {
			return true
		}
	}
	return false
}
