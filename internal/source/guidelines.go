// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"regexp"
)

// guidancePatterns match requests asking for research guidance rather than
// literature. Kept permissive: the scorer, not this gate, does the ranking.
var guidancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(research\s+methodology|problem\s+selection|research\s+taste)\b`),
	regexp.MustCompile(`(?i)\b(academic\s+advice|phd\s+guidance|research\s+strategy)\b`),
	regexp.MustCompile(`(?i)\b(how\s+to\s+choose|develop\s+taste|research\s+skills)\b`),
	regexp.MustCompile(`(?i)\b(academic\s+career|research\s+planning|project\s+selection)\b`),
	regexp.MustCompile(`(?i)\bphd\b|\bcareer\s+guidance\b|\bmentoring\b|\bmethodology\b`),
	regexp.MustCompile(`(?i)\bresearch\s+advice\b|\bgraduate\s+school\b|\bresearch\s+direction\b`),
}

// GuidelinesSource serves the curated guidance corpus with no network
// access. It is the degraded-mode floor: it can always answer, just less
// specifically than a live search.
type GuidelinesSource struct {
	corpus *Corpus
	limit  int
}

// NewGuidelinesSource builds the curated source. limit caps returned items
// per call (default 8).
func NewGuidelinesSource(corpus *Corpus, limit int) *GuidelinesSource {
	if limit <= 0 {
		limit = 8
	}
	return &GuidelinesSource{corpus: corpus, limit: limit}
}

// Name returns the source identifier.
func (s *GuidelinesSource) Name() string { return "research_guidelines" }

// CanHandle reports whether the request reads like a guidance query.
func (s *GuidelinesSource) CanHandle(tc TaskContext) bool {
	text := tc.Text()
	if text == "" {
		return false
	}
	for _, p := range guidancePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Execute ranks the curated corpus against the topic and returns the best
// entries as evidence. It cannot time out and never fails on a non-empty
// topic.
func (s *GuidelinesSource) Execute(_ context.Context, in Inputs, tc TaskContext) (*Result, error) {
	topic := in.String("topic")
	if topic == "" {
		topic = in.String("query")
	}
	if topic == "" {
		topic = tc.Text()
	}
	if topic == "" {
		return nil, fmt.Errorf("no topic provided for guidelines lookup")
	}

	limit := in.Int("limit", s.limit)
	items := s.corpus.CuratedEvidence(topic, limit)
	return &Result{
		Evidence: items,
		Raw:      items,
		Note:     fmt.Sprintf("retrieved %d curated guidelines for %q", len(items), topic),
	}, nil
}

// Metadata declares the curated source's capabilities.
func (s *GuidelinesSource) Metadata() Metadata {
	return Metadata{
		Identity: Identity{Name: s.Name(), Version: "1.0", Owner: "guidelines"},
		Capabilities: Capabilities{
			TaskTypes: []string{"guidance", "methodology_guidance", "academic_mentoring"},
			Domains:   s.corpus.DomainNames(),
		},
		Operational: Operational{
			CostEstimate:   "free",
			LatencyProfile: "instant (no network)",
		},
	}
}
