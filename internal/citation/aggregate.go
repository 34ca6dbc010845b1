// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation turns raw evidence into the deduplicated, validated,
// paginated citation block attached to every response.
// Implements: prd014-citations (R1-R4).
package citation

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Aggregator keeps a running deduplicated citation set in admission order.
// Two citations collide when their normalized URLs match, or when both lack
// a URL and share (title, source). One aggregator serves one response.
type Aggregator struct {
	mu    sync.Mutex
	byKey map[string]int
	cits  []types.Citation
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byKey: make(map[string]int)}
}

// AddCitations admits items into the set and returns only the ones that
// were new. Each admitted citation is stamped with its origin. When a
// duplicate arrives, the representative with the higher completeness score
// keeps the slot; the original admission position never changes.
func (a *Aggregator) AddCitations(origin string, items ...types.Citation) []types.Citation {
	a.mu.Lock()
	defer a.mu.Unlock()

	var admitted []types.Citation
	for _, c := range items {
		if c.Title == "" && c.URL == "" {
			continue
		}
		stampOrigin(&c, origin)

		key := dedupKey(c)
		if idx, ok := a.byKey[key]; ok {
			if completeness(c) > completeness(a.cits[idx]) {
				c.ID = a.cits[idx].ID
				a.cits[idx] = c
			}
			continue
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("C%d", len(a.cits)+1)
		}
		a.byKey[key] = len(a.cits)
		a.cits = append(a.cits, c)
		admitted = append(admitted, c)
	}
	return admitted
}

// FromEvidence converts evidence items into citations and admits them under
// the evidence source's origin tag.
func (a *Aggregator) FromEvidence(origin string, items []types.EvidenceItem) []types.Citation {
	cits := make([]types.Citation, 0, len(items))
	for _, ev := range items {
		cits = append(cits, types.Citation{
			ID:      ev.EvidenceID,
			Title:   ev.Title,
			URL:     ev.URL,
			Source:  ev.Domain,
			Snippet: ev.Snippet,
		})
	}
	return a.AddCitations(origin, cits...)
}

// All returns the deduplicated citations in admission order.
func (a *Aggregator) All() []types.Citation {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.Citation, len(a.cits))
	copy(out, a.cits)
	return out
}

// Len reports the deduplicated citation count.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cits)
}

// Stats summarizes the aggregated set for diagnostics output.
type Stats struct {
	Total           int            `json:"total" yaml:"total"`
	Sources         []string       `json:"sources" yaml:"sources"`
	Years           map[int]int    `json:"years,omitempty" yaml:"years,omitempty"`
	WithDOI         int            `json:"with_doi" yaml:"with_doi"`
	CompletenessAvg float64        `json:"completeness_avg" yaml:"completeness_avg"`
	ByOrigin        map[string]int `json:"by_origin,omitempty" yaml:"by_origin,omitempty"`
}

// ComputeStats summarizes the current set.
func (a *Aggregator) ComputeStats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Stats{
		Years:    make(map[int]int),
		ByOrigin: make(map[string]int),
		Total:    len(a.cits),
	}
	seen := map[string]bool{}
	var sum int
	for _, c := range a.cits {
		if c.Source != "" && !seen[c.Source] {
			seen[c.Source] = true
			st.Sources = append(st.Sources, c.Source)
		}
		if c.Year != 0 {
			st.Years[c.Year]++
		}
		if c.DOI != "" {
			st.WithDOI++
		}
		if o := c.Extra["aggregated_from"]; o != "" {
			st.ByOrigin[o]++
		}
		sum += completeness(c)
	}
	sort.Strings(st.Sources)
	if st.Total > 0 {
		st.CompletenessAvg = float64(sum) / float64(st.Total)
	}
	return st
}

// NormalizeURL canonicalizes a URL for dedup comparison: lowercased scheme
// and host, www. stripped, fragment dropped, trailing slash trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

func dedupKey(c types.Citation) string {
	if c.URL != "" {
		return "url:" + NormalizeURL(c.URL)
	}
	return "ts:" + strings.ToLower(strings.TrimSpace(c.Title)) + "|" + strings.ToLower(c.Source)
}

// completeness counts populated citation fields; the aggregator keeps
// whichever duplicate scores higher.
func completeness(c types.Citation) int {
	n := 0
	for _, s := range []string{c.Title, c.URL, c.Venue, c.DOI, c.Snippet} {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	if len(c.Authors) > 0 {
		n++
	}
	if c.Year != 0 {
		n++
	}
	return n
}

func stampOrigin(c *types.Citation, origin string) {
	if origin == "" {
		return
	}
	if c.Extra == nil {
		c.Extra = make(map[string]string, 1)
	}
	if _, ok := c.Extra["aggregated_from"]; !ok {
		c.Extra["aggregated_from"] = origin
	}
}
