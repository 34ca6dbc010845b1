// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

//go:embed curated.yaml
var curatedYAML []byte

// CorpusURL is one curated link with its home domain and the one-line claim
// it stands for.
type CorpusURL struct {
	URL    string `yaml:"url"`
	Domain string `yaml:"domain"`
	Thesis string `yaml:"thesis,omitempty"`
}

// Corpus is the curated guidance corpus: a domain→description map plus a
// flat URL list. It backs both the zero-network curated evidence pass and
// the domain-qualified query variants used by networked collection.
type Corpus struct {
	Domains map[string]string `yaml:"domains"`
	URLs    []CorpusURL       `yaml:"urls"`
}

// DefaultCorpus parses the embedded curated corpus.
func DefaultCorpus() (*Corpus, error) {
	return parseCorpus(curatedYAML)
}

// LoadCorpus reads a corpus from a YAML file, for operator-supplied corpora.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	return parseCorpus(data)
}

func parseCorpus(data []byte) (*Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}
	if len(c.Domains) == 0 {
		return nil, fmt.Errorf("corpus declares no domains")
	}
	return &c, nil
}

// DomainNames returns the corpus domains sorted for deterministic iteration.
func (c *Corpus) DomainNames() []string {
	names := make([]string, 0, len(c.Domains))
	for d := range c.Domains {
		names = append(names, d)
	}
	sort.Strings(names)
	return names
}

// URLsByDomain groups the curated URLs by their home domain.
func (c *Corpus) URLsByDomain() map[string][]CorpusURL {
	out := make(map[string][]CorpusURL)
	for _, u := range c.URLs {
		out[u.Domain] = append(out[u.Domain], u)
	}
	return out
}

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// tokens lowercases s and splits it into alphanumeric tokens.
func tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range tokenSplit.Split(strings.ToLower(s), -1) {
		if t != "" {
			out[t] = true
		}
	}
	return out
}

// overlap counts tokens present in both sets.
func overlap(a, b map[string]bool) int {
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}

// CuratedEvidence ranks the curated URLs by token overlap between the topic
// and each URL's path and domain description, deeper paths winning ties, and
// returns up to limit evidence items. No network is involved, so this pass can
// never fail; it is what keeps collection useful at zero connectivity.
func (c *Corpus) CuratedEvidence(topic string, limit int) []types.EvidenceItem {
	topicTokens := tokens(topic)
	now := time.Now().UTC()

	type scored struct {
		score int
		item  types.EvidenceItem
	}
	var ranked []scored
	for _, u := range c.URLs {
		path := strings.TrimPrefix(strings.TrimPrefix(u.URL, "https://"), "http://")
		match := tokens(path)
		for t := range tokens(c.Domains[u.Domain]) {
			match[t] = true
		}
		// Deeper paths are more specific; break ties toward them.
		score := overlap(topicTokens, match)*1000 + len(path)

		snippet := u.Thesis
		if snippet == "" {
			snippet = fmt.Sprintf("Curated source from %s: %s", u.Domain, c.Domains[u.Domain])
		}
		ranked = append(ranked, scored{score, types.EvidenceItem{
			EvidenceID:     types.CuratedEvidenceID(u.Domain, u.URL),
			Domain:         u.Domain,
			URL:            u.URL,
			Title:          titleFromURL(u.URL),
			Snippet:        snippet,
			Thesis:         u.Thesis,
			QueryUsed:      topic,
			RetrievedAt:    now,
			RelevanceScore: float64(score),
		}})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	items := make([]types.EvidenceItem, 0, len(ranked))
	for _, r := range ranked {
		items = append(items, r.item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items
}

// BestURL picks the curated URL under domain that best matches text, so
// networked evidence can still cite a stable curated link. Longer URLs win
// ties as the more specific reference.
func (c *Corpus) BestURL(domain, text string) string {
	urls := c.URLsByDomain()[strings.ToLower(domain)]
	if len(urls) == 0 {
		return ""
	}
	textTokens := tokens(text)

	best := urls[0].URL
	bestScore := -1
	for _, u := range urls {
		path := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(u.URL), "https://"), "http://")
		score := overlap(textTokens, tokens(path))
		if score > bestScore || (score == bestScore && len(u.URL) > len(best)) {
			bestScore = score
			best = u.URL
		}
	}
	return best
}

// BuildQueries returns the domain-qualified query variants for one topic.
// Thorough mode adds a broader second variant; fast mode keeps one query per
// domain to respect tight budgets.
func BuildQueries(topic, domain, mode string) []string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}
	queries := []string{fmt.Sprintf("site:%s %s %s", domain, topic, domainAngle(topic))}
	if mode == "thorough" {
		queries = append(queries, fmt.Sprintf("site:%s %s", domain, topic))
	}
	return queries
}

// domainAngle returns the query suffix matching the topic's keyword class,
// mirroring how curated sources specialize: project selection, taste, or
// general methodology.
func domainAngle(topic string) string {
	lower := strings.ToLower(topic)
	switch {
	case containsAny(lower, "problem", "choose", "select", "pick"):
		return "research project"
	case containsAny(lower, "taste", "judgment", "quality", "good"):
		return "research taste"
	default:
		return "research methodology"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// titleFromURL derives a readable title stub from the last URL path
// component (or an arXiv id for arxiv.org abstracts).
func titleFromURL(u string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(u, "https://"), "http://")
	parts := make([]string, 0, 8)
	for _, p := range strings.Split(trimmed, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return u
	}
	last := parts[len(parts)-1]
	if i := strings.IndexByte(last, '?'); i >= 0 {
		last = last[:i]
	}
	if strings.Contains(u, "arxiv.org") && strings.Contains(u, "/abs/") {
		return "arXiv " + last
	}
	last = strings.NewReplacer("-", " ", "_", " ").Replace(last)
	return titleCase(last)
}

// titleCase capitalizes the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
