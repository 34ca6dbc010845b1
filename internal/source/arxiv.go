// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// literatureCues flag queries that read like paper searches.
var literatureCues = []string{"paper", "papers", "literature", "arxiv", "survey", "publication", "preprint", "citation"}

// ArxivSource queries the arXiv Atom API for academic papers.
type ArxivSource struct {
	Client *http.Client
	cfg    types.SearchConfig
}

// NewArxivSource builds the arXiv adapter.
func NewArxivSource(client *http.Client, cfg types.SearchConfig) *ArxivSource {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ArxivSource{Client: client, cfg: cfg}
}

// Name returns the source identifier.
func (s *ArxivSource) Name() string { return "arxiv_search" }

// CanHandle reports whether the request reads like a literature query.
func (s *ArxivSource) CanHandle(tc TaskContext) bool {
	text := strings.ToLower(tc.Text())
	if text == "" {
		return false
	}
	for _, cue := range literatureCues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return tc.TaskType == "literature_search"
}

// ArxivPaper is the raw per-paper payload exposed alongside the evidence.
type ArxivPaper struct {
	ArxivID  string    `json:"arxiv_id" yaml:"arxiv_id"`
	Title    string    `json:"title" yaml:"title"`
	Authors  []string  `json:"authors" yaml:"authors"`
	Abstract string    `json:"abstract" yaml:"abstract"`
	Date     time.Time `json:"date" yaml:"date"`
	URL      string    `json:"url" yaml:"url"`
}

// Execute queries the arXiv API and returns papers as evidence items.
func (s *ArxivSource) Execute(ctx context.Context, in Inputs, tc TaskContext) (*Result, error) {
	query := in.String("query")
	if query == "" {
		query = tc.Text()
	}
	q := buildArxivQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	limit := in.Int("limit", s.cfg.MaxResults)
	if limit <= 0 {
		limit = 10
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, q, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	now := time.Now().UTC()
	total := len(feed.Entries)
	var papers []ArxivPaper
	var items []types.EvidenceItem
	for i, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		p := ArxivPaper{
			ArxivID:  arxivID,
			Title:    strings.TrimSpace(entry.Title),
			Abstract: strings.TrimSpace(entry.Summary),
			URL:      "https://arxiv.org/abs/" + arxivID,
		}
		for _, a := range entry.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			p.Date = t
		}
		papers = append(papers, p)

		// Position-based relevance: arXiv already sorts by relevance.
		score := 1.0
		if total > 1 {
			score = 1.0 - float64(i)/float64(total-1)*0.9
		}
		items = append(items, types.EvidenceItem{
			EvidenceID:     types.EvidenceID("arxiv.org", query, p.URL),
			Domain:         "arxiv.org",
			URL:            p.URL,
			Title:          p.Title,
			Snippet:        truncate(p.Abstract, 800),
			QueryUsed:      query,
			RetrievedAt:    now,
			RelevanceScore: score,
		})
	}

	return &Result{
		Evidence: items,
		Raw:      papers,
		Note:     fmt.Sprintf("arXiv returned %d papers for %q", len(papers), query),
	}, nil
}

// Metadata declares the arXiv source's capabilities.
func (s *ArxivSource) Metadata() Metadata {
	return Metadata{
		Identity: Identity{Name: s.Name(), Version: "1.0", Owner: "search"},
		Capabilities: Capabilities{
			TaskTypes: []string{"literature_search", "paper_lookup"},
			Domains:   []string{"arxiv.org"},
		},
		Operational: Operational{
			CostEstimate:   "free",
			LatencyProfile: "2-5 seconds",
		},
	}
}

// buildArxivQuery constructs the search_query parameter. Quoted phrases are
// kept together; remaining terms are joined with AND.
func buildArxivQuery(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var parts []string
	rest := raw
	for {
		start := strings.IndexByte(rest, '"')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start+1:], '"')
		if end < 0 {
			break
		}
		phrase := rest[start+1 : start+1+end]
		if fields := strings.Fields(phrase); len(fields) > 0 {
			parts = append(parts, `all:%22`+strings.Join(fields, "+")+`%22`)
		}
		rest = rest[:start] + " " + rest[start+1+end+1:]
	}
	if terms := strings.Fields(rest); len(terms) > 0 {
		parts = append(parts, "all:"+strings.Join(terms, "+"))
	}
	return strings.Join(parts, "+AND+")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
