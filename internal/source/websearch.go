// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// webSearchAPIBase is the web search endpoint. Declared as a var so tests
// can substitute an httptest server.
var webSearchAPIBase = "https://api.tavily.com/search"

// WebSearchSource queries a generic web search API. It is the default
// candidate for keyword queries and the usual fallback for everything else.
type WebSearchSource struct {
	Client *http.Client
	APIKey string
	cfg    types.SearchConfig
}

// NewWebSearchSource builds the web search adapter.
func NewWebSearchSource(client *http.Client, cfg types.SearchConfig) *WebSearchSource {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &WebSearchSource{Client: client, APIKey: cfg.WebSearchAPIKey, cfg: cfg}
}

// Name returns the source identifier.
func (s *WebSearchSource) Name() string { return "web_search" }

// CanHandle accepts any request with some text; web search is the generic
// capability of last resort.
func (s *WebSearchSource) CanHandle(tc TaskContext) bool {
	return strings.TrimSpace(tc.Text()) != ""
}

type webSearchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type webSearchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Execute posts the query to the search API and converts results into
// evidence items with stable ids.
func (s *WebSearchSource) Execute(ctx context.Context, in Inputs, tc TaskContext) (*Result, error) {
	query := in.String("query")
	if query == "" {
		query = tc.Text()
	}
	if query == "" {
		return nil, fmt.Errorf("empty web search query")
	}

	limit := in.Int("limit", s.cfg.MaxResults)
	if limit <= 0 {
		limit = 10
	}

	body, err := json.Marshal(webSearchRequest{APIKey: s.APIKey, Query: query, MaxResults: limit})
	if err != nil {
		return nil, fmt.Errorf("encoding web search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webSearchAPIBase, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("web search API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search API returned HTTP %d", resp.StatusCode)
	}

	var wr webSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("parsing web search response: %w", err)
	}

	now := time.Now().UTC()
	var items []types.EvidenceItem
	for _, r := range wr.Results {
		if r.URL == "" {
			continue
		}
		items = append(items, types.EvidenceItem{
			EvidenceID:     types.EvidenceID(hostOf(r.URL), query, r.URL),
			Domain:         hostOf(r.URL),
			URL:            r.URL,
			Title:          strings.TrimSpace(r.Title),
			Snippet:        truncate(r.Content, 800),
			QueryUsed:      query,
			RetrievedAt:    now,
			RelevanceScore: r.Score,
		})
	}

	return &Result{
		Evidence: items,
		Raw:      wr.Results,
		Note:     fmt.Sprintf("web search returned %d results for %q", len(items), query),
	}, nil
}

// Metadata declares the web source's capabilities.
func (s *WebSearchSource) Metadata() Metadata {
	return Metadata{
		Identity: Identity{Name: s.Name(), Version: "1.0", Owner: "search"},
		Capabilities: Capabilities{
			TaskTypes: []string{"literature_search", "web_search", "fact_lookup"},
			Domains:   []string{"web"},
		},
		Operational: Operational{
			CostEstimate:   "per-query fee",
			LatencyProfile: "1-3 seconds",
		},
	}
}

// hostOf extracts the hostname from a URL, stripping a www. prefix.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// truncate shortens s to at most max bytes, cutting on a rune boundary so
// multi-byte text is never split mid-sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
