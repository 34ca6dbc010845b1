// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Citation is the normalized, user-facing representation of one evidence item
// or paper. Two citations are duplicates when their normalized URLs match, or
// when both lack a URL and share (title, source).
// Implements: prd014-citations R1.1-R1.3.
type Citation struct {
	// ID identifies the citation within one response (e.g. "P1", "G3").
	ID string `json:"id" yaml:"id"`

	// Title is the cited work's title.
	Title string `json:"title" yaml:"title"`

	// URL is the canonical link.
	URL string `json:"url" yaml:"url"`

	// Source names the evidence source or domain that produced the citation.
	Source string `json:"source" yaml:"source"`

	// Authors lists author names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal, conference, or site name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// DOI is the digital object identifier when known.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Snippet is a short supporting excerpt.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// Extra carries provenance tags such as "aggregated_from".
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// CitationBlock is the structured citation payload attached to a response.
// NextToken, when set, continues pagination over the same stable order.
// ValidCount and QualityScore summarize validation over the whole aggregated
// set, not just the returned page.
type CitationBlock struct {
	Count        int        `json:"count" yaml:"count"`
	Total        int        `json:"total" yaml:"total"`
	Style        string     `json:"style" yaml:"style"`
	Citations    []Citation `json:"citations" yaml:"citations"`
	NextToken    string     `json:"next_token,omitempty" yaml:"next_token,omitempty"`
	HasMore      bool       `json:"has_more" yaml:"has_more"`
	ValidCount   int        `json:"valid_count" yaml:"valid_count"`
	QualityScore float64    `json:"quality_score" yaml:"quality_score"`
}
