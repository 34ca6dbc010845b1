// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine router.
// Implements: prd010-fallback (SourceHealth configuration);
//
//	prd013-collection (EvidenceItem, R2.1-R2.4);
//	prd014-citations (Citation, CitationBlock);
//	docs/ARCHITECTURE § Data Model.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// EvidenceItem is one retrieved snippet with provenance. Items are immutable
// once created by a source adapter; collections own them from there on.
type EvidenceItem struct {
	// EvidenceID is a content-derived fingerprint, stable across runs for
	// identical (domain, query, url) inputs. See EvidenceID.
	EvidenceID string `json:"evidence_id" yaml:"evidence_id"`

	// Domain is the source domain the item came from (e.g. "arxiv.org").
	Domain string `json:"domain" yaml:"domain"`

	// URL is the canonical link for the item.
	URL string `json:"url" yaml:"url"`

	// SearchURL optionally links to the search that produced the item.
	SearchURL string `json:"search_url,omitempty" yaml:"search_url,omitempty"`

	// Title is a short human-readable label.
	Title string `json:"title" yaml:"title"`

	// Snippet is the retrieved text excerpt.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Thesis is the one-line claim a curated entry stands for, when known.
	Thesis string `json:"thesis,omitempty" yaml:"thesis,omitempty"`

	// QueryUsed records the query variant that produced the item.
	QueryUsed string `json:"query_used" yaml:"query_used"`

	// RetrievedAt is the collection timestamp.
	RetrievedAt time.Time `json:"retrieved_at" yaml:"retrieved_at"`

	// RelevanceScore is an optional heuristic relevance value.
	RelevanceScore float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`
}

// EvidenceID returns the deterministic fingerprint for an evidence item.
// The hash covers the normalized (domain, query, url) triple so repeated
// collection runs assign the same id to the same logical item.
func EvidenceID(domain, query, url string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(domain)) + "|" +
		strings.TrimSpace(query) + "|" + strings.TrimSpace(url)))
	return "ev_" + hex.EncodeToString(h[:])[:10]
}

// CuratedEvidenceID returns the fingerprint for a curated (no-network) item,
// which is keyed by (domain, url) only since no query produced it.
func CuratedEvidenceID(domain, url string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(domain)) + "|" +
		strings.TrimSpace(url)))
	return "cv_" + hex.EncodeToString(h[:])[:10]
}
