// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collector gathers evidence for a topic under a hard time budget.
// The curated corpus is consulted first because it costs nothing and cannot
// fail; networked search then tops the collection up, one curated domain at
// a time, until a budget or cap is hit. Network failures are logged and
// swallowed: collection degrades, it never errors.
// Implements: prd012-collection (R1-R6).
package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/evidence-engine/internal/source"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Collection is the outcome of one evidence run. It is always well-formed,
// even when every networked lookup failed.
type Collection struct {
	Topic          string               `json:"topic" yaml:"topic"`
	Mode           string               `json:"mode" yaml:"mode"`
	Evidence       []types.EvidenceItem `json:"evidence" yaml:"evidence"`
	SourcesCovered []string             `json:"sources_covered" yaml:"sources_covered"`
	Truncated      bool                 `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	Elapsed        time.Duration        `json:"elapsed" yaml:"elapsed"`
}

// Collector runs the curated and networked evidence passes. The searcher is
// optional; without one the collector still returns curated evidence.
type Collector struct {
	cfg    types.CollectorConfig
	corpus *source.Corpus
	search source.Source
	log    *zap.Logger

	now func() time.Time
}

// New builds a Collector. Zero config fields get their defaults; a nil
// logger disables logging.
func New(cfg types.CollectorConfig, corpus *source.Corpus, search source.Source, log *zap.Logger) *Collector {
	def := types.DefaultRouterConfig().Collector
	if cfg.PerSourceBudget <= 0 {
		cfg.PerSourceBudget = def.PerSourceBudget
	}
	if cfg.MaxPerSource <= 0 {
		cfg.MaxPerSource = def.MaxPerSource
	}
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = def.ResultCap
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = def.Parallelism
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{cfg: cfg, corpus: corpus, search: search, log: log, now: time.Now}
}

// Collect gathers evidence for topic. Mode "thorough" widens the query set
// per domain; any other mode keeps one query per domain.
func (c *Collector) Collect(ctx context.Context, topic, mode string) *Collection {
	started := c.now()
	col := &Collection{
		Topic:          topic,
		Mode:           mode,
		Evidence:       []types.EvidenceItem{},
		SourcesCovered: []string{},
	}
	defer func() { col.Elapsed = c.now().Sub(started) }()

	topic = strings.TrimSpace(topic)
	if topic == "" || c.cfg.GlobalBudget <= 0 {
		return col
	}
	col.Topic = topic

	col.Evidence = append(col.Evidence, c.corpus.CuratedEvidence(topic, c.cfg.ResultCap)...)
	if len(col.Evidence) >= c.cfg.ResultCap {
		col.Evidence = col.Evidence[:c.cfg.ResultCap]
		col.Truncated = true
		return col
	}

	if c.search == nil {
		return col
	}
	c.networkedPass(ctx, topic, mode, col)
	return col
}

// networkedPass tops the collection up with search results, one goroutine
// per curated domain up to the configured parallelism. Each domain gets a
// soft budget; the whole pass shares the global one.
func (c *Collector) networkedPass(ctx context.Context, topic, mode string, col *Collection) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.GlobalBudget)
	defer cancel()

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Parallelism)

	for _, domain := range c.corpus.DomainNames() {
		domain := domain
		g.Go(func() error {
			items := c.collectDomain(ctx, topic, domain, mode)
			if len(items) == 0 {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			room := c.cfg.ResultCap - len(col.Evidence)
			if room <= 0 {
				col.Truncated = true
				return nil
			}
			if len(items) > room {
				items = items[:room]
				col.Truncated = true
			}
			col.Evidence = append(col.Evidence, items...)
			col.SourcesCovered = append(col.SourcesCovered, domain)
			return nil
		})
	}
	// Workers never return errors; Wait only fences the goroutines.
	_ = g.Wait()
	sort.Strings(col.SourcesCovered)
}

// collectDomain runs the query variants for one domain under its soft
// budget, rebinding results onto the domain's curated identity so citations
// stay stable.
func (c *Collector) collectDomain(ctx context.Context, topic, domain, mode string) []types.EvidenceItem {
	dctx, cancel := context.WithTimeout(ctx, c.cfg.PerSourceBudget)
	defer cancel()

	var items []types.EvidenceItem
	for _, q := range source.BuildQueries(topic, domain, mode) {
		if dctx.Err() != nil {
			break
		}
		res, err := c.search.Execute(dctx, source.Inputs{"query": q, "limit": c.cfg.MaxPerSource}, source.TaskContext{Goal: topic})
		if err != nil {
			c.log.Debug("domain search failed",
				zap.String("domain", domain),
				zap.String("query", q),
				zap.Error(err))
			continue
		}
		for _, item := range res.Evidence {
			items = append(items, c.rebind(item, topic, domain, q))
			if len(items) >= c.cfg.MaxPerSource {
				return items
			}
		}
	}
	return items
}

// rebind anchors a raw search hit to the curated domain: the evidence keeps
// the snippet and title the search produced, but cites the best matching
// curated URL so readers land on a stable page.
func (c *Collector) rebind(item types.EvidenceItem, topic, domain, query string) types.EvidenceItem {
	url := c.corpus.BestURL(domain, topic+" "+query)
	if url == "" {
		url = item.URL
	}
	if url == "" {
		url = "https://" + domain
	}
	item.Domain = domain
	item.URL = url
	item.SearchURL = fmt.Sprintf("https://duckduckgo.com/?q=%s", strings.ReplaceAll(query, " ", "+"))
	item.QueryUsed = query
	item.EvidenceID = types.EvidenceID(domain, query, url)
	if item.Title == "" {
		item.Title = fmt.Sprintf("%s — result", domain)
	}
	if item.RetrievedAt.IsZero() {
		item.RetrievedAt = c.now().UTC()
	}
	return item
}
