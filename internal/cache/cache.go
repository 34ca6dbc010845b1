// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache memoizes merged task responses in a SQLite database. Keys
// are deterministic hashes over every request parameter that affects
// output, so identical requests inside the TTL window replay the stored
// response instead of touching any source.
// Implements: prd015-cache (R1-R5).
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const dbFile = "responses.db"

// Store manages the response cache SQLite database.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	log *zap.Logger

	// now is test-overridable so TTL expiry can be simulated.
	now func() time.Time

	mu     sync.Mutex
	hits   int
	misses int
}

// Open opens or creates the cache database at cfg.Dir/responses.db and
// ensures the schema exists.
func Open(cfg types.CacheConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = types.DefaultRouterConfig().Cache.TTL
	}

	s := &Store{db: db, ttl: ttl, log: log, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS responses (
			key TEXT PRIMARY KEY,
			query TEXT,
			response TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_created_at ON responses(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Key derives the cache key for one request: a sha256 over the task, the
// query, and every output-affecting parameter in sorted order. Identical
// parameter sets always hash identically.
func Key(task, query string, params map[string]any) string {
	var b strings.Builder
	b.WriteString(task)
	b.WriteByte('\n')
	b.WriteString(query)
	b.WriteByte('\n')

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v\n", k, params[k])
	}

	return fmt.Sprintf("%x", sha256.Sum256([]byte(b.String())))
}

// Get looks a key up. Expired entries are deleted on the way out and count
// as misses. The boolean reports whether a live entry was found.
func (s *Store) Get(ctx context.Context, key string) (*types.TaskResponse, bool, error) {
	var payload, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT response, created_at FROM responses WHERE key = ?`, key,
	).Scan(&payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.count(false)
		return nil, false, nil
	}
	if err != nil {
		s.count(false)
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil || s.now().Sub(created) > s.ttl {
		// Lazy purge: the entry is stale, drop it and miss.
		if _, derr := s.db.ExecContext(ctx, `DELETE FROM responses WHERE key = ?`, key); derr != nil {
			s.log.Warn("purging expired cache entry failed", zap.Error(derr))
		}
		s.count(false)
		return nil, false, nil
	}

	var resp types.TaskResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		s.count(false)
		return nil, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	s.count(true)
	return &resp, true, nil
}

// Set stores a response under key, replacing any previous entry. Last
// writer wins.
func (s *Store) Set(ctx context.Context, key, query string, resp *types.TaskResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response for cache: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO responses (key, query, response, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			query=excluded.query, response=excluded.response, created_at=excluded.created_at`,
		key, query, string(payload), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were dropped.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Sweep deletes expired entries eagerly and returns how many were dropped.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.ttl).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Stats reports the cache's counters and current size.
type Stats struct {
	Entries int           `json:"entries" yaml:"entries"`
	Hits    int           `json:"hits" yaml:"hits"`
	Misses  int           `json:"misses" yaml:"misses"`
	TTL     time.Duration `json:"ttl" yaml:"ttl"`
}

// Stats returns current counters; hit and miss counts are per-process.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var entries int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM responses`).Scan(&entries); err != nil {
		return Stats{}, fmt.Errorf("counting cache entries: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Entries: entries, Hits: s.hits, Misses: s.misses, TTL: s.ttl}, nil
}

func (s *Store) count(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.hits++
	} else {
		s.misses++
	}
}

// SetClock overrides the store's clock for TTL tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }
