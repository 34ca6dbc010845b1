// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func webSearchServer(t *testing.T, handler http.HandlerFunc) *WebSearchSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	orig := webSearchAPIBase
	webSearchAPIBase = srv.URL
	t.Cleanup(func() { webSearchAPIBase = orig })

	cfg := types.DefaultRouterConfig().Search
	cfg.WebSearchAPIKey = "test-key"
	return NewWebSearchSource(srv.Client(), cfg)
}

func TestWebSearchExecute(t *testing.T) {
	var gotBody webSearchRequest
	s := webSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "First Hit", "url": "https://www.example.com/one", "content": "first snippet", "score": 0.9},
				{"title": "Second Hit", "url": "https://other.org/two", "content": "second snippet", "score": 0.7},
				{"title": "No URL", "url": "", "content": "dropped"},
			},
		})
	})

	res, err := s.Execute(context.Background(), Inputs{"query": "research taste"}, TaskContext{})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotBody.APIKey)
	assert.Equal(t, "research taste", gotBody.Query)

	require.Len(t, res.Evidence, 2, "results without a URL are dropped")
	first := res.Evidence[0]
	assert.Equal(t, "example.com", first.Domain, "www. prefix is stripped")
	assert.Equal(t, "First Hit", first.Title)
	assert.Equal(t, 0.9, first.RelevanceScore)
	assert.True(t, strings.HasPrefix(first.EvidenceID, "ev_"))
	assert.Equal(t, "other.org", res.Evidence[1].Domain)
}

func TestWebSearchQueryFromTaskContext(t *testing.T) {
	var gotBody webSearchRequest
	s := webSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	})

	_, err := s.Execute(context.Background(), Inputs{}, TaskContext{Goal: "fallback goal"})
	require.NoError(t, err)
	assert.Equal(t, "fallback goal", gotBody.Query)
}

func TestWebSearchEmptyQuery(t *testing.T) {
	s := webSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty query")
	})

	_, err := s.Execute(context.Background(), Inputs{}, TaskContext{})
	require.Error(t, err)
}

func TestWebSearchHTTPError(t *testing.T) {
	s := webSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := s.Execute(context.Background(), Inputs{"query": "q"}, TaskContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestWebSearchCanHandle(t *testing.T) {
	s := NewWebSearchSource(nil, types.SearchConfig{})
	assert.True(t, s.CanHandle(TaskContext{Goal: "anything at all"}))
	assert.False(t, s.CanHandle(TaskContext{}))
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short ascii untouched", "plain text", 20, "plain text"},
		{"long ascii cut", "abcdefghij", 8, "abcde..."},
		{"multibyte at the cut", "ααααα", 8, "αα..."},
		{"exact fit", "ααα", 6, "ααα"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
