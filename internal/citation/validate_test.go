// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func fullCitation() types.Citation {
	return types.Citation{
		ID:      "C1",
		Title:   "A Complete Record",
		URL:     "https://example.com/paper",
		Source:  "example.com",
		Authors: []string{"Ada Lovelace"},
		Year:    2022,
		Venue:   "Example Conference",
		DOI:     "10.1234/abc.def",
		Snippet: "supporting excerpt",
	}
}

func TestCompleteCitationScoresFull(t *testing.T) {
	v := ValidateCitation(fullCitation())
	assert.Equal(t, 100, v.Score)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Issues)
}

func TestValidationPenalties(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*types.Citation)
		score  int
		issue  string
	}{
		{"missing title", func(c *types.Citation) { c.Title = "" }, 75, "missing title"},
		{"short title", func(c *types.Citation) { c.Title = "n/a" }, 75, "title too short"},
		{"bad url", func(c *types.Citation) { c.URL = "ftp://example.com/x" }, 75, "missing or invalid url"},
		{"no authors", func(c *types.Citation) { c.Authors = nil }, 85, "missing authors"},
		{"implausible year", func(c *types.Citation) { c.Year = 1492 }, 90, "missing or implausible year"},
		{"no venue", func(c *types.Citation) { c.Venue = "" }, 90, "missing venue"},
		{"no snippet", func(c *types.Citation) { c.Snippet = "" }, 85, "missing snippet"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := fullCitation()
			tc.mutate(&c)
			v := ValidateCitation(c)
			assert.Equal(t, tc.score, v.Score)
			assert.Contains(t, v.Issues, tc.issue)
		})
	}
}

func TestMalformedDOIIsIssueOnly(t *testing.T) {
	c := fullCitation()
	c.DOI = "doi:garbage"
	v := ValidateCitation(c)
	assert.Equal(t, 100, v.Score)
	assert.True(t, v.Valid)
	assert.Contains(t, v.Issues, "malformed doi")
}

func TestValidThreshold(t *testing.T) {
	// Missing authors and snippet: 100 - 15 - 15 = 70, the exact boundary.
	c := fullCitation()
	c.Authors = nil
	c.Snippet = ""
	v := ValidateCitation(c)
	assert.Equal(t, 70, v.Score)
	assert.True(t, v.Valid)

	// One more missing field tips it under.
	c.Venue = ""
	v = ValidateCitation(c)
	assert.Equal(t, 60, v.Score)
	assert.False(t, v.Valid)
}

func TestEmptyCitationScoresZero(t *testing.T) {
	v := ValidateCitation(types.Citation{})
	assert.Equal(t, 0, v.Score)
	assert.False(t, v.Valid)
}

func TestCollectionValidation(t *testing.T) {
	bare := types.Citation{Title: "Bare Minimum", URL: "https://example.com/b"}
	cv := ValidateCitations([]types.Citation{fullCitation(), bare})
	require.Equal(t, 2, cv.TotalCount)
	assert.Equal(t, 1, cv.ValidCount)
	assert.Equal(t, 75.0, cv.Score, "mean of 100 and 50")
}

func TestEmptyCollection(t *testing.T) {
	cv := ValidateCitations(nil)
	assert.Equal(t, 0, cv.TotalCount)
	assert.Equal(t, 0.0, cv.Score)
}
