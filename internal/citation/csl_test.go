// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func TestExportCSLRoundTrip(t *testing.T) {
	cits := []types.Citation{
		{
			ID:      "C1",
			Title:   "A Cited Paper",
			URL:     "https://example.com/paper",
			Authors: []string{"Ada Lovelace", "Turing"},
			Year:    2021,
			DOI:     "10.1234/xyz",
			Snippet: "abstract text",
		},
		{
			ID:    "C2",
			Title: "A Web Page",
			URL:   "https://example.com/page",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSL(cits, &buf))

	var items []CSLItem
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)

	assert.Equal(t, "C1", items[0].ID)
	assert.Equal(t, "article", items[0].Type, "a DOI marks an article")
	assert.Equal(t, "10.1234/xyz", items[0].DOI)
	require.NotNil(t, items[0].Issued)
	assert.Equal(t, [][]int{{2021}}, items[0].Issued.DateParts)
	require.Len(t, items[0].Author, 2)
	assert.Equal(t, CSLName{Given: "Ada", Family: "Lovelace"}, items[0].Author[0])
	assert.Equal(t, CSLName{Literal: "Turing"}, items[0].Author[1], "single-token names use literal")

	assert.Equal(t, "webpage", items[1].Type)
	assert.Nil(t, items[1].Issued)
	assert.Equal(t, "https://example.com/page", items[1].URL)
}

func TestParseAuthorName(t *testing.T) {
	cases := []struct {
		in   string
		want CSLName
	}{
		{"Ada Lovelace", CSLName{Given: "Ada", Family: "Lovelace"}},
		{"Jean van der Berg", CSLName{Given: "Jean van der", Family: "Berg"}},
		{"Plato", CSLName{Literal: "Plato"}},
		{"  ", CSLName{}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseAuthorName(tc.in), "input %q", tc.in)
	}
}
