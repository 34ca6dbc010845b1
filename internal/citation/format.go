// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// StyleAcademic is the only rendering style currently produced.
const StyleAcademic = "academic"

// FormatInline renders one citation on a single line:
//
//	Author One, Author Two et al. (2023). Title. Venue. URL
//
// Missing parts are skipped rather than placeholdered.
func FormatInline(c types.Citation) string {
	var parts []string

	if by := authorLine(c.Authors); by != "" {
		if c.Year != 0 {
			parts = append(parts, fmt.Sprintf("%s (%d).", by, c.Year))
		} else {
			parts = append(parts, by+".")
		}
	} else if c.Year != 0 {
		parts = append(parts, fmt.Sprintf("(%d).", c.Year))
	}

	if t := strings.TrimSpace(c.Title); t != "" {
		parts = append(parts, t+".")
	}
	if v := strings.TrimSpace(c.Venue); v != "" {
		parts = append(parts, v+".")
	}
	if c.URL != "" {
		parts = append(parts, c.URL)
	}
	return strings.Join(parts, " ")
}

// FormatList renders citations as a numbered reference list.
func FormatList(cits []types.Citation) string {
	var b strings.Builder
	for i, c := range cits {
		fmt.Fprintf(&b, "%d. %s\n", i+1, FormatInline(c))
	}
	return b.String()
}

// OutputBlock assembles the citation payload for one response page.
func OutputBlock(page []types.Citation, nextToken string) *types.CitationBlock {
	return &types.CitationBlock{
		Count:     len(page),
		Style:     StyleAcademic,
		Citations: page,
		NextToken: nextToken,
		HasMore:   nextToken != "",
	}
}

// authorLine joins the first two authors, appending "et al." when more
// follow.
func authorLine(authors []string) string {
	cleaned := make([]string, 0, len(authors))
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			cleaned = append(cleaned, a)
		}
	}
	switch {
	case len(cleaned) == 0:
		return ""
	case len(cleaned) <= 2:
		return strings.Join(cleaned, ", ")
	default:
		return strings.Join(cleaned[:2], ", ") + " et al."
	}
}
