// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// validThreshold is the minimum completeness score for a citation to count
// as valid.
const validThreshold = 70

// Penalty weights per missing field. They sum to 100 so an empty citation
// scores exactly zero.
const (
	penaltyTitle   = 25
	penaltyURL     = 25
	penaltyAuthors = 15
	penaltyYear    = 10
	penaltyVenue   = 10
	penaltySnippet = 15
)

// minTitleLen guards against placeholder titles like "n/a".
const minTitleLen = 5

var doiPattern = regexp.MustCompile(`^10\.\d{4,}/\S+$`)

// Validation is the per-citation completeness verdict.
type Validation struct {
	ID     string   `json:"id" yaml:"id"`
	Score  int      `json:"score" yaml:"score"`
	Valid  bool     `json:"valid" yaml:"valid"`
	Issues []string `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// CollectionValidation aggregates per-citation verdicts.
type CollectionValidation struct {
	TotalCount int          `json:"total_count" yaml:"total_count"`
	ValidCount int          `json:"valid_count" yaml:"valid_count"`
	Score      float64      `json:"score" yaml:"score"`
	Results    []Validation `json:"results" yaml:"results"`
}

// ValidateCitation scores one citation from 0 to 100 by deducting a fixed
// penalty per missing or malformed field. A malformed DOI is reported as an
// issue but never costs points, since most sources have no DOI at all.
func ValidateCitation(c types.Citation) Validation {
	v := Validation{ID: c.ID, Score: 100}

	title := strings.TrimSpace(c.Title)
	switch {
	case title == "":
		v.Score -= penaltyTitle
		v.Issues = append(v.Issues, "missing title")
	case len(title) < minTitleLen:
		v.Score -= penaltyTitle
		v.Issues = append(v.Issues, "title too short")
	}

	if !urlOK(c.URL) {
		v.Score -= penaltyURL
		v.Issues = append(v.Issues, "missing or invalid url")
	}
	if len(c.Authors) == 0 {
		v.Score -= penaltyAuthors
		v.Issues = append(v.Issues, "missing authors")
	}
	if !yearOK(c.Year) {
		v.Score -= penaltyYear
		v.Issues = append(v.Issues, "missing or implausible year")
	}
	if strings.TrimSpace(c.Venue) == "" {
		v.Score -= penaltyVenue
		v.Issues = append(v.Issues, "missing venue")
	}
	if strings.TrimSpace(c.Snippet) == "" {
		v.Score -= penaltySnippet
		v.Issues = append(v.Issues, "missing snippet")
	}
	if c.DOI != "" && !doiPattern.MatchString(c.DOI) {
		v.Issues = append(v.Issues, "malformed doi")
	}

	v.Valid = v.Score >= validThreshold
	return v
}

// ValidateCitations scores a collection; Score is the mean per-item score
// (0 for an empty collection).
func ValidateCitations(cits []types.Citation) CollectionValidation {
	cv := CollectionValidation{TotalCount: len(cits)}
	var sum int
	for _, c := range cits {
		v := ValidateCitation(c)
		cv.Results = append(cv.Results, v)
		sum += v.Score
		if v.Valid {
			cv.ValidCount++
		}
	}
	if cv.TotalCount > 0 {
		cv.Score = float64(sum) / float64(cv.TotalCount)
	}
	return cv
}

func urlOK(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func yearOK(year int) bool {
	return year >= 1900 && year <= time.Now().Year()+1
}
