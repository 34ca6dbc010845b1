// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// DefaultPageSize bounds a citation page when the caller does not choose.
const DefaultPageSize = 10

// Paginate slices the stable citation order into one page. The returned
// token, when non-empty, fetches the next page; pages never overlap and
// together cover the whole set. A garbled token restarts at the first page
// rather than failing the request.
func Paginate(cits []types.Citation, pageSize int, token string) ([]types.Citation, string) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	offset := decodeToken(token)
	if offset >= len(cits) {
		return []types.Citation{}, ""
	}

	end := offset + pageSize
	if end >= len(cits) {
		return cits[offset:], ""
	}
	return cits[offset:end], encodeToken(end)
}

func encodeToken(offset int) string {
	return base64.URLEncoding.EncodeToString([]byte(fmt.Sprintf("offset:%d", offset)))
}

// decodeToken is deliberately tolerant: any malformed token reads as
// offset 0.
func decodeToken(token string) int {
	if token == "" {
		return 0
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return 0
	}
	s, ok := strings.CutPrefix(string(raw), "offset:")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
