package query

import (
	"strings"

	"github.com/kailas-cloud/footage/internal/domain/search/filter"
)

// Parsed is the structured reading of one raw query. Read-only after construction.
type Parsed struct {
	Intent   string
	Keywords []string
	Filters  filter.Set
}

// Fallback treats the raw query as both intent and keywords, with no filters.
func Fallback(raw string) Parsed {
	raw = strings.TrimSpace(raw)
	return Parsed{Intent: raw, Keywords: []string{raw}}
}

// Normalize lower-cases and collapses whitespace, for comparing intent to raw text.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Diverges reports whether the intent differs from the raw text after normalization.
func (p Parsed) Diverges(raw string) bool {
	return Normalize(p.Intent) != Normalize(raw)
}
