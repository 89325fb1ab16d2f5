package query

import (
	"strings"
)

const (
	// MinQueryLen is exclusive: a query must be longer than this to survive.
	MinQueryLen = 15
	// MaxQueryLen caps query length; longer queries are cut at a word
	// boundary.
	MaxQueryLen = 250
)

// Normalize cleans raw model output lines into usable search queries.
// Queries that end up too short are dropped.
func Normalize(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, q := range raw {
		n := normalizeOne(q)
		if len(n) > MinQueryLen && len(n) <= MaxQueryLen {
			out = append(out, n)
		}
	}
	return out
}

func normalizeOne(q string) string {
	s := strings.TrimSpace(q)
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = stripEnumeration(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)

	if len(s) > MaxQueryLen {
		cut := s[:MaxQueryLen]
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		s = strings.TrimSpace(cut)
	}
	return s
}

// stripEnumeration removes leading list markers such as "1.", "2)", "-",
// and bullet characters that models prepend to generated lines.
func stripEnumeration(s string) string {
	s = strings.TrimLeft(s, "-•▪ \t")
	if i := strings.IndexAny(s, ".)"); i >= 0 && i < 5 {
		if prefix := s[:i]; prefix != "" && isDigits(prefix) {
			s = s[i+1:]
		}
	}
	return strings.TrimSpace(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
