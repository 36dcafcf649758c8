package rank

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Matcher decides whether a free-text query matches any of a store's text fields.
// Case-insensitive substring matching is always applied; fuzzy subsequence
// matching can be enabled on top and never rejects a substring match.
type Matcher struct {
	fuzzy    bool
	minScore int
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithFuzzy enables subsequence matching. Matches scoring below minScore are rejected.
func WithFuzzy(minScore int) MatcherOption {
	return func(m *Matcher) {
		m.fuzzy = true
		m.minScore = minScore
	}
}

// NewMatcher creates a Matcher. Without options it performs substring matching only.
func NewMatcher(opts ...MatcherOption) Matcher {
	var m Matcher
	for _, o := range opts {
		o(&m)
	}
	return m
}

// Fuzzy reports whether subsequence matching is enabled.
func (m Matcher) Fuzzy() bool { return m.fuzzy }

// Match reports whether query matches one of fields. An empty query matches everything.
func (m Matcher) Match(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}

	lowered := make([]string, 0, len(fields))
	for _, f := range fields {
		lf := strings.ToLower(f)
		if strings.Contains(lf, q) {
			return true
		}
		if lf != "" {
			lowered = append(lowered, lf)
		}
	}

	if !m.fuzzy || len(lowered) == 0 {
		return false
	}
	for _, match := range fuzzy.Find(q, lowered) {
		if match.Score >= m.minScore {
			return true
		}
	}
	return false
}

// containsAny reports whether s contains one of the lowered patterns (case-insensitive).
func containsAny(s string, lowered []string) bool {
	if len(lowered) == 0 {
		return false
	}
	ls := strings.ToLower(s)
	for _, p := range lowered {
		if strings.Contains(ls, p) {
			return true
		}
	}
	return false
}

// equalsAny reports whether s equals one of the lowered values (case-insensitive).
func equalsAny(s string, lowered []string) bool {
	ls := strings.ToLower(strings.TrimSpace(s))
	for _, v := range lowered {
		if ls == v {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
