package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_Substring(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		name   string
		query  string
		fields []string
		want   bool
	}{
		{"empty query", "", []string{"anything"}, true},
		{"blank query", "   ", []string{"anything"}, true},
		{"case-insensitive", "WALMART", []string{"Walmart Supercenter"}, true},
		{"second field", "springfield", []string{"Aldi", "Springfield"}, true},
		{"no match", "target", []string{"Walmart", "Main St"}, false},
		{"subsequence needs fuzzy", "wlmrt", []string{"Walmart"}, false},
		{"no fields", "x", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.query, tt.fields...))
		})
	}
}

func TestMatcher_Fuzzy(t *testing.T) {
	loose := NewMatcher(WithFuzzy(-1000))
	assert.True(t, loose.Fuzzy())
	assert.True(t, loose.Match("wlmrt", "Walmart Supercenter"))
	assert.False(t, loose.Match("xyz", "Walmart Supercenter"))

	strict := NewMatcher(WithFuzzy(1000))
	assert.False(t, strict.Match("wlmrt", "Walmart Supercenter"))
	// substring matches are never rejected by the score threshold
	assert.True(t, strict.Match("walmart", "Walmart Supercenter"))
}
