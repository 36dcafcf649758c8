package category

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// DefaultID is the table entry used for unknown category identifiers.
const DefaultID = "default"

// DefaultRadiusMiles applies when a table has no explicit default entry.
const DefaultRadiusMiles = 10.0

// MaxRadiusMiles caps any configured or requested radius.
const MaxRadiusMiles = 250.0

// Rule is the search policy for one category (immutable value object).
type Rule struct {
	id           string
	label        string
	radius       float64
	exclusions   []string
	storeTypes   []string
	namePatterns []string
}

// NewRule validates and creates a Rule. The id is lowercased to match request
// categories. Pattern slices are copied.
func NewRule(id, label string, radius float64, exclusions, storeTypes, namePatterns []string) (Rule, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Rule{}, fmt.Errorf("category id is required")
	}
	if radius <= 0 || radius > MaxRadiusMiles {
		return Rule{}, fmt.Errorf("category %q: radius must be in (0, %g] miles, got %g", id, MaxRadiusMiles, radius)
	}
	for _, p := range exclusions {
		if strings.TrimSpace(p) == "" {
			return Rule{}, fmt.Errorf("category %q: empty exclusion pattern", id)
		}
	}
	return Rule{
		id:           id,
		label:        label,
		radius:       radius,
		exclusions:   slices.Clone(exclusions),
		storeTypes:   slices.Clone(storeTypes),
		namePatterns: slices.Clone(namePatterns),
	}, nil
}

// ID returns the category identifier.
func (r Rule) ID() string { return r.id }

// Label returns the display name.
func (r Rule) Label() string { return r.label }

// Radius returns the maximum search distance in miles.
func (r Rule) Radius() float64 { return r.radius }

// Exclusions returns the name substrings that always remove a store.
func (r Rule) Exclusions() []string { return slices.Clone(r.exclusions) }

// StoreTypes returns the store types the category matches by default.
func (r Rule) StoreTypes() []string { return slices.Clone(r.storeTypes) }

// NamePatterns returns the name substrings the category matches by default.
func (r Rule) NamePatterns() []string { return slices.Clone(r.namePatterns) }

// Table maps category identifiers to rules. Read-only after construction.
type Table struct {
	rules    map[string]Rule
	fallback Rule
}

// NewTable builds a table. A rule with id "default" becomes the fallback;
// without one, the fallback radius is DefaultRadiusMiles.
func NewTable(rules []Rule) (Table, error) {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if r.id == "" {
			return Table{}, fmt.Errorf("category rule without id")
		}
		if _, dup := m[r.id]; dup {
			return Table{}, fmt.Errorf("duplicate category %q", r.id)
		}
		m[r.id] = r
	}

	fallback := Rule{id: DefaultID, label: "All stores", radius: DefaultRadiusMiles}
	if d, ok := m[DefaultID]; ok {
		// The default entry contributes its radius only.
		fallback = Rule{id: DefaultID, label: d.label, radius: d.radius}
	}
	return Table{rules: m, fallback: fallback}, nil
}

// Resolve returns the rule for id. An empty id resolves to the default rule
// (radius only, no exclusions) with ok=true; unknown ids resolve to it with
// ok=false.
func (t Table) Resolve(id string) (Rule, bool) {
	if r, ok := t.rules[id]; ok && id != DefaultID {
		return r, true
	}
	known := id == DefaultID || id == ""
	if t.fallback.id == "" {
		return Rule{id: DefaultID, radius: DefaultRadiusMiles}, known
	}
	return t.fallback, known
}

// Rules returns all rules sorted by id.
func (t Table) Rules() []Rule {
	out := make([]Rule, 0, t.Len())
	for _, r := range t.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Len returns the number of configured categories.
func (t Table) Len() int { return len(t.rules) }
