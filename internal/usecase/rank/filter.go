package rank

import (
	"slices"

	"github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

// Criteria is a compiled candidate filter.
type Criteria struct {
	query        string
	storeTypes   []string
	namePatterns []string
	exclusions   []string
	matcher      Matcher
}

// NewCriteria compiles filter inputs. Pattern lists are matched case-insensitively.
func NewCriteria(query string, storeTypes, namePatterns, exclusions []string, m Matcher) Criteria {
	return Criteria{
		query:        query,
		storeTypes:   lowerAll(storeTypes),
		namePatterns: lowerAll(namePatterns),
		exclusions:   lowerAll(exclusions),
		matcher:      m,
	}
}

// CriteriaFor compiles the filter for a resolved search.
func CriteriaFor(query string, res Resolution, m Matcher) Criteria {
	return NewCriteria(query, res.StoreTypes, res.NamePatterns, res.Exclusions, m)
}

// IsEmpty reports whether the criteria accept every record.
func (c Criteria) IsEmpty() bool {
	return c.query == "" && len(c.storeTypes) == 0 && len(c.namePatterns) == 0 && len(c.exclusions) == 0
}

// Keep reports whether a record passes the filter.
func (c Criteria) Keep(r store.Record) bool {
	// Exclusion runs first and overrides every positive match.
	if containsAny(r.Name(), c.exclusions) {
		return false
	}

	if len(c.storeTypes) > 0 {
		typeOK := equalsAny(r.StoreType(), c.storeTypes)
		if !typeOK && len(c.namePatterns) > 0 {
			typeOK = containsAny(r.Name(), c.namePatterns)
		}
		if !typeOK {
			return false
		}
	}

	if c.query != "" {
		return c.matcher.Match(c.query, r.Name(), r.Address(), r.City(), r.StoreType())
	}
	return true
}

// Filter returns the records that pass c, preserving order. Input is not modified.
func Filter(records []store.Record, c Criteria) []store.Record {
	if c.IsEmpty() {
		return slices.Clone(records)
	}
	out := make([]store.Record, 0, len(records))
	for _, r := range records {
		if c.Keep(r) {
			out = append(out, r)
		}
	}
	return out
}
