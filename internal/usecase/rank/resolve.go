package rank

import (
	"github.com/kailas-cloud/ebtlocator/internal/domain/category"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/request"
)

// Resolution is the effective radius and candidate criteria for one search.
type Resolution struct {
	Category     string
	Known        bool // false when the category fell back to the default rule
	Radius       float64
	Exclusions   []string
	StoreTypes   []string
	NamePatterns []string
}

// Resolve maps the request category to a radius and exclusion set.
// Unknown categories degrade to the table default; a radius override wins over
// the category radius; request store types and name patterns replace the
// category defaults when supplied.
func Resolve(table category.Table, req *request.Request) Resolution {
	rule, known := table.Resolve(req.Category())

	res := Resolution{
		Category:     rule.ID(),
		Known:        known,
		Radius:       rule.Radius(),
		Exclusions:   rule.Exclusions(),
		StoreTypes:   rule.StoreTypes(),
		NamePatterns: rule.NamePatterns(),
	}
	if r := req.RadiusOverride(); r != nil {
		res.Radius = *r
	}
	if len(req.StoreTypes()) > 0 || len(req.NamePatterns()) > 0 {
		res.StoreTypes = req.StoreTypes()
		res.NamePatterns = req.NamePatterns()
	}
	return res
}
