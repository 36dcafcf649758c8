package locator

import domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"

// Rank runs the ranking pipeline over caller-supplied stores without any
// storage. Stores missing an id or name are skipped. A zip without a
// coordinate keeps only stores in that zip. Only WithCategories and
// WithFuzzy apply.
func Rank(stores []Store, q Query, opts ...Option) ([]RankedStore, error) {
	cfg := newConfig(opts)
	pipeline, err := newPipeline(cfg)
	if err != nil {
		return nil, err
	}

	req, err := queryToRequest(q)
	if err != nil {
		return nil, err
	}

	records := make([]domstore.Record, len(stores))
	for i, s := range stores {
		records[i] = storeToRecord(s)
	}

	out := pipeline.Run(records, &req)
	n := min(len(out.Stores), req.Limit())
	ranked := make([]RankedStore, n)
	for i := range n {
		ranked[i] = rankedToPublic(out.Stores[i])
	}
	return ranked, nil
}

// Categories returns the effective category table.
func Categories(opts ...Option) ([]Category, error) {
	t, err := categoryTable(newConfig(opts).categories)
	if err != nil {
		return nil, err
	}
	return rulesToPublic(t), nil
}
