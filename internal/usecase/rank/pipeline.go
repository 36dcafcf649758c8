package rank

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ebtlocator/internal/domain/category"
	"github.com/kailas-cloud/ebtlocator/internal/domain/ranked"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/request"
	"github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

// Stats counts records through the pipeline stages.
type Stats struct {
	Input    int // records received
	Skipped  int // records missing id or name
	Matched  int // records passing the candidate filter
	InRadius int // records remaining after radius filtering
}

// Add sums two Stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Input:    s.Input + o.Input,
		Skipped:  s.Skipped + o.Skipped,
		Matched:  s.Matched + o.Matched,
		InRadius: s.InRadius + o.InRadius,
	}
}

// Output is the result of a pipeline run.
type Output struct {
	Stores     []ranked.Store
	Resolution Resolution
	Stats      Stats
}

// Pipeline resolves, filters, annotates and sorts store records.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	table   category.Table
	matcher Matcher
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMatcher overrides the default substring matcher.
func WithMatcher(m Matcher) Option {
	return func(p *Pipeline) { p.matcher = m }
}

// NewPipeline creates a Pipeline over the given category table.
func NewPipeline(table category.Table, opts ...Option) *Pipeline {
	p := &Pipeline{table: table, matcher: NewMatcher()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Table returns the category table the pipeline resolves against.
func (p *Pipeline) Table() category.Table { return p.table }

// Resolve resolves the request category against the pipeline table.
func (p *Pipeline) Resolve(req *request.Request) Resolution {
	return Resolve(p.table, req)
}

// Candidates runs every stage except sorting. Each returned store keeps the
// index of its record in records. A request with a zip and no coordinate keeps
// only records in that zip.
func (p *Pipeline) Candidates(records []store.Record, req *request.Request) ([]ranked.Store, Resolution, Stats) {
	res := p.Resolve(req)
	crit := CriteriaFor(req.Query(), res, p.matcher)
	stores, stats := p.stage(records, 0, req, res, crit)
	return stores, res, stats
}

// Run executes Resolve, Filter, Annotate and Sort.
func (p *Pipeline) Run(records []store.Record, req *request.Request) Output {
	stores, res, stats := p.Candidates(records, req)
	return Output{
		Stores:     Sort(stores, req.SortKey()),
		Resolution: res,
		Stats:      stats,
	}
}

// RunPartitioned filters and annotates partitions of records concurrently and
// merges them before sorting. The output equals Run for the same input.
func (p *Pipeline) RunPartitioned(
	ctx context.Context, records []store.Record, req *request.Request, partitions int,
) (Output, error) {
	stores, res, stats, err := p.CandidatesPartitioned(ctx, records, req, partitions)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Stores:     Sort(stores, req.SortKey()),
		Resolution: res,
		Stats:      stats,
	}, nil
}

// CandidatesPartitioned is Candidates over concurrent partitions. Stores come
// back in input order with their global insertion index.
func (p *Pipeline) CandidatesPartitioned(
	ctx context.Context, records []store.Record, req *request.Request, partitions int,
) ([]ranked.Store, Resolution, Stats, error) {
	if partitions <= 1 || len(records) < 2*partitions {
		stores, res, stats := p.Candidates(records, req)
		return stores, res, stats, nil
	}

	res := p.Resolve(req)
	crit := CriteriaFor(req.Query(), res, p.matcher)

	size := (len(records) + partitions - 1) / partitions
	parts := make([][]ranked.Store, partitions)
	stats := make([]Stats, partitions)

	g, gctx := errgroup.WithContext(ctx)
	for i := range partitions {
		start := i * size
		if start >= len(records) {
			break
		}
		end := min(start+size, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			parts[i], stats[i] = p.stage(records[start:end], start, req, res, crit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Resolution{}, Stats{}, err
	}

	var merged []ranked.Store
	var total Stats
	for i := range parts {
		merged = append(merged, parts[i]...)
		total = total.Add(stats[i])
	}
	return merged, res, total, nil
}

func (p *Pipeline) stage(
	records []store.Record, offset int, req *request.Request, res Resolution, crit Criteria,
) ([]ranked.Store, Stats) {
	st := Stats{Input: len(records)}
	zip := zipScope(req)
	matched := make([]ranked.Store, 0, len(records))
	for i, r := range records {
		if zip != "" && store.Zip5(r.Zip()) != zip {
			continue
		}
		if !r.HasIdentity() {
			st.Skipped++
			continue
		}
		if !crit.Keep(r) {
			continue
		}
		matched = append(matched, ranked.New(r, offset+i))
	}
	st.Matched = len(matched)

	out := Annotate(matched, req.Location(), res.Radius)
	st.InRadius = len(out)
	return out, st
}

// zipScope is the 5-digit zip a search without a coordinate is narrowed to.
func zipScope(req *request.Request) string {
	if req.Location() != nil {
		return ""
	}
	return store.Zip5(req.Zip())
}
