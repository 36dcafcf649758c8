package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ebtlocator/pkg/locator"
)

type rankFlags struct {
	file     string
	query    string
	category string
	types    []string
	patterns []string
	lat      float64
	lng      float64
	zip      string
	radius   float64
	sort     string
	limit    int
	fuzzy    int
}

func newRankCmd(g *globalFlags) *cobra.Command {
	f := &rankFlags{}
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank stores from a CSV file without a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.run(cmd, g)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.file, "file", "f", "", "retailer CSV file")
	fl.StringVarP(&f.query, "q", "q", "", "free-text query")
	fl.StringVarP(&f.category, "category", "c", "", "category id (unknown ids use the default rule)")
	fl.StringSliceVar(&f.types, "type", nil, "store type filter (repeatable)")
	fl.StringSliceVar(&f.patterns, "pattern", nil, "name pattern filter (repeatable)")
	fl.Float64Var(&f.lat, "lat", 0, "user latitude")
	fl.Float64Var(&f.lng, "lng", 0, "user longitude")
	fl.StringVar(&f.zip, "zip", "", "user zip code")
	fl.Float64Var(&f.radius, "radius", 0, "radius override in miles")
	fl.StringVarP(&f.sort, "sort", "s", string(locator.SortDistance), "distance, name, rating or popularity")
	fl.IntVarP(&f.limit, "limit", "n", 20, "maximum results")
	fl.IntVar(&f.fuzzy, "fuzzy", 0, "enable fuzzy matching with this minimum score")
	_ = cmd.MarkFlagRequired("file")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
	return cmd
}

func (f *rankFlags) run(cmd *cobra.Command, g *globalFlags) error {
	stores, _, err := readStoresFile(f.file)
	if err != nil {
		return err
	}
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	opts := rankOptions(cfg)
	if f.fuzzy > 0 {
		opts = append(opts, locator.WithFuzzy(f.fuzzy))
	}

	q := f.buildQuery(cmd)
	ranked, err := locator.Rank(stores, q, opts...)
	if err != nil {
		return err
	}
	return printRanked(cmd.OutOrStdout(), ranked)
}

// buildQuery builds the search; the coordinate is set only when given on the
// command line so that 0,0 stays a valid location.
func (f *rankFlags) buildQuery(cmd *cobra.Command) locator.Query {
	q := locator.Query{
		Text:         f.query,
		Category:     f.category,
		StoreTypes:   f.types,
		NamePatterns: f.patterns,
		Zip:          f.zip,
		RadiusMiles:  f.radius,
		Sort:         locator.SortKey(f.sort),
		Limit:        f.limit,
	}
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
		q.Lat, q.Lon = locator.Float(f.lat), locator.Float(f.lng)
	}
	return q
}

func printRanked(w io.Writer, stores []locator.RankedStore) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tID\tNAME\tTYPE\tCITY\tMILES")
	for i, s := range stores {
		miles := "-"
		if s.DistanceMiles != nil {
			miles = strconv.FormatFloat(*s.DistanceMiles, 'f', 2, 64)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, s.ID, s.Name, s.StoreType, s.City, miles)
	}
	return tw.Flush()
}
