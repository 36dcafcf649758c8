package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ebtlocator/pkg/locator"
)

const defaultImportBatch = 500

type importFlags struct {
	file      string
	driver    string
	addr      string
	password  string
	batchSize int
	dryRun    bool
}

// storeWriter is the part of locator.StoreService used by import.
type storeWriter interface {
	BatchUpsert(ctx context.Context, stores []locator.Store) ([]locator.BatchResult, error)
}

// importSummary totals per-item batch outcomes.
type importSummary struct {
	Written int
	Skipped int
	Failed  int
}

func newImportCmd(g *globalFlags) *cobra.Command {
	f := &importFlags{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a SNAP retailer CSV into the store database",
		Long: `Reads a USDA SNAP retailer export (or a CSV with id, name, address,
city, state, zip, store_type, lat, lng columns) and upserts it in batches.
Rows without an id get a generated one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.run(cmd, g)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "retailer CSV file")
	cmd.Flags().StringVar(&f.driver, "driver", "valkey", "database driver: valkey or redis")
	cmd.Flags().StringVar(&f.addr, "addr", "localhost:6379", "database address")
	cmd.Flags().StringVar(&f.password, "password", "", "database password")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", defaultImportBatch, "stores per batch")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "parse the file and report without writing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (f *importFlags) run(cmd *cobra.Command, g *globalFlags) error {
	stores, stats, err := readStoresFile(f.file)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "read %d rows (%d without coordinates)\n", stats.Rows, stats.NoLocation)
	if f.dryRun {
		return nil
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	opts := []locator.Option{locator.WithGeneratedIDs(), locator.WithMaxBatchSize(f.batchSize)}
	switch {
	case cfg != nil:
		db := cfg.Database
		opts = append(opts, driverOption(db.Driver, db.Addrs[0], db.Password))
	default:
		opts = append(opts, driverOption(f.driver, f.addr, f.password))
	}
	if l := g.logger(); l != nil {
		opts = append(opts, locator.WithLogger(l))
	}

	client, err := locator.New(cmd.Context(), opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	sum, err := importStores(cmd.Context(), client.Stores(), stores, f.batchSize, out)
	_, _ = fmt.Fprintf(out, "written %d, skipped %d, failed %d\n", sum.Written, sum.Skipped, sum.Failed)
	return err
}

func driverOption(driver, addr, password string) locator.Option {
	if driver == "redis" {
		return locator.WithRedis(addr, password)
	}
	return locator.WithValkey(addr, password)
}

// importStores writes stores in batches of batchSize. A batch in which every
// item failed stops the import; skipped and partially failed items are
// reported to out and the import continues.
func importStores(ctx context.Context, w storeWriter, stores []locator.Store, batchSize int, out io.Writer) (importSummary, error) {
	if batchSize <= 0 {
		batchSize = defaultImportBatch
	}

	var sum importSummary
	for start := 0; start < len(stores); start += batchSize {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		end := min(start+batchSize, len(stores))

		results, err := w.BatchUpsert(ctx, stores[start:end])
		for _, r := range results {
			switch {
			case r.OK:
				sum.Written++
			case r.Skipped:
				sum.Skipped++
				_, _ = fmt.Fprintf(out, "row %d skipped: %v\n", start+r.Index+2, r.Err)
			default:
				sum.Failed++
				_, _ = fmt.Fprintf(out, "row %d failed: %v\n", start+r.Index+2, r.Err)
			}
		}
		if err != nil {
			return sum, fmt.Errorf("batch at row %d: %w", start+2, err)
		}
	}
	if sum.Written == 0 && sum.Failed > 0 {
		return sum, errors.New("no stores written")
	}
	return sum, nil
}
