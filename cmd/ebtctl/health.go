package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ebtlocator/pkg/locator"
)

type healthFlags struct {
	driver   string
	addr     string
	password string
}

func newHealthCmd(g *globalFlags) *cobra.Command {
	f := &healthFlags{}
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the store database",
		Long: `Pings the store database and prints each check. Exits non-zero unless
every check passes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			opts := []locator.Option{driverOption(f.driver, f.addr, f.password)}
			if cfg != nil {
				db := cfg.Database
				opts = []locator.Option{driverOption(db.Driver, db.Addrs[0], db.Password)}
			}
			if l := g.logger(); l != nil {
				opts = append(opts, locator.WithLogger(l))
			}

			client, err := locator.New(cmd.Context(), opts...)
			if err != nil {
				return err
			}
			defer client.Close()

			return printHealth(cmd.OutOrStdout(), client.Health(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&f.driver, "driver", "valkey", "database driver: valkey or redis")
	cmd.Flags().StringVar(&f.addr, "addr", "localhost:6379", "database address")
	cmd.Flags().StringVar(&f.password, "password", "", "database password")
	return cmd
}

// printHealth writes one line per check and returns an error naming the
// failing checks unless the status is healthy.
func printHealth(w io.Writer, h locator.HealthStatus) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CHECK\tRESULT")
	for _, name := range slices.Sorted(maps.Keys(h.Checks)) {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", name, h.Checks[name])
	}
	_, _ = fmt.Fprintf(tw, "status\t%s\n", h.Status)
	if err := tw.Flush(); err != nil {
		return err
	}

	switch {
	case h.Healthy():
		return nil
	case h.Degraded():
		return fmt.Errorf("degraded: enrichment unavailable for %s", strings.Join(h.FailingProviders(), ", "))
	case len(h.Failing()) > 0:
		return fmt.Errorf("unhealthy: %s failing", strings.Join(h.Failing(), ", "))
	default:
		return errors.New("unhealthy")
	}
}
