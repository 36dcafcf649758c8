package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ebtlocator/pkg/locator"
)

func newCategoriesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the effective category table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			cats, err := locator.Categories(rankOptions(cfg)...)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tRADIUS\tEXCLUDES\tTYPES")
			for _, c := range cats {
				_, _ = fmt.Fprintf(tw, "%s\t%g\t%s\t%s\n", c.ID, c.RadiusMiles,
					strings.Join(c.Exclusions, ","), strings.Join(c.StoreTypes, ","))
			}
			return tw.Flush()
		},
	}
}
