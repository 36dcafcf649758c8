package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ebtlocator/internal/config"
	"github.com/kailas-cloud/ebtlocator/internal/version"
	"github.com/kailas-cloud/ebtlocator/pkg/locator"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	env     string // config environment; empty uses flags and built-in categories
	verbose bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "ebtctl",
		Short:         "Operate the EBT store locator",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.env, "env", "", "load database and categories from config/<env>.yaml")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log client operations to stderr")

	root.AddCommand(newImportCmd(g), newRankCmd(g), newCategoriesCmd(g), newHealthCmd(g))
	return root
}

// loadConfig returns nil when no environment was requested.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	if g.env == "" {
		return nil, nil
	}
	cfg, err := config.Load(g.env)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", g.env, err)
	}
	return &cfg, nil
}

// rankOptions maps the config's category table and fuzzy settings.
func rankOptions(cfg *config.Config) []locator.Option {
	if cfg == nil {
		return nil
	}
	var opts []locator.Option
	if len(cfg.Categories) > 0 {
		cats := make([]locator.Category, len(cfg.Categories))
		for i, c := range cfg.Categories {
			cats[i] = locator.Category{
				ID:           c.ID,
				Label:        c.Label,
				RadiusMiles:  c.RadiusMiles,
				Exclusions:   c.Exclusions,
				StoreTypes:   c.StoreTypes,
				NamePatterns: c.NamePatterns,
			}
		}
		opts = append(opts, locator.WithCategories(cats...))
	}
	if cfg.Search.Fuzzy {
		opts = append(opts, locator.WithFuzzy(cfg.Search.FuzzyMinScore))
	}
	return opts
}

func (g *globalFlags) logger() *slog.Logger {
	if !g.verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
