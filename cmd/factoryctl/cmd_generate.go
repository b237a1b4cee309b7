package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"factoryops.app/assistant/internal/app"
	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/factory"
)

type generateOpts struct {
	days  int
	seed  uint64
	start string
	out   string
}

func newGenerateCmd(c *cli) *cobra.Command {
	opts := &generateOpts{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic production dataset",
		Long:  "Writes a seeded production dataset for the configured factory inventory.\nThe same seed, days and start always produce the same file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.out
			if out == "" {
				out = c.cfg.Factory.DataFile
			}
			inv, err := factory.Load(c.cfg.Factory.InventoryFile, c.cfg.Factory.Name)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			return runGenerate(cmd, inv, *opts, out)
		},
	}

	cmd.Flags().IntVar(&opts.days, "days", 30, "number of days to generate")
	cmd.Flags().Uint64Var(&opts.seed, "seed", app.DefaultSeed, "random seed")
	cmd.Flags().StringVar(&opts.start, "start", "", "first day (yyyy-mm-dd), defaults to days before today")
	cmd.Flags().StringVar(&opts.out, "out", "", "output file, defaults to DATA_FILE")

	return cmd
}

func runGenerate(cmd *cobra.Command, inv factory.Inventory, opts generateOpts, out string) error {
	if opts.days < 1 {
		return fmt.Errorf("generate: --days must be at least 1, got %d", opts.days)
	}

	genOpts := data.GenerateOptions{Days: opts.days, Seed: opts.seed}
	if opts.start != "" {
		start, err := time.Parse(time.DateOnly, opts.start)
		if err != nil {
			return fmt.Errorf("generate: invalid --start %q: %w", opts.start, err)
		}
		genOpts.Start = start
	}

	snap := data.Generate(inv, genOpts)
	if err := data.SaveFile(out, snap); err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d days for %d machines (%s to %s) to %s\n",
		len(snap.Production), len(snap.Machines), snap.StartDate, snap.EndDate, out)
	return nil
}
