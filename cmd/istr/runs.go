package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"istr/internal/batch/store/sqlite"
)

func newRunsCmd(root *rootOptions) *cobra.Command {
	var (
		ledger string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in a SQLite ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ledger == "" {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				if cfg.Ledger.Driver != "sqlite" {
					return fmt.Errorf("--ledger is required unless the configured ledger is sqlite")
				}
				ledger = cfg.Ledger.DSN
			}
			store, err := sqlite.Open(cmd.Context(), ledger)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFUNCTION\tROWS\tNULLS\tVALID\tINVALID\tSTARTED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					r.ID, r.Function, r.Stats.Rows, r.Stats.NullInputs, r.Stats.Valid,
					r.Stats.InvalidTotal(), r.StartedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&ledger, "ledger", "", "SQLite ledger path")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
