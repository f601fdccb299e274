package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"istr/internal/identifier"
	"istr/internal/projection"
)

func newFunctionsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the available functions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := projection.Default()
			fns := reg.All()
			if format != "" {
				f := identifier.Format(strings.ToLower(format))
				if !f.IsValid() {
					return fmt.Errorf("unknown format %q", format)
				}
				fns = reg.ListByFormat(f)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tOUTPUT\tDESCRIPTION")
			for _, fn := range fns {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", fn.Name, fn.Output, fn.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "only list functions of this format (cusip, isin, iban, url)")
	return cmd
}
