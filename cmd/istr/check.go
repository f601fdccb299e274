package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"istr/internal/batch"
	"istr/internal/batch/store/memory"
	"istr/internal/batch/store/sqlite"
	"istr/internal/columnar"
	"istr/internal/projection"
)

type checkOptions struct {
	input     string
	nullToken string
	output    string
	ledger    string
	stats     bool
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check <function> [values...]",
		Short: "Apply a function to values given as arguments, a file or stdin",
		Example: `  istr check isin.is_valid US0378331005 US0378331006
  istr check iban.extract_all -f ibans.txt -o jsonl
  cut -d, -f3 trades.csv | istr check cusip.check --stats`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, root, opts, args[0], args[1:])
		},
	}
	cmd.Flags().StringVarP(&opts.input, "file", "f", "", "read one value per line from this file (\"-\" for stdin)")
	cmd.Flags().StringVar(&opts.nullToken, "null", "", "input line treated as an absent value")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format: table, json or jsonl")
	cmd.Flags().StringVar(&opts.ledger, "ledger", "", "record the run in this SQLite ledger")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print a diagnostic summary to stderr")
	return cmd
}

func runCheck(cmd *cobra.Command, root *rootOptions, opts *checkOptions, function string, args []string) error {
	switch opts.output {
	case "table", "json", "jsonl":
	default:
		return fmt.Errorf("unknown output format %q", opts.output)
	}
	cfg, err := root.load()
	if err != nil {
		return err
	}
	log, err := root.cliLogger(cmd, cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	values, err := readValues(cmd, opts, args)
	if err != nil {
		return err
	}

	var ledger batch.Ledger = memory.New(1)
	if opts.ledger != "" {
		store, err := sqlite.Open(ctx, opts.ledger)
		if err != nil {
			return err
		}
		defer store.Close()
		ledger = store
	}

	engine := columnar.NewEngine(
		columnar.WithPartitionSize(cfg.Engine.PartitionSize),
		columnar.WithMaxWorkers(cfg.Engine.MaxWorkers),
	)
	svc, err := batch.New(projection.Default(), engine, ledger,
		batch.WithLogger(log),
		batch.WithMaxRows(cfg.Engine.MaxBatchRows),
	)
	if err != nil {
		return err
	}

	res, err := svc.Run(ctx, batch.Request{Function: function, Values: values})
	if err != nil {
		return err
	}

	if err := writeResult(cmd.OutOrStdout(), opts.output, values, res.Output); err != nil {
		return err
	}
	if opts.stats {
		writeStats(cmd.ErrOrStderr(), res.Stats)
	}
	return nil
}

func readValues(cmd *cobra.Command, opts *checkOptions, args []string) ([]*string, error) {
	toValue := func(s string) *string {
		if s == opts.nullToken {
			return nil
		}
		return &s
	}
	if len(args) > 0 {
		if opts.input != "" {
			return nil, fmt.Errorf("values and --file are mutually exclusive")
		}
		out := make([]*string, len(args))
		for i, a := range args {
			out[i] = toValue(a)
		}
		return out, nil
	}

	var r io.Reader = cmd.InOrStdin()
	if opts.input != "" && opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var out []*string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		out = append(out, toValue(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	return out, nil
}

func writeResult(w io.Writer, format string, inputs []*string, out columnar.Array) error {
	switch format {
	case "json":
		rows := make([]any, out.Len())
		for i := range rows {
			rows[i] = out.Value(i)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "jsonl":
		enc := json.NewEncoder(w)
		for i := range out.Len() {
			if err := enc.Encode(map[string]any{"input": inputs[i], "output": out.Value(i)}); err != nil {
				return err
			}
		}
		return nil
	default:
		return writeTable(w, inputs, out)
	}
}

func writeTable(w io.Writer, inputs []*string, out columnar.Array) error {
	cols := []columnar.Array{out}
	if sc, ok := out.(*columnar.StructColumn); ok {
		cols = sc.Fields()
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "INPUT")
	for _, c := range cols {
		fmt.Fprintf(tw, "\t%s", c.Name())
	}
	fmt.Fprintln(tw)
	for i := range out.Len() {
		fmt.Fprint(tw, cell(inputs[i]))
		for _, c := range cols {
			fmt.Fprintf(tw, "\t%s", cell(c.Value(i)))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case *string:
		if v == nil {
			return "null"
		}
		return *v
	default:
		return fmt.Sprint(v)
	}
}

func writeStats(w io.Writer, stats batch.Stats) {
	fmt.Fprintf(w, "rows=%d nulls=%d valid=%d invalid=%d\n", stats.Rows, stats.NullInputs, stats.Valid, stats.InvalidTotal())
	for _, category := range slices.Sorted(maps.Keys(stats.Invalid)) {
		fmt.Fprintf(w, "  %s: %d\n", category, stats.Invalid[category])
	}
}
