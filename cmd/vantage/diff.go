package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/TFMV/vantage/metrics"
	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/writers"
	"github.com/TFMV/vantage/report"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// DiffOptions represents the options for the diff command.
type DiffOptions struct {
	StartPath    string
	EndPath      string
	Selection    selectionFlags
	OutputFormat string
	OutputPath   string
	ReportPath   string
	ReportFormat string
	SummaryPath  string
}

// newDiffCommand creates a new diff command.
func newDiffCommand(a *app) *cobra.Command {
	options := &DiffOptions{}

	cmd := &cobra.Command{
		Use:   "diff [flags] START END",
		Short: "Compare two datasets and report changed fields",
		Long: `The diff command matches the records of START and END by the key fields
and lists, for every identity present in both, the fields whose values differ.

Identities present on one side only are counted as added or removed in the
summary. Without key fields the whole record is the identity, so only added
and removed records can be reported.

Output formats: table, json (stdout or --output), arrow and parquet (--output).
Without --format the type follows the --output extension, then the config.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.StartPath = args[0]
			options.EndPath = args[1]
			if options.OutputPath == "" {
				options.OutputPath = a.cfg.Output.Path
			}
			if options.OutputFormat == "" {
				options.OutputFormat = writers.TypeFromPath(options.OutputPath)
			}
			if options.OutputFormat == "" {
				options.OutputFormat = a.cfg.Output.Format
			}
			if options.ReportFormat == "" {
				options.ReportFormat = a.cfg.Output.Report
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDiff(ctx, a, options, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringSliceVarP(&options.Selection.keys, "key", "k", nil, "Key fields to match records (dot-joined for nested fields)")
	cmd.Flags().StringSliceVarP(&options.Selection.ignored, "ignore", "i", nil, "Fields to leave out of the comparison")
	cmd.Flags().StringVarP(&options.OutputFormat, "format", "f", "", "Output format (table, json, arrow, parquet)")
	cmd.Flags().StringVarP(&options.OutputPath, "output", "o", "", "Output path for diff results")
	cmd.Flags().StringVar(&options.ReportPath, "report", "", "Write a comparison report to this path")
	cmd.Flags().StringVar(&options.ReportFormat, "report-format", "", "Report format (json, html)")
	cmd.Flags().StringVar(&options.SummaryPath, "summary", "", "Write the comparison summary as JSON to this path")
	return cmd
}

// runDiff executes the diff command with the given options.
func runDiff(ctx context.Context, a *app, options *DiffOptions, stdout, stderr io.Writer) error {
	if (options.OutputFormat == "arrow" || options.OutputFormat == "parquet") && options.OutputPath == "" {
		return fmt.Errorf("--output is required for %s output", options.OutputFormat)
	}

	st := a.newStore()
	defer st.Close()

	spin := startSpinner("Loading datasets...")
	start, err := a.loadOne(ctx, st, options.StartPath)
	if err != nil {
		spin.Stop()
		return err
	}
	end, err := a.loadOne(ctx, st, options.EndPath)
	if err != nil {
		spin.Stop()
		return err
	}
	options.Selection.apply(st, a.cfg.Compare.KeyFields, a.cfg.Compare.IgnoredFields)

	spin.Lock()
	spin.Suffix = " Computing differences..."
	spin.Unlock()
	began := time.Now()
	result, err := st.SelectComparison(ctx, start, end)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("failed to compute diff: %w", err)
	}

	startDS, _ := st.Dataset(start)
	endDS, _ := st.Dataset(end)
	sel := st.Selection()
	summary := metrics.Summarize(metrics.Input{
		Start:         startDS,
		End:           endDS,
		Result:        result,
		Membership:    st.Membership(start, end),
		KeyFields:     sel.Key,
		IgnoredFields: sel.Ignored,
		StartTime:     began,
		EndTime:       time.Now(),
	})

	printSummary(stderr, summary)
	warnAmbiguous(stderr, st.KeyInfo())

	if err := writeResult(ctx, result, options, stdout); err != nil {
		return err
	}

	if options.ReportPath != "" {
		gen, err := report.NewGenerator(options.ReportFormat)
		if err != nil {
			return err
		}
		if err := gen.SaveReportToFile(summary, options.ReportPath); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		a.logger.Info("report written")
	}
	if options.SummaryPath != "" {
		summaryStore := &metrics.JSONSummaryStore{FilePath: options.SummaryPath}
		if err := summaryStore.SaveWithContext(ctx, summary); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

// writeResult renders the diff on stdout or hands it to a file writer.
func writeResult(ctx context.Context, result *core.DiffResult, options *DiffOptions, stdout io.Writer) error {
	switch {
	case options.OutputFormat == "table":
		return renderDiffTable(stdout, result)
	case options.OutputFormat == "json" && options.OutputPath == "":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}

	writer, err := writers.DefaultFactory.Create(core.WriterConfig{
		Type: options.OutputFormat,
		Path: options.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	if err := writer.Write(ctx, result); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write diff: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// renderDiffTable prints one row per changed field.
func renderDiffTable(w io.Writer, result *core.DiffResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("Key", "Field", "Start", "End")
	for _, entry := range result.Differences {
		for _, fd := range entry.Fields {
			if err := table.Append([]string{
				entry.Key, fd.Field.DisplayName, red(fd.StartValue.String()), green(fd.EndValue.String()),
			}); err != nil {
				return err
			}
		}
	}
	return table.Render()
}

// printSummary prints the comparison counts to the specified writer.
func printSummary(w io.Writer, s metrics.ComparisonSummary) {
	fmt.Fprintln(w, bold("\nDiff Summary:"))
	fmt.Fprintf(w, "  Start: %s (%d records)\n", s.Start.Name, s.Start.Records)
	fmt.Fprintf(w, "  End:   %s (%d records)\n", s.End.Name, s.End.Records)
	fmt.Fprintf(w, "  Key fields: %v\n", keyLabel(s.KeyFields))
	fmt.Fprintf(w, "  Added:     %s\n", green(strconv.Itoa(s.Added)))
	fmt.Fprintf(w, "  Removed:   %s\n", red(strconv.Itoa(s.Removed)))
	fmt.Fprintf(w, "  Changed:   %s\n", yellow(strconv.Itoa(s.Changed)))
	fmt.Fprintf(w, "  Unchanged: %d\n", s.Unchanged)

	if len(s.FieldChanges) > 0 {
		fmt.Fprintln(w, bold("\nChanged fields:"))
		for _, fc := range s.FieldChanges {
			fmt.Fprintf(w, "  %s: %d change(s)\n", fc.Field, fc.Changed)
		}
	}
	if s.Identical() {
		fmt.Fprintln(w, green("\nDatasets are identical."))
	}
}
