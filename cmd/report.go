package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/reelindex/catalog-trust/internal/audit"
)

var reportCmd = &cobra.Command{
	Use:   "report [path]",
	Short: "Render a run's audit report",
	Long: `Render the audit report of a past run. With no argument the most
recent report in the configured audit directory is used.

Examples:
  # Show the latest run
  report

  # Export a specific run for the review spreadsheet
  report audit/trust-audit-20260825-093000.json --format xlsx --output review.xlsx`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.String("format", "table", "output format: table, markdown, csv, or xlsx")
	f.String("output", "", "output file path (default: stdout; required for xlsx)")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		var err error
		path, err = audit.LatestJSON(cfg.Audit.Dir)
		if err != nil {
			return err
		}
	}

	report, err := audit.LoadJSON(path)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	if format == "xlsx" {
		if outputPath == "" {
			return eris.New("report: --output is required for xlsx")
		}
		if err := report.WriteXLSX(outputPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", outputPath)
		return nil
	}

	w := os.Stdout
	if outputPath != "" {
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "report: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	}

	switch format {
	case "table":
		report.Render(w)
	case "markdown":
		report.Markdown(w)
	case "csv":
		return report.WriteCSV(w)
	default:
		return eris.Errorf("report: unsupported format %q", format)
	}
	return nil
}
