package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/mergeq/internal/models"
	"github.com/joescharf/mergeq/internal/store"
)

var (
	exportFormat string
	exportRunID  string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export PR results as JSON, CSV, or Markdown",
	Long:  "Export the recorded per-PR results of one run, or of the most recent runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "Export a single run")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 20, "Number of recent runs to export when --run is not set")
	rootCmd.AddCommand(exportCmd)
}

func exportRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	results, err := collectResults(context.Background(), s)
	if err != nil {
		return err
	}
	return writeResults(results, exportFormat)
}

func collectResults(ctx context.Context, s store.Store) ([]*models.PRResult, error) {
	if exportRunID != "" {
		if _, err := s.GetRun(ctx, exportRunID); err != nil {
			return nil, fmt.Errorf("run %s: %w", exportRunID, err)
		}
		return s.ListPRResults(ctx, exportRunID)
	}

	runs, err := s.ListRuns(ctx, exportLimit)
	if err != nil {
		return nil, err
	}
	var all []*models.PRResult
	for _, r := range runs {
		results, err := s.ListPRResults(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, results...)
	}
	return all, nil
}

func writeResults(results []*models.PRResult, format string) error {
	switch format {
	case "json":
		if results == nil {
			results = []*models.PRResult{}
		}
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"RunID", "PR", "Title", "Outcome", "Reason", "Approvals", "Opinions", "Confidence", "MergeStrategy", "Conflicts", "Created"})
		for _, r := range results {
			_ = w.Write([]string{
				r.RunID,
				fmt.Sprintf("%d", r.Number),
				r.Title,
				string(r.Outcome),
				r.Reason,
				fmt.Sprintf("%d", r.Approvals),
				fmt.Sprintf("%d", r.TotalOpinions),
				fmt.Sprintf("%.2f", r.Confidence),
				r.MergeStrategy,
				fmt.Sprintf("%d", r.Conflicts),
				r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# PR Results")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| PR | Title | Outcome | Reason | Approvals | Merged Via |")
		fmt.Fprintln(ui.Out, "|----|-------|---------|--------|-----------|------------|")
		for _, r := range results {
			fmt.Fprintf(ui.Out, "| #%d | %s | %s | %s | %d/%d | %s |\n",
				r.Number, escapeCell(r.Title), r.Outcome, escapeCell(r.Reason), r.Approvals, r.TotalOpinions, r.MergeStrategy)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
