package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/mergeq/internal/conflict"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify <path>...",
	Short: "Show the conflict profile and recommended strategy of files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return classifyRun(args)
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Print profiles as JSON")
	rootCmd.AddCommand(classifyCmd)
}

func classifyRun(paths []string) error {
	profiles := make([]conflict.Profile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		profiles = append(profiles, conflict.ProfileContent(path, string(data)))
	}

	if classifyJSON {
		return printJSON(profiles)
	}

	table := ui.Table([]string{"Path", "Category", "Complexity", "Sections", "Size", "Strategy", "Rationale"})
	for _, p := range profiles {
		_ = table.Append([]string{
			p.Path,
			string(p.Category),
			string(p.Complexity),
			fmt.Sprintf("%d", p.MarkerCount),
			fmt.Sprintf("%d", p.SizeBytes),
			string(p.RecommendedStrategy),
			p.Rationale,
		})
	}
	return table.Render()
}
