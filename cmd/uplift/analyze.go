package main

import (
	"github.com/felixgeelhaar/uplift/internal/app"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <solution-or-project>",
	Short: "Report what an upgrade would change without changing anything",
	Long: `Analyze checks the readiness of every project that still needs upgrading
and lists the reference changes and source issues an upgrade would address.

Use --diff to preview the automatic source fixes.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeDiff bool

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeDiff, "diff", false, "show a diff of every automatic source fix")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	u, opts, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	analysis, err := u.Analyze(cmd.Context(), ports.ExpandPath(args[0]), opts, app.AnalyzeOptions{Diff: analyzeDiff})
	if err != nil {
		return err
	}
	u.PrintAnalysis(analysis)
	return nil
}
