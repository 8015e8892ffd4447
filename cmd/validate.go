package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate [output-dir]",
	Short: "Check a generated data set for schema and hash consistency",
	Long: `Validate checks every document of a generated tree against its JSON
Schema, re-hashes every instrumentation blob against the digest in its file
name and verifies that every manifest reference resolves to a blob.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	app := appConfig(cmd)
	dir := app.Config.OutputDir
	if len(args) > 0 {
		dir = args[0]
	}

	report, err := schema.ValidateTree(app.Fs, dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(report.Problems) == 0 {
		fmt.Fprintf(out, "✅ %s is valid (%d files checked)\n", dir, report.Files)
		return nil
	}

	fmt.Fprintf(out, "❌ %d problem(s) in %s:\n", len(report.Problems), dir)
	for _, p := range report.Problems {
		fmt.Fprintf(out, "   - %v\n", p)
	}
	return fmt.Errorf("validation failed with %d problem(s)", len(report.Problems))
}
