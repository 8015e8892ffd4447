package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getlawrence/instrumentation-explorer/internal/ui"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/versions"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List detected agent versions and the current selection",
	RunE:  runVersions,
}

func init() {
	rootCmd.AddCommand(versionsCmd)

	versionsCmd.Flags().StringP("source", "s", "", "Directory containing instrumentation-list-*.yaml files")
	versionsCmd.Flags().StringP("mode", "m", "", "Version selection (latest, recent, all, versions)")
	versionsCmd.Flags().Int("count", 0, "Number of versions for --mode recent")
	versionsCmd.Flags().StringSlice("versions", nil, "Versions for --mode versions")
	versionsCmd.Flags().Bool("include-preview", false, "Include preview versions")

	bindFlag(versionsCmd, "source", "source_dir")
	bindFlag(versionsCmd, "mode", "selection.mode")
	bindFlag(versionsCmd, "count", "selection.count")
	bindFlag(versionsCmd, "versions", "selection.versions")
	bindFlag(versionsCmd, "include-preview", "selection.include_preview")
}

func runVersions(cmd *cobra.Command, args []string) error {
	app := appConfig(cmd)
	cfg := app.Config

	detector := versions.NewDetector(app.Fs, cfg.SourceDir, cfg.PreviewVersions)
	all, err := detector.Detect()
	if err != nil {
		return err
	}

	lines := make([]ui.VersionLine, 0, len(all))
	for _, v := range all {
		lines = append(lines, ui.VersionLine{Version: v.Version, IsLatest: v.IsLatest, Preview: v.Preview})
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.RenderVersions(lines))

	selected, err := detector.Select(cfg.VersionSelection())
	if err != nil {
		return err
	}
	names := make([]string, 0, len(selected))
	for _, v := range selected {
		names = append(names, v.Version)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n🎯 Selected (%s): %s\n", cfg.Selection.Mode, strings.Join(names, ", "))
	return nil
}
