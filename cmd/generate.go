package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getlawrence/instrumentation-explorer/internal/ui"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/docs"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/pipeline"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/schema"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/versions"
)

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen"},
	Short:   "Generate the content-addressed data set",
	Long: `Generate reads instrumentation-list-<version>.yaml files from the source
directory and writes:

  instrumentations/{id}-{hash}.json   one file per unique instrumentation
  markdown/{id}-{hash}.md             attached library documentation
  versions/{version}.json             manifest of id -> blob per version
  index.json                          browse index of the latest version
  versions.json                       list of processed versions

Attributes and metrics are marked as semantic conventions using the table
from --semconv-file, or one fetched from GitHub (failures only disable the
marking).

Examples:
  explorer generate --mode latest
  explorer generate --mode versions --versions 2.19.0,2.20.0 -o public/data
  explorer generate --semconv-file semconv.json --validate`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("source", "s", "", "Directory containing instrumentation-list-*.yaml files")
	generateCmd.Flags().StringP("output", "o", "", "Output directory for the data set")
	generateCmd.Flags().String("base-url", "", "URL prefix for generated links")
	generateCmd.Flags().String("docs", "", "Directory of {id}-{hash}.md library documents")
	generateCmd.Flags().StringP("mode", "m", "", "Version selection (latest, recent, all, versions)")
	generateCmd.Flags().Int("count", 0, "Number of versions for --mode recent")
	generateCmd.Flags().StringSlice("versions", nil, "Versions for --mode versions")
	generateCmd.Flags().Bool("include-preview", false, "Include preview versions such as 3.0.0")
	generateCmd.Flags().IntP("workers", "w", 0, "Parallel workers for preparing entries")
	generateCmd.Flags().Bool("semconv", true, "Mark semantic convention attributes and metrics")
	generateCmd.Flags().String("semconv-file", "", "Load the semantic convention table from a JSON file")
	generateCmd.Flags().String("redis", "", "Redis address for caching semantic convention downloads")
	generateCmd.Flags().String("metrics-file", "", "Write run statistics as a Prometheus textfile")
	generateCmd.Flags().Bool("validate", false, "Validate the output tree after generation")

	bindFlag(generateCmd, "source", "source_dir")
	bindFlag(generateCmd, "output", "output_dir")
	bindFlag(generateCmd, "base-url", "base_url")
	bindFlag(generateCmd, "docs", "docs_dir")
	bindFlag(generateCmd, "mode", "selection.mode")
	bindFlag(generateCmd, "count", "selection.count")
	bindFlag(generateCmd, "versions", "selection.versions")
	bindFlag(generateCmd, "include-preview", "selection.include_preview")
	bindFlag(generateCmd, "workers", "workers")
	bindFlag(generateCmd, "semconv", "semconv.enabled")
	bindFlag(generateCmd, "semconv-file", "semconv.file")
	bindFlag(generateCmd, "redis", "semconv.redis_addr")
	bindFlag(generateCmd, "metrics-file", "metrics_file")
	bindFlag(generateCmd, "validate", "validate_output")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app := appConfig(cmd)
	cfg := app.Config

	detector := versions.NewDetector(app.Fs, cfg.SourceDir, cfg.PreviewVersions)
	selected, err := detector.Select(cfg.VersionSelection())
	if err != nil {
		return err
	}
	for _, v := range selected {
		app.Logger.Logf("Selected version %s (latest: %t)", v.Version, v.IsLatest)
	}

	table, err := loadTable(ctx, app)
	if err != nil {
		return err
	}

	finder, err := docs.NewFinder(app.Fs, cfg.DocsDir)
	if err != nil {
		return err
	}
	app.Logger.Logf("Found %d library documents in %s", finder.Len(), cfg.DocsDir)

	metrics := pipeline.NewMetrics()
	gen, err := pipeline.NewGenerator(pipeline.Options{
		Fs:        app.Fs,
		Versions:  selected,
		OutputDir: cfg.OutputDir,
		BaseURL:   cfg.BaseURL,
		Table:     table,
		Docs:      finder,
		Workers:   cfg.Workers,
		Logger:    app.Logger,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}
	if err := gen.Generate(ctx); err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}

	if cfg.ValidateOutput {
		report, err := schema.ValidateTree(app.Fs, cfg.OutputDir)
		if err != nil {
			return err
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("generated output is invalid: %w", err)
		}
		app.Logger.Logf("Validated %d files", report.Files)
	}

	fmt.Fprint(cmd.OutOrStdout(), ui.RenderSummary(cfg.OutputDir, gen.Stats(), gen.Manifests()))
	return nil
}
