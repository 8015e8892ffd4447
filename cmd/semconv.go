package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getlawrence/instrumentation-explorer/internal/logger"
	"github.com/getlawrence/instrumentation-explorer/internal/ui"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/semconv"
)

var semconvCmd = &cobra.Command{
	Use:   "semconv",
	Short: "Work with the semantic convention table",
}

var semconvFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the semantic convention table and save it as JSON",
	Long: `Fetch lists the model directories of open-telemetry/semantic-conventions
for each known category, downloads every model file and writes the resulting
attribute and metric table. Listings and files are cached in the configured
cache directory, or in Redis when semconv.redis_addr is set.

The saved table can be passed to 'explorer generate --semconv-file' to skip
the network entirely.`,
	RunE: runSemconvFetch,
}

func init() {
	rootCmd.AddCommand(semconvCmd)
	semconvCmd.AddCommand(semconvFetchCmd)

	semconvFetchCmd.Flags().StringP("output", "o", "semconv.json", "File to write the table to")
	semconvFetchCmd.Flags().String("cache-dir", "", "Directory for cached listings and model files")
	semconvFetchCmd.Flags().String("redis", "", "Redis address to cache in instead of the cache directory")
	bindFlag(semconvFetchCmd, "cache-dir", "semconv.cache_dir")
	bindFlag(semconvFetchCmd, "redis", "semconv.redis_addr")
}

func runSemconvFetch(cmd *cobra.Command, args []string) error {
	app := appConfig(cmd)
	output, _ := cmd.Flags().GetString("output")

	table, err := fetchTable(cmd.Context(), app)
	if err != nil {
		return err
	}
	if err := table.Save(app.Fs, output); err != nil {
		return err
	}

	attrs, metrics := table.Len()
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Saved %d attributes and %d metrics to %s\n", attrs, metrics, output)
	return nil
}

// loadTable resolves the table used to classify telemetry. A configured
// file must load; a failed fetch only degrades classification.
func loadTable(ctx context.Context, app *AppConfig) (*semconv.Table, error) {
	cfg := app.Config.Semconv
	if !cfg.Enabled {
		app.Logger.Log("Semantic convention classification disabled")
		return nil, nil
	}
	if cfg.File != "" {
		table, err := semconv.LoadTable(app.Fs, cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load semantic convention table: %w", err)
		}
		return table, nil
	}

	table, err := fetchTable(ctx, app)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		app.Logger.Warnf("Semantic convention table unavailable, classifying nothing: %v", err)
		return nil, nil
	}
	return table, nil
}

func fetchTable(ctx context.Context, app *AppConfig) (*semconv.Table, error) {
	cfg := app.Config.Semconv

	cache, closeCache := openCache(ctx, app)
	defer closeCache()

	fetcher, err := semconv.NewFetcher(cfg.GitHubToken, cache, app.Logger, semconv.WithWorkers(cfg.Workers))
	if err != nil {
		return nil, err
	}

	var table *semconv.Table
	fetch := func() error {
		var err error
		table, err = fetcher.Fetch(ctx)
		return err
	}
	if logger.IsInteractive() && !app.Verbose {
		err = ui.RunSpinner(ctx, "Fetching semantic conventions", fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch semantic conventions: %w", err)
	}
	return table, nil
}

// openCache prefers Redis when configured and reachable, falling back to the
// filesystem cache.
func openCache(ctx context.Context, app *AppConfig) (semconv.Cache, func()) {
	cfg := app.Config.Semconv
	if cfg.RedisAddr != "" {
		rc, err := semconv.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisTTL)
		if err == nil {
			return rc, func() { _ = rc.Close() }
		}
		app.Logger.Warnf("Redis cache at %s unavailable, using %s: %v", cfg.RedisAddr, cfg.CacheDir, err)
	}
	return semconv.NewFileCache(app.Fs, cfg.CacheDir), func() {}
}
