package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/getlawrence/instrumentation-explorer/internal/config"
	"github.com/getlawrence/instrumentation-explorer/internal/logger"
)

type contextKey string

// Context key for configuration
const ConfigKey contextKey = "config"

// viperKeyAnnotation ties a flag to the config key it overrides.
const viperKeyAnnotation = "explorer/config-key"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "explorer",
	Short: "Generate the OpenTelemetry Java agent instrumentation data set",
	Long: `Explorer turns the Java agent's instrumentation-list YAML files into a
content-addressed JSON data set for the instrumentation explorer front end.

Identical instrumentations across agent versions are stored once and referenced
from each version's manifest by their content hash.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setupApp,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app := appConfig(cmd); app != nil && app.zap != nil {
			app.zap.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = context.WithValue(ctx, ConfigKey, NewAppConfig())
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./explorer.yaml)")
}

// bindFlag marks a flag as overriding the given config key.
func bindFlag(cmd *cobra.Command, name, key string) {
	if err := cmd.Flags().SetAnnotation(name, viperKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

func bindAnnotatedFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		keys, ok := f.Annotations[viperKeyAnnotation]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(keys[0], f)
	})
	return bindErr
}

// setupApp loads configuration and builds the logger for the running command.
func setupApp(cmd *cobra.Command, args []string) error {
	app := appConfig(cmd)
	if app == nil {
		return fmt.Errorf("application config missing from context")
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	configPath, _ := cmd.Flags().GetString("config")

	v := config.New()
	if err := bindAnnotatedFlags(cmd.Flags(), v); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return err
	}

	zl, err := logger.NewZapLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	app.Config = cfg
	app.Verbose = verbose
	app.zap = zl
	app.Logger = zl.Named(cmd.Name())
	return nil
}

func appConfig(cmd *cobra.Command) *AppConfig {
	if cmd.Context() == nil {
		return nil
	}
	app, _ := cmd.Context().Value(ConfigKey).(*AppConfig)
	return app
}
