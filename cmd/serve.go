package cmd

import (
	"github.com/spf13/cobra"

	"github.com/getlawrence/instrumentation-explorer/internal/logger"
	"github.com/getlawrence/instrumentation-explorer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generated data set for local front end development",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address")
	serveCmd.Flags().StringP("output", "o", "", "Directory to serve")
	bindFlag(serveCmd, "addr", "serve.addr")
	bindFlag(serveCmd, "output", "output_dir")
}

func runServe(cmd *cobra.Command, args []string) error {
	app := appConfig(cmd)
	cfg := app.Config

	// Request lines are for the developer at the terminal.
	var log logger.Logger = &logger.StdoutLogger{}
	if app.Verbose {
		log = app.Logger
	}

	handler, err := server.NewHandler(server.Options{
		Fs:        app.Fs,
		OutputDir: cfg.OutputDir,
		BaseURL:   cfg.BaseURL,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	return server.Run(cmd.Context(), cfg.Serve.Addr, handler, log)
}
