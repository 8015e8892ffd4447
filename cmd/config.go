package cmd

import (
	"github.com/spf13/afero"

	"github.com/getlawrence/instrumentation-explorer/internal/config"
	"github.com/getlawrence/instrumentation-explorer/internal/logger"
)

// AppConfig holds all the shared configuration and dependencies
type AppConfig struct {
	Fs      afero.Fs
	Config  *config.Config
	Logger  logger.Logger
	Verbose bool

	zap *logger.ZapLogger
}

// NewAppConfig creates a new configuration instance. Config and Logger are
// filled in once flags are parsed.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Fs:     afero.NewOsFs(),
		Logger: logger.NopLogger{},
	}
}
