package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/versions"
)

// EnvPrefix prefixes every environment override, e.g. EXPLORER_OUTPUT_DIR.
const EnvPrefix = "EXPLORER"

// DefaultConfigName is the config file looked up in the working directory.
const DefaultConfigName = "explorer"

// Config represents the generator configuration
type Config struct {
	// Directory holding instrumentation-list-<version>.yaml files
	SourceDir string `mapstructure:"source_dir" yaml:"source_dir"`

	// Directory the data set is written to
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// Public URL prefix for generated links
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Shared directory of {id}-{hash}.md documents
	DocsDir string `mapstructure:"docs_dir" yaml:"docs_dir"`

	Selection SelectionConfig `mapstructure:"selection" yaml:"selection"`

	// Versions that never become latest
	PreviewVersions []string `mapstructure:"preview_versions" yaml:"preview_versions"`

	// Parallelism when preparing entries
	Workers int `mapstructure:"workers" yaml:"workers"`

	Semconv SemconvConfig `mapstructure:"semconv" yaml:"semconv"`

	// Optional Prometheus textfile with run statistics
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`

	// Validate the output tree after generation
	ValidateOutput bool `mapstructure:"validate_output" yaml:"validate_output"`

	Serve ServeConfig `mapstructure:"serve" yaml:"serve"`
}

// SelectionConfig chooses the versions to process
type SelectionConfig struct {
	Mode           string   `mapstructure:"mode" yaml:"mode"`
	Count          int      `mapstructure:"count" yaml:"count"`
	Versions       []string `mapstructure:"versions" yaml:"versions"`
	IncludePreview bool     `mapstructure:"include_preview" yaml:"include_preview"`
}

// SemconvConfig controls the semantic convention table
type SemconvConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Load the table from this JSON file instead of fetching it
	File string `mapstructure:"file" yaml:"file"`

	CacheDir  string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisTTL  time.Duration `mapstructure:"redis_ttl" yaml:"-"`

	GitHubToken string `mapstructure:"github_token" yaml:"-"`
	Workers     int    `mapstructure:"workers" yaml:"workers"`
}

// ServeConfig configures the preview server
type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// New returns a viper instance carrying the defaults and environment
// bindings. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// GITHUB_TOKEN is honored without the prefix, as in CI environments
	_ = v.BindEnv("semconv.github_token", EnvPrefix+"_SEMCONV_GITHUB_TOKEN", "GITHUB_TOKEN")

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source_dir", ".")
	v.SetDefault("output_dir", "output")
	v.SetDefault("base_url", "/data")
	v.SetDefault("docs_dir", "library_readme")
	v.SetDefault("selection.mode", string(versions.ModeRecent))
	v.SetDefault("selection.count", 2)
	v.SetDefault("selection.versions", []string{})
	v.SetDefault("selection.include_preview", false)
	v.SetDefault("preview_versions", versions.DefaultPreviewVersions)
	v.SetDefault("workers", 8)
	v.SetDefault("semconv.enabled", true)
	v.SetDefault("semconv.file", "")
	v.SetDefault("semconv.cache_dir", ".semconv_cache")
	v.SetDefault("semconv.redis_addr", "")
	v.SetDefault("semconv.redis_ttl", 24*time.Hour)
	v.SetDefault("semconv.github_token", "")
	v.SetDefault("semconv.workers", 4)
	v.SetDefault("metrics_file", "")
	v.SetDefault("validate_output", false)
	v.SetDefault("serve.addr", "localhost:8080")
}

// Load reads configPath, or explorer.yaml from the working directory when
// configPath is empty, into v and returns the validated result. A missing
// default config file is not an error.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if strings.HasSuffix(c.BaseURL, "/") {
		return fmt.Errorf("base_url must not end with '/', got: %s", c.BaseURL)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Semconv.Workers < 1 {
		return fmt.Errorf("semconv.workers must be at least 1, got %d", c.Semconv.Workers)
	}
	return c.VersionSelection().Validate()
}

// VersionSelection converts the selection settings for the version detector
func (c *Config) VersionSelection() versions.Selection {
	return versions.Selection{
		Mode:           versions.Mode(c.Selection.Mode),
		Count:          c.Selection.Count,
		Versions:       c.Selection.Versions,
		IncludePreview: c.Selection.IncludePreview,
	}
}

// DefaultConfig returns the built-in defaults, ignoring files and environment
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// SaveConfig writes cfg as YAML. The GitHub token is never written.
func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
