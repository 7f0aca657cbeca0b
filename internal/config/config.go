// Package config loads fdn settings from an optional config file, FDN_*
// environment variables and built-in defaults, in increasing order of
// precedence below command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Walk      WalkConfig      `yaml:"walk" mapstructure:"walk"`
	Transform TransformConfig `yaml:"transform" mapstructure:"transform"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures the stderr logger.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// OutputConfig configures reports on stdout.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
	Align  bool   `yaml:"align" mapstructure:"align"`
	Color  string `yaml:"color" mapstructure:"color"`
}

// WalkConfig configures directory traversal.
type WalkConfig struct {
	MaxDepth      int      `yaml:"max_depth" mapstructure:"max_depth"`
	IncludeHidden bool     `yaml:"include_hidden" mapstructure:"include_hidden"`
	Exclude       []string `yaml:"exclude" mapstructure:"exclude"`
}

// TransformConfig configures name normalization.
type TransformConfig struct {
	UnicodeForm string `yaml:"unicode_form" mapstructure:"unicode_form"`
}

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// DefaultDir is the directory, relative to the home directory, holding the
// database and the config file.
const DefaultDir = ".fdn"

// Load reads configuration. An explicit path must exist; without one
// config.yaml is looked up in ~/.fdn and the working directory and may be
// absent.
func Load(path string) (*Config, error) {
	v := viper.New()

	home, _ := os.UserHomeDir()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home != "" {
			v.AddConfigPath(filepath.Join(home, DefaultDir))
		}
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("FDN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", filepath.Join(home, DefaultDir, "fdn.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("output.format", "text")
	v.SetDefault("output.align", false)
	v.SetDefault("output.color", ColorAuto)
	v.SetDefault("walk.max_depth", 1)
	v.SetDefault("walk.include_hidden", false)
	v.SetDefault("walk.exclude", []string{})
	v.SetDefault("transform.unicode_form", "")

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no command can act on.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path must not be empty"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("output.format %q: must be text or json", c.Output.Format))
	}
	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("output.color %q: must be auto, always or never", c.Output.Color))
	}
	switch c.Transform.UnicodeForm {
	case "", "NFC":
	default:
		errs = append(errs, fmt.Errorf("transform.unicode_form %q: must be empty or NFC", c.Transform.UnicodeForm))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel parses Level as a slog level name.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", c.Level, err)
	}
	return level, nil
}
