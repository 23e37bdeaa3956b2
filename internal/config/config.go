// Package config loads diggs-validate settings from defaults, an optional
// config file, DIGGS_ environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/moolekkari/diggs-validator"
)

const (
	// AppName is the application name. It is also the config file base name.
	AppName = "diggs-validate"
	// EnvPrefix prefixes every environment variable override.
	EnvPrefix = "DIGGS"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	formats    = []string{FormatText, FormatJSON, FormatYAML}
	logFormats = []string{"text", "json", "logfmt"}
	logLevels  = []string{"debug", "info", "warn", "error", "fatal"}
)

// Config holds the resolved settings.
type Config struct {
	SchemaDir string `mapstructure:"schema_dir"`
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	// LogDir, when set, receives a daily log file per host.
	LogDir string `mapstructure:"log_dir"`
	Format string `mapstructure:"format"`
	Jobs   int    `mapstructure:"jobs"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		SchemaDir: diggs.DefaultSchemaDir,
		LogLevel:  "error",
		LogFormat: "text",
		Format:    FormatText,
		Jobs:      runtime.NumCPU(),
	}
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFilePath is an explicit config file. It must exist.
	ConfigFilePath string
	// ConfigDirPath replaces the user config directory in the search path.
	ConfigDirPath string
	// Flags are bound by name: schema-dir, debug, log-level, log-format,
	// log-dir, format and jobs.
	Flags *pflag.FlagSet
}

// flagKeys maps flag names onto config keys.
var flagKeys = map[string]string{
	"schema-dir": "schema_dir",
	"debug":      "debug",
	"log-level":  "log_level",
	"log-format": "log_format",
	"log-dir":    "log_dir",
	"format":     "format",
	"jobs":       "jobs",
}

// ConfigDir returns the diggs-validate directory under the user config directory.
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// Load resolves the configuration. It returns the config file used, if any.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("schema_dir", defaults.SchemaDir)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("log_dir", defaults.LogDir)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("jobs", defaults.Jobs)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		if _, err := os.Stat(opts.ConfigFilePath); err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		v.SetConfigFile(opts.ConfigFilePath)
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(".")
		dir := opts.ConfigDirPath
		if dir == "" {
			if userDir, err := ConfigDir(); err == nil {
				dir = userDir
			}
		}
		if dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if flag := opts.Flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, "", fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, v.ConfigFileUsed(), nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if !slices.Contains(formats, c.Format) {
		return fmt.Errorf("invalid format %q: expected one of %v", c.Format, formats)
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		return fmt.Errorf("invalid log_format %q: expected one of %v", c.LogFormat, logFormats)
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("invalid log_level %q: expected one of %v", c.LogLevel, logLevels)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("invalid jobs %d: must be at least 1", c.Jobs)
	}
	return nil
}
