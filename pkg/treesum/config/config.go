package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ScanConfig configures how the tree is reconciled against the manifest.
type ScanConfig struct {
	// Type forces a digest algorithm (md5, sha1, sha256, sha512).
	// Empty means derive it from the manifest.
	Type string `mapstructure:"type"`

	// File overrides the manifest file name inside the scanned tree.
	File string `mapstructure:"file"`

	// FullCheck re-digests every file, ignoring the metadata fast path.
	FullCheck bool `mapstructure:"full_check"`

	// FollowLinks resolves symbolic links instead of recording them.
	FollowLinks bool `mapstructure:"follow_links"`

	// ModifyWindow is the timestamp tolerance in seconds.
	ModifyWindow int64 `mapstructure:"modify_window"`

	// ExcludeMarker names a file whose presence excludes its directory.
	ExcludeMarker string `mapstructure:"exclude_marker"`

	// Restrict limits the scan to paths matching a glob pattern.
	Restrict string `mapstructure:"restrict"`
}

// OutputConfig configures report rendering.
type OutputConfig struct {
	// Format selects the report format: pretty, plain, json or yaml.
	Format string `mapstructure:"format"`

	// ModifiedOnly hides untouched files from listings.
	ModifiedOnly bool `mapstructure:"modified_only"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// MaxSize is the size threshold for rotation ("10MB", "1GiB").
	MaxSize string `mapstructure:"max_size"`

	// MaxAge is the retention of rotated logs in days.
	MaxAge int `mapstructure:"max_age"`

	// MaxBackups is the number of rotated logs kept.
	MaxBackups int `mapstructure:"max_backups"`

	// Daily rotates the log on the first write of each day.
	Daily bool `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	// Level overrides the verbosity-derived log level when non-empty.
	Level string `mapstructure:"level"`

	// File is the log file path. Empty uses the state directory
	// default, $XDG_STATE_HOME/treesum/treesum.log.
	File string `mapstructure:"file"`

	// Rotation controls rotation of the log file.
	Rotation RotationConfig `mapstructure:"rotation"`

	// Components holds per-component level overrides.
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	DefaultPath string        `mapstructure:"default_path"`
	Verbosity   int           `mapstructure:"verbosity"`
	Scan        ScanConfig    `mapstructure:"scan"`
	Output      OutputConfig  `mapstructure:"output"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/treesum/config.yaml
//   - $HOME/.config/treesum/config.yaml
//
// Environment variables are prefixed with TREESUM_
// (e.g., TREESUM_SCAN_MODIFY_WINDOW).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "treesum"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "treesum"))

	v.SetEnvPrefix("TREESUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_path", DefaultScanPath)
	v.SetDefault("verbosity", DefaultVerbosity)

	v.SetDefault("scan.type", "")
	v.SetDefault("scan.file", "")
	v.SetDefault("scan.full_check", false)
	v.SetDefault("scan.follow_links", false)
	v.SetDefault("scan.modify_window", DefaultModifyWindow)
	v.SetDefault("scan.exclude_marker", DefaultExcludeMarker)
	v.SetDefault("scan.restrict", "")

	v.SetDefault("output.format", DefaultFormat)
	v.SetDefault("output.modified_only", false)

	// Logging level is empty by default: the effective level is derived
	// from verbosity unless the config pins one.
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.rotation.max_size", DefaultRotateMaxSize)
	v.SetDefault("logging.rotation.max_age", DefaultRotateMaxAge)
	v.SetDefault("logging.rotation.max_backups", DefaultRotateMaxBackups)
	v.SetDefault("logging.rotation.daily", false)
	v.SetDefault("logging.components", map[string]string{})

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.HasPrefix(cfg.DefaultPath, "~") {
		cfg.DefaultPath = filepath.Join(homeDir, cfg.DefaultPath[1:])
	}

	return &cfg, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "treesum"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "treesum"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# treesum configuration

# Directory to scan when none is given on the command line
default_path: %s

# Verbosity: 0 errors only, 1 warnings, 2 progress, 3+ debug
verbosity: %d

scan:
  # Digest algorithm: md5, sha1, sha256, sha512 (empty: read it from
  # the manifest)
  type: ""
  # Manifest file name inside the scanned tree (empty: detect)
  file: ""
  # Re-digest every file even when size and mtime match
  full_check: false
  # Resolve symbolic links instead of recording their targets
  follow_links: false
  # Timestamp tolerance in seconds for the metadata fast path
  modify_window: %d
  # Name of a marker file that excludes its directory from the scan
  # (empty: disabled)
  exclude_marker: ""
  # Glob pattern restricting the scan to matching paths (empty: scan
  # everything)
  restrict: ""

output:
  # Report format: pretty, plain, json, yaml
  format: %s
  # Hide untouched files from listings
  modified_only: false

logging:
  # Log level: debug, info, warn, error (empty: derive from verbosity)
  level: ""
  # Log file (empty: $XDG_STATE_HOME/treesum/treesum.log)
  file: ""
  # Log rotation: size threshold, retention in days, rotated files kept
  rotation:
    max_size: %s
    max_age: %d
    max_backups: %d
    daily: false
  # Per-component log levels, for example:
  #   walker: debug
  components: {}
`, DefaultScanPath, DefaultVerbosity, DefaultModifyWindow, DefaultFormat,
		DefaultRotateMaxSize, DefaultRotateMaxAge, DefaultRotateMaxBackups)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
