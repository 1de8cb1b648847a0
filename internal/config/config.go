package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete rsyncsync configuration
type Config struct {
	Rsync    RsyncConfig    `mapstructure:"rsync"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Settings SettingsConfig `mapstructure:"settings"`
	TUI      TUIConfig      `mapstructure:"tui"`
}

// RsyncConfig controls how the rsync executable is located and stopped
type RsyncConfig struct {
	// BundleDir is the directory holding the bundled rsync binary and its lib/ directory.
	// Empty means <directory of the rsyncsync executable>/vendor/rsync.
	BundleDir string `mapstructure:"bundle_dir"`
	// FallbackPath is the system rsync used when no bundled copy exists
	FallbackPath string `mapstructure:"fallback_path"`
	// GracePeriod is how long Stop waits after SIGTERM before sending SIGKILL
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// LoggingConfig controls the debug log
type LoggingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Dir receives debug.log. Empty means the config directory.
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SettingsConfig locates the persisted user preferences document
type SettingsConfig struct {
	// Path is the settings JSON file. Empty means <config dir>/settings.json.
	Path string `mapstructure:"path"`
}

// TUIConfig controls the terminal UI
type TUIConfig struct {
	// MaxLogLines caps how many log lines the log drawer retains (default: 2000)
	MaxLogLines int `mapstructure:"max_log_lines"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Rsync: RsyncConfig{
			BundleDir:    "",
			FallbackPath: "/opt/homebrew/bin/rsync",
			GracePeriod:  1500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		TUI: TUIConfig{
			MaxLogLines: 2000,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("rsync.bundle_dir", defaults.Rsync.BundleDir)
	viper.SetDefault("rsync.fallback_path", defaults.Rsync.FallbackPath)
	viper.SetDefault("rsync.grace_period", defaults.Rsync.GracePeriod)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	viper.SetDefault("settings.path", defaults.Settings.Path)

	viper.SetDefault("tui.max_log_lines", defaults.TUI.MaxLogLines)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when the
// loaded configuration is invalid.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rsyncsync")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rsyncsync"
	}
	return filepath.Join(home, ".config", "rsyncsync")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ResolveLogDir returns the directory debug.log is written to.
func (l *LoggingConfig) ResolveLogDir() string {
	if l.Dir == "" {
		return ConfigDir()
	}
	return expandHome(l.Dir)
}

// ResolvePath returns the settings file path.
func (s *SettingsConfig) ResolvePath() string {
	if s.Path == "" {
		return filepath.Join(ConfigDir(), "settings.json")
	}
	return expandHome(s.Path)
}

// ResolveBundleDir returns the bundled rsync directory. exePath is the path
// of the running rsyncsync binary (os.Executable).
func (r *RsyncConfig) ResolveBundleDir(exePath string) string {
	if r.BundleDir != "" {
		return expandHome(r.BundleDir)
	}
	return filepath.Join(filepath.Dir(exePath), "vendor", "rsync")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
