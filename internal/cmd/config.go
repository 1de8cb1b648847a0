package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/rsyncsync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify rsyncsync configuration",
	Long: `View or modify rsyncsync configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  rsyncsync config set rsync.grace_period 3s
  rsyncsync config set logging.level debug
  rsyncsync config set tui.max_log_lines 5000

Valid keys:
  rsync.bundle_dir       - Directory holding a bundled rsync and its lib/
  rsync.fallback_path    - System rsync used when no bundled copy exists
  rsync.grace_period     - Wait after SIGTERM before SIGKILL (e.g. 1500ms)
  logging.enabled        - Write debug.log (true/false)
  logging.level          - debug, info, warn or error
  logging.dir            - Directory for debug.log
  logging.max_size_mb    - Rotate debug.log at this size (0 disables)
  logging.max_backups    - Rotated files to keep
  logging.compress       - Gzip rotated files (true/false)
  settings.path          - Settings file location
  tui.max_log_lines      - Lines kept in the TUI log drawer`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/rsyncsync/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// configKeyTypes lists the keys accepted by config set.
var configKeyTypes = map[string]string{
	"rsync.bundle_dir":    "string",
	"rsync.fallback_path": "string",
	"rsync.grace_period":  "duration",
	"logging.enabled":     "bool",
	"logging.level":       "string",
	"logging.dir":         "string",
	"logging.max_size_mb": "int",
	"logging.max_backups": "int",
	"logging.compress":    "bool",
	"settings.path":       "string",
	"tui.max_log_lines":   "int",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\nShowing defaults instead.\n\n", err)
		cfg = config.Default()
	}

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := encodeConfig(cfg, false)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	keyType, ok := configKeyTypes[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'rsyncsync config set --help' to see valid keys", key)
	}

	typedValue, err := parseConfigValue(keyType, value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return err
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)
	return nil
}

func parseConfigValue(keyType, value string) (any, error) {
	switch keyType {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("expected true or false")
		}
		return b, nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("expected integer")
		}
		return n, nil
	case "duration":
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("expected a duration such as 1500ms or 2s")
		}
		return d.String(), nil
	default:
		return value, nil
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'rsyncsync config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := encodeConfig(config.Default(), true)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. $HOME/.config/rsyncsync/config.yaml")
	fmt.Fprintln(out, "\nEnvironment variables: RSYNCSYNC_* (e.g., RSYNCSYNC_RSYNC_GRACE_PERIOD)")
	return nil
}

// configEntry is one key of the generated YAML document.
type configEntry struct {
	key     string
	value   any
	comment string
}

// encodeConfig renders cfg as YAML. With comments, each section and key
// carries a short description.
func encodeConfig(cfg *config.Config, comments bool) ([]byte, error) {
	sections := []struct {
		name    string
		comment string
		entries []configEntry
	}{
		{"rsync", "Locating and stopping rsync", []configEntry{
			{"bundle_dir", cfg.Rsync.BundleDir, "Directory with a bundled rsync binary and lib/ (empty: <binary dir>/vendor/rsync)"},
			{"fallback_path", cfg.Rsync.FallbackPath, "System rsync used when no bundled copy exists"},
			{"grace_period", cfg.Rsync.GracePeriod.String(), "Wait after SIGTERM before SIGKILL"},
		}},
		{"logging", "Debug log (debug.log)", []configEntry{
			{"enabled", cfg.Logging.Enabled, ""},
			{"level", cfg.Logging.Level, "debug, info, warn or error"},
			{"dir", cfg.Logging.Dir, "Empty: the config directory"},
			{"max_size_mb", cfg.Logging.MaxSizeMB, "Rotate at this size; 0 disables rotation"},
			{"max_backups", cfg.Logging.MaxBackups, ""},
			{"compress", cfg.Logging.Compress, "Gzip rotated files"},
		}},
		{"settings", "User preferences written by the TUI", []configEntry{
			{"path", cfg.Settings.Path, "Empty: <config dir>/settings.json"},
		}},
		{"tui", "Terminal UI", []configEntry{
			{"max_log_lines", cfg.TUI.MaxLogLines, "Lines kept in the log drawer"},
		}},
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range sections {
		body := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range s.entries {
			val := &yaml.Node{}
			if err := val.Encode(e.value); err != nil {
				return nil, fmt.Errorf("encode %s.%s: %w", s.name, e.key, err)
			}
			k := &yaml.Node{Kind: yaml.ScalarNode, Value: e.key}
			if comments {
				k.HeadComment = e.comment
			}
			body.Content = append(body.Content, k, val)
		}
		k := &yaml.Node{Kind: yaml.ScalarNode, Value: s.name}
		if comments {
			k.HeadComment = s.comment
		}
		root.Content = append(root.Content, k, body)
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	if comments {
		doc.HeadComment = "rsyncsync configuration\nEnvironment variables override these values, e.g. RSYNCSYNC_LOGGING_LEVEL=debug"
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
