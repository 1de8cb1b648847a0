package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/rsyncsync/internal/config"
	"github.com/Iron-Ham/rsyncsync/internal/logging"
	"github.com/Iron-Ham/rsyncsync/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View or change saved preferences",
	Long: `View or change the preferences the TUI remembers between sessions.

Without arguments, displays the current settings.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show saved preferences",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one preference",
	Long: `Change one preference.

Valid keys: ` + strings.Join(settings.Keys(), ", ") + `

Examples:
  rsyncsync settings set theme dark
  rsyncsync settings set defaultDelete false`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the settings file path",
	RunE:  runSettingsPath,
}

var settingsJSON bool

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsPathCmd)

	settingsCmd.PersistentFlags().BoolVar(&settingsJSON, "json", false, "print settings as JSON")
}

// openSettings opens the settings document without the rest of the app.
func openSettings() *settings.Store {
	cfg := config.Get()
	return settings.NewStore(afero.NewOsFs(), cfg.Settings.ResolvePath(), logging.NopLogger())
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	return printSettings(cmd, openSettings().Get())
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	store := openSettings()
	s, err := store.Set(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], store.Path())
	return printSettings(cmd, s)
}

func runSettingsPath(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), openSettings().Path())
	return nil
}

func printSettings(cmd *cobra.Command, s settings.Settings) error {
	out := cmd.OutOrStdout()
	if settingsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Key", "Value"})
	for _, key := range settings.Keys() {
		t.AppendRow(table.Row{key, values[key]})
	}
	t.Render()
	return nil
}
