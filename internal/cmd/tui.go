package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/rsyncsync/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	Long: `Open the interactive terminal UI.

The last source, destination and option choices are remembered in the
settings file. rsync's output is kept in a log drawer (l) that can be
saved to a file (w).`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("tui starting", "settings", a.store.Path())

	app := tui.New(tui.Options{
		Runner:      a.runner,
		Store:       a.store,
		Picker:      newPicker(),
		Bus:         a.bus,
		Logger:      a.logger,
		MaxLogLines: a.cfg.TUI.MaxLogLines,
	})
	return app.Run(cmd.Context())
}
