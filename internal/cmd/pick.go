package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/rsyncsync/internal/picker"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Open a native file dialog",
}

var pickDirCmd = &cobra.Command{
	Use:   "dir [initial]",
	Short: "Choose a directory and print its path",
	Long: `Open the system folder picker and print the chosen path.

Nothing is printed when the dialog is dismissed. Uses osascript on macOS and
zenity on Linux.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPickDir,
}

// newPicker is replaced in tests.
var newPicker = func() picker.Picker { return picker.New(afero.NewOsFs()) }

func init() {
	rootCmd.AddCommand(pickCmd)
	pickCmd.AddCommand(pickDirCmd)
}

func runPickDir(cmd *cobra.Command, args []string) error {
	initial := ""
	if len(args) == 1 {
		initial = args[0]
	}

	path, err := newPicker().SelectDirectory(cmd.Context(), initial)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
