// Package cmd implements the rsyncsync command line: the interactive TUI
// and headless subcommands that share one configuration, log and settings
// document.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/rsyncsync/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "rsyncsync",
	Short: "Mirror one folder into another with rsync",
	Long: `rsyncsync drives rsync to mirror a source folder into a destination folder,
showing live progress, a final summary, and rsync's own output.

Without a subcommand it opens the interactive terminal UI.`,
	RunE:          runTUI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/rsyncsync/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/rsyncsync")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RSYNCSYNC")
	// RSYNCSYNC_RSYNC_GRACE_PERIOD for rsync.grace_period
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
