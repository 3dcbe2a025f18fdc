// Package cli provides the rewear command-line interface.
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rewear",
	Short: "Community clothing exchange server",
	Long: `rewear runs the community clothing exchange: members list garments,
propose swaps, pick couriers, and earn points for keeping clothes in
circulation instead of landfill.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(),
		"Path to the TOML config file")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".rewear", "config.toml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
