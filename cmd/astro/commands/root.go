package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "astro",
	Short: "Astrostocks - planetary transit sector analysis",
	Long: `Astrostocks Unified CLI

Reads planetary transits, maps them to market sectors through a fixed
rule table, enriches each sector with a language-model insight and
scores stocks against the result.

Usage:
  go run ./cmd/astro [command]

Examples:
  go run ./cmd/astro api
  go run ./cmd/astro analyze --enhanced
  go run ./cmd/astro transits --date 2025-03-14
  go run ./cmd/astro cache stats`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
