// Package app contains the Cobra command tree for questwatch.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/questwatch/internal/output"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
	flagDB      string
	flagWindow  string
)

var rootCmd = &cobra.Command{
	Use:   "questwatch",
	Short: "Analytics for location-based quests",
	Long: `questwatch aggregates play sessions, reviews, gameplay events and player
feedback into per-quest analytics: clear rates, step funnels, rating
distributions, drop-off by game mode, the hardest puzzle spots, and
categorized feedback.

Run 'questwatch' with no arguments for an overview of every known quest.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		output.SetNoColor(flagNoColor || !output.ColorSupported(os.Stdout))
	},
	RunE: runSummary,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/questwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides db_path)")
	rootCmd.PersistentFlags().StringVarP(&flagWindow, "window", "w", "", "Time window: all, 30d or 7d (default from config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
}
