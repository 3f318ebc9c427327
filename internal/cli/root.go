// Package cli is the thin operator surface over the experimentation
// engine.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "splitlab",
	Short: "splitlab - a self-hosted A/B experimentation engine",
	Long: `splitlab assigns users to experiment variants, records conversions,
and computes statistically valid experiment outcomes. Single Go binary,
embedded SQLite.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("SL_DB_PATH", "./splitlab.db"), "database path")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
