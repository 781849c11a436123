// Package main provides the textreg CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	// A .env file is optional; the environment wins either way.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "textreg",
	Short: "Text-regression experimentation pipeline",
	Long: `textreg runs controlled text-to-scalar regression experiments:
feature extraction (bounded tf-idf vocabularies or feature hashing),
seeded cross-validation, metric aggregation, and grid search over
preprocessing configurations.

Experiments are described in YAML files; completed runs are persisted
to a SQLite store for later comparison. All commands output JSON by
default for easy integration with other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
