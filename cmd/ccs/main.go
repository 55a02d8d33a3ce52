// Package main provides the ccs CLI entry point.
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
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ccs",
	Short: "Shared collision cross-section database CLI",
	Long: `ccs logs collision cross-section measurements from published papers
into a shared CSV database hosted in a GitHub repository.

A session checks the paper's DOI against the database, accumulates any
number of protein measurements, and commits the whole batch as a single
append. Concurrent contributors are reconciled with optimistic version
checks, so nobody's rows get lost.

All commands output JSON by default for easy scripting.
Use --human for human-readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env if present (for CCS_GITHUB_TOKEN and friends).
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
