package main

import (
	"context"
	"os"

	"github.com/matsen/ccslog/internal/table"
	"github.com/spf13/cobra"
)

var exportOut string

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current database as CSV",
	Long: `Export the current database as CSV.

The table is written exactly as persisted, so the export can be
diffed against later snapshots or loaded into analysis tooling.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	store, cfg := openStore()
	snap, err := store.Read(context.Background(), cfg.CSVPath)
	if err != nil {
		exitWithError(ExitTransport, "reading database: %v", err)
	}

	content, err := table.Encode(snap.Rows)
	if err != nil {
		exitWithError(ExitError, "encoding table: %v", err)
	}

	if exportOut == "" {
		os.Stdout.WriteString(content)
		return nil
	}
	if err := os.WriteFile(exportOut, []byte(content), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", exportOut, err)
	}
	if humanOutput {
		outputHuman("Wrote %d rows to %s\n", len(snap.Rows), exportOut)
	}
	return nil
}
