package main

import (
	"context"

	"github.com/matsen/ccslog/internal/pdf"
	"github.com/matsen/ccslog/internal/record"
	"github.com/matsen/ccslog/internal/table"
	"github.com/spf13/cobra"
)

var checkPDF string

func init() {
	checkCmd.Flags().StringVar(&checkPDF, "pdf", "", "Extract the DOI from a PDF file instead of passing it as an argument")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [doi]",
	Short: "Check whether a paper is already in the database",
	Long: `Check whether a paper is already in the database.

The DOI can be given directly or extracted from a downloaded PDF:

  ccs check 10.1021/acs.analchem.9b01234
  ccs check --pdf paper.pdf

An existing DOI is reported with its rows. This is advisory only: data
entry for a known paper is allowed and merely warned about.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

// CheckResult reports the duplicate check outcome.
type CheckResult struct {
	DOI     string      `json:"doi"`
	Exists  bool        `json:"exists"`
	Entries int         `json:"entries"`
	Rows    []table.Row `json:"rows,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	doi := ""
	switch {
	case checkPDF != "":
		extracted, err := pdf.ExtractDOI(checkPDF)
		if err != nil {
			exitWithError(ExitDataError, "reading %s: %v", checkPDF, err)
		}
		if extracted == "" {
			exitWithError(ExitDataError, "no DOI found in %s", checkPDF)
		}
		doi = extracted
	case len(args) == 1:
		doi = args[0]
	default:
		exitWithError(ExitError, "a DOI argument or --pdf is required")
	}

	if !record.ValidateDOI(doi) {
		exitWithError(ExitDataError, "invalid DOI format: %q", doi)
	}

	store, cfg := openStore()
	snap, err := store.Read(context.Background(), cfg.CSVPath)
	if err != nil {
		exitWithError(ExitTransport, "reading database: %v", err)
	}

	exists, rows := table.Exists(snap.Rows, doi)
	result := CheckResult{DOI: doi, Exists: exists, Entries: len(rows), Rows: rows}

	if humanOutput {
		if exists {
			outputHuman("Paper %s already has %d entries in the database.\n", doi, len(rows))
			for _, r := range rows {
				outputHuman("  %s  z=%d  %.2f Å²\n", r.ProteinName, r.ChargeState, r.CCSValue)
			}
		} else {
			outputHuman("Paper %s is not yet in the database.\n", doi)
		}
		return nil
	}
	return outputJSON(result)
}
