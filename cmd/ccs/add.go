package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/matsen/ccslog/internal/record"
	"github.com/matsen/ccslog/internal/session"
	"github.com/matsen/ccslog/internal/vstore"
	"github.com/spf13/cobra"
)

var (
	addTitle   string
	addAuthors string
	addYear    int
	addJournal string
	addRecords string
	addDryRun  bool
)

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "Paper title")
	addCmd.Flags().StringVar(&addAuthors, "authors", "", "Paper authors")
	addCmd.Flags().IntVar(&addYear, "year", 0, "Publication year")
	addCmd.Flags().StringVar(&addJournal, "journal", "", "Journal")
	addCmd.Flags().StringVar(&addRecords, "records", "", "JSON file with the measurement records to add")
	addCmd.Flags().BoolVar(&addDryRun, "dry-run", false, "Stop at review: show what would be committed without writing")
	addCmd.MarkFlagRequired("records")
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <doi>",
	Short: "Add a batch of measurements for one paper",
	Long: `Add a batch of measurements for one paper.

The DOI is checked first; a paper already in the database produces a
warning but entry proceeds. All records from the JSON file are built
and accumulated (a repeated protein name replaces the earlier entry),
then the whole batch is committed as one append. On a commit conflict
or a transport failure nothing is written and the same invocation can
simply be run again.

The records file holds a JSON array of measurements:

  [
    {
      "protein_name": "Ubiquitin",
      "instrument": {"option": "Agilent 6560"},
      "ims_type": "DTIMS",
      "drift_gas": {"option": "Other", "free_text": "SF6"},
      "polarity": "positive",
      "native_measurement": true,
      "subunit_count": 1,
      "pairs": [{"charge_state": 6, "ccs_value": 980.1}]
    }
  ]`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

// rawRecordInput is the JSON shape of one measurement in the records file.
type rawRecordInput struct {
	ProteinName  string           `json:"protein_name"`
	Uniprot      string           `json:"uniprot"`
	PDB          string           `json:"pdb"`
	Sequence     string           `json:"sequence"`
	SequenceMass float64          `json:"sequence_mass"`
	MeasuredMass float64          `json:"measured_mass"`
	Native       bool             `json:"native_measurement"`
	SubunitCount int              `json:"subunit_count"`
	OligomerType string           `json:"oligomer_type"`
	Instrument   record.Choice    `json:"instrument"`
	IMSType      string           `json:"ims_type"`
	DriftGas     record.Choice    `json:"drift_gas"`
	Polarity     string           `json:"polarity"`
	Pairs        []record.CCSPair `json:"pairs"`
	Notes        string           `json:"notes"`
}

func (in rawRecordInput) toRawFields() record.RawFields {
	return record.RawFields{
		ProteinName:  in.ProteinName,
		Uniprot:      in.Uniprot,
		PDB:          in.PDB,
		Sequence:     in.Sequence,
		SequenceMass: in.SequenceMass,
		MeasuredMass: in.MeasuredMass,
		Native:       in.Native,
		SubunitCount: in.SubunitCount,
		OligomerType: in.OligomerType,
		Instrument:   in.Instrument,
		IMSType:      in.IMSType,
		DriftGas:     in.DriftGas,
		Polarity:     in.Polarity,
		PairCount:    len(in.Pairs),
		Pairs:        in.Pairs,
		Notes:        in.Notes,
	}
}

func runAdd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(addRecords)
	if err != nil {
		exitWithError(ExitError, "reading records file: %v", err)
	}
	var inputs []rawRecordInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		exitWithError(ExitDataError, "parsing records file: %v", err)
	}
	if len(inputs) == 0 {
		exitWithError(ExitDataError, "records file contains no measurements")
	}

	store, cfg := openStore()
	requireAuth(cfg)

	sess := session.New(store, cfg.CSVPath)
	ctx := context.Background()

	err = sess.SubmitDOI(ctx, session.PaperInput{
		DOI:             args[0],
		Title:           addTitle,
		Authors:         addAuthors,
		PublicationYear: addYear,
		Journal:         addJournal,
	})
	var verr *record.ValidationError
	if errors.As(err, &verr) {
		exitWithError(ExitDataError, "%v", verr)
	}
	if err != nil {
		exitWithError(ExitTransport, "checking DOI: %v", err)
	}

	if vm := sess.View(); humanOutput && len(vm.DuplicateRows) > 0 {
		fmt.Fprintf(os.Stderr, "warning: paper %s already has %d entries in the database\n",
			args[0], len(vm.DuplicateRows))
	}

	for i, in := range inputs {
		if err := sess.AddRecord(in.toRawFields()); err != nil {
			exitWithError(ExitDataError, "record %d: %v", i+1, err)
		}
	}
	if err := sess.FinishCollecting(); err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	if addDryRun {
		vm := sess.View()
		if humanOutput {
			outputHuman("Would commit %d rows for %s (%d measurements).\n",
				vm.PendingRows, args[0], len(vm.Batch))
			return nil
		}
		return outputJSON(vm)
	}

	res, err := sess.Commit(ctx)
	switch {
	case errors.Is(err, vstore.ErrConflict):
		exitWithError(ExitConflict, "commit conflict, nothing written; run the same command again: %v", err)
	case err != nil:
		exitWithError(ExitTransport, "commit failed, nothing written: %v", err)
	}

	if humanOutput {
		outputHuman("Committed %d rows (%d total in database, version %s).\n",
			res.Appended, res.Total, res.Token)
		return nil
	}
	return outputJSON(sess.View())
}
