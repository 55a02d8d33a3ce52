package main

import (
	"context"

	"github.com/matsen/ccslog/internal/cache"
	"github.com/spf13/cobra"
)

var (
	listDOI        string
	listJournal    string
	listGas        string
	listInstrument string
	listProtein    string
	listYearFrom   int
	listYearTo     int
)

func init() {
	listCmd.Flags().StringVar(&listDOI, "doi", "", "Filter by DOI")
	listCmd.Flags().StringVar(&listJournal, "journal", "", "Filter by journal")
	listCmd.Flags().StringVar(&listGas, "gas", "", "Filter by drift gas")
	listCmd.Flags().StringVar(&listInstrument, "instrument", "", "Filter by instrument")
	listCmd.Flags().StringVar(&listProtein, "protein", "", "Filter by protein name")
	listCmd.Flags().IntVar(&listYearFrom, "year-from", 0, "Earliest publication year")
	listCmd.Flags().IntVar(&listYearTo, "year-to", 0, "Latest publication year")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List database entries, optionally filtered",
	Long: `List database entries, optionally filtered.

The current table is fetched and mirrored into a throwaway local SQLite
database for querying; the shared CSV stays canonical.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the database",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

// loadCache fetches the current snapshot and mirrors it locally.
func loadCache() *cache.Cache {
	store, cfg := openStore()
	snap, err := store.Read(context.Background(), cfg.CSVPath)
	if err != nil {
		exitWithError(ExitTransport, "reading database: %v", err)
	}

	c, err := cache.Open(":memory:")
	if err != nil {
		exitWithError(ExitError, "opening cache: %v", err)
	}
	if err := c.Rebuild(snap.Rows); err != nil {
		exitWithError(ExitError, "building cache: %v", err)
	}
	return c
}

func runList(cmd *cobra.Command, args []string) error {
	c := loadCache()
	defer c.Close()

	rows, err := c.Query(cache.Filter{
		DOI:        listDOI,
		Journal:    listJournal,
		DriftGas:   listGas,
		Instrument: listInstrument,
		Protein:    listProtein,
		YearFrom:   listYearFrom,
		YearTo:     listYearTo,
	})
	if err != nil {
		exitWithError(ExitError, "querying: %v", err)
	}

	if humanOutput {
		for _, r := range rows {
			outputHuman("%-24s %-30s z=%-3d %8.2f Å²  %s\n",
				r.DOI, r.ProteinName, r.ChargeState, r.CCSValue, r.Journal)
		}
		outputHuman("%d rows\n", len(rows))
		return nil
	}
	return outputJSON(rows)
}

func runStats(cmd *cobra.Command, args []string) error {
	c := loadCache()
	defer c.Close()

	s, err := c.Stats()
	if err != nil {
		exitWithError(ExitError, "computing stats: %v", err)
	}

	if humanOutput {
		outputHuman("rows: %d\npapers: %d\nproteins: %d\n", s.Rows, s.UniquePapers, s.UniqueProteins)
		return nil
	}
	return outputJSON(s)
}
