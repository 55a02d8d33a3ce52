package cache

import (
	"path/filepath"
	"testing"

	"github.com/matsen/ccslog/internal/record"
	"github.com/matsen/ccslog/internal/table"
)

func testRows(t *testing.T) []table.Row {
	t.Helper()
	paperA := record.Paper{DOI: "10.1021/abc123", Title: "Paper A", PublicationYear: 2018, Journal: "Anal. Chem."}
	paperB := record.Paper{DOI: "10.9999/xyz", Title: "Paper B", PublicationYear: 2021, Journal: "JASMS"}

	rows := table.Flatten(paperA, []record.Measurement{
		{
			ProteinName: "Ubiquitin", Instrument: "Agilent 6560", IMSType: "DTIMS",
			DriftGas: "He", Polarity: "positive",
			Pairs: []record.CCSPair{{ChargeState: 6, CCSValue: 980.1}, {ChargeState: 7, CCSValue: 1004.5}},
		},
	})
	rows = append(rows, table.Flatten(paperB, []record.Measurement{
		{
			ProteinName: "Myoglobin", Instrument: "Synapt G2", IMSType: "TWIMS",
			DriftGas: "N2", Polarity: "positive",
			Pairs: []record.CCSPair{{ChargeState: 8, CCSValue: 1890.0}},
		},
	})...)
	return rows
}

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "ccs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	if err := c.Rebuild(testRows(t)); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return c
}

func TestRebuildAndStats(t *testing.T) {
	c := openTestCache(t)

	s, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if s.Rows != 3 || s.UniquePapers != 2 || s.UniqueProteins != 2 {
		t.Errorf("stats = %+v", s)
	}

	// Rebuild replaces, never accumulates.
	if err := c.Rebuild(testRows(t)); err != nil {
		t.Fatalf("Rebuild (second): %v", err)
	}
	s, err = c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if s.Rows != 3 {
		t.Errorf("rows after second rebuild = %d, want 3", s.Rows)
	}
}

func TestQueryFilters(t *testing.T) {
	c := openTestCache(t)

	got, err := c.Query(Filter{DOI: "10.1021/ABC123"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("doi filter rows = %d, want 2", len(got))
	}
	if got[0].ChargeState != 6 || got[1].ChargeState != 7 {
		t.Errorf("rows out of order: %+v", got)
	}

	got, err = c.Query(Filter{DriftGas: "n2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ProteinName != "Myoglobin" {
		t.Errorf("drift gas filter = %+v", got)
	}

	got, err = c.Query(Filter{YearFrom: 2019, YearTo: 2022})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].DOI != "10.9999/xyz" {
		t.Errorf("year filter = %+v", got)
	}

	got, err = c.Query(Filter{Journal: "Nature"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("unmatched filter = %+v", got)
	}
}

func TestQueryNoFilterReturnsAll(t *testing.T) {
	c := openTestCache(t)

	got, err := c.Query(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("rows = %d, want 3", len(got))
	}
}
