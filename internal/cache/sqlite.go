// Package cache mirrors a store snapshot into an ephemeral SQLite
// database so browse and stats queries don't rescan the CSV. The CSV on
// the content host stays canonical; the cache is rebuilt from each
// fresh snapshot and never written back.
package cache

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/matsen/ccslog/internal/table"
)

// Cache wraps the ephemeral database handle.
type Cache struct {
	db *sql.DB
}

const measurementsDDL = `CREATE TABLE IF NOT EXISTS measurements (
  doi TEXT,
  title TEXT,
  authors TEXT,
  publication_year INTEGER,
  journal TEXT,
  protein_name TEXT,
  uniprot TEXT,
  pdb TEXT,
  sequence TEXT,
  sequence_mass REAL,
  measured_mass REAL,
  native_measurement INTEGER,
  subunit_count INTEGER,
  oligomer_type TEXT,
  instrument TEXT,
  ims_type TEXT,
  drift_gas TEXT,
  polarity TEXT,
  charge_state INTEGER,
  ccs_value REAL,
  notes TEXT
)`

// Open opens (or creates) a cache database at path. Use ":memory:" for
// a throwaway cache.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(measurementsDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating measurements table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_measurements_doi ON measurements(doi)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating doi index: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Rebuild clears the cache and loads the given rows.
func (c *Cache) Rebuild(rows []table.Row) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM measurements"); err != nil {
		return fmt.Errorf("clearing measurements: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO measurements VALUES
		(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		native := 0
		if r.Native {
			native = 1
		}
		_, err := stmt.Exec(
			r.DOI, r.Title, r.Authors, nullableInt(r.PublicationYear), r.Journal,
			r.ProteinName, r.Uniprot, r.PDB, r.Sequence,
			nullableFloat(r.SequenceMass), nullableFloat(r.MeasuredMass),
			native, nullableInt(r.SubunitCount), r.OligomerType,
			r.Instrument, r.IMSType, r.DriftGas, r.Polarity,
			r.ChargeState, r.CCSValue, r.Notes,
		)
		if err != nil {
			return fmt.Errorf("inserting row %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

// Filter selects rows matching the non-zero criteria.
type Filter struct {
	DOI        string
	Journal    string
	DriftGas   string
	Instrument string
	Protein    string
	YearFrom   int
	YearTo     int
}

// ResultRow is one query result in persisted-column terms.
type ResultRow struct {
	DOI             string  `json:"doi"`
	Title           string  `json:"title"`
	PublicationYear int     `json:"publication_year,omitempty"`
	Journal         string  `json:"journal,omitempty"`
	ProteinName     string  `json:"protein_name"`
	Instrument      string  `json:"instrument,omitempty"`
	DriftGas        string  `json:"drift_gas,omitempty"`
	ChargeState     int     `json:"charge_state"`
	CCSValue        float64 `json:"ccs_value"`
}

// Query returns the cached rows matching the filter, in insertion order.
func (c *Cache) Query(f Filter) ([]ResultRow, error) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if f.DOI != "" {
		add("doi = ? COLLATE NOCASE", f.DOI)
	}
	if f.Journal != "" {
		add("journal = ? COLLATE NOCASE", f.Journal)
	}
	if f.DriftGas != "" {
		add("drift_gas = ? COLLATE NOCASE", f.DriftGas)
	}
	if f.Instrument != "" {
		add("instrument = ? COLLATE NOCASE", f.Instrument)
	}
	if f.Protein != "" {
		add("protein_name = ? COLLATE NOCASE", f.Protein)
	}
	if f.YearFrom != 0 {
		add("publication_year >= ?", f.YearFrom)
	}
	if f.YearTo != 0 {
		add("publication_year <= ?", f.YearTo)
	}

	query := `SELECT doi, title, publication_year, journal, protein_name,
		instrument, drift_gas, charge_state, ccs_value FROM measurements`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cache: %w", err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		var year sql.NullInt64
		if err := rows.Scan(&r.DOI, &r.Title, &year, &r.Journal, &r.ProteinName,
			&r.Instrument, &r.DriftGas, &r.ChargeState, &r.CCSValue); err != nil {
			return nil, err
		}
		r.PublicationYear = int(year.Int64)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats summarizes the cached table.
type Stats struct {
	Rows           int `json:"rows"`
	UniquePapers   int `json:"unique_papers"`
	UniqueProteins int `json:"unique_proteins"`
}

// Stats computes summary counts over the cache.
func (c *Cache) Stats() (*Stats, error) {
	var s Stats
	row := c.db.QueryRow(`SELECT COUNT(*),
		COUNT(DISTINCT doi),
		COUNT(DISTINCT protein_name) FROM measurements`)
	if err := row.Scan(&s.Rows, &s.UniquePapers, &s.UniqueProteins); err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}
	return &s, nil
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
