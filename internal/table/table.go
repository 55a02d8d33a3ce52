// Package table defines the persisted CSV shape of the shared
// collision cross-section database: one row per (paper, measurement,
// charge state, ccs value) tuple, optional fields as empty cells.
package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matsen/ccslog/internal/record"
)

// Header is the fixed column header of the persisted table.
// Column order is part of the on-disk contract.
var Header = []string{
	"doi",
	"title",
	"authors",
	"publication_year",
	"journal",
	"protein_name",
	"uniprot",
	"pdb",
	"sequence",
	"sequence_mass",
	"measured_mass",
	"native_measurement",
	"subunit_count",
	"oligomer_type",
	"instrument",
	"ims_type",
	"drift_gas",
	"polarity",
	"charge_state",
	"ccs_value",
	"notes",
}

// Row is one persisted table row.
type Row struct {
	DOI             string
	Title           string
	Authors         string
	PublicationYear int
	Journal         string

	ProteinName  string
	Uniprot      string
	PDB          string
	Sequence     string
	SequenceMass *float64
	MeasuredMass *float64
	Native       bool
	SubunitCount int
	OligomerType string

	Instrument string
	IMSType    string
	DriftGas   string
	Polarity   string

	ChargeState int
	CCSValue    float64
	Notes       string
}

// Flatten expands a paper plus its measurements into persisted rows,
// one row per (charge state, ccs value) pair, in measurement order.
func Flatten(paper record.Paper, measurements []record.Measurement) []Row {
	var rows []Row
	for _, m := range measurements {
		for _, p := range m.Pairs {
			rows = append(rows, Row{
				DOI:             paper.DOI,
				Title:           paper.Title,
				Authors:         paper.Authors,
				PublicationYear: paper.PublicationYear,
				Journal:         paper.Journal,
				ProteinName:     m.ProteinName,
				Uniprot:         m.Uniprot,
				PDB:             m.PDB,
				Sequence:        m.Sequence,
				SequenceMass:    m.SequenceMass,
				MeasuredMass:    m.MeasuredMass,
				Native:          m.Native,
				SubunitCount:    m.SubunitCount,
				OligomerType:    m.OligomerType,
				Instrument:      m.Instrument,
				IMSType:         m.IMSType,
				DriftGas:        m.DriftGas,
				Polarity:        m.Polarity,
				ChargeState:     p.ChargeState,
				CCSValue:        p.CCSValue,
				Notes:           m.Notes,
			})
		}
	}
	return rows
}

// Encode serializes rows as UTF-8 CSV text with the fixed header.
func Encode(rows []Row) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	for i, r := range rows {
		if err := w.Write(r.fields()); err != nil {
			return "", fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return buf.String(), nil
}

// Parse reads CSV text produced by Encode (or compatible tooling).
// Empty input and header-only input both yield no rows.
func Parse(content string) ([]Row, error) {
	content = strings.TrimLeft(content, "\ufeff")
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = len(Header)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, col := range Header {
		if i >= len(header) || header[i] != col {
			return nil, fmt.Errorf("unexpected header: want column %d to be %q", i+1, col)
		}
	}

	var rows []Row
	line := 1
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		line++
		row, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r Row) fields() []string {
	return []string{
		r.DOI,
		r.Title,
		r.Authors,
		formatInt(r.PublicationYear),
		r.Journal,
		r.ProteinName,
		r.Uniprot,
		r.PDB,
		r.Sequence,
		formatOptFloat(r.SequenceMass),
		formatOptFloat(r.MeasuredMass),
		formatBool(r.Native),
		formatInt(r.SubunitCount),
		r.OligomerType,
		r.Instrument,
		r.IMSType,
		r.DriftGas,
		r.Polarity,
		strconv.Itoa(r.ChargeState),
		strconv.FormatFloat(r.CCSValue, 'f', -1, 64),
		r.Notes,
	}
}

func parseRow(fields []string) (Row, error) {
	year, err := parseOptInt(fields[3], "publication_year")
	if err != nil {
		return Row{}, err
	}
	seqMass, err := parseOptFloat(fields[9], "sequence_mass")
	if err != nil {
		return Row{}, err
	}
	measMass, err := parseOptFloat(fields[10], "measured_mass")
	if err != nil {
		return Row{}, err
	}
	subunits, err := parseOptInt(fields[12], "subunit_count")
	if err != nil {
		return Row{}, err
	}
	charge, err := parseOptInt(fields[18], "charge_state")
	if err != nil {
		return Row{}, err
	}

	var ccs float64
	if s := strings.TrimSpace(fields[19]); s != "" {
		ccs, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return Row{}, fmt.Errorf("parsing ccs_value %q: %w", s, err)
		}
	}

	return Row{
		DOI:             fields[0],
		Title:           fields[1],
		Authors:         fields[2],
		PublicationYear: year,
		Journal:         fields[4],
		ProteinName:     fields[5],
		Uniprot:         fields[6],
		PDB:             fields[7],
		Sequence:        fields[8],
		SequenceMass:    seqMass,
		MeasuredMass:    measMass,
		Native:          fields[11] == "true",
		SubunitCount:    subunits,
		OligomerType:    fields[13],
		Instrument:      fields[14],
		IMSType:         fields[15],
		DriftGas:        fields[16],
		Polarity:        fields[17],
		ChargeState:     charge,
		CCSValue:        ccs,
		Notes:           fields[20],
	}, nil
}

func formatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseOptInt(s, field string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return v, nil
}

func parseOptFloat(s, field string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return &v, nil
}
