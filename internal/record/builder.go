package record

import (
	"fmt"
	"strings"
)

// NormalizeName canonicalizes a protein name for batch keying:
// trimmed and lowercased. Display values keep their original form.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Build normalizes one raw field set into a canonical Measurement.
// It is a pure transformation: no store or network access.
func Build(raw RawFields) (Measurement, error) {
	name := strings.TrimSpace(raw.ProteinName)
	if name == "" {
		return Measurement{}, &ValidationError{Field: "protein_name", Message: "must not be empty"}
	}

	if raw.PairCount != len(raw.Pairs) {
		return Measurement{}, &ValidationError{
			Field:   "ccs_pairs",
			Message: fmt.Sprintf("declared %d values but supplied %d", raw.PairCount, len(raw.Pairs)),
		}
	}

	instrument, err := resolveChoice("instrument", raw.Instrument)
	if err != nil {
		return Measurement{}, err
	}
	driftGas, err := resolveChoice("drift_gas", raw.DriftGas)
	if err != nil {
		return Measurement{}, err
	}

	m := Measurement{
		ProteinName:  name,
		Uniprot:      strings.TrimSpace(raw.Uniprot),
		PDB:          strings.TrimSpace(raw.PDB),
		Sequence:     strings.TrimSpace(raw.Sequence),
		Native:       raw.Native,
		SubunitCount: raw.SubunitCount,
		Instrument:   instrument,
		IMSType:      strings.TrimSpace(raw.IMSType),
		DriftGas:     driftGas,
		Polarity:     strings.TrimSpace(raw.Polarity),
		Pairs:        append([]CCSPair(nil), raw.Pairs...),
		Notes:        strings.TrimSpace(raw.Notes),
	}

	// Non-positive masses mean "not measured", never zero.
	if raw.SequenceMass > 0 {
		v := raw.SequenceMass
		m.SequenceMass = &v
	}
	if raw.MeasuredMass > 0 {
		v := raw.MeasuredMass
		m.MeasuredMass = &v
	}

	// Oligomer type is meaningful only for multimers.
	if raw.SubunitCount > 1 {
		ot := strings.TrimSpace(raw.OligomerType)
		if ot == "" {
			return Measurement{}, &ValidationError{
				Field:   "oligomer_type",
				Message: fmt.Sprintf("required when subunit_count is %d", raw.SubunitCount),
			}
		}
		m.OligomerType = ot
	}

	return m, nil
}

// resolveChoice collapses a categorical field to its final string.
// The "Other" sentinel never survives into a Measurement.
func resolveChoice(field string, c Choice) (string, error) {
	opt := strings.TrimSpace(c.Option)
	if opt != OtherOption {
		return opt, nil
	}
	free := strings.TrimSpace(c.FreeText)
	if free == "" {
		return "", &ValidationError{Field: field, Message: `"Other" selected but no value entered`}
	}
	return free, nil
}
