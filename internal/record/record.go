// Package record defines the core domain types for collision cross-section
// measurements and the validation rules for turning raw form input into
// canonical records.
package record

// Paper identifies the source publication a set of measurements was
// extracted from. One Paper per DOI; immutable within a session.
type Paper struct {
	DOI             string `json:"doi"`
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	PublicationYear int    `json:"publication_year"`
	Journal         string `json:"journal"`
}

// CCSPair is a single collision cross-section value at a given charge state.
type CCSPair struct {
	ChargeState int     `json:"charge_state"`
	CCSValue    float64 `json:"ccs_value"` // Å²
}

// Measurement is one canonical protein measurement. Once built it is never
// mutated; corrections require removal and re-entry.
type Measurement struct {
	ProteinName string `json:"protein_name"`

	// Optional identifiers
	Uniprot  string `json:"uniprot,omitempty"`
	PDB      string `json:"pdb,omitempty"`
	Sequence string `json:"sequence,omitempty"`

	// Optional masses in Da; nil when not supplied
	SequenceMass *float64 `json:"sequence_mass,omitempty"`
	MeasuredMass *float64 `json:"measured_mass,omitempty"`

	Native       bool   `json:"native_measurement"`
	SubunitCount int    `json:"subunit_count"`
	OligomerType string `json:"oligomer_type,omitempty"` // set only when SubunitCount > 1

	Instrument string `json:"instrument"`
	IMSType    string `json:"ims_type"`
	DriftGas   string `json:"drift_gas"`
	Polarity   string `json:"polarity"`

	Pairs []CCSPair `json:"pairs"`
	Notes string    `json:"notes,omitempty"`
}

// OtherOption is the sentinel selection that redirects a categorical field
// to its free-text value.
const OtherOption = "Other"

// Choice is a categorical form field that either carries an enumerated
// option or, when the option is OtherOption, a free-text override.
type Choice struct {
	Option   string `json:"option"`
	FreeText string `json:"free_text,omitempty"`
}

// RawFields is the unvalidated field set collected for one measurement.
type RawFields struct {
	ProteinName string

	Uniprot  string
	PDB      string
	Sequence string

	SequenceMass float64 // ≤ 0 means not supplied
	MeasuredMass float64 // ≤ 0 means not supplied

	Native       bool
	SubunitCount int
	OligomerType string

	Instrument Choice
	IMSType    string
	DriftGas   Choice
	Polarity   string

	PairCount int
	Pairs     []CCSPair
	Notes     string
}

// ValidationError reports a structurally invalid field on raw input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}
