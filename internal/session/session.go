// Package session drives a single data-entry session: DOI check,
// record accumulation, review, and a single atomic commit of the batch.
package session

import (
	"context"
	"fmt"

	"github.com/matsen/ccslog/internal/record"
	"github.com/matsen/ccslog/internal/table"
	"github.com/matsen/ccslog/internal/vstore"
)

// State is the workflow state tag.
type State string

const (
	StateIdle        State = "idle"
	StateCheckingDOI State = "checking_doi"
	StateCollecting  State = "collecting"
	StateReviewing   State = "reviewing"
	StateCommitting  State = "committing"
	StateDone        State = "done"
	StateError       State = "error"
)

// PaperInput carries the paper-level fields submitted with a DOI check.
type PaperInput struct {
	DOI             string
	Title           string
	Authors         string
	PublicationYear int
	Journal         string
}

// entry pairs a batch key with its measurement, preserving entry order.
type entry struct {
	key         string // normalized protein name
	measurement record.Measurement
}

// Session is the workflow value. All mutation goes through its methods;
// a session is owned by one caller and is not safe for concurrent use.
type Session struct {
	store *vstore.Store
	path  string

	state State
	paper record.Paper

	snapshot  *vstore.Snapshot
	duplicate []table.Row // existing rows for the checked DOI, if any

	batch []entry

	lastErr   error
	committed *vstore.CommitResult
}

// New creates an idle session against the given store path.
func New(store *vstore.Store, path string) *Session {
	return &Session{store: store, path: path, state: StateIdle}
}

// State returns the current workflow state.
func (s *Session) State() State { return s.state }

// Err returns the pending error surfaced by the last event, if any.
func (s *Session) Err() error { return s.lastErr }

// SubmitDOI checks the DOI format, reads the store, and runs the
// duplicate check. An invalid format keeps the session in CheckingDOI
// with a validation error; a known DOI is a warning only and the
// session still advances to Collecting.
func (s *Session) SubmitDOI(ctx context.Context, in PaperInput) error {
	if s.state != StateIdle && s.state != StateCheckingDOI {
		return s.fail(fmt.Errorf("cannot submit DOI in state %q", s.state))
	}
	s.state = StateCheckingDOI

	if !record.ValidateDOI(in.DOI) {
		s.lastErr = &record.ValidationError{Field: "doi", Message: "must match 10.<prefix>/<suffix>"}
		return s.lastErr
	}

	snap, err := s.store.Read(ctx, s.path)
	if err != nil {
		s.lastErr = err
		return err
	}

	s.snapshot = snap
	_, s.duplicate = table.Exists(snap.Rows, in.DOI)
	s.paper = record.Paper{
		DOI:             in.DOI,
		Title:           in.Title,
		Authors:         in.Authors,
		PublicationYear: in.PublicationYear,
		Journal:         in.Journal,
	}
	s.batch = nil
	s.lastErr = nil
	s.state = StateCollecting
	return nil
}

// AddRecord builds one measurement from raw fields and adds it to the
// batch. A record whose normalized protein name matches an existing
// batch entry replaces it in place (last write wins, order kept).
func (s *Session) AddRecord(raw record.RawFields) error {
	if s.state != StateCollecting {
		return s.fail(fmt.Errorf("cannot add records in state %q", s.state))
	}

	m, err := record.Build(raw)
	if err != nil {
		s.lastErr = err
		return err
	}

	key := record.NormalizeName(m.ProteinName)
	for i := range s.batch {
		if s.batch[i].key == key {
			s.batch[i].measurement = m
			s.lastErr = nil
			return nil
		}
	}
	s.batch = append(s.batch, entry{key: key, measurement: m})
	s.lastErr = nil
	return nil
}

// RemoveRecord drops a batch entry by protein name. Records are never
// edited in place; corrections are a removal plus re-entry.
func (s *Session) RemoveRecord(name string) error {
	if s.state != StateCollecting {
		return s.fail(fmt.Errorf("cannot remove records in state %q", s.state))
	}

	key := record.NormalizeName(name)
	for i := range s.batch {
		if s.batch[i].key == key {
			s.batch = append(s.batch[:i], s.batch[i+1:]...)
			s.lastErr = nil
			return nil
		}
	}
	s.lastErr = fmt.Errorf("no batch entry named %q", name)
	return s.lastErr
}

// FinishCollecting freezes the batch for review.
func (s *Session) FinishCollecting() error {
	if s.state != StateCollecting {
		return s.fail(fmt.Errorf("cannot finish collecting in state %q", s.state))
	}
	if len(s.batch) == 0 {
		s.lastErr = fmt.Errorf("batch is empty")
		return s.lastErr
	}
	s.lastErr = nil
	s.state = StateReviewing
	return nil
}

// Reopen returns a reviewing session to collecting so more records can
// be added.
func (s *Session) Reopen() error {
	if s.state != StateReviewing {
		return s.fail(fmt.Errorf("cannot reopen in state %q", s.state))
	}
	s.lastErr = nil
	s.state = StateCollecting
	return nil
}

// Commit materializes the batch into table rows and writes them through
// the versioned store as one append. On conflict exhaustion or a
// transport failure the batch is preserved unchanged and the session
// enters Error; Commit may be called again from there.
func (s *Session) Commit(ctx context.Context) (*vstore.CommitResult, error) {
	if s.state != StateReviewing && s.state != StateError {
		return nil, s.fail(fmt.Errorf("cannot commit in state %q", s.state))
	}
	s.state = StateCommitting

	res, err := s.store.Commit(ctx, s.path, s.snapshot, s.Rows())
	if err != nil {
		s.lastErr = err
		s.state = StateError
		return nil, err
	}

	s.committed = res
	s.snapshot = &vstore.Snapshot{Token: res.Token, Exists: true}
	s.batch = nil
	s.lastErr = nil
	s.state = StateDone
	return res, nil
}

// Abandon discards the batch and paper fields with no store side
// effects. It is not available once a commit attempt has started.
func (s *Session) Abandon() error {
	if s.state == StateCommitting {
		return fmt.Errorf("cannot abandon a commit in flight")
	}
	s.paper = record.Paper{}
	s.snapshot = nil
	s.duplicate = nil
	s.batch = nil
	s.lastErr = nil
	s.committed = nil
	s.state = StateIdle
	return nil
}

// Measurements returns the batch contents in entry order.
func (s *Session) Measurements() []record.Measurement {
	out := make([]record.Measurement, len(s.batch))
	for i, e := range s.batch {
		out[i] = e.measurement
	}
	return out
}

// Rows returns the persisted-shape rows the batch will commit:
// one row per (charge state, ccs value) pair.
func (s *Session) Rows() []table.Row {
	return table.Flatten(s.paper, s.Measurements())
}

func (s *Session) fail(err error) error {
	s.lastErr = err
	return err
}
