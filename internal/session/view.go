package session

import (
	"github.com/matsen/ccslog/internal/record"
	"github.com/matsen/ccslog/internal/table"
)

// ViewModel is the renderable description of a session after an event.
// Rendering is up to the caller; the workflow only reports state.
type ViewModel struct {
	State State        `json:"state"`
	Paper record.Paper `json:"paper,omitempty"`

	// Batch entries in order, plus the rows a commit would write.
	Batch       []record.Measurement `json:"batch,omitempty"`
	PendingRows int                  `json:"pending_rows"`

	// DuplicateRows holds the existing store rows for the checked DOI.
	// Non-empty means "this paper is already in the database" — a
	// warning, not an error.
	DuplicateRows []table.Row `json:"duplicate_rows,omitempty"`

	Error string `json:"error,omitempty"`

	// Committed is set once the batch has been persisted.
	Committed *CommitSummary `json:"committed,omitempty"`
}

// CommitSummary reports a successful commit on the view model.
type CommitSummary struct {
	Token    string `json:"token"`
	Appended int    `json:"appended"`
	Total    int    `json:"total"`
}

// View builds the current view model.
func (s *Session) View() ViewModel {
	vm := ViewModel{
		State:         s.state,
		Paper:         s.paper,
		Batch:         s.Measurements(),
		PendingRows:   len(s.Rows()),
		DuplicateRows: s.duplicate,
	}
	if s.lastErr != nil {
		vm.Error = s.lastErr.Error()
	}
	if s.committed != nil {
		vm.Committed = &CommitSummary{
			Token:    s.committed.Token,
			Appended: s.committed.Appended,
			Total:    s.committed.Total,
		}
	}
	return vm
}
