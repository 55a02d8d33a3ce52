// Package vstore provides a versioned append-only view of a CSV table
// hosted on a remote content host, with optimistic-concurrency commits.
package vstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matsen/ccslog/internal/table"
)

// ContentHost is the hosting-side contract the store is built on.
// The version token is opaque; the store only ever passes it back to
// Update unchanged.
//
// Implementations signal a missing file from Fetch with ErrNotFound and
// a stale expectedToken from Update (or a create racing an existing
// file) with ErrVersionConflict. Any other failure is treated as a
// transport problem.
type ContentHost interface {
	Fetch(ctx context.Context, path string) (content, token string, err error)
	Create(ctx context.Context, path, content string) (token string, err error)
	Update(ctx context.Context, path, content, expectedToken string) (token string, err error)
}

// Contract errors returned by ContentHost implementations.
var (
	ErrNotFound        = errors.New("file not found")
	ErrVersionConflict = errors.New("version token mismatch")
)

// Errors returned by the store itself.
var (
	// ErrConflict means the retry bound was exhausted; the caller's rows
	// were not persisted and may be committed again later.
	ErrConflict = errors.New("commit conflict: retries exhausted")
	// ErrTransport wraps host failures other than version conflicts.
	ErrTransport = errors.New("content host error")
)

const (
	// DefaultMaxAttempts bounds conditional-write attempts per commit.
	DefaultMaxAttempts = 3
	// DefaultBackoff is the pause between conflicting attempts.
	DefaultBackoff = 500 * time.Millisecond
)

// Snapshot is a point-in-time read of the persisted table. Exists
// distinguishes a missing file from an empty one: only an existing file
// carries a version token.
type Snapshot struct {
	Rows   []table.Row
	Token  string
	Exists bool
}

// CommitResult reports a successful commit.
type CommitResult struct {
	Token    string // new version token
	Appended int    // rows written
	Total    int    // rows now in the table
}

// Store reads and commits table snapshots through a ContentHost.
type Store struct {
	host        ContentHost
	maxAttempts int
	backoff     time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxAttempts overrides the commit retry bound.
func WithMaxAttempts(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff overrides the pause between conflicting commit attempts.
func WithBackoff(d time.Duration) StoreOption {
	return func(s *Store) {
		s.backoff = d
	}
}

// New creates a Store backed by the given host.
func New(host ContentHost, opts ...StoreOption) *Store {
	s := &Store{
		host:        host,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read fetches the current table and its version token. A file that
// does not exist yet reads as an empty table with no token.
func (s *Store) Read(ctx context.Context, path string) (*Snapshot, error) {
	content, token, err := s.host.Fetch(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Snapshot{}, nil
		}
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrTransport, path, err)
	}

	rows, err := table.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrTransport, path, err)
	}
	return &Snapshot{Rows: rows, Token: token, Exists: true}, nil
}

// Commit appends newRows to the table, conditioned on base still being
// current. On a version conflict it re-fetches the latest snapshot,
// recomputes the append against it, and tries again up to the retry
// bound. The append is purely additive, so recomputing it commutes with
// whatever concurrent writers committed in between: a successful commit
// always means "newRows added, in order, after the true latest rows".
func (s *Store) Commit(ctx context.Context, path string, base *Snapshot, newRows []table.Row) (*CommitResult, error) {
	if len(newRows) == 0 {
		return nil, errors.New("empty batch")
	}

	snap := base
	for attempt := 1; ; attempt++ {
		merged := make([]table.Row, 0, len(snap.Rows)+len(newRows))
		merged = append(merged, snap.Rows...)
		merged = append(merged, newRows...)

		content, err := table.Encode(merged)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding table: %v", ErrTransport, err)
		}

		var token string
		if snap.Exists {
			token, err = s.host.Update(ctx, path, content, snap.Token)
		} else {
			token, err = s.host.Create(ctx, path, content)
		}
		if err == nil {
			return &CommitResult{Token: token, Appended: len(newRows), Total: len(merged)}, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("%w: writing %s: %v", ErrTransport, path, err)
		}
		if attempt >= s.maxAttempts {
			return nil, fmt.Errorf("%w after %d attempts", ErrConflict, attempt)
		}

		if s.backoff > 0 {
			select {
			case <-time.After(s.backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
			}
		}

		// Another writer advanced the file; rebase onto its result.
		snap, err = s.Read(ctx, path)
		if err != nil {
			return nil, err
		}
	}
}
