package vstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/matsen/ccslog/internal/record"
	"github.com/matsen/ccslog/internal/table"
)

// fakeHost is an in-memory ContentHost with token-checked writes.
type fakeHost struct {
	mu      sync.Mutex
	files   map[string]fakeFile
	nextVer int

	// failFetch and failWrite inject transport failures.
	failFetch error
	failWrite error
	// beforeWrite runs under the lock before each write attempt,
	// letting tests interleave a competing commit.
	beforeWrite func()
}

type fakeFile struct {
	content string
	token   string
}

func newFakeHost() *fakeHost {
	return &fakeHost{files: make(map[string]fakeFile)}
}

func (h *fakeHost) newToken() string {
	h.nextVer++
	return fmt.Sprintf("v%d", h.nextVer)
}

func (h *fakeHost) Fetch(ctx context.Context, path string) (string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failFetch != nil {
		return "", "", h.failFetch
	}
	f, ok := h.files[path]
	if !ok {
		return "", "", ErrNotFound
	}
	return f.content, f.token, nil
}

func (h *fakeHost) Create(ctx context.Context, path, content string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.beforeWrite != nil {
		h.beforeWrite()
	}
	if h.failWrite != nil {
		return "", h.failWrite
	}
	if _, ok := h.files[path]; ok {
		return "", ErrVersionConflict
	}
	token := h.newToken()
	h.files[path] = fakeFile{content: content, token: token}
	return token, nil
}

func (h *fakeHost) Update(ctx context.Context, path, content, expectedToken string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.beforeWrite != nil {
		h.beforeWrite()
	}
	if h.failWrite != nil {
		return "", h.failWrite
	}
	f, ok := h.files[path]
	if !ok {
		return "", ErrNotFound
	}
	if f.token != expectedToken {
		return "", ErrVersionConflict
	}
	token := h.newToken()
	h.files[path] = fakeFile{content: content, token: token}
	return token, nil
}

// write stores content directly, bypassing the token check.
func (h *fakeHost) write(path, content string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	token := h.newToken()
	h.files[path] = fakeFile{content: content, token: token}
	return token
}

func testRows(protein string, pairs ...record.CCSPair) []table.Row {
	paper := record.Paper{
		DOI:             "10.1021/abc123",
		Title:           "Test paper",
		Authors:         "Smith, J.",
		PublicationYear: 2020,
		Journal:         "Anal. Chem.",
	}
	m := record.Measurement{
		ProteinName: protein,
		Instrument:  "Synapt G2",
		IMSType:     "TWIMS",
		DriftGas:    "N2",
		Polarity:    "positive",
		Pairs:       pairs,
	}
	return table.Flatten(paper, []record.Measurement{m})
}

const path = "data/collision_cross_sections.csv"

func TestReadMissingFile(t *testing.T) {
	s := New(newFakeHost(), WithBackoff(0))

	snap, err := s.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if snap.Exists {
		t.Error("missing file should read as Exists=false")
	}
	if len(snap.Rows) != 0 || snap.Token != "" {
		t.Errorf("snapshot = %+v, want empty with no token", snap)
	}
}

func TestReadEmptyExistingFile(t *testing.T) {
	host := newFakeHost()
	header, err := table.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	host.write(path, header)
	s := New(host, WithBackoff(0))

	snap, err := s.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !snap.Exists || snap.Token == "" {
		t.Errorf("empty existing file should have a token: %+v", snap)
	}
	if len(snap.Rows) != 0 {
		t.Errorf("rows = %d, want 0", len(snap.Rows))
	}
}

func TestCommitCreatesMissingFile(t *testing.T) {
	host := newFakeHost()
	s := New(host, WithBackoff(0))
	ctx := context.Background()

	snap, err := s.Read(ctx, path)
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Commit(ctx, path, snap, testRows("ProteinA", record.CCSPair{ChargeState: 1, CCSValue: 1500.25}))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Appended != 1 || res.Total != 1 || res.Token == "" {
		t.Errorf("result = %+v", res)
	}

	after, err := s.Read(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(after.Rows))
	}
	got := after.Rows[0]
	if got.DOI != "10.1021/abc123" || got.ProteinName != "ProteinA" || got.ChargeState != 1 || got.CCSValue != 1500.25 {
		t.Errorf("row = %+v", got)
	}
}

func TestCommitAppendsWithoutRewritingBase(t *testing.T) {
	host := newFakeHost()
	s := New(host, WithBackoff(0))
	ctx := context.Background()

	base, err := s.Read(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(ctx, path, base, testRows("ProteinA",
		record.CCSPair{ChargeState: 1, CCSValue: 1500.25},
		record.CCSPair{ChargeState: 2, CCSValue: 1600.10})); err != nil {
		t.Fatal(err)
	}

	before, err := s.Read(ctx, path)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Commit(ctx, path, before, testRows("ProteinB", record.CCSPair{ChargeState: 1, CCSValue: 900.0})); err != nil {
		t.Fatal(err)
	}

	after, err := s.Read(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(after.Rows))
	}
	// Original rows unchanged and in order.
	for i, r := range before.Rows {
		if after.Rows[i] != r {
			t.Errorf("row %d rewritten: %+v != %+v", i, after.Rows[i], r)
		}
	}
}

func TestCommitRetriesOnConflict(t *testing.T) {
	host := newFakeHost()
	s := New(host, WithBackoff(0))
	ctx := context.Background()

	// Both sessions read the same empty-store state.
	snapA, _ := s.Read(ctx, path)
	snapB, _ := s.Read(ctx, path)

	if _, err := s.Commit(ctx, path, snapA, testRows("ProteinA", record.CCSPair{ChargeState: 1, CCSValue: 1500.25})); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	// Second session commits against its stale snapshot; the create
	// conflicts, gets rebased onto v1, and succeeds.
	res, err := s.Commit(ctx, path, snapB, testRows("ProteinB", record.CCSPair{ChargeState: 1, CCSValue: 900.0}))
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Total)
	}

	final, err := s.Read(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(final.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(final.Rows))
	}
	names := []string{final.Rows[0].ProteinName, final.Rows[1].ProteinName}
	if names[0] != "ProteinA" || names[1] != "ProteinB" {
		t.Errorf("proteins = %v", names)
	}
}

func TestCommitRebasesOntoInterleavedWriter(t *testing.T) {
	host := newFakeHost()
	s := New(host, WithBackoff(0))
	ctx := context.Background()

	base, _ := s.Read(ctx, path)
	if _, err := s.Commit(ctx, path, base, testRows("ProteinA", record.CCSPair{ChargeState: 1, CCSValue: 1500.25})); err != nil {
		t.Fatal(err)
	}

	session, _ := s.Read(ctx, path) // token v1

	// A competing writer advances the file right before our first
	// attempt, exactly once.
	interleaved := false
	host.beforeWrite = func() {
		if interleaved {
			return
		}
		interleaved = true
		f := host.files[path]
		rows, _ := table.Parse(f.content)
		rows = append(rows, testRows("ProteinX", record.CCSPair{ChargeState: 3, CCSValue: 2100.0})...)
		content, _ := table.Encode(rows)
		token := host.newToken()
		host.files[path] = fakeFile{content: content, token: token}
	}

	res, err := s.Commit(ctx, path, session, testRows("ProteinB", record.CCSPair{ChargeState: 1, CCSValue: 900.0}))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("Total = %d, want 3", res.Total)
	}

	final, _ := s.Read(ctx, path)
	var names []string
	for _, r := range final.Rows {
		names = append(names, r.ProteinName)
	}
	want := []string{"ProteinA", "ProteinX", "ProteinB"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("proteins = %v, want %v", names, want)
		}
	}
}

func TestCommitConflictExhaustion(t *testing.T) {
	host := newFakeHost()
	s := New(host, WithBackoff(0), WithMaxAttempts(3))
	ctx := context.Background()

	base, _ := s.Read(ctx, path)
	if _, err := s.Commit(ctx, path, base, testRows("ProteinA", record.CCSPair{ChargeState: 1, CCSValue: 1500.25})); err != nil {
		t.Fatal(err)
	}

	// Every attempt loses the race: a competing writer bumps the token
	// before each of our writes.
	host.beforeWrite = func() {
		f := host.files[path]
		host.files[path] = fakeFile{content: f.content, token: host.newToken()}
	}

	stale, _ := s.Read(ctx, path)
	// Invalidate immediately so even the freshly read token is stale.
	_, err := s.Commit(ctx, path, stale, testRows("ProteinB", record.CCSPair{ChargeState: 1, CCSValue: 900.0}))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestCommitTransportError(t *testing.T) {
	host := newFakeHost()
	s := New(host, WithBackoff(0))
	ctx := context.Background()

	base, _ := s.Read(ctx, path)
	host.failWrite = errors.New("connection reset")

	_, err := s.Commit(ctx, path, base, testRows("ProteinA", record.CCSPair{ChargeState: 1, CCSValue: 1500.25}))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}

	// Nothing was persisted.
	host.failWrite = nil
	snap, _ := s.Read(ctx, path)
	if snap.Exists {
		t.Error("failed commit must not leave a partial write")
	}
}

func TestCommitEmptyBatchRejected(t *testing.T) {
	s := New(newFakeHost(), WithBackoff(0))
	if _, err := s.Commit(context.Background(), path, &Snapshot{}, nil); err == nil {
		t.Error("expected error for empty batch")
	}
}
