package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/models"
)

// newSQLiteTestStore opens a store against a fresh database file in a
// per-test temp dir, with migrations applied.
func newSQLiteTestStore(t *testing.T, retention int) *SQLiteStore {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "procledger.db"), retention, log)
	if err != nil {
		t.Fatalf("opening sqlite store: %v", err)
	}

	t.Cleanup(s.Close)

	return s
}

func TestSQLiteStore_CommitFlipsLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSQLiteTestStore(t, 0)

	if err := s.CommitVersion(ctx, testVersion("v1", "doc-1", 1)); err != nil {
		t.Fatalf("commit v1: %v", err)
	}

	if err := s.CommitVersion(ctx, testVersion("v2", "doc-1", 2)); err != nil {
		t.Fatalf("commit v2: %v", err)
	}

	latest, err := s.LatestVersion(ctx, "doc-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}

	if latest == nil || latest.ID != "v2" || !latest.IsLatest {
		t.Fatalf("latest = %+v, want v2 latest", latest)
	}

	prev, err := s.GetVersion(ctx, "v1")
	if err != nil {
		t.Fatalf("get v1: %v", err)
	}

	if prev.IsLatest {
		t.Fatal("v1 still flagged latest after committing v2")
	}
}

func TestSQLiteStore_VersionRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSQLiteTestStore(t, 0)

	in := testVersion("v1", "doc-1", 1)
	in.ChangeSummary = "1 change(s): 1 step(s) added"
	in.IsDraft = true
	in.DiffFromPrevious = &models.VersionDiff{
		VersionA: "v0",
		VersionB: "v1",
		Summary:  models.DiffSummary{TotalChanges: 1, Additions: 1, StepsAdded: 1},
	}

	if err := s.CommitVersion(ctx, in); err != nil {
		t.Fatalf("commit: %v", err)
	}

	out, err := s.GetVersion(ctx, "v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if out.Version != in.Version || out.VersionNumber != 1 || out.ChangeType != models.ChangeTypeMinor {
		t.Fatalf("version fields = %q/%d/%q, want %q/1/%q",
			out.Version, out.VersionNumber, out.ChangeType, in.Version, models.ChangeTypeMinor)
	}

	if !out.IsDraft {
		t.Error("is_draft not round-tripped")
	}

	if !out.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("created_at = %v, want %v", out.CreatedAt, in.CreatedAt)
	}

	if out.Snapshot == nil || len(out.Snapshot.Steps) != 1 || out.Snapshot.Steps[0].StepID != "s1" {
		t.Fatalf("snapshot = %+v, want one step s1", out.Snapshot)
	}

	if out.DiffFromPrevious == nil || out.DiffFromPrevious.Summary.StepsAdded != 1 {
		t.Fatalf("diff = %+v, want StepsAdded 1", out.DiffFromPrevious)
	}

	if _, err := s.GetVersion(ctx, "missing"); !errors.Is(err, models.ErrVersionNotFound) {
		t.Errorf("get missing = %v, want ErrVersionNotFound", err)
	}
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSQLiteTestStore(t, 0)

	for i := 1; i <= 3; i++ {
		if err := s.CommitVersion(ctx, testVersion(fmt.Sprintf("v%d", i), "doc-1", i)); err != nil {
			t.Fatalf("commit v%d: %v", i, err)
		}
	}

	versions, err := s.ListVersions(ctx, "doc-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(versions) != 3 {
		t.Fatalf("got %d versions, want 3", len(versions))
	}

	for i, want := range []string{"v3", "v2", "v1"} {
		if versions[i].ID != want {
			t.Errorf("versions[%d].ID = %q, want %q", i, versions[i].ID, want)
		}
	}
}

func TestSQLiteStore_LatestForUnknownDocument(t *testing.T) {
	t.Parallel()

	s := newSQLiteTestStore(t, 0)

	latest, err := s.LatestVersion(context.Background(), "nope")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}

	if latest != nil {
		t.Fatalf("latest = %+v, want nil for unknown document", latest)
	}
}

func TestSQLiteStore_DeleteVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSQLiteTestStore(t, 0)

	for i := 1; i <= 3; i++ {
		if err := s.CommitVersion(ctx, testVersion(fmt.Sprintf("v%d", i), "doc-1", i)); err != nil {
			t.Fatalf("commit v%d: %v", i, err)
		}
	}

	if err := s.DeleteVersion(ctx, "v3"); !errors.Is(err, models.ErrCannotDeleteLatest) {
		t.Fatalf("delete latest = %v, want ErrCannotDeleteLatest", err)
	}

	if err := s.DeleteVersion(ctx, "missing"); !errors.Is(err, models.ErrVersionNotFound) {
		t.Fatalf("delete missing = %v, want ErrVersionNotFound", err)
	}

	if err := s.DeleteVersion(ctx, "v1"); err != nil {
		t.Fatalf("delete v1: %v", err)
	}

	versions, err := s.ListVersions(ctx, "doc-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(versions) != 2 {
		t.Fatalf("got %d versions after delete, want 2", len(versions))
	}

	// Survivors keep their numbers; no renumbering.
	if versions[1].ID != "v2" || versions[1].VersionNumber != 2 {
		t.Fatalf("survivor = %s/#%d, want v2/#2", versions[1].ID, versions[1].VersionNumber)
	}
}

func TestSQLiteStore_AuditRetentionEvictsOldest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSQLiteTestStore(t, 5)

	for i := 1; i <= 8; i++ {
		entry := &models.AuditEntry{
			ID:        fmt.Sprintf("a%d", i),
			Action:    models.ActionView,
			Timestamp: time.Now().UTC(),
		}
		if err := s.RecordAudit(ctx, entry); err != nil {
			t.Fatalf("record a%d: %v", i, err)
		}
	}

	entries, total, err := s.QueryAudit(ctx, models.AuditQueryOpts{Limit: 100})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if total != 5 {
		t.Fatalf("total = %d, want 5 after eviction", total)
	}

	// Newest first: a8 down to a4.
	if entries[0].ID != "a8" || entries[len(entries)-1].ID != "a4" {
		t.Fatalf("got range %s..%s, want a8..a4", entries[0].ID, entries[len(entries)-1].ID)
	}
}

func TestSQLiteStore_AuditQueryFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSQLiteTestStore(t, 0)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := []models.AuditEntry{
		{ID: "a1", Action: models.ActionVersionCreate, DocumentID: "doc-1", UserID: "u1", Timestamp: base},
		{ID: "a2", Action: models.ActionView, DocumentID: "doc-1", UserID: "u2", Timestamp: base.Add(time.Minute)},
		{ID: "a3", Action: models.ActionVersionCreate, DocumentID: "doc-2", UserID: "u1", Timestamp: base.Add(2 * time.Minute)},
		{ID: "a4", Action: models.ActionDelete, DocumentID: "doc-1", UserID: "u1", Timestamp: base.Add(time.Hour)},
	}
	for i := range seed {
		if err := s.RecordAudit(ctx, &seed[i]); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	tests := []struct {
		name    string
		opts    models.AuditQueryOpts
		wantIDs []string
	}{
		{
			name:    "by document",
			opts:    models.AuditQueryOpts{DocumentID: "doc-1"},
			wantIDs: []string{"a4", "a2", "a1"},
		},
		{
			name:    "by action",
			opts:    models.AuditQueryOpts{Actions: []models.AuditAction{models.ActionVersionCreate}},
			wantIDs: []string{"a3", "a1"},
		},
		{
			name:    "by user",
			opts:    models.AuditQueryOpts{UserIDs: []string{"u2"}},
			wantIDs: []string{"a2"},
		},
		{
			name: "time window",
			opts: models.AuditQueryOpts{
				From: timePtr(base.Add(time.Minute)),
				To:   timePtr(base.Add(10 * time.Minute)),
			},
			wantIDs: []string{"a3", "a2"},
		},
		{
			name:    "pagination",
			opts:    models.AuditQueryOpts{Limit: 2, Offset: 1},
			wantIDs: []string{"a3", "a2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, _, err := s.QueryAudit(ctx, tt.opts)
			if err != nil {
				t.Fatalf("query: %v", err)
			}

			if len(entries) != len(tt.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.wantIDs))
			}

			for i, want := range tt.wantIDs {
				if entries[i].ID != want {
					t.Errorf("entries[%d].ID = %q, want %q", i, entries[i].ID, want)
				}
			}
		})
	}
}

// Stored timestamps carry fractional seconds while API filters arrive at
// second granularity; the text comparison must still place an entry at
// 12:00:00.5 inside a From=12:00:00 window.
func TestSQLiteStore_AuditDateFilterFractionalSeconds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSQLiteTestStore(t, 0)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	seed := []models.AuditEntry{
		{ID: "before", Action: models.ActionView, Timestamp: base.Add(-time.Second)},
		{ID: "boundary", Action: models.ActionView, Timestamp: base.Add(500 * time.Millisecond)},
		{ID: "after", Action: models.ActionView, Timestamp: base.Add(time.Minute).Add(250 * time.Millisecond)},
	}
	for i := range seed {
		if err := s.RecordAudit(ctx, &seed[i]); err != nil {
			t.Fatalf("record %s: %v", seed[i].ID, err)
		}
	}

	entries, total, err := s.QueryAudit(ctx, models.AuditQueryOpts{From: timePtr(base)})
	if err != nil {
		t.Fatalf("query from: %v", err)
	}

	if total != 2 || len(entries) != 2 {
		t.Fatalf("from filter: got %d/%d entries, want 2 (boundary + after)", len(entries), total)
	}

	if entries[0].ID != "after" || entries[1].ID != "boundary" {
		t.Fatalf("from filter: got %s,%s, want after,boundary", entries[0].ID, entries[1].ID)
	}

	entries, total, err = s.QueryAudit(ctx, models.AuditQueryOpts{
		From: timePtr(base),
		To:   timePtr(base.Add(time.Minute)),
	})
	if err != nil {
		t.Fatalf("query window: %v", err)
	}

	if total != 1 || len(entries) != 1 || entries[0].ID != "boundary" {
		t.Fatalf("window filter: got %d entries (total %d), want only boundary", len(entries), total)
	}
}

func TestSQLiteStore_AuditTimestampRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSQLiteTestStore(t, 0)

	ts := time.Date(2026, 1, 1, 12, 0, 0, 500_000_000, time.UTC)
	entry := &models.AuditEntry{
		ID:        "a1",
		Action:    models.ActionVersionCreate,
		Timestamp: ts,
		Success:   true,
		Metadata:  map[string]any{"change_type": "minor"},
	}

	if err := s.RecordAudit(ctx, entry); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, _, err := s.QueryAudit(ctx, models.AuditQueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	got := entries[0]
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, ts)
	}

	if !got.Success || got.Metadata["change_type"] != "minor" {
		t.Errorf("entry = %+v, want success with change_type metadata", got)
	}
}
