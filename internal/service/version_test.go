package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/diff"
	"github.com/procledger/procledger/internal/models"
	"github.com/procledger/procledger/internal/store"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func sampleDocument() *models.Document {
	return &models.Document{
		ID:          "doc-1",
		Name:        "Invoice intake",
		Description: "How invoices enter the system",
		Status:      "published",
		Priority:    "high",
		Department:  "finance",
		Steps: []models.Step{
			{
				StepID:           "s1",
				Name:             "Receive invoice",
				ShortDescription: "Collect the invoice from the shared inbox",
			},
			{
				StepID:           "s2",
				Name:             "Validate totals",
				ShortDescription: "Check line items against the purchase order",
			},
		},
	}
}

func newTestVersionService(audit AuditSink, events EventPublisher) *VersionService {
	return NewVersionService(store.NewMemoryVersionStore(), diff.NewEngine(), audit, events, testLogger())
}

func TestSave_FirstVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := &mockAuditSink{}
	pub := &mockPublisher{}
	svc := newTestVersionService(sink, pub)

	v, err := svc.Save(ctx, sampleDocument(), "initial draft of the intake process", models.ChangeTypeMinor, "alice")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if v.Version != "0.1.0" {
		t.Errorf("version = %q, want 0.1.0", v.Version)
	}
	if v.VersionNumber != 1 {
		t.Errorf("version number = %d, want 1", v.VersionNumber)
	}
	if !v.IsLatest {
		t.Error("first version not flagged latest")
	}
	if v.DiffFromPrevious != nil {
		t.Error("first version carries a diff")
	}
	if v.ChangeSummary != "Initial version" {
		t.Errorf("change summary = %q, want %q", v.ChangeSummary, "Initial version")
	}
	if v.CreatedBy != "alice" {
		t.Errorf("created by = %q, want alice", v.CreatedBy)
	}

	entries := sink.getEntries()
	if len(entries) != 1 || entries[0].Action != models.ActionVersionCreate {
		t.Fatalf("audit entries = %+v, want one version_create", entries)
	}

	events := pub.getEvents()
	if len(events) != 1 || events[0].VersionID != v.ID || events[0].Version != "0.1.0" {
		t.Fatalf("events = %+v, want one for %s", events, v.ID)
	}
}

func TestSave_SnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestVersionService(nil, nil)

	doc := sampleDocument()
	v, err := svc.Save(ctx, doc, "initial", models.ChangeTypeMinor, "alice")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	doc.Name = "mutated after save"
	doc.Steps[0].Name = "mutated step"

	got, err := svc.GetVersion(ctx, v.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Snapshot.Name != "Invoice intake" || got.Snapshot.Steps[0].Name != "Receive invoice" {
		t.Fatal("mutating the input document changed the committed snapshot")
	}
}

func TestSave_SemverBumps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		changeType models.ChangeType
		want       string
	}{
		{models.ChangeTypeMajor, "2.0.0"},
		{models.ChangeTypeMinor, "1.3.0"},
		{models.ChangeTypePatch, "1.2.4"},
		{models.ChangeTypeDraft, "1.2.4"},
		{models.ChangeTypeRestore, "1.2.4"},
	}

	for _, tt := range tests {
		t.Run(string(tt.changeType), func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			svc := newTestVersionService(nil, nil)

			// Seed the chain at 1.2.3.
			repo := svc.repo.(*store.MemoryVersionStore)
			seed := &models.Version{
				ID:            "seed",
				DocumentID:    "doc-1",
				Version:       "1.2.3",
				VersionNumber: 7,
				Snapshot:      sampleDocument(),
				ChangeType:    models.ChangeTypeMinor,
			}
			if err := repo.CommitVersion(ctx, seed); err != nil {
				t.Fatalf("seed: %v", err)
			}

			v, err := svc.Save(ctx, sampleDocument(), "bump", tt.changeType, "alice")
			if err != nil {
				t.Fatalf("save: %v", err)
			}

			if v.Version != tt.want {
				t.Errorf("version = %q, want %q", v.Version, tt.want)
			}
			if v.VersionNumber != 8 {
				t.Errorf("version number = %d, want 8", v.VersionNumber)
			}
		})
	}
}

func TestSave_PatchSequence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestVersionService(nil, nil)

	doc := sampleDocument()
	want := []string{"0.1.0", "0.1.1", "0.1.2"}
	types := []models.ChangeType{models.ChangeTypeMinor, models.ChangeTypePatch, models.ChangeTypePatch}

	for i, ct := range types {
		v, err := svc.Save(ctx, doc, fmt.Sprintf("save %d", i+1), ct, "alice")
		if err != nil {
			t.Fatalf("save %d: %v", i+1, err)
		}
		if v.Version != want[i] {
			t.Errorf("save %d: version = %q, want %q", i+1, v.Version, want[i])
		}
		if v.VersionNumber != i+1 {
			t.Errorf("save %d: number = %d, want %d", i+1, v.VersionNumber, i+1)
		}
	}
}

func TestSave_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		doc        *models.Document
		notes      string
		changeType models.ChangeType
		wantErr    error
	}{
		{"empty notes", sampleDocument(), "", models.ChangeTypeMinor, models.ErrInvalidChangeNotes},
		{"blank notes", sampleDocument(), "   \t ", models.ChangeTypeMinor, models.ErrInvalidChangeNotes},
		{"unknown change type", sampleDocument(), "notes", models.ChangeType("hotfix"), models.ErrInvalidChangeType},
		{"nil document", nil, "notes", models.ChangeTypeMinor, models.ErrMalformedSnapshot},
		{
			"step without id",
			&models.Document{ID: "doc-1", Name: "x", Steps: []models.Step{{Name: "no id"}}},
			"notes", models.ChangeTypeMinor, models.ErrMalformedSnapshot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := newTestVersionService(nil, nil)

			_, err := svc.Save(context.Background(), tt.doc, tt.notes, tt.changeType, "alice")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSave_DiffAgainstPreviousLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestVersionService(nil, nil)

	first, err := svc.Save(ctx, sampleDocument(), "initial", models.ChangeTypeMinor, "alice")
	if err != nil {
		t.Fatalf("save first: %v", err)
	}

	updated := sampleDocument()
	updated.Steps = updated.Steps[:1] // drop "Validate totals"

	second, err := svc.Save(ctx, updated, "removed validation step", models.ChangeTypeMajor, "bob")
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	d := second.DiffFromPrevious
	if d == nil {
		t.Fatal("second version has no diff")
	}
	if d.VersionA != first.ID || d.VersionB != second.ID {
		t.Errorf("diff endpoints = %q -> %q, want %q -> %q", d.VersionA, d.VersionB, first.ID, second.ID)
	}
	if d.Summary.StepsRemoved != 1 || !d.Summary.HasBreakingChanges {
		t.Errorf("summary = %+v, want one removed step with breaking flag", d.Summary)
	}

	latest, err := svc.GetLatestVersion(ctx, "doc-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest = %q, want %q", latest.ID, second.ID)
	}
}

func TestSave_CommitErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("disk on fire")
	repo := &mockVersionRepo{
		latestVersion: func(context.Context, string) (*models.Version, error) { return nil, nil },
		commitVersion: func(context.Context, *models.Version) error { return wantErr },
	}
	sink := &mockAuditSink{}
	svc := NewVersionService(repo, diff.NewEngine(), sink, nil, testLogger())

	_, err := svc.Save(context.Background(), sampleDocument(), "notes", models.ChangeTypeMinor, "alice")
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want wrapped %v", err, wantErr)
	}

	if len(sink.getEntries()) != 0 {
		t.Error("audit entry enqueued for a failed save")
	}
}

func TestSave_ConcurrentSameDocument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestVersionService(nil, nil)

	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Save(ctx, sampleDocument(), "concurrent save", models.ChangeTypePatch, "alice"); err != nil {
				t.Errorf("save: %v", err)
			}
		}()
	}
	wg.Wait()

	versions, err := svc.GetVersions(ctx, "doc-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) != n {
		t.Fatalf("got %d versions, want %d", len(versions), n)
	}

	// Newest first: numbers must be n..1 with no gaps or repeats, and
	// exactly the newest one flagged latest.
	for i, v := range versions {
		if want := n - i; v.VersionNumber != want {
			t.Errorf("versions[%d].VersionNumber = %d, want %d", i, v.VersionNumber, want)
		}
		if v.IsLatest != (i == 0) {
			t.Errorf("versions[%d].IsLatest = %v", i, v.IsLatest)
		}
	}
}

func TestRestoreVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := &mockAuditSink{}
	svc := newTestVersionService(sink, nil)

	first, err := svc.Save(ctx, sampleDocument(), "initial", models.ChangeTypeMinor, "alice")
	if err != nil {
		t.Fatalf("save first: %v", err)
	}

	updated := sampleDocument()
	updated.Name = "Invoice intake v2"
	if _, err := svc.Save(ctx, updated, "renamed", models.ChangeTypeMinor, "alice"); err != nil {
		t.Fatalf("save second: %v", err)
	}

	restored, err := svc.RestoreVersion(ctx, first.ID, "bob")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.VersionNumber != 3 {
		t.Errorf("restored number = %d, want 3 (appended, not rewritten)", restored.VersionNumber)
	}
	if restored.Version != "0.2.1" {
		t.Errorf("restored version = %q, want 0.2.1 (patch bump)", restored.Version)
	}
	if restored.ChangeType != models.ChangeTypeRestore {
		t.Errorf("change type = %q, want restore", restored.ChangeType)
	}
	if want := "Restored from version 0.1.0"; restored.ChangeNotes != want {
		t.Errorf("notes = %q, want %q", restored.ChangeNotes, want)
	}
	if restored.Snapshot.Name != "Invoice intake" {
		t.Errorf("snapshot name = %q, want the restored state", restored.Snapshot.Name)
	}

	// The original stays in the chain untouched.
	orig, err := svc.GetVersion(ctx, first.ID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if orig.VersionNumber != 1 || orig.IsLatest {
		t.Errorf("original = number %d latest=%v, want 1/false", orig.VersionNumber, orig.IsLatest)
	}

	entries := sink.getEntries()
	last := entries[len(entries)-1]
	if last.Action != models.ActionVersionRestore {
		t.Errorf("last audit action = %q, want version_restore", last.Action)
	}
}

func TestRestoreVersion_NotFound(t *testing.T) {
	t.Parallel()

	svc := newTestVersionService(nil, nil)

	_, err := svc.RestoreVersion(context.Background(), "missing", "alice")
	if !errors.Is(err, models.ErrVersionNotFound) {
		t.Fatalf("got %v, want ErrVersionNotFound", err)
	}
}

func TestDeleteVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := &mockAuditSink{}
	svc := newTestVersionService(sink, nil)

	first, err := svc.Save(ctx, sampleDocument(), "initial", models.ChangeTypeMinor, "alice")
	if err != nil {
		t.Fatalf("save first: %v", err)
	}

	second, err := svc.Save(ctx, sampleDocument(), "second", models.ChangeTypePatch, "alice")
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	if err := svc.DeleteVersion(ctx, second.ID, "alice"); !errors.Is(err, models.ErrCannotDeleteLatest) {
		t.Fatalf("delete latest: got %v, want ErrCannotDeleteLatest", err)
	}

	if err := svc.DeleteVersion(ctx, first.ID, "alice"); err != nil {
		t.Fatalf("delete first: %v", err)
	}

	if _, err := svc.GetVersion(ctx, first.ID); !errors.Is(err, models.ErrVersionNotFound) {
		t.Fatalf("get deleted: got %v, want ErrVersionNotFound", err)
	}

	// Survivor keeps its number.
	latest, err := svc.GetLatestVersion(ctx, "doc-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.VersionNumber != 2 {
		t.Errorf("latest number = %d, want 2", latest.VersionNumber)
	}

	entries := sink.getEntries()
	last := entries[len(entries)-1]
	if last.Action != models.ActionDelete || last.VersionID != first.ID {
		t.Errorf("last audit = %+v, want delete of %s", last, first.ID)
	}
}

func TestGenerateChangeLog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestVersionService(nil, nil)

	if _, err := svc.Save(ctx, sampleDocument(), "initial", models.ChangeTypeMinor, "alice"); err != nil {
		t.Fatalf("save first: %v", err)
	}

	updated := sampleDocument()
	updated.Steps = append(updated.Steps, models.Step{StepID: "s3", Name: "Archive invoice"})
	if _, err := svc.Save(ctx, updated, "added archiving", models.ChangeTypeMinor, "bob"); err != nil {
		t.Fatalf("save second: %v", err)
	}

	log, err := svc.GenerateChangeLog(ctx, "doc-1")
	if err != nil {
		t.Fatalf("changelog: %v", err)
	}

	if log.TotalVersions != 2 {
		t.Errorf("total = %d, want 2", log.TotalVersions)
	}
	if log.FirstVersion != "0.1.0" || log.LatestVersion != "0.2.0" {
		t.Errorf("first/latest = %q/%q, want 0.1.0/0.2.0", log.FirstVersion, log.LatestVersion)
	}
	if len(log.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(log.Entries))
	}
	if log.Entries[0].Version != "0.2.0" || log.Entries[0].Author != "bob" {
		t.Errorf("entries[0] = %+v, want newest first", log.Entries[0])
	}

	found := false
	for _, h := range log.Entries[0].Highlights {
		if h == `Added step "Archive invoice"` {
			found = true
		}
	}
	if !found {
		t.Errorf("highlights = %v, want added-step highlight", log.Entries[0].Highlights)
	}
}

func TestGenerateChangeLog_EmptyDocument(t *testing.T) {
	t.Parallel()

	svc := newTestVersionService(nil, nil)

	log, err := svc.GenerateChangeLog(context.Background(), "never-saved")
	if err != nil {
		t.Fatalf("changelog: %v", err)
	}
	if log.TotalVersions != 0 || len(log.Entries) != 0 {
		t.Fatalf("got %+v, want empty changelog", log)
	}
}

func TestNextSemver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prev    string
		ct      models.ChangeType
		want    string
		wantErr bool
	}{
		{"", models.ChangeTypeMinor, "0.1.0", false},
		{"", models.ChangeTypeMajor, "1.0.0", false},
		{"", models.ChangeTypePatch, "0.0.1", false},
		{"2.5.9", models.ChangeTypeMajor, "3.0.0", false},
		{"2.5.9", models.ChangeTypeMinor, "2.6.0", false},
		{"2.5.9", models.ChangeTypeDraft, "2.5.10", false},
		{"garbage", models.ChangeTypeMinor, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.prev+"/"+string(tt.ct), func(t *testing.T) {
			t.Parallel()

			got, err := nextSemver(tt.prev, tt.ct)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("nextSemver: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
