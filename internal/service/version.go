// Package service implements the version-chain and audit-trail operations on
// top of the store repositories, with structured logging and metrics.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/diff"
	"github.com/procledger/procledger/internal/metrics"
	"github.com/procledger/procledger/internal/models"
	"github.com/procledger/procledger/internal/store"
)

// VersionStore is the data-access interface VersionService depends on.
// It reuses store.VersionRepository since the method sets are identical.
type VersionStore = store.VersionRepository

// AuditSink receives audit entries for asynchronous recording.
type AuditSink interface {
	Enqueue(e *models.AuditEntry)
}

// EventPublisher broadcasts version events to interested subscribers.
type EventPublisher interface {
	PublishVersionCreated(ev models.VersionEvent)
}

// VersionService owns the save pipeline: validation, per-document
// serialization, diff generation, semantic version calculation, and the
// atomic commit. Audit entries and version events are emitted after the
// commit and never roll it back.
type VersionService struct {
	repo   VersionStore
	engine *diff.Engine
	audit  AuditSink
	events EventPublisher
	log    *logrus.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewVersionService creates a VersionService. audit and events may be nil.
func NewVersionService(repo VersionStore, engine *diff.Engine, audit AuditSink, events EventPublisher, log *logrus.Logger) *VersionService {
	return &VersionService{
		repo:   repo,
		engine: engine,
		audit:  audit,
		events: events,
		log:    log,
		locks:  make(map[string]*sync.Mutex),
	}
}

// docLock returns the mutex serializing saves for one document. Locks are
// never removed; the map grows with the number of distinct documents seen.
func (s *VersionService) docLock(documentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[documentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[documentID] = l
	}

	return l
}

// Save appends a new version to the document's chain. The snapshot is a deep
// copy of doc taken here; the diff against the previous latest is computed
// once and stored with the version.
func (s *VersionService) Save(ctx context.Context, doc *models.Document, changeNotes string, changeType models.ChangeType, actor string) (*models.Version, error) {
	if strings.TrimSpace(changeNotes) == "" {
		return nil, models.ErrInvalidChangeNotes
	}

	if !changeType.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidChangeType, changeType)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	lock := s.docLock(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	prev, err := s.repo.LatestVersion(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("reading latest version: %w", err)
	}

	versionID := uuid.New().String()

	var (
		versionDiff *models.VersionDiff
		number      = 1
		prevSemver  string
	)

	if prev != nil {
		number = prev.VersionNumber + 1
		prevSemver = prev.Version

		start := time.Now()

		versionDiff, err = s.engine.GenerateDiff(prev.Snapshot, doc, prev.ID, versionID)
		if err != nil {
			return nil, fmt.Errorf("generating diff: %w", err)
		}

		metrics.DiffDuration.Observe(time.Since(start).Seconds())
	}

	semver, err := nextSemver(prevSemver, changeType)
	if err != nil {
		return nil, err
	}

	v := &models.Version{
		ID:               versionID,
		DocumentID:       doc.ID,
		Version:          semver,
		VersionNumber:    number,
		Snapshot:         doc.Clone(),
		ChangeNotes:      changeNotes,
		ChangeSummary:    summarizeDiff(versionDiff),
		ChangeType:       changeType,
		CreatedBy:        actor,
		CreatedAt:        time.Now().UTC(),
		IsLatest:         true,
		IsDraft:          changeType == models.ChangeTypeDraft,
		DiffFromPrevious: versionDiff,
	}

	if err := s.repo.CommitVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("committing version: %w", err)
	}

	metrics.SavesTotal.WithLabelValues(string(changeType)).Inc()

	s.log.WithFields(logrus.Fields{
		"document_id":    doc.ID,
		"version_id":     v.ID,
		"version":        v.Version,
		"version_number": v.VersionNumber,
		"change_type":    string(changeType),
	}).Info("version.save")

	action := models.ActionVersionCreate
	if changeType == models.ChangeTypeRestore {
		action = models.ActionVersionRestore
	}

	s.enqueueAudit(&models.AuditEntry{
		ID:           uuid.New().String(),
		Action:       action,
		Description:  v.ChangeSummary,
		ResourceType: "version",
		ResourceID:   v.ID,
		ResourceName: v.Version,
		DocumentID:   doc.ID,
		VersionID:    v.ID,
		UserID:       actor,
		Timestamp:    v.CreatedAt,
		Success:      true,
		Metadata: map[string]any{
			"version_number": v.VersionNumber,
			"change_type":    string(changeType),
		},
	})

	if s.events != nil {
		breaking := versionDiff != nil && versionDiff.Summary.HasBreakingChanges
		s.events.PublishVersionCreated(models.VersionEvent{
			VersionID:  v.ID,
			DocumentID: doc.ID,
			Version:    v.Version,
			ChangeType: changeType,
			Breaking:   breaking,
		})
	}

	return v, nil
}

// GetVersions returns the document's versions, newest first.
func (s *VersionService) GetVersions(ctx context.Context, documentID string) ([]*models.Version, error) {
	return s.repo.ListVersions(ctx, documentID)
}

// GetVersion returns the version with the given id.
func (s *VersionService) GetVersion(ctx context.Context, versionID string) (*models.Version, error) {
	return s.repo.GetVersion(ctx, versionID)
}

// GetLatestVersion returns the document's current latest version, or nil
// when the document has no versions yet.
func (s *VersionService) GetLatestVersion(ctx context.Context, documentID string) (*models.Version, error) {
	return s.repo.LatestVersion(ctx, documentID)
}

// RestoreVersion appends a new version carrying the target version's
// snapshot. History is never rewritten: the restored state re-enters the
// chain through Save with an auto-generated note.
func (s *VersionService) RestoreVersion(ctx context.Context, versionID, actor string) (*models.Version, error) {
	target, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	notes := fmt.Sprintf("Restored from version %s", target.Version)

	return s.Save(ctx, target.Snapshot, notes, models.ChangeTypeRestore, actor)
}

// DeleteVersion removes a non-latest version from the chain. Remaining
// versions keep their numbers.
func (s *VersionService) DeleteVersion(ctx context.Context, versionID, actor string) error {
	target, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteVersion(ctx, versionID); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"document_id": target.DocumentID,
		"version_id":  versionID,
		"version":     target.Version,
	}).Info("version.delete")

	s.enqueueAudit(&models.AuditEntry{
		ID:           uuid.New().String(),
		Action:       models.ActionDelete,
		Description:  fmt.Sprintf("Deleted version %s", target.Version),
		ResourceType: "version",
		ResourceID:   versionID,
		ResourceName: target.Version,
		DocumentID:   target.DocumentID,
		VersionID:    versionID,
		UserID:       actor,
		Timestamp:    time.Now().UTC(),
		Success:      true,
	})

	return nil
}

// GenerateChangeLog builds the human-facing history of a document,
// newest first.
func (s *VersionService) GenerateChangeLog(ctx context.Context, documentID string) (*models.ChangeLog, error) {
	versions, err := s.repo.ListVersions(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}

	log := &models.ChangeLog{
		DocumentID:    documentID,
		TotalVersions: len(versions),
		Entries:       make([]models.ChangeLogEntry, 0, len(versions)),
	}

	if len(versions) > 0 {
		log.LatestVersion = versions[0].Version
		log.FirstVersion = versions[len(versions)-1].Version
	}

	for _, v := range versions {
		log.Entries = append(log.Entries, models.ChangeLogEntry{
			Version:       v.Version,
			VersionNumber: v.VersionNumber,
			ChangeType:    v.ChangeType,
			Notes:         v.ChangeNotes,
			Author:        v.CreatedBy,
			CreatedAt:     v.CreatedAt,
			Highlights:    diffHighlights(v.DiffFromPrevious),
		})
	}

	return log, nil
}

func (s *VersionService) enqueueAudit(e *models.AuditEntry) {
	if s.audit == nil {
		return
	}

	s.audit.Enqueue(e)
}

// nextSemver applies the change-type bump rule to the previous version
// string. An empty prev means first version; the rule is applied to 0.0.0.
func nextSemver(prev string, ct models.ChangeType) (string, error) {
	var major, minor, patch int

	if prev != "" {
		if _, err := fmt.Sscanf(prev, "%d.%d.%d", &major, &minor, &patch); err != nil {
			return "", fmt.Errorf("parsing version %q: %w", prev, err)
		}
	}

	switch ct {
	case models.ChangeTypeMajor:
		major++
		minor, patch = 0, 0
	case models.ChangeTypeMinor:
		minor++
		patch = 0
	default: // patch, draft, restore
		patch++
	}

	return fmt.Sprintf("%d.%d.%d", major, minor, patch), nil
}

// summarizeDiff renders a one-line summary of a diff. A nil diff means
// first version.
func summarizeDiff(d *models.VersionDiff) string {
	if d == nil {
		return "Initial version"
	}

	s := d.Summary
	if s.TotalChanges == 0 {
		return "No changes"
	}

	parts := make([]string, 0, 4)
	if s.StepsAdded > 0 {
		parts = append(parts, fmt.Sprintf("%d step(s) added", s.StepsAdded))
	}

	if s.StepsRemoved > 0 {
		parts = append(parts, fmt.Sprintf("%d step(s) removed", s.StepsRemoved))
	}

	if s.StepsModified > 0 {
		parts = append(parts, fmt.Sprintf("%d step(s) modified", s.StepsModified))
	}

	if len(d.MetadataChanges) > 0 {
		parts = append(parts, fmt.Sprintf("%d metadata field(s) changed", len(d.MetadataChanges)))
	}

	summary := fmt.Sprintf("%d change(s)", s.TotalChanges)
	if len(parts) > 0 {
		summary += ": " + strings.Join(parts, ", ")
	}

	return summary
}

// diffHighlights derives short highlight strings for a changelog entry.
func diffHighlights(d *models.VersionDiff) []string {
	if d == nil {
		return []string{"Initial version"}
	}

	var highlights []string

	for _, step := range d.StepsAdded {
		highlights = append(highlights, fmt.Sprintf("Added step %q", step.StepName))
	}

	for _, step := range d.StepsRemoved {
		highlights = append(highlights, fmt.Sprintf("Removed step %q", step.StepName))
	}

	for _, step := range d.StepsModified {
		highlights = append(highlights, fmt.Sprintf("Modified step %q", step.StepName))
	}

	for _, m := range d.MetadataChanges {
		highlights = append(highlights, fmt.Sprintf("Changed %s from %q to %q", m.Field, m.OldValue, m.NewValue))
	}

	if d.Summary.HasBreakingChanges {
		highlights = append(highlights, "Contains breaking changes")
	}

	return highlights
}
