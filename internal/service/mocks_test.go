package service

import (
	"context"
	"sync"

	"github.com/procledger/procledger/internal/models"
)

// mockAuditSink collects enqueued audit entries.
type mockAuditSink struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
}

func (m *mockAuditSink) Enqueue(e *models.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func (m *mockAuditSink) getEntries() []*models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// mockPublisher collects published version events.
type mockPublisher struct {
	mu     sync.Mutex
	events []models.VersionEvent
}

func (m *mockPublisher) PublishVersionCreated(ev models.VersionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockPublisher) getEvents() []models.VersionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.VersionEvent, len(m.events))
	copy(out, m.events)
	return out
}

// mockRecorder records entries passed to Record; fails when err is set.
type mockRecorder struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
	err     error
}

func (m *mockRecorder) Record(_ context.Context, e *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRecorder) getEntries() []*models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// mockAuditRepo records calls and returns configured responses.
type mockAuditRepo struct {
	mu       sync.Mutex
	recorded []*models.AuditEntry

	recordAudit func(ctx context.Context, e *models.AuditEntry) error
	queryAudit  func(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, int, error)
}

func (m *mockAuditRepo) RecordAudit(ctx context.Context, e *models.AuditEntry) error {
	m.mu.Lock()
	m.recorded = append(m.recorded, e)
	m.mu.Unlock()

	if m.recordAudit != nil {
		return m.recordAudit(ctx, e)
	}
	return nil
}

func (m *mockAuditRepo) QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, int, error) {
	if m.queryAudit != nil {
		return m.queryAudit(ctx, opts)
	}
	return nil, 0, nil
}

// mockVersionRepo returns configured responses for error-path tests.
type mockVersionRepo struct {
	commitVersion func(ctx context.Context, v *models.Version) error
	getVersion    func(ctx context.Context, versionID string) (*models.Version, error)
	listVersions  func(ctx context.Context, documentID string) ([]*models.Version, error)
	latestVersion func(ctx context.Context, documentID string) (*models.Version, error)
	deleteVersion func(ctx context.Context, versionID string) error
}

func (m *mockVersionRepo) CommitVersion(ctx context.Context, v *models.Version) error {
	return m.commitVersion(ctx, v)
}

func (m *mockVersionRepo) GetVersion(ctx context.Context, versionID string) (*models.Version, error) {
	return m.getVersion(ctx, versionID)
}

func (m *mockVersionRepo) ListVersions(ctx context.Context, documentID string) ([]*models.Version, error) {
	return m.listVersions(ctx, documentID)
}

func (m *mockVersionRepo) LatestVersion(ctx context.Context, documentID string) (*models.Version, error) {
	return m.latestVersion(ctx, documentID)
}

func (m *mockVersionRepo) DeleteVersion(ctx context.Context, versionID string) error {
	return m.deleteVersion(ctx, versionID)
}
