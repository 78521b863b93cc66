package api_test

import (
	"context"

	"github.com/procledger/procledger/internal/models"
)

// mockVersionOps returns configured responses for version endpoints.
type mockVersionOps struct {
	saveFn      func(ctx context.Context, doc *models.Document, notes string, ct models.ChangeType, actor string) (*models.Version, error)
	listFn      func(ctx context.Context, documentID string) ([]*models.Version, error)
	getFn       func(ctx context.Context, versionID string) (*models.Version, error)
	latestFn    func(ctx context.Context, documentID string) (*models.Version, error)
	restoreFn   func(ctx context.Context, versionID, actor string) (*models.Version, error)
	deleteFn    func(ctx context.Context, versionID, actor string) error
	changelogFn func(ctx context.Context, documentID string) (*models.ChangeLog, error)
}

func (m *mockVersionOps) Save(ctx context.Context, doc *models.Document, notes string, ct models.ChangeType, actor string) (*models.Version, error) {
	return m.saveFn(ctx, doc, notes, ct, actor)
}

func (m *mockVersionOps) GetVersions(ctx context.Context, documentID string) ([]*models.Version, error) {
	return m.listFn(ctx, documentID)
}

func (m *mockVersionOps) GetVersion(ctx context.Context, versionID string) (*models.Version, error) {
	return m.getFn(ctx, versionID)
}

func (m *mockVersionOps) GetLatestVersion(ctx context.Context, documentID string) (*models.Version, error) {
	return m.latestFn(ctx, documentID)
}

func (m *mockVersionOps) RestoreVersion(ctx context.Context, versionID, actor string) (*models.Version, error) {
	return m.restoreFn(ctx, versionID, actor)
}

func (m *mockVersionOps) DeleteVersion(ctx context.Context, versionID, actor string) error {
	return m.deleteFn(ctx, versionID, actor)
}

func (m *mockVersionOps) GenerateChangeLog(ctx context.Context, documentID string) (*models.ChangeLog, error) {
	return m.changelogFn(ctx, documentID)
}

// mockAuditOps returns configured responses for audit endpoints.
type mockAuditOps struct {
	recordFn func(ctx context.Context, e *models.AuditEntry) error
	queryFn  func(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, int, error)
	exportFn func(ctx context.Context, documentID string) ([]byte, error)
}

func (m *mockAuditOps) Record(ctx context.Context, e *models.AuditEntry) error {
	return m.recordFn(ctx, e)
}

func (m *mockAuditOps) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, int, error) {
	return m.queryFn(ctx, opts)
}

func (m *mockAuditOps) ExportCSV(ctx context.Context, documentID string) ([]byte, error) {
	return m.exportFn(ctx, documentID)
}
