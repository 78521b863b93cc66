package api

import (
	"context"

	"github.com/procledger/procledger/internal/models"
)

// VersionOperations defines the version-chain operations used by
// VersionHandler.
type VersionOperations interface {
	Save(ctx context.Context, doc *models.Document, changeNotes string, changeType models.ChangeType, actor string) (*models.Version, error)
	GetVersions(ctx context.Context, documentID string) ([]*models.Version, error)
	GetVersion(ctx context.Context, versionID string) (*models.Version, error)
	GetLatestVersion(ctx context.Context, documentID string) (*models.Version, error)
	RestoreVersion(ctx context.Context, versionID, actor string) (*models.Version, error)
	DeleteVersion(ctx context.Context, versionID, actor string) error
	GenerateChangeLog(ctx context.Context, documentID string) (*models.ChangeLog, error)
}

// AuditOperations defines the audit-trail operations used by AuditHandler.
type AuditOperations interface {
	Record(ctx context.Context, e *models.AuditEntry) error
	Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, int, error)
	ExportCSV(ctx context.Context, documentID string) ([]byte, error)
}
