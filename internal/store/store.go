// Package store provides the persistence backends for the version chain
// and the audit log.
//
// Repositories are injected interfaces: the in-memory store backs tests and
// trial runs, the SQLite store is the embedded single-writer default, and
// the Postgres store targets a shared database. Stores never import each
// other; the factory in this file selects a backend from configuration.
package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/config"
	"github.com/procledger/procledger/internal/db"
	"github.com/procledger/procledger/internal/dbpool"
	"github.com/procledger/procledger/internal/models"
)

// VersionRepository is the data-access contract for the version chain.
// CommitVersion must atomically clear the previous latest flag and insert
// the new version as latest; DeleteVersion must reject the current latest.
type VersionRepository interface {
	CommitVersion(ctx context.Context, v *models.Version) error
	GetVersion(ctx context.Context, versionID string) (*models.Version, error)
	ListVersions(ctx context.Context, documentID string) ([]*models.Version, error)
	LatestVersion(ctx context.Context, documentID string) (*models.Version, error)
	DeleteVersion(ctx context.Context, versionID string) error
}

// AuditRepository is the data-access contract for the append-only audit log.
// RecordAudit enforces the FIFO retention cap after each append.
type AuditRepository interface {
	RecordAudit(ctx context.Context, e *models.AuditEntry) error
	QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, int, error)
}

// defaultQueryLimit is applied when a query requests no explicit limit.
const defaultQueryLimit = 50

// maxListLimit caps a single audit query page.
const maxListLimit = 1000

// Repositories bundles the backend-specific implementations selected by
// the factory, plus lifecycle hooks for the server.
type Repositories struct {
	Versions VersionRepository
	Audit    AuditRepository

	// HealthCheck pings the backing store; always nil-error for memory.
	HealthCheck func(ctx context.Context) error

	// Close releases backend resources.
	Close func()
}

// New builds repositories for the configured backend and runs any pending
// schema migrations.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Repositories, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return &Repositories{
			Versions:    NewMemoryVersionStore(),
			Audit:       NewMemoryAuditStore(cfg.AuditRetention),
			HealthCheck: func(context.Context) error { return nil },
			Close:       func() {},
		}, nil

	case config.BackendSQLite:
		s, err := OpenSQLiteStore(cfg.SQLitePath, cfg.AuditRetention, log)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}

		return &Repositories{
			Versions:    s,
			Audit:       s,
			HealthCheck: s.HealthCheck,
			Close:       s.Close,
		}, nil

	case config.BackendPostgres:
		pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}

		if err := db.RunMigrations(ctx, pool, log); err != nil {
			pool.Close()

			return nil, fmt.Errorf("running migrations: %w", err)
		}

		base := Base{Pool: pool, Log: log}

		return &Repositories{
			Versions:    NewPGVersionStore(base),
			Audit:       NewPGAuditStore(base, cfg.AuditRetention),
			HealthCheck: pool.HealthCheck,
			Close:       pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
