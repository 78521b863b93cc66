package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/dbpool"
	"github.com/procledger/procledger/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for the Postgres stores.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// PGVersionStore persists version chains in Postgres. Snapshots and diffs
// are stored as JSONB documents.
type PGVersionStore struct {
	Base
}

// NewPGVersionStore creates a PGVersionStore.
func NewPGVersionStore(base Base) *PGVersionStore {
	return &PGVersionStore{Base: base}
}

const versionColumns = `id, document_id, version, version_number, snapshot, change_notes,
	change_summary, change_type, created_by, created_at, is_latest, is_draft, diff`

// CommitVersion flips the document's current latest flag and inserts v as
// the new latest in a single transaction.
func (s *PGVersionStore) CommitVersion(ctx context.Context, v *models.Version) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	snapshotJSON, err := json.Marshal(v.Snapshot)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	var diffJSON []byte
	if v.DiffFromPrevious != nil {
		diffJSON, err = json.Marshal(v.DiffFromPrevious)
		if err != nil {
			return fmt.Errorf("marshalling diff: %w", err)
		}
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	if _, err := tx.Exec(ctx,
		`UPDATE versions SET is_latest = FALSE WHERE document_id = $1 AND is_latest`,
		v.DocumentID,
	); err != nil {
		return fmt.Errorf("clearing previous latest: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO versions (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, $12)`,
		v.ID, v.DocumentID, v.Version, v.VersionNumber, snapshotJSON, v.ChangeNotes,
		v.ChangeSummary, string(v.ChangeType), v.CreatedBy, v.CreatedAt, v.IsDraft, diffJSON,
	); err != nil {
		return fmt.Errorf("inserting version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing version: %v", models.ErrStoreUnavailable, err)
	}

	return nil
}

// GetVersion returns the version with the given id.
func (s *PGVersionStore) GetVersion(ctx context.Context, versionID string) (*models.Version, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, `SELECT `+versionColumns+` FROM versions WHERE id = $1`, versionID)

	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrVersionNotFound
		}

		return nil, fmt.Errorf("querying version: %w", err)
	}

	return v, nil
}

// ListVersions returns the document's versions, newest first.
func (s *PGVersionStore) ListVersions(ctx context.Context, documentID string) ([]*models.Version, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE document_id = $1
		ORDER BY version_number DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	var out []*models.Version

	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning version row: %w", err)
		}

		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating version rows: %w", err)
	}

	return out, nil
}

// LatestVersion returns the current latest version, or nil when the
// document has no versions.
func (s *PGVersionStore) LatestVersion(ctx context.Context, documentID string) (*models.Version, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE document_id = $1 AND is_latest`, documentID)

	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("querying latest version: %w", err)
	}

	return v, nil
}

// DeleteVersion removes a non-latest version.
func (s *PGVersionStore) DeleteVersion(ctx context.Context, versionID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	var isLatest bool

	err = tx.QueryRow(ctx, `SELECT is_latest FROM versions WHERE id = $1`, versionID).Scan(&isLatest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrVersionNotFound
		}

		return fmt.Errorf("checking version: %w", err)
	}

	if isLatest {
		return models.ErrCannotDeleteLatest
	}

	if _, err := tx.Exec(ctx, `DELETE FROM versions WHERE id = $1`, versionID); err != nil {
		return fmt.Errorf("deleting version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing delete: %v", models.ErrStoreUnavailable, err)
	}

	return nil
}

// scanVersion scans one version row from either pgx.Row or pgx.Rows.
func scanVersion(row pgx.Row) (*models.Version, error) {
	var (
		v            models.Version
		changeType   string
		snapshotJSON []byte
		diffJSON     []byte
	)

	if err := row.Scan(
		&v.ID, &v.DocumentID, &v.Version, &v.VersionNumber, &snapshotJSON, &v.ChangeNotes,
		&v.ChangeSummary, &changeType, &v.CreatedBy, &v.CreatedAt, &v.IsLatest, &v.IsDraft, &diffJSON,
	); err != nil {
		return nil, err
	}

	v.ChangeType = models.ChangeType(changeType)

	if err := json.Unmarshal(snapshotJSON, &v.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshalling snapshot: %w", err)
	}

	if diffJSON != nil {
		if err := json.Unmarshal(diffJSON, &v.DiffFromPrevious); err != nil {
			return nil, fmt.Errorf("unmarshalling diff: %w", err)
		}
	}

	return &v, nil
}

// PGAuditStore persists the audit log in Postgres with a FIFO retention cap.
type PGAuditStore struct {
	Base

	retention int
}

// NewPGAuditStore creates a PGAuditStore with the given retention ceiling.
func NewPGAuditStore(base Base, retention int) *PGAuditStore {
	if retention <= 0 {
		retention = DefaultAuditRetention
	}

	return &PGAuditStore{Base: base, retention: retention}
}

// RecordAudit inserts an audit entry and evicts the oldest rows beyond the
// retention cap in the same transaction.
func (s *PGAuditStore) RecordAudit(ctx context.Context, e *models.AuditEntry) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var metadataJSON []byte
	if e.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling audit metadata: %w", err)
		}
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	if _, err := tx.Exec(ctx, `
		INSERT INTO audit_log (id, action, description, resource_type, resource_id, resource_name,
			document_id, step_id, version_id, user_id, user_name, user_email, user_role,
			success, error_message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		e.ID, string(e.Action), e.Description, e.ResourceType, e.ResourceID, e.ResourceName,
		e.DocumentID, e.StepID, e.VersionID, e.UserID, e.UserName, e.UserEmail, e.UserRole,
		e.Success, e.ErrorMessage, metadataJSON, e.Timestamp,
	); err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	// FIFO retention: evict rows older than the retention-th newest.
	if _, err := tx.Exec(ctx, `
		DELETE FROM audit_log
		WHERE seq <= COALESCE(
			(SELECT seq FROM audit_log ORDER BY seq DESC OFFSET $1 LIMIT 1), 0
		)`, s.retention,
	); err != nil {
		return fmt.Errorf("evicting old audit entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing audit entry: %v", models.ErrStoreUnavailable, err)
	}

	return nil
}

// buildAuditFilter builds the WHERE clause and args from query options.
func buildAuditFilter(opts models.AuditQueryOpts) (where string, args []any, nextArg int) {
	var conditions []string
	argIdx := 1

	if opts.DocumentID != "" {
		conditions = append(conditions, "document_id = $"+strconv.Itoa(argIdx))
		args = append(args, opts.DocumentID)
		argIdx++
	}

	if len(opts.Actions) > 0 {
		actions := make([]string, len(opts.Actions))
		for i, a := range opts.Actions {
			actions[i] = string(a)
		}

		conditions = append(conditions, "action = ANY($"+strconv.Itoa(argIdx)+")")
		args = append(args, actions)
		argIdx++
	}

	if len(opts.UserIDs) > 0 {
		conditions = append(conditions, "user_id = ANY($"+strconv.Itoa(argIdx)+")")
		args = append(args, opts.UserIDs)
		argIdx++
	}

	if opts.From != nil {
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(argIdx))
		args = append(args, *opts.From)
		argIdx++
	}

	if opts.To != nil {
		conditions = append(conditions, "created_at <= $"+strconv.Itoa(argIdx))
		args = append(args, *opts.To)
		argIdx++
	}

	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return where, args, argIdx
}

// QueryAudit returns entries matching opts, newest first, plus the total
// match count before pagination.
func (s *PGAuditStore) QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where, args, argIdx := buildAuditFilter(opts)

	var total int
	if err := s.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_log "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT id, action, description, resource_type, resource_id, resource_name,
			document_id, step_id, version_id, user_id, user_name, user_email, user_role,
			success, error_message, metadata, created_at
		FROM audit_log %s ORDER BY seq DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0, limit)

	for rows.Next() {
		var (
			e            models.AuditEntry
			action       string
			metadataJSON []byte
		)

		if err := rows.Scan(
			&e.ID, &action, &e.Description, &e.ResourceType, &e.ResourceID, &e.ResourceName,
			&e.DocumentID, &e.StepID, &e.VersionID, &e.UserID, &e.UserName, &e.UserEmail, &e.UserRole,
			&e.Success, &e.ErrorMessage, &metadataJSON, &e.Timestamp,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning audit entry: %w", err)
		}

		e.Action = models.AuditAction(action)

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				s.Log.WithError(err).Warn("failed to unmarshal audit metadata")
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating audit rows: %w", err)
	}

	return entries, total, nil
}
