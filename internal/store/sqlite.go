package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/models"
)

// sqliteTimeFormat is RFC 3339 UTC with fixed-width nanoseconds. Timestamps
// are stored as TEXT and date filters compare them lexicographically, so
// every stored value must have identical length; RFC3339Nano drops trailing
// fractional zeros, which makes "12:00:00.5Z" sort before "12:00:00Z".
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is the embedded file-backed store. It implements both
// VersionRepository and AuditRepository over a single database file; the
// path ":memory:" yields an in-memory database.
type SQLiteStore struct {
	db        *sql.DB
	log       *logrus.Logger
	retention int
}

// OpenSQLiteStore opens (or creates) the database at path and applies any
// pending schema migrations.
func OpenSQLiteStore(path string, retention int, log *logrus.Logger) (*SQLiteStore, error) {
	if retention <= 0 {
		retention = DefaultAuditRetention
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()

			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	if err := migrateSQLite(db); err != nil {
		db.Close()

		return nil, err
	}

	return &SQLiteStore{db: db, log: log, retention: retention}, nil
}

// HealthCheck verifies the database file is reachable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() {
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Warn("closing sqlite store")
	}
}

const sqliteVersionColumns = `id, document_id, version, version_number, snapshot, change_notes,
	change_summary, change_type, created_by, created_at, is_latest, is_draft, diff`

// CommitVersion flips the previous latest flag and inserts v as the new
// latest within one transaction.
func (s *SQLiteStore) CommitVersion(ctx context.Context, v *models.Version) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort rollback on early return.

	if _, err := tx.ExecContext(ctx,
		`UPDATE versions SET is_latest = 0 WHERE document_id = ? AND is_latest = 1`,
		v.DocumentID,
	); err != nil {
		return fmt.Errorf("clearing previous latest: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO versions (`+sqliteVersionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		v.ID, v.DocumentID, v.Version, v.VersionNumber, snapshotJSON, v.ChangeNotes,
		v.ChangeSummary, string(v.ChangeType), v.CreatedBy, v.CreatedAt.UTC().Format(sqliteTimeFormat),
		boolToInt(v.IsDraft), diffJSON,
	); err != nil {
		return fmt.Errorf("inserting version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing version: %v", models.ErrStoreUnavailable, err)
	}

	return nil
}

// GetVersion returns the version with the given id.
func (s *SQLiteStore) GetVersion(ctx context.Context, versionID string) (*models.Version, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteVersionColumns+` FROM versions WHERE id = ?`, versionID)

	v, err := scanSQLiteVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrVersionNotFound
		}

		return nil, fmt.Errorf("querying version: %w", err)
	}

	return v, nil
}

// ListVersions returns the document's versions, newest first.
func (s *SQLiteStore) ListVersions(ctx context.Context, documentID string) ([]*models.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteVersionColumns+` FROM versions
		WHERE document_id = ?
		ORDER BY version_number DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	var out []*models.Version

	for rows.Next() {
		v, err := scanSQLiteVersion(rows)
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
func (s *SQLiteStore) LatestVersion(ctx context.Context, documentID string) (*models.Version, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteVersionColumns+` FROM versions WHERE document_id = ? AND is_latest = 1`,
		documentID)

	v, err := scanSQLiteVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("querying latest version: %w", err)
	}

	return v, nil
}

// DeleteVersion removes a non-latest version.
func (s *SQLiteStore) DeleteVersion(ctx context.Context, versionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort rollback on early return.

	var isLatest int

	err = tx.QueryRowContext(ctx, `SELECT is_latest FROM versions WHERE id = ?`, versionID).Scan(&isLatest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrVersionNotFound
		}

		return fmt.Errorf("checking version: %w", err)
	}

	if isLatest == 1 {
		return models.ErrCannotDeleteLatest
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM versions WHERE id = ?`, versionID); err != nil {
		return fmt.Errorf("deleting version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing delete: %v", models.ErrStoreUnavailable, err)
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteVersion(row rowScanner) (*models.Version, error) {
	var (
		v            models.Version
		changeType   string
		createdAt    string
		isLatest     int
		isDraft      int
		snapshotJSON []byte
		diffJSON     []byte
	)

	if err := row.Scan(
		&v.ID, &v.DocumentID, &v.Version, &v.VersionNumber, &snapshotJSON, &v.ChangeNotes,
		&v.ChangeSummary, &changeType, &v.CreatedBy, &createdAt, &isLatest, &isDraft, &diffJSON,
	); err != nil {
		return nil, err
	}

	v.ChangeType = models.ChangeType(changeType)
	v.IsLatest = isLatest == 1
	v.IsDraft = isDraft == 1

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	v.CreatedAt = ts

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

// RecordAudit inserts an audit entry and evicts the oldest rows beyond the
// retention cap in the same transaction.
func (s *SQLiteStore) RecordAudit(ctx context.Context, e *models.AuditEntry) error {
	var metadataJSON []byte

	if e.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling audit metadata: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort rollback on early return.

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, description, resource_type, resource_id, resource_name,
			document_id, step_id, version_id, user_id, user_name, user_email, user_role,
			success, error_message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Action), e.Description, e.ResourceType, e.ResourceID, e.ResourceName,
		e.DocumentID, e.StepID, e.VersionID, e.UserID, e.UserName, e.UserEmail, e.UserRole,
		boolToInt(e.Success), e.ErrorMessage, metadataJSON, e.Timestamp.UTC().Format(sqliteTimeFormat),
	); err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM audit_log WHERE seq <= COALESCE(
			(SELECT seq FROM audit_log ORDER BY seq DESC LIMIT 1 OFFSET ?), 0
		)`, s.retention,
	); err != nil {
		return fmt.Errorf("evicting old audit entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing audit entry: %v", models.ErrStoreUnavailable, err)
	}

	return nil
}

// QueryAudit returns entries matching opts, newest first, plus the total
// match count before pagination.
func (s *SQLiteStore) QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, int, error) {
	where, args := buildSQLiteAuditFilter(opts)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log "+where, args...).Scan(&total); err != nil {
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

	query := `
		SELECT id, action, description, resource_type, resource_id, resource_name,
			document_id, step_id, version_id, user_id, user_name, user_email, user_role,
			success, error_message, metadata, created_at
		FROM audit_log ` + where + ` ORDER BY seq DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0, limit)

	for rows.Next() {
		var (
			e            models.AuditEntry
			action       string
			success      int
			createdAt    string
			metadataJSON []byte
		)

		if err := rows.Scan(
			&e.ID, &action, &e.Description, &e.ResourceType, &e.ResourceID, &e.ResourceName,
			&e.DocumentID, &e.StepID, &e.VersionID, &e.UserID, &e.UserName, &e.UserEmail, &e.UserRole,
			&success, &e.ErrorMessage, &metadataJSON, &createdAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning audit entry: %w", err)
		}

		e.Action = models.AuditAction(action)
		e.Success = success == 1

		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, 0, fmt.Errorf("parsing audit timestamp: %w", err)
		}
		e.Timestamp = ts

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				s.log.WithError(err).Warn("failed to unmarshal audit metadata")
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating audit rows: %w", err)
	}

	return entries, total, nil
}

func buildSQLiteAuditFilter(opts models.AuditQueryOpts) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if opts.DocumentID != "" {
		conditions = append(conditions, "document_id = ?")
		args = append(args, opts.DocumentID)
	}

	if len(opts.Actions) > 0 {
		placeholders := make([]string, len(opts.Actions))
		for i, a := range opts.Actions {
			placeholders[i] = "?"
			args = append(args, string(a))
		}

		conditions = append(conditions, "action IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(opts.UserIDs) > 0 {
		placeholders := make([]string, len(opts.UserIDs))
		for i, u := range opts.UserIDs {
			placeholders[i] = "?"
			args = append(args, u)
		}

		conditions = append(conditions, "user_id IN ("+strings.Join(placeholders, ", ")+")")
	}

	if opts.From != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.From.UTC().Format(sqliteTimeFormat))
	}

	if opts.To != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, opts.To.UTC().Format(sqliteTimeFormat))
	}

	if len(conditions) == 0 {
		return "", nil
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
