package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/models"
	"github.com/procledger/procledger/internal/store"
)

// AuditQueryStore is the data-access interface AuditService depends on.
// It reuses store.AuditRepository since the method sets are identical.
type AuditQueryStore = store.AuditRepository

// exportPageSize is the batch size used when paging the full result set
// for CSV export.
const exportPageSize = 500

// AuditService wraps the audit repository with entry defaults, query
// pass-through, and CSV export.
type AuditService struct {
	repo AuditQueryStore
	log  *logrus.Logger
}

// NewAuditService creates an AuditService.
func NewAuditService(repo AuditQueryStore, log *logrus.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// Record appends an audit entry, filling in the id and timestamp when the
// caller left them zero.
func (s *AuditService) Record(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	if err := s.repo.RecordAudit(ctx, e); err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}

	return nil
}

// Query returns entries matching opts, newest first, plus the total
// matching count before pagination.
func (s *AuditService) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, int, error) {
	return s.repo.QueryAudit(ctx, opts)
}

// auditCSVHeader is the column order of the CSV export.
var auditCSVHeader = []string{
	"id", "timestamp", "action", "description",
	"resource_type", "resource_id", "resource_name",
	"document_id", "step_id", "version_id",
	"user_id", "user_name", "user_email", "user_role",
	"success", "error_message",
}

// ExportCSV renders the full audit trail for a document (all entries when
// documentID is empty) as RFC 4180 CSV, newest first.
func (s *AuditService) ExportCSV(ctx context.Context, documentID string) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write(auditCSVHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}

	exported := 0

	for offset := 0; ; offset += exportPageSize {
		entries, total, err := s.repo.QueryAudit(ctx, models.AuditQueryOpts{
			DocumentID: documentID,
			Limit:      exportPageSize,
			Offset:     offset,
		})
		if err != nil {
			return nil, fmt.Errorf("querying audit entries: %w", err)
		}

		for i := range entries {
			if err := w.Write(auditCSVRecord(&entries[i])); err != nil {
				return nil, fmt.Errorf("writing csv record: %w", err)
			}
		}

		exported += len(entries)
		if exported >= total || len(entries) == 0 {
			break
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"document_id": documentID,
		"entries":     exported,
	}).Info("audit.export_csv")

	return buf.Bytes(), nil
}

func auditCSVRecord(e *models.AuditEntry) []string {
	return []string{
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339),
		string(e.Action),
		e.Description,
		e.ResourceType,
		e.ResourceID,
		e.ResourceName,
		e.DocumentID,
		e.StepID,
		e.VersionID,
		e.UserID,
		e.UserName,
		e.UserEmail,
		e.UserRole,
		strconv.FormatBool(e.Success),
		e.ErrorMessage,
	}
}
