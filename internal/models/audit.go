package models

import "time"

// AuditAction identifies what kind of action an audit entry records.
type AuditAction string

// Audit actions. Version lifecycle actions are written by the version
// service; the rest are recorded by external collaborators through the
// audit API.
const (
	ActionCreate           AuditAction = "create"
	ActionUpdate           AuditAction = "update"
	ActionDelete           AuditAction = "delete"
	ActionView             AuditAction = "view"
	ActionPublish          AuditAction = "publish"
	ActionUnpublish        AuditAction = "unpublish"
	ActionArchive          AuditAction = "archive"
	ActionRestore          AuditAction = "restore"
	ActionVersionCreate    AuditAction = "version_create"
	ActionVersionRestore   AuditAction = "version_restore"
	ActionExport           AuditAction = "export"
	ActionAssign           AuditAction = "assign"
	ActionUnassign         AuditAction = "unassign"
	ActionStartTraining    AuditAction = "start_training"
	ActionCompleteTraining AuditAction = "complete_training"
	ActionComment          AuditAction = "comment"
	ActionPermissionChange AuditAction = "permission_change"
)

// AuditEntry is one append-only record of a significant action.
type AuditEntry struct {
	ID           string         `json:"id"`
	Action       AuditAction    `json:"action"`
	Description  string         `json:"description,omitempty"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	ResourceName string         `json:"resource_name,omitempty"`
	DocumentID   string         `json:"document_id,omitempty"`
	StepID       string         `json:"step_id,omitempty"`
	VersionID    string         `json:"version_id,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	UserName     string         `json:"user_name,omitempty"`
	UserEmail    string         `json:"user_email,omitempty"`
	UserRole     string         `json:"user_role,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Clone returns a copy of the entry with its own Metadata map, so a caller
// mutating the original after the fact cannot touch stored log history.
func (e *AuditEntry) Clone() AuditEntry {
	out := *e

	if e.Metadata != nil {
		out.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}

	return out
}

// AuditQueryOpts holds filters for querying the audit log. All filters are
// applied before pagination; zero values mean "no filter".
type AuditQueryOpts struct {
	DocumentID string
	Actions    []AuditAction
	UserIDs    []string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// MatchesFilter reports whether the entry passes the non-pagination filters
// in opts. Shared by store implementations that filter in memory.
func (e *AuditEntry) MatchesFilter(opts AuditQueryOpts) bool {
	if opts.DocumentID != "" && e.DocumentID != opts.DocumentID {
		return false
	}

	if len(opts.Actions) > 0 {
		found := false
		for _, a := range opts.Actions {
			if e.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(opts.UserIDs) > 0 {
		found := false
		for _, u := range opts.UserIDs {
			if e.UserID == u {
				found = true

				break
			}
		}
		if !found {
			return false
		}
	}

	if opts.From != nil && e.Timestamp.Before(*opts.From) {
		return false
	}

	if opts.To != nil && e.Timestamp.After(*opts.To) {
		return false
	}

	return true
}
