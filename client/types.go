package client

import "time"

// Document is a point-in-time process document.
type Document struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Status            string `json:"status,omitempty"`
	Priority          string `json:"priority,omitempty"`
	Department        string `json:"department,omitempty"`
	Frequency         string `json:"frequency,omitempty"`
	EstimatedDuration int    `json:"estimated_duration,omitempty"`
	Steps             []Step `json:"steps"`
}

// Step is one step of a process document.
type Step struct {
	StepID           string          `json:"step_id"`
	Name             string          `json:"name"`
	ShortDescription string          `json:"short_description,omitempty"`
	LongDescription  string          `json:"long_description,omitempty"`
	WhyItMatters     string          `json:"why_it_matters,omitempty"`
	AutomationLevel  string          `json:"automation_level,omitempty"`
	Checklist        []ChecklistItem `json:"checklist,omitempty"`
	Tools            []Tool          `json:"tools,omitempty"`
	Media            []Media         `json:"media,omitempty"`
}

// ChecklistItem is one checklist entry of a step.
type ChecklistItem struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Required bool   `json:"required,omitempty"`
}

// Tool references a tool used in a step.
type Tool struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Media references an attachment of a step.
type Media struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// Version is one entry in a document's version chain.
type Version struct {
	ID               string       `json:"id"`
	DocumentID       string       `json:"document_id"`
	Version          string       `json:"version"`
	VersionNumber    int          `json:"version_number"`
	Snapshot         *Document    `json:"snapshot"`
	ChangeNotes      string       `json:"change_notes"`
	ChangeSummary    string       `json:"change_summary,omitempty"`
	ChangeType       string       `json:"change_type"`
	CreatedBy        string       `json:"created_by,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	IsLatest         bool         `json:"is_latest"`
	IsDraft          bool         `json:"is_draft"`
	DiffFromPrevious *VersionDiff `json:"diff_from_previous,omitempty"`
}

// VersionDiff is the structural comparison between two snapshots.
type VersionDiff struct {
	VersionA        string           `json:"version_a"`
	VersionB        string           `json:"version_b"`
	Summary         DiffSummary      `json:"summary"`
	Changes         []DiffChange     `json:"changes"`
	StepsAdded      []StepDiff       `json:"steps_added,omitempty"`
	StepsRemoved    []StepDiff       `json:"steps_removed,omitempty"`
	StepsModified   []StepDiff       `json:"steps_modified,omitempty"`
	MetadataChanges []MetadataChange `json:"metadata_changes,omitempty"`
}

// DiffSummary aggregates counts over a VersionDiff.
type DiffSummary struct {
	TotalChanges       int  `json:"total_changes"`
	Additions          int  `json:"additions"`
	Deletions          int  `json:"deletions"`
	Modifications      int  `json:"modifications"`
	StepsAdded         int  `json:"steps_added"`
	StepsRemoved       int  `json:"steps_removed"`
	StepsModified      int  `json:"steps_modified"`
	HasBreakingChanges bool `json:"has_breaking_changes"`
}

// DiffChange is a single detected change between two snapshots.
type DiffChange struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Path     string        `json:"path"`
	Field    string        `json:"field"`
	OldValue string        `json:"old_value,omitempty"`
	NewValue string        `json:"new_value,omitempty"`
	Severity string        `json:"severity"`
	StepID   string        `json:"step_id,omitempty"`
	TextDiff []TextSegment `json:"text_diff,omitempty"`
}

// TextSegment is one run of tokens in a word-level text diff.
type TextSegment struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// StepDiff describes one step's involvement in a diff.
type StepDiff struct {
	StepID                  string `json:"step_id"`
	StepName                string `json:"step_name"`
	NameChanged             bool   `json:"name_changed,omitempty"`
	ShortDescriptionChanged bool   `json:"short_description_changed,omitempty"`
	LongDescriptionChanged  bool   `json:"long_description_changed,omitempty"`
	WhyItMattersChanged     bool   `json:"why_it_matters_changed,omitempty"`
	AutomationLevelChanged  bool   `json:"automation_level_changed,omitempty"`
	ChecklistChanged        bool   `json:"checklist_changed,omitempty"`
	ToolsChanged            bool   `json:"tools_changed,omitempty"`
	MediaChanged            bool   `json:"media_changed,omitempty"`
}

// MetadataChange is a before/after pair for a document-level field.
type MetadataChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
	Severity string `json:"severity"`
}

// ChangeLog is the human-facing history of a document, newest first.
type ChangeLog struct {
	DocumentID    string           `json:"document_id"`
	TotalVersions int              `json:"total_versions"`
	FirstVersion  string           `json:"first_version,omitempty"`
	LatestVersion string           `json:"latest_version,omitempty"`
	Entries       []ChangeLogEntry `json:"entries"`
}

// ChangeLogEntry summarizes one version for the changelog.
type ChangeLogEntry struct {
	Version       string    `json:"version"`
	VersionNumber int       `json:"version_number"`
	ChangeType    string    `json:"change_type"`
	Notes         string    `json:"notes"`
	Author        string    `json:"author,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Highlights    []string  `json:"highlights,omitempty"`
}

// AuditEntry is one record of the audit trail.
type AuditEntry struct {
	ID           string         `json:"id"`
	Action       string         `json:"action"`
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

// HealthResponse is the payload of the liveness endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Store         string  `json:"store"`
	StoreBackend  string  `json:"store_backend"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
