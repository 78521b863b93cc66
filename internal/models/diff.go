package models

// Severity grades how disruptive a single change is.
type Severity string

// Change severities.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

// ChangeKind is the kind of a structural change.
type ChangeKind string

// Change kinds.
const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// TextSegmentKind labels one segment of a word-level text diff.
type TextSegmentKind string

// Text segment kinds.
const (
	TextUnchanged TextSegmentKind = "unchanged"
	TextAdded     TextSegmentKind = "added"
	TextRemoved   TextSegmentKind = "removed"
)

// TextSegment is one run of tokens in a word-level text diff.
type TextSegment struct {
	Kind TextSegmentKind `json:"kind"`
	Text string          `json:"text"`
}

// DiffChange is a single detected change between two snapshots.
// TextDiff is present only for string fields whose value changed.
type DiffChange struct {
	ID       string        `json:"id"`
	Type     ChangeKind    `json:"type"`
	Path     string        `json:"path"`
	Field    string        `json:"field"`
	OldValue string        `json:"old_value,omitempty"`
	NewValue string        `json:"new_value,omitempty"`
	Severity Severity      `json:"severity"`
	StepID   string        `json:"step_id,omitempty"`
	TextDiff []TextSegment `json:"text_diff,omitempty"`
}

// StepDiff describes one step's involvement in a diff with per-field
// change flags. For added and removed steps the flags are all false.
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

// MetadataChange is a before/after pair for a document-level scalar field.
type MetadataChange struct {
	Field    string   `json:"field"`
	OldValue string   `json:"old_value"`
	NewValue string   `json:"new_value"`
	Severity Severity `json:"severity"`
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
