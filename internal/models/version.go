package models

import "time"

// ChangeType classifies a save and drives the semantic version bump.
type ChangeType string

// Change types accepted by Save.
const (
	ChangeTypeMajor   ChangeType = "major"
	ChangeTypeMinor   ChangeType = "minor"
	ChangeTypePatch   ChangeType = "patch"
	ChangeTypeDraft   ChangeType = "draft"
	ChangeTypeRestore ChangeType = "restore"
)

// Valid reports whether ct is a known change type.
func (ct ChangeType) Valid() bool {
	switch ct {
	case ChangeTypeMajor, ChangeTypeMinor, ChangeTypePatch, ChangeTypeDraft, ChangeTypeRestore:
		return true
	}

	return false
}

// Version is one immutable entry in a document's version chain.
// Snapshot is a deep copy taken at save time; DiffFromPrevious is computed
// once against the version that was latest immediately before this save and
// is nil only for the first version of a document.
type Version struct {
	ID               string       `json:"id"`
	DocumentID       string       `json:"document_id"`
	Version          string       `json:"version"` // MAJOR.MINOR.PATCH
	VersionNumber    int          `json:"version_number"`
	Snapshot         *Document    `json:"snapshot"`
	ChangeNotes      string       `json:"change_notes"`
	ChangeSummary    string       `json:"change_summary,omitempty"`
	ChangeType       ChangeType   `json:"change_type"`
	CreatedBy        string       `json:"created_by,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	IsLatest         bool         `json:"is_latest"`
	IsDraft          bool         `json:"is_draft"`
	DiffFromPrevious *VersionDiff `json:"diff_from_previous,omitempty"`
}

// Clone returns a copy of the version with an independent snapshot.
// The diff is shared: it is immutable after creation.
func (v *Version) Clone() *Version {
	if v == nil {
		return nil
	}

	out := *v
	out.Snapshot = v.Snapshot.Clone()

	return &out
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
	Version       string     `json:"version"`
	VersionNumber int        `json:"version_number"`
	ChangeType    ChangeType `json:"change_type"`
	Notes         string     `json:"notes"`
	Author        string     `json:"author,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Highlights    []string   `json:"highlights,omitempty"`
}
