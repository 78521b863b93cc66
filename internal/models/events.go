package models

// VersionEvent is broadcast to subscribers after a version is committed.
type VersionEvent struct {
	VersionID  string     `json:"version_id"`
	DocumentID string     `json:"document_id"`
	Version    string     `json:"version"`
	ChangeType ChangeType `json:"change_type"`
	Breaking   bool       `json:"breaking"`
}
