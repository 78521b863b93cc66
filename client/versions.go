package client

import (
	"context"
	"net/url"
)

// VersionService handles version-chain operations.
type VersionService struct {
	c *Client
}

// SaveVersionRequest is the body of a save call.
type SaveVersionRequest struct {
	Document    *Document `json:"document"`
	ChangeNotes string    `json:"change_notes"`
	ChangeType  string    `json:"change_type"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// versionListResponse wraps the version list payload.
type versionListResponse struct {
	Data  []Version `json:"data"`
	Total int       `json:"total"`
}

// Save commits a new version of the document.
func (s *VersionService) Save(ctx context.Context, documentID string, req *SaveVersionRequest) (*Version, error) {
	var v Version
	if err := s.c.post(ctx, "/api/v1/documents/"+url.PathEscape(documentID)+"/versions", req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns the document's versions, newest first.
func (s *VersionService) List(ctx context.Context, documentID string) ([]Version, error) {
	var resp versionListResponse
	if err := s.c.get(ctx, "/api/v1/documents/"+url.PathEscape(documentID)+"/versions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Latest returns the document's current latest version.
func (s *VersionService) Latest(ctx context.Context, documentID string) (*Version, error) {
	var v Version
	if err := s.c.get(ctx, "/api/v1/documents/"+url.PathEscape(documentID)+"/versions/latest", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Get returns the version with the given id.
func (s *VersionService) Get(ctx context.Context, versionID string) (*Version, error) {
	var v Version
	if err := s.c.get(ctx, "/api/v1/versions/"+url.PathEscape(versionID), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Restore appends a new version carrying the target version's snapshot.
func (s *VersionService) Restore(ctx context.Context, versionID, actor string) (*Version, error) {
	body := map[string]string{"actor": actor}
	var v Version
	if err := s.c.post(ctx, "/api/v1/versions/"+url.PathEscape(versionID)+"/restore", body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete removes a non-latest version.
func (s *VersionService) Delete(ctx context.Context, versionID, actor string) error {
	params := url.Values{}
	if actor != "" {
		params.Set("actor", actor)
	}
	return s.c.del(ctx, "/api/v1/versions/"+url.PathEscape(versionID), params, nil)
}

// ChangeLog returns the document's changelog, newest first.
func (s *VersionService) ChangeLog(ctx context.Context, documentID string) (*ChangeLog, error) {
	var log ChangeLog
	if err := s.c.get(ctx, "/api/v1/documents/"+url.PathEscape(documentID)+"/changelog", nil, &log); err != nil {
		return nil, err
	}
	return &log, nil
}
