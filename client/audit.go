package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// AuditService handles audit trail operations.
type AuditService struct {
	c *Client
}

// AuditQueryOptions filter an audit query.
type AuditQueryOptions struct {
	DocumentID string
	Actions    []string
	UserIDs    []string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// auditQueryResponse wraps the paginated audit query response.
type auditQueryResponse struct {
	Data  []AuditEntry `json:"data"`
	Total int          `json:"total"`
}

// Query returns audit entries matching the given options plus the total
// matching count.
func (s *AuditService) Query(ctx context.Context, opts *AuditQueryOptions) ([]AuditEntry, int, error) {
	params := url.Values{}
	if opts != nil {
		if opts.DocumentID != "" {
			params.Set("document_id", opts.DocumentID)
		}
		for _, a := range opts.Actions {
			params.Add("action", a)
		}
		for _, u := range opts.UserIDs {
			params.Add("user_id", u)
		}
		if opts.From != nil {
			params.Set("from", opts.From.Format(time.RFC3339))
		}
		if opts.To != nil {
			params.Set("to", opts.To.Format(time.RFC3339))
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp auditQueryResponse
	if err := s.c.get(ctx, "/api/v1/audit", params, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Data, resp.Total, nil
}

// Record appends an audit entry for an externally performed action.
func (s *AuditService) Record(ctx context.Context, entry *AuditEntry) (*AuditEntry, error) {
	var out AuditEntry
	if err := s.c.post(ctx, "/api/v1/audit", entry, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportCSV returns the audit trail as CSV. An empty documentID exports
// all entries.
func (s *AuditService) ExportCSV(ctx context.Context, documentID string) ([]byte, error) {
	params := url.Values{}
	if documentID != "" {
		params.Set("document_id", documentID)
	}
	return s.c.doRaw(ctx, "/api/v1/audit/export", params)
}
