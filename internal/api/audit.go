package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/models"
)

// AuditHandler serves audit trail endpoints.
type AuditHandler struct {
	audit AuditOperations
	log   *logrus.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(audit AuditOperations, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, log: log}
}

// Query handles GET /api/v1/audit.
func (h *AuditHandler) Query(c *gin.Context) {
	opts := models.AuditQueryOpts{
		DocumentID: c.Query("document_id"),
		Limit:      parseInt(c.Query("limit"), 50),
		Offset:     parseOffset(c.Query("offset")),
	}

	for _, a := range c.QueryArray("action") {
		opts.Actions = append(opts.Actions, models.AuditAction(a))
	}

	opts.UserIDs = c.QueryArray("user_id")

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid from format, use RFC3339")
			return
		}
		opts.From = &t
	}

	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid to format, use RFC3339")
			return
		}
		opts.To = &t
	}

	entries, total, err := h.audit.Query(c.Request.Context(), opts)
	if err != nil {
		h.log.WithError(err).Error("failed to query audit trail")
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  entries,
		"total": total,
	})
}

// Record handles POST /api/v1/audit. External collaborators (document
// editors, training trackers) record their actions through this endpoint.
func (h *AuditHandler) Record(c *gin.Context) {
	var entry models.AuditEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	if entry.Action == "" {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "action is required")
		return
	}

	if err := h.audit.Record(c.Request.Context(), &entry); err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Export handles GET /api/v1/audit/export. Returns the filtered audit trail
// as a CSV attachment.
func (h *AuditHandler) Export(c *gin.Context) {
	documentID := c.Query("document_id")

	out, err := h.audit.ExportCSV(c.Request.Context(), documentID)
	if err != nil {
		h.log.WithError(err).Error("failed to export audit trail")
		respondServiceError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="audit_log.csv"`)
	c.Data(http.StatusOK, "text/csv", out)
}
