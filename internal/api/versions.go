package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/models"
)

// VersionHandler serves the version-chain endpoints.
type VersionHandler struct {
	versions VersionOperations
	log      *logrus.Logger
}

// NewVersionHandler creates a VersionHandler.
func NewVersionHandler(versions VersionOperations, log *logrus.Logger) *VersionHandler {
	return &VersionHandler{versions: versions, log: log}
}

// saveVersionRequest is the body of POST /documents/:id/versions.
type saveVersionRequest struct {
	Document    *models.Document  `json:"document"`
	ChangeNotes string            `json:"change_notes"`
	ChangeType  models.ChangeType `json:"change_type"`
	CreatedBy   string            `json:"created_by"`
}

// Save handles POST /api/v1/documents/:id/versions.
func (h *VersionHandler) Save(c *gin.Context) {
	documentID := c.Param("id")
	if err := validatePathID(documentID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	var req saveVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	if req.Document == nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "document is required")
		return
	}

	if req.Document.ID == "" {
		req.Document.ID = documentID
	} else if req.Document.ID != documentID {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "document id does not match path")
		return
	}

	v, err := h.versions.Save(c.Request.Context(), req.Document, req.ChangeNotes, req.ChangeType, req.CreatedBy)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, v)
}

// List handles GET /api/v1/documents/:id/versions.
func (h *VersionHandler) List(c *gin.Context) {
	documentID := c.Param("id")
	if err := validatePathID(documentID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	versions, err := h.versions.GetVersions(c.Request.Context(), documentID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  versions,
		"total": len(versions),
	})
}

// Latest handles GET /api/v1/documents/:id/versions/latest.
func (h *VersionHandler) Latest(c *gin.Context) {
	documentID := c.Param("id")
	if err := validatePathID(documentID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	v, err := h.versions.GetLatestVersion(c.Request.Context(), documentID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	if v == nil {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "document has no versions")
		return
	}

	c.JSON(http.StatusOK, v)
}

// Get handles GET /api/v1/versions/:id.
func (h *VersionHandler) Get(c *gin.Context) {
	versionID := c.Param("id")
	if err := validatePathID(versionID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	v, err := h.versions.GetVersion(c.Request.Context(), versionID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, v)
}

// restoreRequest is the body of POST /versions/:id/restore.
type restoreRequest struct {
	Actor string `json:"actor"`
}

// Restore handles POST /api/v1/versions/:id/restore.
func (h *VersionHandler) Restore(c *gin.Context) {
	versionID := c.Param("id")
	if err := validatePathID(versionID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	var req restoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
			return
		}
	}

	v, err := h.versions.RestoreVersion(c.Request.Context(), versionID, req.Actor)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, v)
}

// Delete handles DELETE /api/v1/versions/:id.
func (h *VersionHandler) Delete(c *gin.Context) {
	versionID := c.Param("id")
	if err := validatePathID(versionID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	if err := h.versions.DeleteVersion(c.Request.Context(), versionID, c.Query("actor")); err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ChangeLog handles GET /api/v1/documents/:id/changelog.
func (h *VersionHandler) ChangeLog(c *gin.Context) {
	documentID := c.Param("id")
	if err := validatePathID(documentID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	log, err := h.versions.GenerateChangeLog(c.Request.Context(), documentID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, log)
}
