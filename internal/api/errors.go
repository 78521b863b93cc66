package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/httputil"
	"github.com/procledger/procledger/internal/metrics"
	"github.com/procledger/procledger/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternalError    = "internal_error"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeValidationError  = "validation_error"
	ErrCodeStoreUnavailable = "store_unavailable"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps sentinel errors from the service layer to stable
// HTTP statuses and error codes. Unrecognized errors become 500s with a
// generic message; the detail goes to the log only.
func respondServiceError(c *gin.Context, log *logrus.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidChangeNotes):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "change notes must not be empty")
	case errors.Is(err, models.ErrInvalidChangeType):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "unknown change type")
	case errors.Is(err, models.ErrMalformedSnapshot):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "malformed document snapshot")
	case errors.Is(err, models.ErrVersionNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "version not found")
	case errors.Is(err, models.ErrCannotDeleteLatest):
		respondError(c, http.StatusConflict, ErrCodeConflict, "cannot delete the latest version")
	case errors.Is(err, models.ErrStoreUnavailable):
		respondError(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable")
	default:
		log.WithError(err).Error("unhandled service error")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}
