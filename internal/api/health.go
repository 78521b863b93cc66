// Package api provides HTTP handlers for procledger.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/ws"
)

// HealthCheckFunc pings the backing store.
type HealthCheckFunc func(ctx context.Context) error

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	healthCheck HealthCheckFunc
	hub         *ws.Hub
	log         *logrus.Logger
	version     string
	backend     string
	startTime   time.Time
}

// NewHealthHandler creates a HealthHandler with the given dependencies.
func NewHealthHandler(healthCheck HealthCheckFunc, hub *ws.Hub, log *logrus.Logger, version, backend string) *HealthHandler {
	return &HealthHandler{
		healthCheck: healthCheck,
		hub:         hub,
		log:         log,
		version:     version,
		backend:     backend,
		startTime:   time.Now(),
	}
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Store         string  `json:"store"`
	StoreBackend  string  `json:"store_backend"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Liveness handles GET /api/v1/health. The store ping is best-effort and
// non-fatal for liveness.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Store:         "connected",
		StoreBackend:  h.backend,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}

	if h.healthCheck != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.healthCheck(ctx); err != nil {
			resp.Store = "disconnected"
		}
	} else {
		resp.Store = "not_configured"
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready. Fails when the backing store is
// unreachable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{"store": "ok"}
	status := "ready"
	statusCode := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.healthCheck != nil {
		if err := h.healthCheck(ctx); err != nil {
			h.log.WithError(err).Error("readiness: store health check failed")
			checks["store"] = "error"
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
		}
	}

	c.JSON(statusCode, readinessResponse{
		Status: status,
		Checks: checks,
	})
}
