package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/middleware"
	"github.com/procledger/procledger/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log          *logrus.Logger
	Hub          *ws.Hub
	Versions     VersionOperations
	Audit        AuditOperations
	HealthCheck  HealthCheckFunc
	CORSOrigins  []string
	Version      string
	StoreBackend string
}

// Router-level limits.
const (
	maxBodySize = 10 << 20 // 10 MB
	rateLimit   = 100      // requests per second per IP
	rateBurst   = 200      // token bucket burst size
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.HealthCheck, deps.Hub, log, deps.Version, deps.StoreBackend)
	versions := NewVersionHandler(deps.Versions, log)
	audit := NewAuditHandler(deps.Audit, log)

	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// Version chain.
	api.POST("/documents/:id/versions", versions.Save)
	api.GET("/documents/:id/versions", versions.List)
	api.GET("/documents/:id/versions/latest", versions.Latest)
	api.GET("/documents/:id/changelog", versions.ChangeLog)
	api.GET("/versions/:id", versions.Get)
	api.POST("/versions/:id/restore", versions.Restore)
	api.DELETE("/versions/:id", versions.Delete)

	// Audit trail.
	api.GET("/audit", audit.Query)
	api.POST("/audit", audit.Record)
	api.GET("/audit/export", audit.Export)

	// Version event stream.
	api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins))
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
