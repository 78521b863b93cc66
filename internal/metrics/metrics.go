// Package metrics defines Prometheus metrics for procledger.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "procledger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procledger_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procledger_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	SavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procledger_version_saves_total",
			Help: "Total committed version saves by change type",
		},
		[]string{"change_type"},
	)

	DiffDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "procledger_diff_generation_duration_seconds",
			Help:    "Snapshot diff generation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AuditQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "procledger_audit_queue_depth",
			Help: "Current audit worker queue depth",
		},
	)

	AuditDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "procledger_audit_entries_dropped_total",
			Help: "Audit entries dropped due to a full queue",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "procledger_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		SavesTotal, DiffDuration,
		AuditQueueDepth, AuditDropped,
		WSConnections,
	)
}
