// Package metrics defines the Prometheus collectors exposed on /metrics.
// Collectors are package-level so any layer can increment them without
// threading a registry through every constructor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts HTTP requests by route pattern, method, and status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// RequestDuration observes request latency by route pattern and method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// MutationsTotal counts successful audited mutations by table and kind.
	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_mutations_total",
			Help: "Total successful content mutations",
		},
		[]string{"table", "kind"}, // create|update|delete
	)

	// MutationsFailed counts mutations rejected by the backing store.
	MutationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cms_mutations_failed_total",
			Help: "Total failed content mutations",
		},
	)

	// AuditAppendFailures counts best-effort audit log writes that failed
	// after the primary mutation had already committed.
	AuditAppendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cms_audit_append_failures_total",
			Help: "Audit log appends that failed after a committed mutation",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

// Init registers all collectors with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(MutationsFailed)
	prometheus.MustRegister(AuditAppendFailures)
}
