package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the audit pipeline. One
// instance is created in main and shared by workers and handlers.
type Metrics struct {
	EventsIngested   prometheus.Counter
	EventsPersisted  prometheus.Counter
	EventsDropped    prometheus.Counter
	AlertsCreated    *prometheus.CounterVec
	AlertsSuppressed *prometheus.CounterVec
	WebhookAttempts  prometheus.Counter
	WebhookFailures  prometheus.Counter
	RecordsPurged    prometheus.Counter
	ArchiveRuns      prometheus.Counter
	QueueRetries     *prometheus.CounterVec
	PersistLatencyMs prometheus.Histogram
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on the given registerer. Tests pass a fresh
// registry so repeated construction never collides.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchtower_audit_events_ingested_total",
			Help: "Audit events accepted by the ingestion path",
		}),
		EventsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchtower_audit_events_persisted_total",
			Help: "Audit events written to the append-only log",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchtower_audit_events_dropped_total",
			Help: "Audit events dropped after enqueue or persist failure",
		}),
		AlertsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchtower_alerts_created_total",
			Help: "Alerts created, labelled by rule",
		}, []string{"rule"}),
		AlertsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchtower_alerts_suppressed_total",
			Help: "Alert creations skipped by the suppression gate, labelled by rule",
		}, []string{"rule"}),
		WebhookAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchtower_webhook_attempts_total",
			Help: "Webhook delivery attempts, including retries",
		}),
		WebhookFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchtower_webhook_failures_total",
			Help: "Webhook deliveries that got a transport error or non-2xx response",
		}),
		RecordsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchtower_retention_records_purged_total",
			Help: "Audit records deleted by retention batches",
		}),
		ArchiveRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchtower_retention_archive_runs_total",
			Help: "Retention archiver runs that produced an archive file",
		}),
		QueueRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchtower_queue_retries_total",
			Help: "Job handler retries, labelled by topic",
		}, []string{"topic"}),
		PersistLatencyMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchtower_audit_persist_duration_ms",
			Help:    "Latency of audit record inserts in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}),
	}
}
