package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency, shared across every route.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "certforge",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// CertificatesGeneratedTotal counts generate() calls by mode and outcome.
var CertificatesGeneratedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "certforge",
		Subsystem: "certificates",
		Name:      "generated_total",
		Help:      "Total number of certificate generation attempts.",
	},
	[]string{"mode", "outcome"},
)

// CertificatesIssuedTotal counts successful transitions into ISSUED.
var CertificatesIssuedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "certforge",
		Subsystem: "certificates",
		Name:      "issued_total",
		Help:      "Total number of certificates that reached ISSUED.",
	},
)

// CertificatesFailedTotal counts transitions into FAILED.
var CertificatesFailedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "certforge",
		Subsystem: "certificates",
		Name:      "failed_total",
		Help:      "Total number of certificates that reached FAILED.",
	},
)

// RenderDuration tracks PDF render time under a "pass" label. The engine
// observes each full two-pass Render call once, labeled "pass2"; nothing
// records a "pass1" observation.
var RenderDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "certforge",
		Subsystem: "render",
		Name:      "duration_seconds",
		Help:      "Duration in seconds of the full two-pass PDF render (recorded as pass=pass2).",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"pass"},
)

// QueueDepth reports the generation stream's length (XLEN), which counts
// acknowledged entries as well as undelivered and pending ones.
var QueueDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "certforge",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Length of the generation queue stream, including acknowledged entries.",
	},
)

// QueueRetriesTotal counts negative acks with requeue.
var QueueRetriesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "certforge",
		Subsystem: "queue",
		Name:      "retries_total",
		Help:      "Total number of negatively-acked, requeued deliveries.",
	},
)

// QueueDeadLetteredTotal counts messages moved to the dead-letter stream.
var QueueDeadLetteredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "certforge",
		Subsystem: "queue",
		Name:      "dead_lettered_total",
		Help:      "Total number of messages exceeding the retry budget.",
	},
)

// VerificationHitsTotal and VerificationMissesTotal track C12 outcomes.
var VerificationHitsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "certforge",
		Subsystem: "verification",
		Name:      "hits_total",
		Help:      "Total number of verification requests that matched an issued certificate.",
	},
)

var VerificationMissesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "certforge",
		Subsystem: "verification",
		Name:      "misses_total",
		Help:      "Total number of verification requests with no match.",
	},
)

// PreviewsSweptTotal counts previews revoked by the sweeper.
var PreviewsSweptTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "certforge",
		Subsystem: "sweeper",
		Name:      "previews_revoked_total",
		Help:      "Total number of aged previews revoked by the sweeper.",
	},
)

// All returns the certforge-specific collectors for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		CertificatesGeneratedTotal,
		CertificatesIssuedTotal,
		CertificatesFailedTotal,
		RenderDuration,
		QueueDepth,
		QueueRetriesTotal,
		QueueDeadLetteredTotal,
		VerificationHitsTotal,
		VerificationMissesTotal,
		PreviewsSweptTotal,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors,
// the shared HTTPRequestDuration metric, and any additional collectors.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
