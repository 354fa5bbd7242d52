package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	PipelineRuns              *prometheus.CounterVec
	PipelineDuration          prometheus.Histogram
	InboundValidationFailures prometheus.Counter
	OutboundSchemaFailures    prometheus.Counter
	DateFallbacks             prometheus.Counter
	RegistryRequests          *prometheus.CounterVec
	RegistryLatency           prometheus.Histogram
	EndpointLatency           *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		PipelineRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_pipeline_runs_total",
			Help: "Total number of pipeline runs, labeled by terminal outcome",
		}, []string{"outcome"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_pipeline_duration_seconds",
			Help:    "End-to-end duration of pipeline runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		InboundValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_inbound_validation_failures_total",
			Help: "Total number of inbound resources rejected by the conformance engine",
		}),
		OutboundSchemaFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_outbound_schema_failures_total",
			Help: "Total number of outbound payloads rejected by the Person schema",
		}),
		DateFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_date_fallbacks_total",
			Help: "Total number of birth dates replaced by the sentinel value",
		}),
		RegistryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_registry_requests_total",
			Help: "Total number of registry requests, labeled by result class",
		}, []string{"result"}),
		RegistryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_registry_latency_seconds",
			Help:    "Latency of outbound registry calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// ObservePipelineRun records one finished run with its terminal outcome.
func (m *Metrics) ObservePipelineRun(outcome string, durationSeconds float64) {
	m.PipelineRuns.WithLabelValues(outcome).Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

func (m *Metrics) IncrementInboundValidationFailures() {
	m.InboundValidationFailures.Inc()
}

func (m *Metrics) IncrementOutboundSchemaFailures() {
	m.OutboundSchemaFailures.Inc()
}

func (m *Metrics) IncrementDateFallbacks() {
	m.DateFallbacks.Inc()
}

// ObserveRegistryRequest records one outbound attempt with its result class
// (created, rejected, unreachable).
func (m *Metrics) ObserveRegistryRequest(result string, durationSeconds float64) {
	m.RegistryRequests.WithLabelValues(result).Inc()
	m.RegistryLatency.Observe(durationSeconds)
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
