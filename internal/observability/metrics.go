package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application
// metrics. All metrics register with Prometheus's default registry and
// are served from the /metrics endpoint.
type Metrics struct {
	// ChatTurns counts chat turns by outcome.
	// Labels: status (success|error)
	ChatTurns *prometheus.CounterVec

	// StreamDuration measures full model stream duration in seconds.
	// Labels: model
	StreamDuration *prometheus.HistogramVec

	// DocumentsIndexed counts indexed documents by source type.
	// Labels: source_type (manual|text|pdf|image)
	DocumentsIndexed *prometheus.CounterVec

	// ChunksIndexed counts chunk vectors written to the vector store.
	ChunksIndexed prometheus.Counter

	// RetrievalFailures counts context retrieval failures by stage.
	// Labels: stage (embed|query)
	RetrievalFailures *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP request latency in seconds.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics on the default Prometheus registry.
// Call once at application startup.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics on the given registerer. Tests use
// a fresh registry to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChatTurns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tome_chat_turns_total",
				Help: "Total number of chat turns by status",
			},
			[]string{"status"},
		),

		StreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tome_stream_duration_seconds",
				Help:    "Duration of model reply streams in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"model"},
		),

		DocumentsIndexed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tome_documents_indexed_total",
				Help: "Total number of documents indexed by source type",
			},
			[]string{"source_type"},
		),

		ChunksIndexed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tome_chunks_indexed_total",
				Help: "Total number of chunk vectors written to the vector store",
			},
		),

		RetrievalFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tome_retrieval_failures_total",
				Help: "Total number of context retrieval failures by stage",
			},
			[]string{"stage"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tome_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"method", "path", "status_code"},
		),
	}
}
