package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter and histogram the service exports. One
// instance is built at startup and threaded through the dependency graph.
type Metrics struct {
	registry *prometheus.Registry

	AskRequests *prometheus.CounterVec
	AskLatency  *prometheus.HistogramVec
	CacheHits   prometheus.Counter

	SyncRuns       *prometheus.CounterVec
	SyncUpserts    prometheus.Counter
	SyncDedupeHits prometheus.Counter
	SyncErrors     prometheus.Counter

	WebhookEvents *prometheus.CounterVec

	VectorQueryErrors prometheus.Counter
	LLMTokens         *prometheus.CounterVec
	LLMFailures       prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		AskRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cricket_ask_requests_total",
			Help: "Questions answered, by intent and answer source.",
		}, []string{"intent", "source"}),
		AskLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cricket_ask_latency_seconds",
			Help:    "Answer latency by pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "cricket_ask_cache_hits_total",
			Help: "Answers served from the response cache.",
		}),
		SyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cricket_sync_runs_total",
			Help: "Sync runs by scope and outcome.",
		}, []string{"scope", "outcome"}),
		SyncUpserts: factory.NewCounter(prometheus.CounterOpts{
			Name: "cricket_sync_vector_upserts_total",
			Help: "Documents written to the vector store by sync runs.",
		}),
		SyncDedupeHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "cricket_sync_dedupe_hits_total",
			Help: "Writes skipped because the content hash was unchanged.",
		}),
		SyncErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "cricket_sync_errors_total",
			Help: "Per-entity errors absorbed during sync runs.",
		}),
		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cricket_webhook_events_total",
			Help: "Webhook events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		VectorQueryErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "cricket_vector_query_errors_total",
			Help: "Vector store queries that failed across all tiers.",
		}),
		LLMTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cricket_llm_tokens_total",
			Help: "Tokens exchanged with the LLM provider, by direction.",
		}, []string{"direction"}),
		LLMFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cricket_llm_failures_total",
			Help: "LLM calls that timed out or errored.",
		}),
	}
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
