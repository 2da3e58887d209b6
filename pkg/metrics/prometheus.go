package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records retrieval metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	chunks        *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	degraded      *prometheus.CounterVec
	gatherer      prometheus.Gatherer
}

// New registers the recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry registers the recorder on reg.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refdata_backend_queries_total",
				Help: "Backend queries by backend, operation and outcome",
			},
			[]string{"backend", "op", "outcome"},
		),
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "refdata_backend_query_duration_seconds",
				Help:    "Backend query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "op"},
		),
		chunks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refdata_batch_chunks_total",
				Help: "Identifier chunks issued per operation",
			},
			[]string{"op"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refdata_cache_lookups_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		degraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refdata_cache_window_degraded_total",
				Help: "Padded cache windows that fell back to the requested boundary",
			},
			[]string{"side"},
		),
		gatherer: gatherer,
	}
}

// RecordQuery records one backend query.
func (r *Recorder) RecordQuery(backend, op string, started time.Time, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.queries.WithLabelValues(backend, op, outcome).Inc()
	r.queryDuration.WithLabelValues(backend, op).Observe(time.Since(started).Seconds())
}

// RecordChunks records the number of chunks an operation was split into.
func (r *Recorder) RecordChunks(op string, n int) {
	if r == nil {
		return
	}
	r.chunks.WithLabelValues(op).Add(float64(n))
}

// RecordCacheLookup records a cache hit or miss.
func (r *Recorder) RecordCacheLookup(cache string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordDegraded records a cache window boundary computed without padding.
func (r *Recorder) RecordDegraded(side string) {
	if r == nil {
		return
	}
	r.degraded.WithLabelValues(side).Inc()
}

// Handler serves the registry in Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
