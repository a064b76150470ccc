package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	storeLoadsTotal     *prometheus.CounterVec
	storeMutationsTotal *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
	archiveRunsTotal    prometheus.Counter
	archiveRunDuration  prometheus.Histogram
}

// New creates a fresh Metrics registry with HTTP, graph-store, aggregation
// and archive metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daraya",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by infra-core",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "daraya",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by infra-core",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	storeLoadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daraya",
		Name:      "graph_store_loads_total",
		Help:      "Snapshot loads from the municipal API, by outcome",
	}, []string{"outcome"})

	storeMutationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daraya",
		Name:      "graph_store_mutations_total",
		Help:      "Create/update/delete calls against the graph store",
	}, []string{"op", "outcome"})

	aggregationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "daraya",
		Name:      "status_aggregation_duration_seconds",
		Help:      "Duration of a single zone-status aggregation pass",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	archiveRunsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daraya",
		Name:      "report_archive_runs_total",
		Help:      "Total number of citizen-report archive runs processed",
	})

	archiveRunDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "daraya",
		Name:      "report_archive_run_duration_seconds",
		Help:      "Duration of citizen-report archive runs from start to finish",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		storeLoadsTotal,
		storeMutationsTotal,
		aggregationDuration,
		archiveRunsTotal,
		archiveRunDuration,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		storeLoadsTotal:     storeLoadsTotal,
		storeMutationsTotal: storeMutationsTotal,
		aggregationDuration: aggregationDuration,
		archiveRunsTotal:    archiveRunsTotal,
		archiveRunDuration:  archiveRunDuration,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncStoreLoad records one snapshot load attempt.
func (m *Metrics) IncStoreLoad(outcome string) {
	if m == nil {
		return
	}
	m.storeLoadsTotal.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// IncStoreMutation records one create/update/delete attempt.
func (m *Metrics) IncStoreMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.storeMutationsTotal.With(prometheus.Labels{"op": op, "outcome": outcome}).Inc()
}

// ObserveAggregation observes one zone-status aggregation pass.
func (m *Metrics) ObserveAggregation(duration time.Duration) {
	if m == nil {
		return
	}
	m.aggregationDuration.Observe(duration.Seconds())
}

// IncArchiveRun increments the archive run counter.
func (m *Metrics) IncArchiveRun() {
	if m == nil {
		return
	}
	m.archiveRunsTotal.Inc()
}

// ObserveArchiveRunDuration observes an archive run duration.
func (m *Metrics) ObserveArchiveRunDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.archiveRunDuration.Observe(duration.Seconds())
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
