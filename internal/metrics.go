package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records ingestion outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	fetchedItems  *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	createdItems  prometheus.Counter
	skippedItems  prometheus.Counter
	deletedItems  prometheus.Counter
	runDuration   prometheus.Histogram
	lastRunTS     prometheus.Gauge
}

// NewMetrics creates the ingestion metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "fetched_items_total",
			Help:      "Items returned by each source",
		}, []string{"source"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "fetch_failures_total",
			Help:      "Fetches that reported at least one failure, by source",
		}, []string{"source"}),
		createdItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "items_created_total",
			Help:      "Items inserted into the store",
		}),
		skippedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "items_skipped_total",
			Help:      "Items skipped as duplicates or failures",
		}),
		deletedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "items_deleted_total",
			Help:      "Items removed by retention pruning",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sitrep",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one ingestion run",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 30, 60},
		}),
		lastRunTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sitrep",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix timestamp of the last completed run",
		}),
	}
	reg.MustRegister(
		m.fetchedItems, m.fetchFailures,
		m.createdItems, m.skippedItems, m.deletedItems,
		m.runDuration, m.lastRunTS,
	)
	return m
}

// ObserveFetch records one source's fetch result
func (m *Metrics) ObserveFetch(res FetchResult) {
	if m == nil {
		return
	}
	m.fetchedItems.WithLabelValues(res.Source).Add(float64(len(res.Items)))
	if !res.OK() {
		m.fetchFailures.WithLabelValues(res.Source).Inc()
	}
}

// ObserveRun records a completed run
func (m *Metrics) ObserveRun(summary RunSummary, started, finished time.Time) {
	if m == nil {
		return
	}
	m.createdItems.Add(float64(summary.Created))
	m.skippedItems.Add(float64(summary.Skipped))
	m.deletedItems.Add(float64(summary.Deleted))
	m.runDuration.Observe(finished.Sub(started).Seconds())
	m.lastRunTS.Set(float64(finished.Unix()))
}

// MetricsServer exposes /metrics and /healthz
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer serves gatherer on addr
func NewMetricsServer(addr string, gatherer prometheus.Gatherer) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &MetricsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's mux
func (s *MetricsServer) Handler() http.Handler { return s.server.Handler }

// Serve blocks until the server stops
func (s *MetricsServer) Serve() error { return s.server.ListenAndServe() }

// Shutdown stops the server gracefully
func (s *MetricsServer) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }
