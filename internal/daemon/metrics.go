package daemon

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrel-forge/codegraphd/internal/pipeline"
)

// Metrics exposes the daemon's counters and gauges on a dedicated
// registry (rather than the global prometheus.DefaultRegisterer) so a
// test can build more than one Metrics instance without a duplicate-
// registration panic: prefixed counters, one Histogram-free gauge per
// latency figure since what's wanted is a rolling average, not a
// distribution.
type Metrics struct {
	registry *prometheus.Registry

	FilesIndexedTotal   prometheus.Counter
	ChunksEmbeddedTotal prometheus.Counter
	QueriesServedTotal  prometheus.Counter
	QueryLatencyAvgUS   prometheus.Gauge
	LastSyncDurationMS  prometheus.Gauge
	SyncsCompletedTotal prometheus.Counter

	mu         sync.Mutex
	currentAvg float64
}

// NewMetrics builds and registers the daemon's metric set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		FilesIndexedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraphd_files_indexed_total", Help: "Files written to the relational store across all syncs.",
		}),
		ChunksEmbeddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraphd_chunks_embedded_total", Help: "Chunks embedded (cache misses only) across all syncs.",
		}),
		QueriesServedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraphd_queries_served_total", Help: "Search requests served via the hybrid retrieval engine.",
		}),
		QueryLatencyAvgUS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codegraphd_query_latency_avg_us", Help: "Rolling average search request latency, microseconds.",
		}),
		LastSyncDurationMS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codegraphd_last_sync_duration_ms", Help: "Wall-clock duration of the most recently completed full sync.",
		}),
		SyncsCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraphd_syncs_completed_total", Help: "Full indexing syncs completed across all projects.",
		}),
	}
	reg.MustRegister(
		m.FilesIndexedTotal, m.ChunksEmbeddedTotal, m.QueriesServedTotal,
		m.QueryLatencyAvgUS, m.LastSyncDurationMS, m.SyncsCompletedTotal,
	)
	return m
}

// Handler serves the text-format exposition at 127.0.0.1:9091 — the
// caller wires this handler under "/" rather than restricting it to the
// /metrics path, since anything served on that port is metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// recordQueryLatency folds one more observation into the rolling average
// using a simple exponential moving average: a gauge wants an "avg", not
// a percentile histogram.
func recordQueryLatency(g prometheus.Gauge, currentAvg *float64, microseconds float64) {
	const alpha = 0.2
	if *currentAvg == 0 {
		*currentAvg = microseconds
	} else {
		*currentAvg = alpha*microseconds + (1-alpha)*(*currentAvg)
	}
	g.Set(*currentAvg)
}

// RecordQuery folds one served tools/call's latency into the rolling
// average and bumps the served counter.
func (m *Metrics) RecordQuery(elapsed time.Duration) {
	m.QueriesServedTotal.Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	recordQueryLatency(m.QueryLatencyAvgUS, &m.currentAvg, float64(elapsed.Microseconds()))
}

// RecordSync folds one completed full sync's counters into the metric
// set.
func (m *Metrics) RecordSync(result *pipeline.Result, elapsed time.Duration) {
	m.SyncsCompletedTotal.Inc()
	m.LastSyncDurationMS.Set(float64(elapsed.Milliseconds()))
	if result == nil {
		return
	}
	m.FilesIndexedTotal.Add(float64(result.FilesParsed))
	m.ChunksEmbeddedTotal.Add(float64(result.ChunksEmbedded))
}
