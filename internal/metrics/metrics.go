// Package metrics exposes the Prometheus counters of the purge worker and the
// audit recorder.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the purge worker and the audit recorder report to.
// A nil *Collector is a valid no-op Recorder.
type Recorder interface {
	RecordPurged(kind string, rows int)
	RecordPurgeFailure(kind string)
	RecordPurgeDuration(d time.Duration)
	RecordAuditEvent(action string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	purgeRows     *prometheus.CounterVec
	purgeFailures *prometheus.CounterVec
	purgeDuration prometheus.Histogram
	auditEvents   *prometheus.CounterVec
}

// NewCollector creates the collectors and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		purgeRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asso_purge_rows_total",
			Help: "Rows hard-deleted by the purge worker.",
		}, []string{"kind"}),
		purgeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asso_purge_failures_total",
			Help: "Purge runs that failed for a kind.",
		}, []string{"kind"}),
		purgeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "asso_purge_duration_seconds",
			Help:    "Duration of a full purge run.",
			Buckets: prometheus.DefBuckets,
		}),
		auditEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asso_audit_events_total",
			Help: "Audit log rows written, by action.",
		}, []string{"action"}),
	}
	reg.MustRegister(c.purgeRows, c.purgeFailures, c.purgeDuration, c.auditEvents)
	return c
}

func (c *Collector) RecordPurged(kind string, rows int) {
	if c == nil {
		return
	}
	c.purgeRows.WithLabelValues(kind).Add(float64(rows))
}

func (c *Collector) RecordPurgeFailure(kind string) {
	if c == nil {
		return
	}
	c.purgeFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordPurgeDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.purgeDuration.Observe(d.Seconds())
}

func (c *Collector) RecordAuditEvent(action string) {
	if c == nil {
		return
	}
	c.auditEvents.WithLabelValues(action).Inc()
}

// Handler serves the gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewServer returns an http.Server exposing /metrics on addr.
func NewServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
