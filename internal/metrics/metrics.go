// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resumezk"

// Metrics groups every collector the service updates. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	shareOps      *prometheus.CounterVec
	sharesReaped  prometheus.Counter
	commits       *prometheus.CounterVec
	parseDuration *prometheus.HistogramVec
	jobs          *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		shareOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_operations_total",
			Help:      "Share store operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		sharesReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_reaped_total",
			Help:      "Expired share records removed by sweeps.",
		}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resume_commits_total",
			Help:      "Résumé commitments computed, by outcome.",
		}, []string{"outcome"}),
		parseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resume_parse_seconds",
			Help:      "Time spent extracting and parsing an uploaded résumé.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"outcome"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_jobs_total",
			Help:      "Asynchronous parse jobs by final status.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(m.shareOps, m.sharesReaped, m.commits, m.parseDuration, m.jobs, m.httpRequests)
	return m
}

func (m *Metrics) ShareOp(op, outcome string) {
	if m == nil {
		return
	}
	m.shareOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) SharesReaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sharesReaped.Add(float64(n))
}

func (m *Metrics) Commit(outcome string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ParseDone(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.parseDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) JobDone(status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status).Inc()
}

func (m *Metrics) Request(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusLabel(code)).Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
