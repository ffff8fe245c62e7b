// Package metrics provides Prometheus metrics for mint runs and RPC traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Fantasim/dropmint/internal/config"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// RPC
	RPCCalls   *prometheus.CounterVec
	RPCLatency *prometheus.HistogramVec

	// Dispatch
	Attempts *prometheus.CounterVec

	// Reconciliation
	Receipts     *prometheus.CounterVec
	PendingTxs   prometheus.Gauge
	PollTicks    prometheus.Counter
	RunsFinished *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	ns := config.MetricsNamespace

	return &Metrics{
		registry: reg,

		RPCCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "RPC calls by method and result",
		}, []string{"method", "result"}),
		RPCLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "dispatch",
			Name:      "attempts_total",
			Help:      "Purchase submission attempts by result",
		}, []string{"result"}),

		Receipts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "reconcile",
			Name:      "receipts_total",
			Help:      "Resolved receipts by status",
		}, []string{"status"}),
		PendingTxs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "reconcile",
			Name:      "pending_transactions",
			Help:      "Submitted transactions without a receipt",
		}),
		PollTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "reconcile",
			Name:      "poll_ticks_total",
			Help:      "Reconciliation ticks executed",
		}),
		RunsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Finished wallet runs by outcome",
		}, []string{"outcome"}),
	}
}

// Handler returns the HTTP handler exposing this instance's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// ObserveRPC records one RPC call.
func (m *Metrics) ObserveRPC(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RPCCalls.WithLabelValues(method, result).Inc()
	m.RPCLatency.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

// ObserveAttempt records one dispatch attempt.
func (m *Metrics) ObserveAttempt(submitted bool) {
	if m == nil {
		return
	}
	if submitted {
		m.Attempts.WithLabelValues("submitted").Inc()
		return
	}
	m.Attempts.WithLabelValues("failed").Inc()
}

// ObserveReceipt records a resolved ledger entry.
func (m *Metrics) ObserveReceipt(status string) {
	if m == nil {
		return
	}
	m.Receipts.WithLabelValues(status).Inc()
}

// ObserveTick records one poll tick and the pending count after it.
func (m *Metrics) ObserveTick(pending int) {
	if m == nil {
		return
	}
	m.PollTicks.Inc()
	m.PendingTxs.Set(float64(pending))
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(outcome string) {
	if m == nil {
		return
	}
	m.RunsFinished.WithLabelValues(outcome).Inc()
}
