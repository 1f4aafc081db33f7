// Package metrics exposes Prometheus instrumentation for the escrow engine.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the marketplace collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	ledger      *prometheus.CounterVec
	settlements *prometheus.CounterVec
	operations  *prometheus.HistogramVec
	http        *prometheus.CounterVec
}

var (
	once     sync.Once
	registry *Metrics
)

// Marketplace returns the lazily-registered process-wide collectors.
func Marketplace() *Metrics {
	once.Do(func() {
		registry = New()
		prometheus.MustRegister(registry.Collectors()...)
	})
	return registry
}

// New builds unregistered collectors, for tests or custom registries.
func New() *Metrics {
	return &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrow",
			Subsystem: "transactions",
			Name:      "transitions_total",
			Help:      "State machine transitions segmented by source and target status.",
		}, []string{"from", "to"}),
		ledger: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrow",
			Subsystem: "ledger",
			Name:      "submissions_total",
			Help:      "Token ledger submissions segmented by leg kind and observed outcome.",
		}, []string{"kind", "outcome"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrow",
			Subsystem: "escrow",
			Name:      "settlements_total",
			Help:      "Escrow releases and refunds segmented by disposition.",
		}, []string{"disposition"}),
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "escrow",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine operations segmented by operation and error kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "kind"}),
		http: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests segmented by method and status code.",
		}, []string{"method", "status"}),
	}
}

// Collectors lists every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.transitions, m.ledger, m.settlements, m.operations, m.http}
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) LedgerSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.ledger.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Settlement(disposition string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(disposition).Inc()
}

// Observe records an operation's latency. kind is "ok" or an error kind.
func (m *Metrics) Observe(operation, kind string, started time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, kind).Observe(time.Since(started).Seconds())
}

func (m *Metrics) HTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.http.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
