package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes a running exploration's internals as Prometheus
// instruments, namespaced "concolic_": queue depth and busy workers as
// gauges, solve latency as a histogram, and sealed/discovered/policy
// counts as counters. Optional — an Engine with no Metrics configured
// never touches these.
type Metrics struct {
	queueDepth   prometheus.Gauge
	busyWorkers  prometheus.Gauge
	solveLatency *prometheus.HistogramVec
	sealed       prometheus.Counter
	discovered   prometheus.Counter
	violations   prometheus.Counter

	mu      sync.RWMutex
	enabled bool
}

// NewMetrics registers every instrument with registry (pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "concolic",
			Name:      "queue_depth",
			Help:      "Number of unsolved constraints waiting in the exploration frontier",
		}),
		busyWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "concolic",
			Name:      "busy_workers",
			Help:      "Number of solver worker slots currently occupied",
		}),
		solveLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "concolic",
			Name:      "solve_latency_seconds",
			Help:      "CPU time a solver adapter spent on one FindCounterexample call",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"outcome"}), // outcome: sat, unsat, unknown
		sealed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "concolic",
			Name:      "sealed_branches_total",
			Help:      "Branches sealed as infeasible after UNSAT or ladder exhaustion",
		}),
		discovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "concolic",
			Name:      "discovered_results_total",
			Help:      "Distinct executions completed, one per discovered result",
		}),
		violations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "concolic",
			Name:      "policy_violations_total",
			Help:      "Executions whose result failed the program's policy check",
		}),
	}
}

func (m *Metrics) recordSolve(outcome string, seconds float64) {
	if m == nil || !m.enabledNow() {
		return
	}
	m.solveLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil || !m.enabledNow() {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) setBusyWorkers(n int) {
	if m == nil || !m.enabledNow() {
		return
	}
	m.busyWorkers.Set(float64(n))
}

func (m *Metrics) incSealed() {
	if m == nil || !m.enabledNow() {
		return
	}
	m.sealed.Inc()
}

func (m *Metrics) incDiscovered() {
	if m == nil || !m.enabledNow() {
		return
	}
	m.discovered.Inc()
}

func (m *Metrics) incViolation() {
	if m == nil || !m.enabledNow() {
		return
	}
	m.violations.Inc()
}

func (m *Metrics) enabledNow() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Disable stops recording without unregistering the instruments, mainly
// useful for tests that want a quiet Metrics without a fresh registry.
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}
