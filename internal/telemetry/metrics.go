package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/flowrequests/internal/domain"
)

const metricsNamespace = "flowrequests"

// Metrics — метрики Prometheus.
//
// Реализует engine.Observer: каждый выполненный узел попадает
// в nodes_executed_total и node_duration_seconds.
type Metrics struct {
	NodesExecuted *prometheus.CounterVec
	NodeDuration  *prometheus.HistogramVec
	RunsFinished  *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg. nil — prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		NodesExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "nodes_executed_total",
			Help:      "Total number of executed workflow nodes",
		}, []string{"type", "result"}),

		NodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "node_duration_seconds",
			Help:      "Workflow node execution time",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),

		RunsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_finished_total",
			Help:      "Total number of finished runs",
		}, []string{"status"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "code"}),
	}
}

// NodeExecuted реализует engine.Observer.
func (m *Metrics) NodeExecuted(nodeType string, duration time.Duration, failed bool) {
	result := "ok"
	if failed {
		result = "error"
	}
	m.NodesExecuted.WithLabelValues(nodeType, result).Inc()
	m.NodeDuration.WithLabelValues(nodeType).Observe(duration.Seconds())
}

// RunFinished учитывает завершённый run.
func (m *Metrics) RunFinished(status domain.RunStatus) {
	m.RunsFinished.WithLabelValues(string(status)).Inc()
}
