package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds the Prometheus collectors for the server
// lifecycle. Collection is disabled when no registry is configured.
type serverMetrics struct {
	connectionsActive prometheus.Gauge
	tasksActive       prometheus.Gauge
	requestsTotal     prometheus.Counter
	forcedCancels     prometheus.Counter
}

// newServerMetrics registers the lifecycle collectors with the given
// registry.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "uvicorn",
			Name:      "connections_active",
			Help:      "Number of currently open connections",
		}),

		tasksActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "uvicorn",
			Name:      "tasks_active",
			Help:      "Number of registered background tasks",
		}),

		requestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "uvicorn",
			Name:      "requests_total",
			Help:      "Total number of completed requests",
		}),

		forcedCancels: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "uvicorn",
			Name:      "forced_task_cancellations_total",
			Help:      "Tasks force-cancelled because the graceful shutdown deadline elapsed",
		}),
	}
}
