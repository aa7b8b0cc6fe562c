package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "armdeck",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total gateway HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "armdeck",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Gateway HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	dispatchCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "armdeck",
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Dispatched commands by command and response error code.",
		},
		[]string{"command", "code"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "armdeck",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Command handling duration in seconds, persistence included.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"command"},
	)
	storePersist = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "armdeck",
			Subsystem: "store",
			Name:      "persist_total",
			Help:      "Configuration writes to the durable store by result.",
		},
		[]string{"result"},
	)
	linkConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "armdeck",
			Subsystem: "link",
			Name:      "connections_total",
			Help:      "Accepted stream link connections by codec.",
		},
		[]string{"codec"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			dispatchCommands,
			dispatchDuration,
			storePersist,
			linkConnections,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordDispatch(command, code string, duration time.Duration) {
	RegisterMetrics()
	dispatchCommands.WithLabelValues(command, code).Inc()
	dispatchDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func RecordPersist(ok bool) {
	RegisterMetrics()
	result := "ok"
	if !ok {
		result = "error"
	}
	storePersist.WithLabelValues(result).Inc()
}

func RecordConnection(codec string) {
	RegisterMetrics()
	linkConnections.WithLabelValues(codec).Inc()
}
