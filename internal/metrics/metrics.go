// Package metrics records Prometheus metrics about calls made to the
// story-sharing service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storyclient"

// Collector owns the request metrics and the registry they live in.
type Collector struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a Collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Calls made to the story API, by operation and outcome.",
			},
			[]string{"operation", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Latency of calls made to the story API.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "method"},
		),
	}
	c.registry.MustRegister(c.requests, c.duration)

	return c
}

// ObserveRequest records one finished call. A status of 0 means the call
// never got an HTTP response.
func (c *Collector) ObserveRequest(operation, method string, status int, elapsed time.Duration) {
	statusLabel := "network_error"
	if status != 0 {
		statusLabel = strconv.Itoa(status)
	}

	c.requests.WithLabelValues(operation, method, statusLabel).Inc()
	c.duration.WithLabelValues(operation, method).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, e.g. for textfile export.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile dumps the current metrics in the node_exporter textfile format.
func (c *Collector) WriteTextfile(fileName string) error {
	return prometheus.WriteToTextfile(fileName, c.registry)
}
