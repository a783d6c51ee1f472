package http

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// clientMetrics the outbound calls of the relay clients, by host and path
type clientMetrics struct {
	handled *prom.CounterVec
	latency *prom.HistogramVec
}

var defaultClientMetrics = func() *clientMetrics {
	m := &clientMetrics{
		handled: prom.NewCounterVec(prom.CounterOpts{
			Name: "http_client_handled_total",
			Help: "Outbound http requests by host, path and status code.",
		}, []string{"http_scheme", "http_service", "http_path", "http_status"}),
		latency: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "http_client_handling_seconds",
			Help:    "Latency of the outbound http requests, retries included.",
			Buckets: prom.DefBuckets,
		}, []string{"http_scheme", "http_service", "http_path"}),
	}
	prom.MustRegister(m.handled, m.latency)
	return m
}()

// observe a finished request, statusCode is 0 for a transport failure
func (m *clientMetrics) observe(scheme, host, path string, statusCode int, used time.Duration) {
	m.handled.WithLabelValues(scheme, host, path, strconv.Itoa(statusCode)).Inc()
	m.latency.WithLabelValues(scheme, host, path).Observe(used.Seconds())
}
