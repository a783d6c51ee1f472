package mux

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "devcamper",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of the http requests handled by the api.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.3, 0.6, 1, 3, 6, 10},
	}, []string{"method", "code"})

	panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "devcamper",
		Name:      "http_panics_recovered_total",
		Help:      "Total number of http requests recovered from internal panic.",
	})
)

func observeRequest(method string, statusCode int, start time.Time) {
	requestDuration.WithLabelValues(method, strconv.Itoa(statusCode)).Observe(time.Since(start).Seconds())
}
