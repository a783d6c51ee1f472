package query

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/status"
)

var (
	queryHandledCounter = prom.NewCounterVec(prom.CounterOpts{
		Name: "devcamper_query_total",
		Help: "Total number of list queries completed, regardless of success or failure.",
	}, []string{"collection", "code"})
	queryHandledHistogram = prom.NewHistogramVec(prom.HistogramOpts{
		Name:    "devcamper_query_duration_seconds",
		Help:    "Histogram of list query latency (seconds), count and data queries included.",
		Buckets: prom.DefBuckets,
	}, []string{"collection"})
)

func init() {
	prom.MustRegister(queryHandledCounter)
	prom.MustRegister(queryHandledHistogram)
}

func observe(collection string, start time.Time, err error) {
	queryHandledCounter.WithLabelValues(collection, status.Code(err).String()).Inc()
	queryHandledHistogram.WithLabelValues(collection).Observe(time.Since(start).Seconds())
}
