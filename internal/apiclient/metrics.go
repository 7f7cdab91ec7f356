package apiclient

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "apiclient",
			Name:      "requests_total",
			Help:      "Backend REST requests by operation and status code",
		},
		[]string{"op", "code"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelsync",
			Subsystem: "apiclient",
			Name:      "request_duration_seconds",
			Help:      "Backend REST request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}
