package generation

import "github.com/prometheus/client_golang/prometheus"

var (
	guardTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "generation",
			Name:      "transitions_total",
			Help:      "Generation guard transitions by outcome",
		},
		[]string{"outcome"},
	)

	guardPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelsync",
			Subsystem: "generation",
			Name:      "pending",
			Help:      "1 while a generation is in flight",
		},
	)
)

func init() {
	prometheus.MustRegister(guardTransitionsTotal, guardPending)
}
