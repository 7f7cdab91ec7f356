package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	mergeOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "registry",
			Name:      "merge_outcomes_total",
			Help:      "Registry merges by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	snapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "manager",
			Name:      "snapshots_total",
			Help:      "Full REST snapshots by result",
		},
		[]string{"result"},
	)

	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "manager",
			Name:      "actions_total",
			Help:      "Lifecycle actions by verb and result",
		},
		[]string{"verb", "result"},
	)

	registryModels = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "modelsync",
			Subsystem: "registry",
			Name:      "models",
			Help:      "Known models by lifecycle state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(mergeOutcomesTotal, snapshotsTotal, actionsTotal, registryModels)
}
