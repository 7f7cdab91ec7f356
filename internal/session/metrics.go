package session

import (
	"github.com/prometheus/client_golang/prometheus"

	"modelsync/pkg/types"
)

var (
	connectAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "session",
			Name:      "connect_attempts_total",
			Help:      "Push-channel connection attempts",
		},
	)

	reconnectsScheduledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "session",
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled after an ungraceful close",
		},
	)

	closesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "session",
			Name:      "closes_total",
			Help:      "Push-channel closures by kind",
		},
		[]string{"kind"},
	)

	connectedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelsync",
			Subsystem: "session",
			Name:      "connected",
			Help:      "1 while the push channel is open",
		},
	)

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "session",
			Name:      "frames_total",
			Help:      "Inbound frames by message type",
		},
		[]string{"type"},
	)

	parseErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "session",
			Name:      "parse_errors_total",
			Help:      "Inbound frames dropped because they could not be parsed",
		},
	)

	droppedSendsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelsync",
			Subsystem: "session",
			Name:      "dropped_sends_total",
			Help:      "Outbound messages dropped because the channel was not open",
		},
	)
)

func init() {
	prometheus.MustRegister(connectAttemptsTotal, reconnectsScheduledTotal, closesTotal, connectedGauge,
		framesTotal, parseErrorsTotal, droppedSendsTotal)
}

// frameLabel keeps the frames_total label set bounded.
func frameLabel(t string) string {
	switch t {
	case types.MsgInitialState, types.MsgModelStatus, types.MsgGenerationStart,
		types.MsgGenerationComplete, types.MsgGenerationError, types.MsgHeartbeat, types.MsgPong:
		return t
	default:
		return "other"
	}
}
