package momentum

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sweepProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "sweep",
		Name:      "habits_processed_total",
		Help:      "Habits successfully evaluated by the missed-habit sweep.",
	}, []string{"pass"})
	sweepErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "sweep",
		Name:      "habit_errors_total",
		Help:      "Per-habit failures isolated during the missed-habit sweep.",
	}, []string{"pass"})
)

func init() {
	prometheus.MustRegister(sweepProcessedTotal, sweepErrorsTotal)
}
