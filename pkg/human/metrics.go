package human

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricInteractionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ghostchrome",
	Name:      "interaction_errors_total",
	Help:      "Number of gestures aborted by a page error.",
}, []string{"op"})

func recordInteractionError(op string) {
	metricInteractionErrors.WithLabelValues(op).Inc()
}
