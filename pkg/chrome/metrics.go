package chrome

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricLaunches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ghostchrome",
		Name:      "launches_total",
		Help:      "Number of browser processes started.",
	})
	metricConnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ghostchrome",
		Name:      "connect_attempts_total",
		Help:      "Number of control channel connect attempts.",
	})
	metricConnectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ghostchrome",
		Name:      "connect_failures_total",
		Help:      "Number of sessions that exhausted every connect attempt.",
	})
	metricProcessesReaped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ghostchrome",
		Name:      "processes_reaped_total",
		Help:      "Number of marker-bearing processes killed by the reaper.",
	})
	metricPrefsRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ghostchrome",
		Name:      "prefs_repaired_total",
		Help:      "Number of successful preference record repairs.",
	})
	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ghostchrome",
		Name:      "active_sessions",
		Help:      "Sessions acquired and not yet released.",
	})
)

func recordLaunch() {
	metricLaunches.Inc()
}

func recordConnectAttempt() {
	metricConnectAttempts.Inc()
}

func recordConnectFailure() {
	metricConnectFailures.Inc()
}

func recordReaped(count int) {
	if count > 0 {
		metricProcessesReaped.Add(float64(count))
	}
}

func recordPrefsRepaired() {
	metricPrefsRepaired.Inc()
}
