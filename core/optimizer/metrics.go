package optimizer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	strategyLatency  *prometheus.HistogramVec
	strategyDelay    *prometheus.GaugeVec
	strategyFailures *prometheus.CounterVec
	degradedRuns     *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.GaugeVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "optimizer_strategy_duration_seconds",
			Help:    "Wall time spent by each optimization strategy",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	delay := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "optimizer_total_delay_minutes",
			Help: "Total delay of the last schedule produced by each strategy",
		},
		[]string{"method"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_strategy_failures_total",
			Help: "Number of strategy runs that failed",
		},
		[]string{"method"},
	)
	deg := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimizer_degraded_total",
			Help: "Number of strategy runs that degraded to the heuristic",
		},
		[]string{"method"},
	)
	return lat, delay, fail, deg
}

func init() {
	strategyLatency, strategyDelay, strategyFailures, degradedRuns = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers optimizer metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(strategyLatency, strategyDelay, strategyFailures, degradedRuns)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	strategyLatency, strategyDelay, strategyFailures, degradedRuns = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func observe(r Result) {
	m := string(r.Method)
	strategyLatency.WithLabelValues(m).Observe(r.ComputationTime.Seconds())
	if !r.Success {
		strategyFailures.WithLabelValues(m).Inc()
		return
	}
	strategyDelay.WithLabelValues(m).Set(r.TotalDelay)
	if r.Degraded {
		degradedRuns.WithLabelValues(m).Inc()
	}
}
