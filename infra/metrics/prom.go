package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/railopt/core/metrics"
)

// PromSink exports optimization results, conflict decisions and
// reoptimizations as Prometheus metrics.
type PromSink struct {
	runs       *prometheus.CounterVec
	throughput *prometheus.GaugeVec
	decisions  *prometheus.CounterVec
	holds      *prometheus.HistogramVec
	reopts     *prometheus.CounterVec
	scope      *prometheus.GaugeVec
}

// NewPromSink registers the sink metrics on the default Prometheus
// registerer. The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optimization_runs_total",
			Help: "Optimization runs by method and outcome",
		}, []string{"method", "success", "degraded"}),
		throughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "optimization_throughput_trains_per_hour",
			Help: "Throughput of the last schedule produced by each method",
		}, []string{"method"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conflict_decisions_total",
			Help: "Proceed/hold decisions taken per section",
		}, []string{"section_id", "decision"}),
		holds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conflict_hold_minutes",
			Help:    "Suggested hold duration for held trains",
			Buckets: []float64{5, 10, 15, 20, 30, 45, 60, 90},
		}, []string{"section_id"}),
		reopts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reoptimizations_total",
			Help: "Disruptions handled by the reoptimizer",
		}, []string{"method"}),
		scope: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reoptimization_scope",
			Help: "Size of the last reoptimized scope",
		}, []string{"kind"}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.throughput, err = register(reg, s.throughput); err != nil {
		return nil, err
	}
	if s.decisions, err = register(reg, s.decisions); err != nil {
		return nil, err
	}
	if s.holds, err = register(reg, s.holds); err != nil {
		return nil, err
	}
	if s.reopts, err = register(reg, s.reopts); err != nil {
		return nil, err
	}
	if s.scope, err = register(reg, s.scope); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return c, err
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			return c, err
		}
		return existing, nil
	}
	return c, nil
}

// RecordOptimization counts the run and updates the throughput gauge.
func (s *PromSink) RecordOptimization(rec coremetrics.OptimizationRecord) error {
	s.runs.WithLabelValues(rec.Method, strconv.FormatBool(rec.Success), strconv.FormatBool(rec.Degraded)).Inc()
	if rec.Success {
		s.throughput.WithLabelValues(rec.Method).Set(rec.Throughput)
	}
	return nil
}

// RecordDecisions counts decisions and observes hold durations.
func (s *PromSink) RecordDecisions(recs []coremetrics.DecisionRecord) error {
	for _, r := range recs {
		s.decisions.WithLabelValues(r.SectionID, r.Decision).Inc()
		if r.HoldMinutes > 0 {
			s.holds.WithLabelValues(r.SectionID).Observe(float64(r.HoldMinutes))
		}
	}
	return nil
}

// RecordReoptimization counts handled disruptions.
func (s *PromSink) RecordReoptimization(rec coremetrics.ReoptimizationRecord) error {
	s.reopts.WithLabelValues(rec.Method).Inc()
	s.scope.WithLabelValues("sections").Set(float64(rec.AffectedSections))
	s.scope.WithLabelValues("trains").Set(float64(rec.AffectedTrains))
	return nil
}
