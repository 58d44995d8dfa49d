package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/railopt/core/events"
	"github.com/kilianp07/railopt/core/logger"
	"github.com/kilianp07/railopt/core/metrics"
	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/core/priority"
	"github.com/kilianp07/railopt/internal/eventbus"
)

// Orchestrator runs strategies against snapshots and selects the best
// result. It holds a fixed registry of strategies and no per-run state, so
// concurrent calls are safe.
type Orchestrator struct {
	cfg      Config
	prio     *priority.Engine
	registry map[Method]Strategy
	logger   logger.Logger
	sink     metrics.MetricsSink
	bus      eventbus.EventBus
	extra    []Strategy
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(o *Orchestrator) { o.logger = logger.OrNop(l) } }

// WithMetrics sets the sink receiving every result.
func WithMetrics(s metrics.MetricsSink) Option { return func(o *Orchestrator) { o.sink = s } }

// WithEventBus sets the bus receiving strategy and optimization events.
func WithEventBus(b eventbus.EventBus) Option { return func(o *Orchestrator) { o.bus = b } }

// WithStrategy replaces the registry entry for s.Method().
func WithStrategy(s Strategy) Option { return func(o *Orchestrator) { o.extra = append(o.extra, s) } }

// NewOrchestrator builds the registry from cfg. A nil priority engine uses
// the default tables.
func NewOrchestrator(cfg Config, prio *priority.Engine, opts ...Option) *Orchestrator {
	cfg.SetDefaults()
	if prio == nil {
		prio = priority.NewEngine(priority.DefaultConfig())
	}
	o := &Orchestrator{cfg: cfg, prio: prio, logger: logger.Nop{}, sink: metrics.NopSink{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.sink == nil {
		o.sink = metrics.NopSink{}
	}
	o.registry = newRegistry(cfg, o.logger)
	for _, s := range o.extra {
		o.registry[s.Method()] = s
	}
	return o
}

// WithConfig returns an orchestrator sharing the sinks of o but using cfg
// for its strategies. Strategies installed with WithStrategy are dropped.
func (o *Orchestrator) WithConfig(cfg Config) *Orchestrator {
	cfg.SetDefaults()
	cp := *o
	cp.cfg = cfg
	cp.registry = newRegistry(cfg, o.logger)
	cp.extra = nil
	return &cp
}

// Config returns the configuration in use.
func (o *Orchestrator) Config() Config { return o.cfg }

// Priority returns the priority engine shared by all strategies.
func (o *Orchestrator) Priority() *priority.Engine { return o.prio }

func (o *Orchestrator) publish(e eventbus.Event) {
	if o.bus != nil {
		o.bus.Publish(e)
	}
}

// Optimize runs one strategy. Malformed snapshots return a
// *model.ValidationError. Strategy failures are reported in the result, not
// as an error.
func (o *Orchestrator) Optimize(ctx context.Context, snap model.Snapshot, method Method) (Result, error) {
	s, ok := o.registry[method]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownMethod, method)
		return Result{Method: method, Error: err.Error()}, err
	}
	if err := snap.Validate(); err != nil {
		return Result{Method: method, Error: err.Error()}, err
	}
	if snap.Empty() {
		r := emptyResult(method)
		r.RunID = uuid.NewString()
		return r, nil
	}
	return o.run(ctx, NewInput(snap, o.cfg, o.prio), s), nil
}

// RunAll runs the requested methods, every method when none is given,
// concurrently on a bounded pool. Results keep the order of methods.
func (o *Orchestrator) RunAll(ctx context.Context, snap model.Snapshot, methods ...Method) ([]Result, error) {
	if len(methods) == 0 {
		methods = AllMethods()
	}
	strategies := make([]Strategy, len(methods))
	for i, m := range methods {
		s, ok := o.registry[m]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, m)
		}
		strategies[i] = s
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	results := make([]Result, len(methods))
	if snap.Empty() {
		for i, m := range methods {
			results[i] = emptyResult(m)
			results[i].RunID = uuid.NewString()
		}
		return results, nil
	}

	in := NewInput(snap, o.cfg, o.prio)
	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for i, s := range strategies {
		g.Go(func() error {
			results[i] = o.run(ctx, in, s)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// run executes s, converting errors and panics into failed results.
func (o *Orchestrator) run(ctx context.Context, in Input, s Strategy) (res Result) {
	started := time.Now()
	runID := uuid.NewString()
	m := s.Method()
	o.publish(events.StrategyEvent{RunID: runID, Method: string(m), Action: events.ActionStart})
	defer func() {
		if rec := recover(); rec != nil {
			err := &StrategyFailure{Method: m, Err: fmt.Errorf("panic: %v", rec)}
			res = failedResult(m, err, started)
			res.RunID = runID
			o.finish(res, err)
		}
	}()

	r, err := s.Optimize(ctx, in)
	if err != nil {
		err = &StrategyFailure{Method: m, Err: err}
		r = failedResult(m, err, started)
	}
	r.RunID = runID
	r.Method = m
	o.finish(r, err)
	return r
}

func (o *Orchestrator) finish(r Result, err error) {
	observe(r)
	action := events.ActionDone
	switch {
	case err != nil:
		action = events.ActionFailure
		o.logger.Errorf("%v", err)
	case r.Degraded:
		action = events.ActionFallback
		o.logger.Warnf("%s degraded: %s", r.Method, r.Note)
	default:
		o.logger.Infof("%s finished: total delay %.1f min in %s", r.Method, r.TotalDelay, r.ComputationTime)
	}
	o.publish(events.StrategyEvent{RunID: r.RunID, Method: string(r.Method), Action: action, Err: err})
	o.publish(events.OptimizationEvent{
		RunID:      r.RunID,
		Method:     string(r.Method),
		TotalDelay: r.TotalDelay,
		Success:    r.Success,
		Degraded:   r.Degraded,
		Duration:   r.ComputationTime,
	})
	if serr := o.sink.RecordOptimization(metrics.OptimizationRecord{
		RunID:             r.RunID,
		Method:            string(r.Method),
		TotalDelay:        r.TotalDelay,
		AverageDelay:      r.AverageDelay,
		Throughput:        r.Throughput,
		Conflicts:         r.Conflicts,
		ConflictsResolved: r.ConflictsResolved,
		Success:           r.Success,
		Degraded:          r.Degraded,
		Duration:          r.ComputationTime,
		Time:              time.Now(),
	}); serr != nil {
		o.logger.Warnf("metrics sink: %v", serr)
	}
}

// GetBest returns the successful result with the lowest total delay. Ties
// go to the faster run, then to the preferred method. ok is false when no
// result succeeded.
func GetBest(results []Result) (best Result, ok bool) {
	for _, r := range results {
		if !r.Success {
			continue
		}
		if !ok || better(r, best) {
			best, ok = r, true
		}
	}
	return best, ok
}

func better(a, b Result) bool {
	if d := a.TotalDelay - b.TotalDelay; d < -tolerance || d > tolerance {
		return d < 0
	}
	if a.ComputationTime != b.ComputationTime {
		return a.ComputationTime < b.ComputationTime
	}
	return preference(a.Method) < preference(b.Method)
}
