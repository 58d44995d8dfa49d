// Package reopt reacts to disruptions. It turns a disruption into extra
// delay for the trains it hits, finds the sections downstream of it and
// reschedules only that part of the network.
package reopt

import (
	"context"
	"fmt"

	"github.com/kilianp07/railopt/core/events"
	"github.com/kilianp07/railopt/core/logger"
	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/core/optimizer"
	"github.com/kilianp07/railopt/core/schedule"
	"github.com/kilianp07/railopt/internal/eventbus"
)

// Outcome describes how a disruption was handled.
type Outcome struct {
	Disruption       model.Disruption   `json:"disruption"`
	ImpactMinutes    float64            `json:"impact_minutes"`
	AffectedSections []string           `json:"affected_sections"`
	AffectedTrains   []string           `json:"affected_trains"`
	DelayedTrains    []string           `json:"delayed_trains"`
	Priorities       map[string]float64 `json:"priorities"`
	// Result covers the rescheduled scope only.
	Result optimizer.Result `json:"result"`
	// Schedule is the current schedule with the scope replaced.
	Schedule   schedule.Schedule  `json:"schedule"`
	Comparison []optimizer.Result `json:"comparison,omitempty"`
	// Snapshot is the input with updated delays and the disruption added.
	Snapshot model.Snapshot `json:"-"`
}

// Reoptimizer reschedules the scope of disruptions. Calls whose scopes share
// a section are serialized; disjoint scopes run concurrently.
type Reoptimizer struct {
	orch   *optimizer.Orchestrator
	cfg    Config
	logger logger.Logger
	bus    eventbus.EventBus
	locks  *sectionLocks
}

// Option configures a Reoptimizer.
type Option func(*Reoptimizer)

func WithLogger(l logger.Logger) Option { return func(r *Reoptimizer) { r.logger = logger.OrNop(l) } }

// WithEventBus sets the bus receiving a ReoptimizationEvent per disruption.
func WithEventBus(b eventbus.EventBus) Option { return func(r *Reoptimizer) { r.bus = b } }

// New returns a Reoptimizer running strategies through orch.
func New(orch *optimizer.Orchestrator, cfg Config, opts ...Option) *Reoptimizer {
	cfg.SetDefaults()
	r := &Reoptimizer{orch: orch, cfg: cfg, logger: logger.Nop{}, locks: newSectionLocks()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SimulateDelay returns a copy of snap where the train carries minutes of
// delay.
func SimulateDelay(snap model.Snapshot, trainID string, minutes float64) (model.Snapshot, error) {
	for _, t := range snap.Trains {
		if t.ID == trainID {
			return snap.ReplaceTrains(map[string]model.Train{trainID: t.WithDelay(minutes)}), nil
		}
	}
	return snap, &model.ValidationError{Entity: "train", ID: trainID, Field: "id", Reason: "unknown train"}
}

// Reoptimize reschedules the scope of d with the configured method. A nil
// current schedule stands for the planned timetable.
func (r *Reoptimizer) Reoptimize(ctx context.Context, snap model.Snapshot, d model.Disruption, current schedule.Schedule) (Outcome, error) {
	m, err := optimizer.ParseMethod(r.cfg.Method)
	if err != nil {
		return Outcome{}, err
	}
	return r.handle(ctx, r.orch, snap, d, current, func(ctx context.Context, o *optimizer.Orchestrator, sub model.Snapshot) (optimizer.Result, []optimizer.Result, error) {
		res, err := o.Optimize(ctx, sub, m)
		if err != nil || !r.cfg.CompareAll {
			return res, nil, err
		}
		all, err := o.RunAll(ctx, sub)
		return res, all, err
	})
}

// ReoptimizeAllMethods runs every strategy on the scope of d and keeps the
// best result.
func (r *Reoptimizer) ReoptimizeAllMethods(ctx context.Context, snap model.Snapshot, d model.Disruption, current schedule.Schedule) (Outcome, error) {
	return r.handle(ctx, r.orch, snap, d, current, runAll)
}

// ReoptimizeWithConfig is Reoptimize with strategy parameters taken from
// cfg instead of the orchestrator's own configuration.
func (r *Reoptimizer) ReoptimizeWithConfig(ctx context.Context, snap model.Snapshot, d model.Disruption, current schedule.Schedule, cfg optimizer.Config) (Outcome, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Outcome{}, err
	}
	m, err := optimizer.ParseMethod(r.cfg.Method)
	if err != nil {
		return Outcome{}, err
	}
	return r.handle(ctx, r.orch.WithConfig(cfg), snap, d, current, func(ctx context.Context, o *optimizer.Orchestrator, sub model.Snapshot) (optimizer.Result, []optimizer.Result, error) {
		res, err := o.Optimize(ctx, sub, m)
		return res, nil, err
	})
}

type runFunc func(ctx context.Context, o *optimizer.Orchestrator, sub model.Snapshot) (optimizer.Result, []optimizer.Result, error)

func runAll(ctx context.Context, o *optimizer.Orchestrator, sub model.Snapshot) (optimizer.Result, []optimizer.Result, error) {
	all, err := o.RunAll(ctx, sub)
	if err != nil {
		return optimizer.Result{}, nil, err
	}
	best, ok := optimizer.GetBest(all)
	if !ok {
		return optimizer.Result{}, all, fmt.Errorf("%w: every strategy failed", optimizer.ErrNoSolution)
	}
	return best, all, nil
}

func (r *Reoptimizer) handle(ctx context.Context, o *optimizer.Orchestrator, snap model.Snapshot, d model.Disruption, current schedule.Schedule, run runFunc) (Outcome, error) {
	out, sub, err := r.prepare(o, snap, d)
	if err != nil {
		return out, err
	}
	unlock := r.locks.lock(out.AffectedSections)
	defer unlock()

	r.logger.Infof("disruption %s on %s: %d sections, %d trains in scope, %d delayed by %.1f min",
		d.ID, d.SectionID, len(out.AffectedSections), len(out.AffectedTrains), len(out.DelayedTrains), out.ImpactMinutes)

	if current == nil {
		current = schedule.Baseline(snap)
	}
	sub = anchor(sub, out.Snapshot, current, toSet(out.AffectedTrains), toSet(out.AffectedSections))

	res, all, err := run(ctx, o, sub)
	if err != nil {
		return out, fmt.Errorf("reoptimize %s: %w", d.ID, err)
	}
	out.Result = res
	out.Comparison = all

	out.Schedule = current
	if !res.Success {
		r.logger.Warnf("disruption %s: %s failed, keeping current schedule: %s", d.ID, res.Method, res.Error)
	} else {
		merged := schedule.Merge(current, res.Schedule)
		before := schedule.Conflicts(current, snap.Sections)
		if after := schedule.Conflicts(merged, snap.Sections); after > before {
			r.logger.Errorf("disruption %s: merge raises conflicts from %d to %d, keeping current schedule", d.ID, before, after)
			return out, fmt.Errorf("reoptimize %s: %d conflicts instead of %d: %w", d.ID, after, before, ErrMergeConflict)
		}
		out.Schedule = merged
	}

	if r.bus != nil {
		r.bus.Publish(events.ReoptimizationEvent{
			DisruptionID:     d.ID,
			Method:           string(res.Method),
			AffectedSections: out.AffectedSections,
			AffectedTrains:   out.AffectedTrains,
			TotalDelay:       res.TotalDelay,
		})
	}
	return out, nil
}

// prepare applies d to snap and extracts the sub-snapshot to reschedule.
func (r *Reoptimizer) prepare(o *optimizer.Orchestrator, snap model.Snapshot, d model.Disruption) (Outcome, model.Snapshot, error) {
	out := Outcome{Disruption: d}
	sections := make(map[string]struct{}, len(snap.Sections))
	for _, s := range snap.Sections {
		sections[s.ID] = struct{}{}
	}
	if err := model.ValidateDisruption(d, sections); err != nil {
		return out, model.Snapshot{}, err
	}

	sc := ComputeScope(snap, d)
	out.AffectedSections = sc.Sections
	out.AffectedTrains = sc.Trains
	out.DelayedTrains = sc.Delayed
	out.ImpactMinutes = r.cfg.Impact(d)

	ix := model.NewIndex(snap)
	repl := make(map[string]model.Train, len(sc.Delayed))
	delayed := make([]model.Train, 0, len(sc.Delayed))
	for _, id := range sc.Delayed {
		t, _ := ix.Train(id)
		t = t.WithDelay(t.DelayMinutes + out.ImpactMinutes)
		repl[id] = t
		delayed = append(delayed, t)
	}
	out.Priorities = o.Priority().Scores(delayed)

	full := snap.ReplaceTrains(repl)
	full.Disruptions = make([]model.Disruption, 0, len(snap.Disruptions)+1)
	for _, x := range snap.Disruptions {
		if x.ID != d.ID {
			full.Disruptions = append(full.Disruptions, x)
		}
	}
	full.Disruptions = append(full.Disruptions, d)
	out.Snapshot = full

	sub := full.Subset(toSet(sc.Trains), toSet(sc.Sections))
	return out, sub, nil
}
