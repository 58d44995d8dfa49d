// Package decision arbitrates live contention for track sections. Given the
// trains competing for a section it orders them by a conflict score and
// emits proceed/hold decisions. Lower scores go first.
package decision

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/railopt/core/decision/audit"
	"github.com/kilianp07/railopt/core/events"
	"github.com/kilianp07/railopt/core/logger"
	"github.com/kilianp07/railopt/core/metrics"
	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/core/priority"
	"github.com/kilianp07/railopt/internal/eventbus"
)

// Action is the instruction given to a train.
type Action string

const (
	Proceed Action = "proceed"
	Hold    Action = "hold"
)

// Decision is the outcome for one train in one conflict.
type Decision struct {
	TrainID     string  `json:"train_id"`
	SectionID   string  `json:"section_id"`
	Decision    Action  `json:"decision"`
	Score       float64 `json:"score"`
	HoldMinutes int     `json:"hold_minutes,omitempty"`
	Reason      string  `json:"reason"`
}

// Batch groups the decisions taken in one call to Resolve.
type Batch struct {
	ID        string     `json:"batch_id"`
	Time      time.Time  `json:"time"`
	Decisions []Decision `json:"decisions"`
}

// Engine scores competing trains. Resolving is a pure function of the
// conflicts and trains; recording happens afterwards in Resolve.
type Engine struct {
	cfg      Config
	prio     *priority.Engine
	logger   logger.Logger
	store    audit.Store
	recorder metrics.DecisionRecorder
	bus      eventbus.EventBus
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.logger = logger.OrNop(l) } }

// WithAuditStore sets the store receiving every batch.
func WithAuditStore(s audit.Store) Option { return func(e *Engine) { e.store = s } }

func WithRecorder(r metrics.DecisionRecorder) Option { return func(e *Engine) { e.recorder = r } }

func WithEventBus(b eventbus.EventBus) Option { return func(e *Engine) { e.bus = b } }

// WithClock overrides the batch timestamp source.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine returns an engine using cfg. A nil priority engine uses the
// default tables.
func NewEngine(cfg Config, prio *priority.Engine, opts ...Option) *Engine {
	cfg.SetDefaults()
	if prio == nil {
		prio = priority.NewEngine(priority.DefaultConfig())
	}
	e := &Engine{
		cfg:    cfg.clone(),
		prio:   prio,
		logger: logger.Nop{},
		store:  audit.NopStore{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = audit.NopStore{}
	}
	return e
}

// ResolveConflicts resolves conflicts with the default weights.
func ResolveConflicts(conflicts []model.SectionConflict, trains map[string]model.Train) []Decision {
	return NewEngine(DefaultConfig(), nil).ResolveConflicts(conflicts, trains)
}

// Precedence is the rank term of the score: the static priority when set,
// otherwise the priority engine score.
func (e *Engine) Precedence(t model.Train) float64 {
	if t.Priority > 0 {
		return float64(t.Priority)
	}
	return e.prio.Score(t)
}

// WeatherDelay returns the extra minutes expected for a weather condition.
// Unknown conditions add nothing.
func (e *Engine) WeatherDelay(condition string) float64 {
	return e.cfg.WeatherDelay[strings.ToLower(condition)]
}

func (e *Engine) signalPenalty(s model.SignalState) float64 {
	return e.cfg.SignalPenalty[strings.ToLower(string(s.Normalize()))]
}

// Score computes the conflict score of t in c.
func (e *Engine) Score(c model.SectionConflict, t model.Train) float64 {
	return e.Precedence(t)*e.cfg.PrecedenceWeight +
		t.DelayMinutes +
		e.WeatherDelay(c.WeatherCondition) +
		t.Length/e.cfg.LengthDivisor -
		t.PassengerLoad/e.cfg.LoadDivisor +
		e.signalPenalty(c.SignalState)
}

type scored struct {
	id    string
	score float64
}

// ResolveConflicts returns the decisions for every conflict, in conflict
// order and, within a conflict, in ascending score order. Trains without a
// platform or missing from trains are left out.
func (e *Engine) ResolveConflicts(conflicts []model.SectionConflict, trains map[string]model.Train) []Decision {
	out := []Decision{}
	for _, c := range conflicts {
		out = append(out, e.resolve(c, trains)...)
	}
	return out
}

func (e *Engine) resolve(c model.SectionConflict, trains map[string]model.Train) []Decision {
	seen := make(map[string]bool, len(c.CompetingTrains))
	cands := make([]scored, 0, len(c.CompetingTrains))
	for _, id := range c.CompetingTrains {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !c.PlatformAvailable(id) {
			e.logger.Debugf("section %s: %s has no platform", c.SectionID, id)
			continue
		}
		t, ok := trains[id]
		if !ok {
			e.logger.Warnf("section %s: unknown train %s", c.SectionID, id)
			continue
		}
		cands = append(cands, scored{id: id, score: e.Score(c, t)})
	}
	if len(cands) == 0 {
		return []Decision{}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score < cands[j].score
		}
		return cands[i].id < cands[j].id
	})

	// A section without capacity is closed: everybody holds.
	capacity := c.TrackCapacity
	if capacity < 0 {
		capacity = 0
	}
	if capacity > len(cands) {
		capacity = len(cands)
	}
	weather := int(e.WeatherDelay(c.WeatherCondition))

	out := make([]Decision, 0, len(cands))
	for i, s := range cands {
		d := Decision{TrainID: s.id, SectionID: c.SectionID, Score: s.score}
		switch {
		case i < capacity:
			d.Decision = Proceed
			d.Reason = fmt.Sprintf("proceed first on section %s (slot %d of %d)", c.SectionID, i+1, capacity)
		case capacity == 0:
			d.Decision = Hold
			d.HoldMinutes = e.cfg.FallbackHoldMinutes
			d.Reason = fmt.Sprintf("hold for %d minutes, section %s has no free track", d.HoldMinutes, c.SectionID)
		default:
			last := cands[capacity-1]
			d.Decision = Hold
			d.HoldMinutes = e.holdMinutes(s.score-last.score, weather)
			d.Reason = fmt.Sprintf("hold for %d minutes to let %s pass on section %s",
				d.HoldMinutes, last.id, c.SectionID)
		}
		out = append(out, d)
	}
	return out
}

func (e *Engine) holdMinutes(gap float64, weather int) int {
	m := int(gap) + weather
	if m < e.cfg.MinHoldMinutes {
		m = e.cfg.MinHoldMinutes
	}
	return m
}

// Resolve resolves conflicts and records the batch in the audit store, the
// metrics recorder and the event bus. The decisions are returned even when
// recording fails.
func (e *Engine) Resolve(ctx context.Context, conflicts []model.SectionConflict, trains map[string]model.Train) (Batch, error) {
	b := Batch{
		ID:        uuid.NewString(),
		Time:      e.now(),
		Decisions: e.ResolveConflicts(conflicts, trains),
	}
	var proceed, hold int
	for _, d := range b.Decisions {
		if d.Decision == Proceed {
			proceed++
		} else {
			hold++
		}
	}
	e.logger.Infof("batch %s: %d conflicts, %d proceed, %d hold", b.ID, len(conflicts), proceed, hold)

	if e.recorder != nil && len(b.Decisions) > 0 {
		if err := e.recorder.RecordDecisions(toRecords(b)); err != nil {
			e.logger.Warnf("record decisions: %v", err)
		}
	}
	if e.bus != nil {
		e.bus.Publish(events.DecisionEvent{BatchID: b.ID, Conflicts: len(conflicts), Proceed: proceed, Hold: hold})
	}
	if err := e.store.Append(ctx, toAudit(b, conflicts)); err != nil {
		return b, fmt.Errorf("audit batch %s: %w", b.ID, err)
	}
	return b, nil
}

// History returns audited batches matching q.
func (e *Engine) History(ctx context.Context, q audit.Query) ([]audit.Record, error) {
	return e.store.Query(ctx, q)
}

func toRecords(b Batch) []metrics.DecisionRecord {
	out := make([]metrics.DecisionRecord, len(b.Decisions))
	for i, d := range b.Decisions {
		out[i] = metrics.DecisionRecord{
			BatchID:     b.ID,
			SectionID:   d.SectionID,
			TrainID:     d.TrainID,
			Decision:    string(d.Decision),
			Score:       d.Score,
			HoldMinutes: d.HoldMinutes,
			Time:        b.Time,
		}
	}
	return out
}

func toAudit(b Batch, conflicts []model.SectionConflict) audit.Record {
	rec := audit.Record{
		BatchID:   b.ID,
		Timestamp: b.Time,
		Conflicts: conflicts,
		Decisions: make([]audit.Entry, len(b.Decisions)),
	}
	for i, d := range b.Decisions {
		rec.Decisions[i] = audit.Entry{
			TrainID:     d.TrainID,
			SectionID:   d.SectionID,
			Decision:    string(d.Decision),
			Score:       d.Score,
			HoldMinutes: d.HoldMinutes,
			Reason:      d.Reason,
		}
	}
	return rec
}
