// Package priority scores trains for precedence decisions.
//
// Scores follow a ranking convention: the LOWER the score, the HIGHER the
// precedence. Every consumer (strategies, decision engine, reoptimizer) sorts
// ascending.
package priority

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/railopt/core/model"
)

// Period is the time-of-day bucket of a scheduled time.
type Period string

const (
	PeriodPeak   Period = "peak"
	PeriodNight  Period = "night"
	PeriodNormal Period = "normal"
)

// Engine computes priority scores. It is immutable and safe for concurrent
// use.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine using a private copy of cfg. Unset values are
// defaulted.
func NewEngine(cfg Config) *Engine {
	c := cfg.clone()
	c.SetDefaults()
	return &Engine{cfg: c}
}

// Config returns a copy of the configuration in use.
func (e *Engine) Config() Config { return e.cfg.clone() }

// BaseRank returns the static rank of a train: its explicit Priority when
// that is more important than the type rank, otherwise the type rank.
func (e *Engine) BaseRank(t model.Train) float64 {
	base, ok := e.cfg.Ranks[strings.ToLower(strings.TrimSpace(t.Type))]
	if !ok {
		base = e.cfg.DefaultRank
	}
	if t.Priority > 0 && float64(t.Priority) < base {
		base = float64(t.Priority)
	}
	return base
}

// PeriodOf classifies the hour of ts.
func (e *Engine) PeriodOf(ts time.Time) Period {
	if ts.IsZero() {
		return PeriodNormal
	}
	h := ts.Hour()
	for _, w := range e.cfg.PeakHours {
		if w.Contains(h) {
			return PeriodPeak
		}
	}
	if e.cfg.NightHours.Contains(h) {
		return PeriodNight
	}
	return PeriodNormal
}

// TimeFactor returns the multiplier applied to the base rank.
func (e *Engine) TimeFactor(ts time.Time) float64 {
	switch e.PeriodOf(ts) {
	case PeriodPeak:
		return e.cfg.PeakMultiplier
	case PeriodNight:
		return e.cfg.NightMultiplier
	default:
		return e.cfg.NormalMultiplier
	}
}

// DelayPenalty returns the bounded penalty for accumulated delay.
func (e *Engine) DelayPenalty(delayMinutes float64) float64 {
	if delayMinutes <= 0 {
		return 0
	}
	return math.Min(delayMinutes*e.cfg.DelayFactor, e.cfg.DelayCap)
}

// Score returns base*time_factor + delay_penalty for the train.
func (e *Engine) Score(t model.Train) float64 {
	return e.BaseRank(t)*e.TimeFactor(t.ScheduledTime) + e.DelayPenalty(t.DelayMinutes)
}

// Scores computes the score of every train keyed by id.
func (e *Engine) Scores(trains []model.Train) map[string]float64 {
	out := make(map[string]float64, len(trains))
	for _, t := range trains {
		out[t.ID] = e.Score(t)
	}
	return out
}

// Prefer returns the id of the train that should go first between a and b.
// Equal scores fall back to the earlier scheduled time, then to the id.
func (e *Engine) Prefer(a, b model.Train) string {
	if Less(e.Score(a), a, e.Score(b), b) {
		return a.ID
	}
	return b.ID
}

// Less orders two scored trains: score, then scheduled time, then id.
func Less(sa float64, a model.Train, sb float64, b model.Train) bool {
	if sa != sb {
		return sa < sb
	}
	if !a.ScheduledTime.Equal(b.ScheduledTime) {
		return a.ScheduledTime.Before(b.ScheduledTime)
	}
	return a.ID < b.ID
}

// Explain returns a short human readable justification of the score.
func (e *Engine) Explain(t model.Train) string {
	typ := t.Type
	if typ == "" {
		typ = "Unknown"
	}
	msg := fmt.Sprintf("Train Type: %s (Priority Level %g)", typ, e.BaseRank(t))
	if t.DelayMinutes > 0 {
		msg += fmt.Sprintf(" | Delayed by %g minutes", t.DelayMinutes)
	}
	switch e.PeriodOf(t.ScheduledTime) {
	case PeriodPeak:
		msg += " | Peak hours - Higher priority"
	case PeriodNight:
		msg += " | Night hours - Lower priority"
	}
	return msg
}

// Ranked is one row of the priority matrix.
type Ranked struct {
	Rank        int     `json:"rank"`
	TrainID     string  `json:"train_id"`
	TrainType   string  `json:"train_type"`
	Score       float64 `json:"priority_score"`
	Explanation string  `json:"explanation"`
}

// Rank sorts trains by precedence and assigns 1-based ranks.
func (e *Engine) Rank(trains []model.Train) []Ranked {
	idx := Order(e, trains)
	out := make([]Ranked, len(idx))
	for r, i := range idx {
		t := trains[i]
		out[r] = Ranked{Rank: r + 1, TrainID: t.ID, TrainType: t.Type, Score: e.Score(t), Explanation: e.Explain(t)}
	}
	return out
}

// Order returns the indices of trains sorted by precedence.
func Order(e *Engine, trains []model.Train) []int {
	scores := make([]float64, len(trains))
	idx := make([]int, len(trains))
	for i, t := range trains {
		scores[i] = e.Score(t)
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return Less(scores[idx[a]], trains[idx[a]], scores[idx[b]], trains[idx[b]])
	})
	return idx
}
