package optimizer

import (
	"fmt"
	"math"

	"github.com/kilianp07/railopt/core/schedule"
)

// Action is a proceed/hold decision for the train at the head of the queue.
type Action int

const (
	Proceed Action = iota
	Hold
)

func (a Action) String() string {
	if a == Hold {
		return "hold"
	}
	return "proceed"
}

// Env is the dispatching environment the Q-learning agent interacts with.
// At each step the pending train with the earliest release is up for a
// decision: proceeding places it, holding pushes its release back by
// StepMinutes. A train held MaxHolds times proceeds whatever the action.
type Env struct {
	p     *schedule.Problem
	cfg   RLConfig
	score []float64

	st      *schedule.State
	release []float64
	holds   []int
	order   []int
	current int
	done    bool
}

// NewEnv returns an environment over p. score holds the priority score of
// every train and breaks release ties.
func NewEnv(p *schedule.Problem, cfg RLConfig, score []float64) *Env {
	e := &Env{p: p, cfg: cfg, score: score}
	e.Reset()
	return e
}

// Reset starts a new episode and returns the initial state key.
func (e *Env) Reset() string {
	n := e.p.N()
	e.st = e.p.NewState()
	e.release = make([]float64, n)
	e.holds = make([]int, n)
	e.order = e.order[:0]
	e.done = n == 0
	e.current = e.next()
	return e.State()
}

// Done reports whether every train is placed.
func (e *Env) Done() bool { return e.done }

// Current returns the index of the train awaiting a decision, or -1.
func (e *Env) Current() int { return e.current }

func (e *Env) entry(i int) float64 {
	tp := e.p.Trains[i]
	if len(tp.Legs) == 0 {
		return e.release[i]
	}
	return tp.LowerBound(0) + e.release[i]
}

func (e *Env) next() int {
	best := -1
	for i := 0; i < e.p.N(); i++ {
		if e.st.Placed(i) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		ei, eb := e.entry(i), e.entry(best)
		if ei < eb || (ei == eb && e.score[i] < e.score[best]) {
			best = i
		}
	}
	return best
}

func (e *Env) desired(i int) []float64 {
	tp := e.p.Trains[i]
	out := make([]float64, len(tp.Legs))
	for k := range tp.Legs {
		out[k] = tp.LowerBound(k) + e.release[i]
	}
	return out
}

// State returns the discretized key of the current observation: the train
// up for decision, its hold count, the delay it would gain by proceeding now
// (5 minute buckets), the occupancy of its first section and the number of
// pending trains.
func (e *Env) State() string {
	if e.done {
		return "terminal"
	}
	i := e.current
	m := e.st.Mark()
	added := e.st.Place(i, e.desired(i))
	e.st.Rollback(m)
	bucket := int(math.Min(added/5, 12))
	occ := 0
	if legs := e.p.Trains[i].Legs; len(legs) > 0 {
		occ = e.st.Occupancy(legs[0].Section, e.entry(i))
		if occ > 3 {
			occ = 3
		}
	}
	return fmt.Sprintf("%d:%d:%d:%d:%d", i, e.holds[i], bucket, occ, e.p.N()-len(e.order))
}

// Step applies the action and returns the next state key, the reward and
// whether the episode ended.
func (e *Env) Step(a Action) (string, float64, bool) {
	if e.done {
		return e.State(), 0, true
	}
	i := e.current
	reward := 0.0
	if a == Hold && e.holds[i] < e.cfg.MaxHolds {
		e.holds[i]++
		e.release[i] += e.cfg.StepMinutes
	} else {
		reward = -e.st.Place(i, e.desired(i))
		e.order = append(e.order, i)
	}
	e.current = e.next()
	if e.current < 0 {
		e.done = true
		if e.p.Conflicts(e.Solution()) == 0 {
			reward += e.cfg.TerminalBonus
		}
	}
	return e.State(), reward, e.done
}

// Solution returns the placement built so far.
func (e *Env) Solution() schedule.Solution {
	return e.st.Solution(e.order)
}
