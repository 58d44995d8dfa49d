package optimizer

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/kilianp07/railopt/core/logger"
	"github.com/kilianp07/railopt/core/schedule"
)

// Solver statuses.
const (
	StatusOptimal    = "optimal"
	StatusSuboptimal = "feasible-suboptimal"
	StatusInfeasible = "infeasible"
	StatusTimeout    = "timeout"
)

const tolerance = 1e-9

// Exact searches dispatch sequences with depth-first branch and bound. Every
// train must gain at most MaxAddedDelay minutes, or the planned horizon of the
// snapshot when unset. When no feasible sequence is found the
// heuristic schedule is returned and flagged as degraded.
type Exact struct {
	cfg       ExactConfig
	heuristic *Heuristic
	logger    logger.Logger
}

// NewExact returns the exact strategy.
func NewExact(cfg Config, l logger.Logger) *Exact {
	l = logger.OrNop(l)
	return &Exact{cfg: cfg.Exact, heuristic: NewHeuristic(l), logger: l}
}

func (e *Exact) Method() Method { return MethodMILP }

type searchSpec struct {
	problem   *schedule.Problem
	branch    []int
	maxAdded  float64
	incumbent *schedule.Solution
}

// exactSearch points to the search routine. Tests override it to simulate
// solver outcomes.
var exactSearch = branchAndBound

// branchAndBound returns the best solution and its status. It returns
// ErrInfeasible when the space was exhausted without solution and
// ErrNoSolution when ctx expired first.
func branchAndBound(ctx context.Context, spec searchSpec) (schedule.Solution, string, error) {
	p := spec.problem
	b := &bnb{
		ctx:      ctx,
		p:        p,
		st:       p.NewState(),
		branch:   spec.branch,
		maxAdded: spec.maxAdded,
		bestVal:  math.Inf(1),
		seq:      make([]int, 0, p.N()),
	}
	for i := 0; i < p.N(); i++ {
		b.remaining += p.SoloDelay(i)
	}
	if inc := spec.incumbent; inc != nil && b.admissible(*inc) {
		cp := inc.Clone()
		b.best = &cp
		b.bestVal = b.added(cp)
	}
	b.dfs(0)

	switch {
	case b.best == nil && b.timedOut:
		return schedule.Solution{}, StatusTimeout, ErrNoSolution
	case b.best == nil:
		return schedule.Solution{}, StatusInfeasible, ErrInfeasible
	case b.timedOut:
		return *b.best, StatusSuboptimal, nil
	default:
		return *b.best, StatusOptimal, nil
	}
}

type bnb struct {
	ctx       context.Context
	p         *schedule.Problem
	st        *schedule.State
	branch    []int
	maxAdded  float64
	best      *schedule.Solution
	bestVal   float64
	seq       []int
	remaining float64
	timedOut  bool
}

func (b *bnb) added(sol schedule.Solution) float64 {
	sum := 0.0
	for i, d := range sol.Delays {
		sum += d - b.p.Trains[i].Train.DelayMinutes
	}
	return sum
}

func (b *bnb) admissible(sol schedule.Solution) bool {
	for i, d := range sol.Delays {
		if d-b.p.Trains[i].Train.DelayMinutes > b.maxAdded+tolerance {
			return false
		}
	}
	return true
}

func (b *bnb) dfs(partial float64) {
	if b.timedOut {
		return
	}
	if expired(b.ctx) {
		b.timedOut = true
		return
	}
	if len(b.seq) == b.p.N() {
		if partial < b.bestVal-tolerance {
			sol := b.st.Solution(b.seq)
			b.best = &sol
			b.bestVal = partial
		}
		return
	}
	for _, i := range b.branch {
		if b.st.Placed(i) {
			continue
		}
		m := b.st.Mark()
		added := b.st.Place(i, nil)
		solo := b.p.SoloDelay(i)
		if added <= b.maxAdded+tolerance && partial+added+b.remaining-solo < b.bestVal-tolerance {
			b.seq = append(b.seq, i)
			b.remaining -= solo
			b.dfs(partial + added)
			b.remaining += solo
			b.seq = b.seq[:len(b.seq)-1]
		}
		b.st.Rollback(m)
		if b.timedOut {
			return
		}
	}
}

// window returns the largest delay the solver may add to one train.
func (e *Exact) window(p *schedule.Problem) float64 {
	if e.cfg.MaxAddedDelay > 0 {
		return e.cfg.MaxAddedDelay
	}
	if h := p.Horizon(); h > 0 {
		return h
	}
	return math.Inf(1)
}

// Optimize searches within the time budget. Infeasibility and timeouts
// without solution degrade to the heuristic schedule.
func (e *Exact) Optimize(ctx context.Context, in Input) (Result, error) {
	started := time.Now()
	if in.Problem.N() == 0 {
		return emptyResult(MethodMILP), nil
	}
	ctx, cancel := deadline(ctx, e.cfg.TimeBudgetMS)
	defer cancel()

	branch := priorityOrder(in)
	heur := in.Problem.Decode(branch, nil)
	incumbent := &heur
	if in.Seed != nil && in.Seed.TotalDelay < heur.TotalDelay {
		incumbent = in.Seed
	}
	sol, status, err := exactSearch(ctx, searchSpec{
		problem:   in.Problem,
		branch:    branch,
		maxAdded:  e.window(in.Problem),
		incumbent: incumbent,
	})
	if err != nil {
		if !errors.Is(err, ErrInfeasible) && !errors.Is(err, ErrNoSolution) {
			return Result{}, err
		}
		e.logger.Warnf("exact solver %s, falling back to heuristic: %v", status, err)
		r, herr := e.heuristic.Optimize(ctx, in)
		if herr != nil {
			return Result{}, herr
		}
		r.Method = MethodMILP
		r.Degraded = true
		r.Status = status
		r.Note = "degraded to heuristic: " + err.Error()
		r.ComputationTime = time.Since(started)
		return r, nil
	}

	r := newResult(in, MethodMILP, sol, started)
	r.Status = status
	ids := make([]string, len(sol.Order))
	for k, i := range sol.Order {
		ids[k] = in.Problem.Trains[i].Train.ID
	}
	r.Note = "dispatch order: " + strings.Join(ids, ", ")
	if status == StatusSuboptimal {
		r.Note = "time budget reached before optimality was proven; " + r.Note
	}
	return r, nil
}
