package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/core/priority"
	"github.com/kilianp07/railopt/core/schedule"
)

// Method names an optimization strategy.
type Method string

const (
	MethodHeuristic Method = "heuristic"
	MethodGA        Method = "ga"
	MethodACO       Method = "aco"
	MethodMILP      Method = "milp"
	MethodRL        Method = "rl"
	MethodHybrid    Method = "comprehensive_hybrid"
)

// AllMethods lists every registered method in preference order.
func AllMethods() []Method {
	return []Method{MethodMILP, MethodHybrid, MethodGA, MethodACO, MethodHeuristic, MethodRL}
}

// ParseMethod converts user input to a Method. "hybrid" and "exact" are
// accepted as aliases.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodHeuristic, MethodGA, MethodACO, MethodMILP, MethodRL, MethodHybrid:
		return m, nil
	case "hybrid":
		return MethodHybrid, nil
	case "exact":
		return MethodMILP, nil
	case "genetic":
		return MethodGA, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownMethod, s)
	}
}

// preference ranks methods for tie-breaking, lower first.
func preference(m Method) int {
	for i, x := range AllMethods() {
		if x == m {
			return i
		}
	}
	return len(AllMethods())
}

// Input is what a strategy receives. Problem and Priority are read-only and
// may be shared between strategies running in parallel.
type Input struct {
	Snapshot model.Snapshot
	Problem  *schedule.Problem
	Priority *priority.Engine
	// Seed, when set, is a solution to improve upon.
	Seed *schedule.Solution
}

// NewInput compiles snap for the given configuration.
func NewInput(snap model.Snapshot, cfg Config, prio *priority.Engine) Input {
	if prio == nil {
		prio = priority.NewEngine(priority.DefaultConfig())
	}
	return Input{Snapshot: snap, Problem: schedule.Compile(snap, cfg.HeadwayMinutes), Priority: prio}
}

// Strategy turns a snapshot into an optimization result.
type Strategy interface {
	Method() Method
	Optimize(ctx context.Context, in Input) (Result, error)
}

// StageSummary reports one stage of the hybrid pipeline.
type StageSummary struct {
	Method          Method        `json:"method"`
	TotalDelay      float64       `json:"total_delay"`
	ComputationTime time.Duration `json:"computation_time"`
	Accepted        bool          `json:"accepted"`
}

// Result is the outcome of one strategy run.
type Result struct {
	RunID             string            `json:"run_id"`
	Method            Method            `json:"method"`
	Schedule          schedule.Schedule `json:"schedule"`
	TotalDelay        float64           `json:"total_delay"`
	AverageDelay      float64           `json:"average_delay"`
	ComputationTime   time.Duration     `json:"computation_time"`
	Throughput        float64           `json:"throughput"`
	Success           bool              `json:"success"`
	Degraded          bool              `json:"degraded,omitempty"`
	Status            string            `json:"status,omitempty"`
	Note              string            `json:"note,omitempty"`
	Error             string            `json:"error,omitempty"`
	FitnessHistory    []float64         `json:"fitness_history,omitempty"`
	ConflictsResolved int               `json:"conflicts_resolved"`
	Conflicts         int               `json:"conflicts"`
	Stages            []StageSummary    `json:"stages,omitempty"`
	Trail             *TrailStats       `json:"trail_stats,omitempty"`

	// Solution is the decoded form, used to seed other strategies.
	Solution *schedule.Solution `json:"-"`
}

// Objective is the value minimized by every strategy.
func Objective(totalDelay float64, conflicts int, weight float64) float64 {
	return totalDelay + weight*float64(conflicts)
}

func newResult(in Input, m Method, sol schedule.Solution, started time.Time) Result {
	sched := in.Problem.Schedule(sol)
	r := Result{
		Method:            m,
		Schedule:          sched,
		TotalDelay:        sol.TotalDelay,
		ComputationTime:   time.Since(started),
		Throughput:        in.Problem.Throughput(sol),
		Success:           true,
		ConflictsResolved: in.Problem.Shifted(sol),
		Conflicts:         schedule.Conflicts(sched, in.Snapshot.Sections),
	}
	if n := in.Problem.N(); n > 0 {
		r.AverageDelay = sol.TotalDelay / float64(n)
	}
	cp := sol.Clone()
	r.Solution = &cp
	return r
}

func emptyResult(m Method) Result {
	return Result{Method: m, Schedule: schedule.Schedule{}, Success: true, Status: "empty"}
}

func failedResult(m Method, err error, started time.Time) Result {
	return Result{Method: m, Success: false, Error: err.Error(), ComputationTime: time.Since(started)}
}

// priorityOrder returns the train indices of p sorted by priority score,
// scheduled time and id.
func priorityOrder(in Input) []int {
	trains := make([]model.Train, in.Problem.N())
	for i, tp := range in.Problem.Trains {
		trains[i] = tp.Train
	}
	return priority.Order(in.Priority, trains)
}

func deadline(ctx context.Context, ms int) (context.Context, context.CancelFunc) {
	if ms <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget(ms))
}

func expired(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func newRand(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }
