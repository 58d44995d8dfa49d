package optimizer

import (
	"context"
	"math/rand"
	"time"

	"github.com/kilianp07/railopt/core/logger"
)

// QTable maps a state key to the value of proceeding and holding.
type QTable map[string][2]float64

// greedy returns the best known action, preferring proceed on ties.
func (q QTable) greedy(state string) Action {
	v := q[state]
	if v[Hold] > v[Proceed] {
		return Hold
	}
	return Proceed
}

func (q QTable) max(state string) float64 {
	v := q[state]
	if v[Hold] > v[Proceed] {
		return v[Hold]
	}
	return v[Proceed]
}

// QLearning trains a tabular agent on the dispatching environment and
// schedules with its greedy policy.
type QLearning struct {
	cfg    RLConfig
	seed   int64
	logger logger.Logger
}

// NewQLearning returns the RL strategy.
func NewQLearning(cfg Config, l logger.Logger) *QLearning {
	return &QLearning{cfg: cfg.RL, seed: cfg.Seed, logger: logger.OrNop(l)}
}

func (q *QLearning) Method() Method { return MethodRL }

// Train runs episodes on env and returns the learnt table together with the
// total delay of every episode.
func (q *QLearning) Train(ctx context.Context, env *Env, rng *rand.Rand) (QTable, []float64) {
	table := QTable{}
	eps := q.cfg.Epsilon
	var history []float64
	for ep := 0; ep < q.cfg.Episodes && !expired(ctx); ep++ {
		state := env.Reset()
		for !env.Done() {
			a := table.greedy(state)
			if rng.Float64() < eps {
				a = Action(rng.Intn(2))
			}
			next, reward, done := env.Step(a)
			target := reward
			if !done {
				target += q.cfg.Discount * table.max(next)
			}
			v := table[state]
			v[a] += q.cfg.LearningRate * (target - v[a])
			table[state] = v
			state = next
		}
		history = append(history, env.Solution().TotalDelay)
		eps *= q.cfg.EpsilonDecay
		if eps < q.cfg.MinEpsilon {
			eps = q.cfg.MinEpsilon
		}
	}
	return table, history
}

// Optimize trains the agent then rolls out the greedy policy.
func (q *QLearning) Optimize(ctx context.Context, in Input) (Result, error) {
	started := time.Now()
	n := in.Problem.N()
	if n == 0 {
		return emptyResult(MethodRL), nil
	}
	ctx, cancel := deadline(ctx, q.cfg.TimeBudgetMS)
	defer cancel()

	scores := make([]float64, n)
	for i, tp := range in.Problem.Trains {
		scores[i] = in.Priority.Score(tp.Train)
	}
	env := NewEnv(in.Problem, q.cfg, scores)
	table, history := q.Train(ctx, env, newRand(q.seed))

	state := env.Reset()
	for !env.Done() {
		state, _, _ = env.Step(table.greedy(state))
	}
	sol := env.Solution()

	r := newResult(in, MethodRL, sol, started)
	r.FitnessHistory = history
	r.Status = "ok"
	if len(history) < q.cfg.Episodes {
		r.Note = "time budget reached during training"
	}
	q.logger.Debugf("rl trained %d episodes over %d states, delay %.1f", len(history), len(table), sol.TotalDelay)
	return r, nil
}
