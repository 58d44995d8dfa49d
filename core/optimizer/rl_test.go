package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv_StepSemantics(t *testing.T) {
	cfg := testConfig()
	cfg.HeadwayMinutes = 0
	cfg.RL.StepMinutes = 5
	cfg.RL.MaxHolds = 2
	cfg.RL.TerminalBonus = 10
	in := NewInput(twoTrains(), cfg, nil)
	env := NewEnv(in.Problem, cfg.RL, []float64{1, 2})

	require.Equal(t, 0, env.Current())
	_, reward, done := env.Step(Hold)
	assert.Zero(t, reward)
	assert.False(t, done)
	require.Equal(t, 0, env.Current())

	// both trains now released at 10, the better score decides
	env.Step(Hold)
	require.Equal(t, 0, env.Current())

	// hold budget exhausted: the train proceeds anyway
	_, reward, done = env.Step(Hold)
	assert.Equal(t, -10.0, reward)
	assert.False(t, done)
	require.Equal(t, 1, env.Current())

	state, reward, done := env.Step(Proceed)
	assert.True(t, done)
	assert.Equal(t, "terminal", state)
	assert.Equal(t, -30.0+10, reward)
	assert.Equal(t, 40.0, env.Solution().TotalDelay)
	assert.Equal(t, -1, env.Current())

	env.Reset()
	assert.False(t, env.Done())
	assert.Equal(t, 0, env.Current())
}

func TestQLearning_LearnsOnCorridor(t *testing.T) {
	snap := corridor()
	cfg := testConfig()
	in := NewInput(snap, cfg, nil)
	r, err := NewQLearning(cfg, nil).Optimize(context.Background(), in)
	require.NoError(t, err)
	requireFeasible(t, snap, r)
	assert.Len(t, r.FitnessHistory, cfg.RL.Episodes)
}

func TestQTable_GreedyPrefersProceedOnTies(t *testing.T) {
	q := QTable{"s": {0, 0}, "h": {-5, -1}}
	assert.Equal(t, Proceed, q.greedy("s"))
	assert.Equal(t, Proceed, q.greedy("unknown"))
	assert.Equal(t, Hold, q.greedy("h"))
	assert.Equal(t, -1.0, q.max("h"))
}
