package optimizer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/railopt/core/events"
	"github.com/kilianp07/railopt/core/metrics"
	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/internal/eventbus"
)

type panicStrategy struct{ m Method }

func (p panicStrategy) Method() Method { return p.m }

func (p panicStrategy) Optimize(context.Context, Input) (Result, error) {
	panic("index out of range")
}

type errStrategy struct{ m Method }

func (e errStrategy) Method() Method { return e.m }

func (e errStrategy) Optimize(context.Context, Input) (Result, error) {
	return Result{}, errors.New("solver crashed")
}

type memSink struct {
	mu   sync.Mutex
	recs []metrics.OptimizationRecord
}

func (m *memSink) RecordOptimization(r metrics.OptimizationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, r)
	return nil
}

func TestRunAll_IsolatesFailures(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	sink := &memSink{}
	o := NewOrchestrator(testConfig(), nil,
		WithStrategy(panicStrategy{m: MethodRL}),
		WithStrategy(errStrategy{m: MethodACO}),
		WithMetrics(sink),
	)
	snap := corridor()
	results, err := o.RunAll(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, results, len(AllMethods()))

	for i, m := range AllMethods() {
		r := results[i]
		assert.Equal(t, m, r.Method)
		switch m {
		case MethodRL:
			assert.False(t, r.Success)
			assert.Contains(t, r.Error, "panic")
		case MethodACO:
			assert.False(t, r.Success)
			assert.Contains(t, r.Error, "solver crashed")
		default:
			requireFeasible(t, snap, r)
		}
	}
	assert.Len(t, sink.recs, len(AllMethods()))
	assert.Equal(t, 1.0, testutil.ToFloat64(strategyFailures.WithLabelValues(string(MethodRL))))
	assert.Equal(t, 1.0, testutil.ToFloat64(strategyFailures.WithLabelValues(string(MethodACO))))

	best, ok := GetBest(results)
	require.True(t, ok)
	assert.True(t, best.Success)
	for _, r := range results {
		if r.Success {
			assert.LessOrEqual(t, best.TotalDelay, r.TotalDelay)
		}
	}
}

func TestRunAll_SubsetKeepsOrder(t *testing.T) {
	o := NewOrchestrator(testConfig(), nil)
	results, err := o.RunAll(context.Background(), twoTrains(), MethodMILP, MethodHeuristic)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, MethodMILP, results[0].Method)
	assert.Equal(t, MethodHeuristic, results[1].Method)

	_, err = o.RunAll(context.Background(), twoTrains(), Method("annealing"))
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestOptimize_ValidationError(t *testing.T) {
	snap := twoTrains()
	snap.Assignments[0].SectionID = "nowhere"
	o := NewOrchestrator(testConfig(), nil)
	r, err := o.Optimize(context.Background(), snap, MethodHeuristic)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.False(t, r.Success)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "section_id", ve.Field)

	_, err = o.RunAll(context.Background(), snap)
	assert.True(t, model.IsValidation(err))
}

func TestOptimize_PublishesEvents(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()
	o := NewOrchestrator(testConfig(), nil, WithEventBus(bus))
	_, err := o.Optimize(context.Background(), twoTrains(), MethodHeuristic)
	require.NoError(t, err)

	var got []string
	timeout := time.After(time.Second)
	for len(got) < 3 {
		select {
		case ev := <-sub:
			switch e := ev.(type) {
			case events.StrategyEvent:
				got = append(got, e.Action)
			case events.OptimizationEvent:
				assert.Equal(t, 22.0, e.TotalDelay)
				got = append(got, "result")
			}
		case <-timeout:
			t.Fatalf("missing events, got %v", got)
		}
	}
	assert.Equal(t, "start,done,result", strings.Join(got, ","))
}

func TestGetBest_TieBreaking(t *testing.T) {
	results := []Result{
		{Method: MethodRL, Success: true, TotalDelay: 10, ComputationTime: time.Millisecond},
		{Method: MethodHeuristic, Success: true, TotalDelay: 10, ComputationTime: time.Millisecond},
		{Method: MethodGA, Success: true, TotalDelay: 10, ComputationTime: 5 * time.Millisecond},
		{Method: MethodMILP, Success: false, TotalDelay: 0},
	}
	best, ok := GetBest(results)
	require.True(t, ok)
	assert.Equal(t, MethodHeuristic, best.Method)

	results = append(results, Result{Method: MethodMILP, Success: true, TotalDelay: 10, ComputationTime: time.Millisecond})
	best, _ = GetBest(results)
	assert.Equal(t, MethodMILP, best.Method)

	results = append(results, Result{Method: MethodACO, Success: true, TotalDelay: 9, ComputationTime: time.Second})
	best, _ = GetBest(results)
	assert.Equal(t, MethodACO, best.Method)

	_, ok = GetBest([]Result{{Method: MethodGA}})
	assert.False(t, ok)
}

func TestWithConfig_OverridesStrategies(t *testing.T) {
	o := NewOrchestrator(testConfig(), nil)
	cfg := testConfig()
	cfg.Exact.MaxAddedDelay = 10
	tight := o.WithConfig(cfg)
	// the freight needs 22 minutes, more than the tight window allows
	r, err := tight.Optimize(context.Background(), twoTrains(), MethodMILP)
	require.NoError(t, err)
	assert.True(t, r.Degraded)
	r, err = o.Optimize(context.Background(), twoTrains(), MethodMILP)
	require.NoError(t, err)
	assert.False(t, r.Degraded)
	assert.Zero(t, o.Config().Exact.MaxAddedDelay)
}
