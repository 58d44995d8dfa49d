package decision

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/railopt/core/decision/audit"
	"github.com/kilianp07/railopt/core/events"
	"github.com/kilianp07/railopt/core/metrics"
	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/internal/eventbus"
)

var noon = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func scenarioTrains() map[string]model.Train {
	return map[string]model.Train{
		"T001": {ID: "T001", Type: "Express", Priority: 5, DelayMinutes: 2, Length: 500, PassengerLoad: 800, ScheduledTime: noon},
		"T002": {ID: "T002", Type: "Express", Priority: 6, Length: 400, PassengerLoad: 200, ScheduledTime: noon},
	}
}

func scenarioConflict() model.SectionConflict {
	return model.SectionConflict{
		SectionID:        "S1",
		CompetingTrains:  []string{"T002", "T001"},
		SignalState:      model.SignalGreen,
		WeatherCondition: model.WeatherClear,
		TrackCapacity:    1,
	}
}

func TestResolveConflicts_Scenario(t *testing.T) {
	got := ResolveConflicts([]model.SectionConflict{scenarioConflict()}, scenarioTrains())
	require.Len(t, got, 2)

	assert.Equal(t, "T001", got[0].TrainID)
	assert.Equal(t, Proceed, got[0].Decision)
	assert.True(t, near(got[0].Score, 56.2), "score %v", got[0].Score)
	assert.Zero(t, got[0].HoldMinutes)

	assert.Equal(t, "T002", got[1].TrainID)
	assert.Equal(t, Hold, got[1].Decision)
	assert.True(t, near(got[1].Score, 63.8), "score %v", got[1].Score)
	// int(63.8 - 56.2) = 7, above the minimum hold.
	assert.Equal(t, 7, got[1].HoldMinutes)
	assert.Contains(t, got[1].Reason, "T001")
}

func TestScore_WeatherAndSignal(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	c := scenarioConflict()
	c.WeatherCondition = "fog"
	c.SignalState = "RED"
	got := e.Score(c, scenarioTrains()["T001"])
	if !near(got, 56.2+5+20) {
		t.Fatalf("expected %v, got %v", 56.2+25, got)
	}
	c.WeatherCondition = "Sandstorm"
	c.SignalState = model.SignalYellow
	got = e.Score(c, scenarioTrains()["T001"])
	if !near(got, 56.2+10) {
		t.Fatalf("unknown weather should add nothing, got %v", got)
	}
}

func TestPrecedence_FallsBackToPriorityEngine(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	tr := model.Train{ID: "X", Type: "Express", DelayMinutes: 2, ScheduledTime: noon}
	// express rank 3, normal hours, delay penalty 0.02
	if got := e.Precedence(tr); !near(got, 3.02) {
		t.Fatalf("expected 3.02, got %v", got)
	}
	tr.Priority = 1
	if got := e.Precedence(tr); got != 1 {
		t.Fatalf("explicit priority should win, got %v", got)
	}
}

func TestResolveConflicts_Capacity(t *testing.T) {
	trains := map[string]model.Train{
		"A": {ID: "A", Priority: 3},
		"B": {ID: "B", Priority: 3},
		"C": {ID: "C", Priority: 3},
		"D": {ID: "D", Priority: 1},
	}
	c := model.SectionConflict{SectionID: "S", CompetingTrains: []string{"C", "B", "A", "D"}, TrackCapacity: 2}
	got := ResolveConflicts([]model.SectionConflict{c}, trains)
	require.Len(t, got, 4)

	var order []string
	var proceed int
	for _, d := range got {
		order = append(order, d.TrainID)
		if d.Decision == Proceed {
			proceed++
		}
	}
	assert.Equal(t, []string{"D", "A", "B", "C"}, order)
	assert.Equal(t, 2, proceed)
	assert.Equal(t, Proceed, got[1].Decision)
	assert.Equal(t, Hold, got[2].Decision)
	// equal scores fall back to the minimum hold
	assert.Equal(t, 5, got[2].HoldMinutes)
}

func TestResolveConflicts_Filters(t *testing.T) {
	c := scenarioConflict()
	c.CompetingTrains = append(c.CompetingTrains, "GHOST", "T001")
	c.PlatformAvailability = map[string]bool{"T001": false}
	got := ResolveConflicts([]model.SectionConflict{c}, scenarioTrains())
	require.Len(t, got, 1)
	assert.Equal(t, "T002", got[0].TrainID)
	assert.Equal(t, Proceed, got[0].Decision)

	assert.Empty(t, ResolveConflicts(nil, scenarioTrains()))
	empty := model.SectionConflict{SectionID: "S9", TrackCapacity: 1}
	assert.Empty(t, ResolveConflicts([]model.SectionConflict{empty}, scenarioTrains()))
}

func TestResolveConflicts_EmptyEncodesAsList(t *testing.T) {
	empty := model.SectionConflict{SectionID: "S9", TrackCapacity: 1}
	for name, conflicts := range map[string][]model.SectionConflict{
		"no conflicts":  nil,
		"no candidates": {empty},
	} {
		t.Run(name, func(t *testing.T) {
			got := ResolveConflicts(conflicts, scenarioTrains())
			require.NotNil(t, got)
			raw, err := json.Marshal(got)
			require.NoError(t, err)
			assert.JSONEq(t, `[]`, string(raw))
		})
	}

	e := NewEngine(DefaultConfig(), nil, WithClock(func() time.Time { return noon }))
	b, err := e.Resolve(context.Background(), nil, scenarioTrains())
	require.NoError(t, err)
	raw, err := json.Marshal(b)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.JSONEq(t, `[]`, string(decoded["decisions"]))
}

func TestResolveConflicts_ClosedSection(t *testing.T) {
	c := scenarioConflict()
	c.TrackCapacity = 0
	got := ResolveConflicts([]model.SectionConflict{c}, scenarioTrains())
	require.Len(t, got, 2)
	for _, d := range got {
		assert.Equal(t, Hold, d.Decision)
		assert.Equal(t, 10, d.HoldMinutes)
	}
}

func TestResolveConflicts_Deterministic(t *testing.T) {
	c1 := scenarioConflict()
	c2 := scenarioConflict()
	c2.CompetingTrains = []string{"T001", "T002"}
	first := ResolveConflicts([]model.SectionConflict{c1}, scenarioTrains())
	for i := 0; i < 20; i++ {
		again := ResolveConflicts([]model.SectionConflict{c1}, scenarioTrains())
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
	if other := ResolveConflicts([]model.SectionConflict{c2}, scenarioTrains()); !reflect.DeepEqual(first, other) {
		t.Fatalf("input order changed the outcome: %+v vs %+v", first, other)
	}
}

type memRecorder struct{ recs []metrics.DecisionRecord }

func (m *memRecorder) RecordDecisions(recs []metrics.DecisionRecord) error {
	m.recs = append(m.recs, recs...)
	return nil
}

func TestResolve_RecordsBatch(t *testing.T) {
	store, err := audit.NewJSONLStore(filepath.Join(t.TempDir(), "decisions.jsonl"))
	require.NoError(t, err)
	rec := &memRecorder{}
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()

	e := NewEngine(DefaultConfig(), nil,
		WithAuditStore(store),
		WithRecorder(rec),
		WithEventBus(bus),
		WithClock(func() time.Time { return noon }),
	)
	b, err := e.Resolve(context.Background(), []model.SectionConflict{scenarioConflict()}, scenarioTrains())
	require.NoError(t, err)
	require.NotEmpty(t, b.ID)
	require.Len(t, b.Decisions, 2)

	require.Len(t, rec.recs, 2)
	assert.Equal(t, b.ID, rec.recs[0].BatchID)
	assert.Equal(t, "proceed", rec.recs[0].Decision)

	select {
	case ev := <-sub:
		de, ok := ev.(events.DecisionEvent)
		require.True(t, ok, "unexpected event %T", ev)
		assert.Equal(t, events.DecisionEvent{BatchID: b.ID, Conflicts: 1, Proceed: 1, Hold: 1}, de)
	case <-time.After(time.Second):
		t.Fatal("no decision event")
	}

	hist, err := e.History(context.Background(), audit.Query{TrainID: "T002"})
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, b.ID, hist[0].BatchID)
	assert.True(t, hist[0].Timestamp.Equal(noon))
	assert.Equal(t, "hold", hist[0].Decisions[1].Decision)
	require.Len(t, hist[0].Conflicts, 1)
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	c.LengthDivisor = -1
	assert.Error(t, c.Validate())
}
