package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/railopt/core/model"
)

var base = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func clock(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

func twoTrainSnapshot() model.Snapshot {
	return model.Snapshot{
		Trains: []model.Train{
			{ID: "T1", Type: "Express", ScheduledTime: clock(0)},
			{ID: "T2", Type: "Freight", ScheduledTime: clock(10)},
		},
		Sections: []model.Section{{ID: "S1", TrackCapacity: 1}},
		Assignments: []model.TrainSection{
			{ID: "a1", TrainID: "T1", SectionID: "S1", Start: clock(0), End: clock(30)},
			{ID: "a2", TrainID: "T2", SectionID: "S1", Start: clock(10), End: clock(40)},
		},
	}
}

func TestDecode_ShiftsSecondTrainPastHeadway(t *testing.T) {
	p := Compile(twoTrainSnapshot(), 2)
	sol := p.Decode([]int{0, 1}, nil)

	require.Len(t, sol.Starts, 2)
	assert.Equal(t, 0.0, sol.Starts[0][0])
	assert.Equal(t, 32.0, sol.Starts[1][0])
	assert.Equal(t, 0.0, sol.Delays[0])
	assert.Equal(t, 22.0, sol.Delays[1])
	assert.Equal(t, 22.0, sol.TotalDelay)

	sched := p.Schedule(sol)
	e := sched["T2"][0]
	assert.True(t, e.Start.Equal(clock(32)), "got %s", e.Start)
	assert.Equal(t, e.Start.Sub(e.PlannedStart).Minutes(), sol.Delays[1])
	require.NoError(t, Verify(twoTrainSnapshot(), sched))
}

func TestDecode_CapacityTwoAllowsOverlap(t *testing.T) {
	snap := twoTrainSnapshot()
	snap.Sections[0].TrackCapacity = 2
	p := Compile(snap, 2)
	sol := p.Decode([]int{1, 0}, nil)
	if sol.TotalDelay != 0 {
		t.Fatalf("expected no delay got %v", sol.TotalDelay)
	}
}

func TestDecode_RespectsRouteOrder(t *testing.T) {
	snap := model.Snapshot{
		Trains: []model.Train{{ID: "A"}, {ID: "B"}},
		Sections: []model.Section{
			{ID: "S1", TrackCapacity: 1},
			{ID: "S2", TrackCapacity: 1},
		},
		Assignments: []model.TrainSection{
			{ID: "a1", TrainID: "A", SectionID: "S1", Start: clock(0), End: clock(20)},
			{ID: "a2", TrainID: "A", SectionID: "S2", Start: clock(20), End: clock(40)},
			{ID: "b1", TrainID: "B", SectionID: "S2", Start: clock(10), End: clock(30)},
		},
	}
	p := Compile(snap, 0)
	sol := p.Decode([]int{1, 0}, nil)
	// B holds S2 until 30, so A leaves S1 on time but enters S2 late
	assert.Equal(t, 30.0, sol.Starts[0][1])
	assert.Equal(t, 10.0, sol.Delays[0])
	require.NoError(t, Verify(snap, p.Schedule(sol)))
}

func TestDecode_CarriesExistingDelay(t *testing.T) {
	snap := twoTrainSnapshot()
	snap.Trains[0].DelayMinutes = 15
	p := Compile(snap, 0)
	sol := p.Decode([]int{0, 1}, nil)
	assert.Equal(t, 15.0, sol.Starts[0][0])
	assert.Equal(t, 15.0, sol.Delays[0])
	assert.Equal(t, 45.0, sol.Starts[1][0])
}

func TestDecode_AvoidsBlockingDisruption(t *testing.T) {
	snap := twoTrainSnapshot()
	snap.Disruptions = []model.Disruption{{
		ID: "d1", SectionID: "S1", Kind: model.DisruptionMaintenance, Severity: model.SeverityLow,
		Start: clock(-5), End: clock(5),
	}}
	p := Compile(snap, 0)
	assert.Equal(t, 5.0, p.SoloDelay(0))
	sol := p.Decode([]int{0, 1}, nil)
	assert.Equal(t, 5.0, sol.Starts[0][0])
	assert.Equal(t, 35.0, sol.Starts[1][0])
}

func TestDecode_DesiredStartsAreHonoured(t *testing.T) {
	p := Compile(twoTrainSnapshot(), 0)
	baseline := p.Decode([]int{0, 1}, nil)
	again := p.Decode([]int{1, 0}, baseline.Starts)
	assert.Equal(t, baseline.Starts, again.Starts)
}

func TestState_Rollback(t *testing.T) {
	p := Compile(twoTrainSnapshot(), 0)
	st := p.NewState()
	st.Place(0, nil)
	m := st.Mark()
	if added := st.Place(1, nil); added != 20 {
		t.Fatalf("expected 20 got %v", added)
	}
	st.Rollback(m)
	if st.Placed(1) || st.Count() != 1 {
		t.Fatalf("rollback did not undo placement")
	}
	if st.Occupancy(0, 5) != 1 {
		t.Fatalf("occupancy %d", st.Occupancy(0, 5))
	}
}

func TestConflicts_DetectsOverlap(t *testing.T) {
	snap := twoTrainSnapshot()
	sched := Schedule{
		"T1": {{AssignmentID: "a1", TrainID: "T1", SectionID: "S1", Start: clock(0), End: clock(30)}},
		"T2": {{AssignmentID: "a2", TrainID: "T2", SectionID: "S1", Start: clock(10), End: clock(40)}},
	}
	assert.Equal(t, 1, Conflicts(sched, snap.Sections))
	assert.Error(t, Verify(snap, sched))
}

func TestEmptyProblem(t *testing.T) {
	p := Compile(model.Snapshot{}, 2)
	sol := p.Decode(nil, nil)
	assert.Zero(t, sol.TotalDelay)
	assert.Empty(t, p.Schedule(sol))
	assert.Zero(t, p.Throughput(sol))
}

func TestThroughputAndShifted(t *testing.T) {
	p := Compile(twoTrainSnapshot(), 0)
	sol := p.Decode([]int{0, 1}, nil)
	// two trains between 08:00 and 09:00
	assert.InDelta(t, 2.0, p.Throughput(sol), 1e-9)
	assert.Equal(t, 1, p.Shifted(sol))
}

func TestProblemConflictsMatchesSchedule(t *testing.T) {
	p := Compile(twoTrainSnapshot(), 0)
	sol := p.Decode([]int{0, 1}, nil)
	assert.Zero(t, p.Conflicts(sol))

	bad := sol.Clone()
	bad.Starts[1][0] = 10
	assert.Equal(t, 1, p.Conflicts(bad))
	assert.Equal(t, 1, Conflicts(p.Schedule(bad), twoTrainSnapshot().Sections))
}

func TestBaselineAndMerge(t *testing.T) {
	snap := twoTrainSnapshot()
	baseSched := Baseline(snap)
	require.Len(t, baseSched["T2"], 1)
	assert.True(t, baseSched["T2"][0].Start.Equal(clock(10)))
	// the planned schedule itself overlaps on the single track
	assert.Equal(t, 1, Conflicts(baseSched, snap.Sections))

	upd := Schedule{"T2": {{AssignmentID: "a2", TrainID: "T2", SectionID: "S1",
		PlannedStart: clock(10), PlannedEnd: clock(40), Start: clock(30), End: clock(60), DelayAdded: 20}}}
	merged := Merge(baseSched, upd)
	require.Len(t, merged["T2"], 1)
	assert.True(t, merged["T2"][0].Start.Equal(clock(30)))
	assert.True(t, merged["T1"][0].Start.Equal(clock(0)))
	assert.True(t, baseSched["T2"][0].Start.Equal(clock(10)), "base must not change")
	assert.Zero(t, Conflicts(merged, snap.Sections))

	extra := Schedule{"T1": {{AssignmentID: "a9", TrainID: "T1", SectionID: "S2", Start: clock(-10), End: clock(-5)}}}
	merged = Merge(baseSched, extra)
	require.Len(t, merged["T1"], 2)
	assert.Equal(t, "a9", merged["T1"][0].AssignmentID)
}
