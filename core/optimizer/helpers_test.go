package optimizer

import (
	"testing"
	"time"

	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/core/schedule"
)

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func at(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

func testConfig() Config {
	cfg := Config{
		HeadwayMinutes: 2,
		Workers:        3,
		Seed:           7,
		GA:             GAConfig{Population: 12, Generations: 15, Patience: 10},
		ACO:            ACOConfig{Ants: 5, Iterations: 10},
		Exact:          ExactConfig{TimeBudgetMS: 2000},
		RL:             RLConfig{Episodes: 60},
	}
	cfg.SetDefaults()
	return cfg
}

type leg struct {
	section    string
	start, end int
}

func train(id, typ string, legs ...leg) (model.Train, []model.TrainSection) {
	tr := model.Train{ID: id, Type: typ, ScheduledTime: at(legs[0].start), Length: 400, PassengerLoad: 500}
	var out []model.TrainSection
	for k, l := range legs {
		out = append(out, model.TrainSection{
			ID:        id + "-" + string(rune('a'+k)),
			TrainID:   id,
			SectionID: l.section,
			Start:     at(l.start),
			End:       at(l.end),
		})
	}
	return tr, out
}

func build(sections []model.Section, specs ...func() (model.Train, []model.TrainSection)) model.Snapshot {
	snap := model.Snapshot{Sections: sections}
	for _, f := range specs {
		tr, as := f()
		snap.Trains = append(snap.Trains, tr)
		snap.Assignments = append(snap.Assignments, as...)
	}
	return snap
}

func trainOn(id, typ string, legs ...leg) func() (model.Train, []model.TrainSection) {
	return func() (model.Train, []model.TrainSection) { return train(id, typ, legs...) }
}

// twoTrains is a single-track section wanted by two overlapping trains.
func twoTrains() model.Snapshot {
	return build(
		[]model.Section{{ID: "S1", TrackCapacity: 1}},
		trainOn("T1", "Express", leg{"S1", 0, 30}),
		trainOn("T2", "Freight", leg{"S1", 10, 40}),
	)
}

// corridor is a three section line with mixed traffic.
func corridor() model.Snapshot {
	return build(
		[]model.Section{
			{ID: "S1", TrackCapacity: 1},
			{ID: "S2", TrackCapacity: 2},
			{ID: "S3", TrackCapacity: 1},
		},
		trainOn("T1", "Rajdhani", leg{"S1", 0, 20}, leg{"S2", 20, 40}, leg{"S3", 40, 55}),
		trainOn("T2", "Express", leg{"S1", 5, 25}, leg{"S2", 25, 45}),
		trainOn("T3", "Freight", leg{"S1", 10, 40}, leg{"S2", 40, 70}, leg{"S3", 70, 90}),
		trainOn("T4", "Passenger", leg{"S2", 15, 35}, leg{"S3", 35, 50}),
		trainOn("T5", "Local", leg{"S3", 45, 60}),
		trainOn("T6", "Duronto", leg{"S1", 30, 50}, leg{"S2", 50, 65}),
	)
}

// overConstrained asks three trains for the same single track instant.
func overConstrained() model.Snapshot {
	return build(
		[]model.Section{{ID: "S1", TrackCapacity: 1}},
		trainOn("A", "Express", leg{"S1", 0, 30}),
		trainOn("B", "Express", leg{"S1", 0, 30}),
		trainOn("C", "Express", leg{"S1", 0, 30}),
	)
}

func requireFeasible(t *testing.T, snap model.Snapshot, r Result) {
	t.Helper()
	if !r.Success {
		t.Fatalf("%s failed: %s", r.Method, r.Error)
	}
	if err := schedule.Verify(snap, r.Schedule); err != nil {
		t.Fatalf("%s produced an invalid schedule: %v", r.Method, err)
	}
}

func sameSchedule(t *testing.T, a, b schedule.Schedule) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("schedules differ in size: %d vs %d", len(a), len(b))
	}
	for id, ea := range a {
		eb := b[id]
		if len(ea) != len(eb) {
			t.Fatalf("train %s: %d vs %d entries", id, len(ea), len(eb))
		}
		for k := range ea {
			if !ea[k].Start.Equal(eb[k].Start) || !ea[k].End.Equal(eb[k].End) || ea[k].AssignmentID != eb[k].AssignmentID {
				t.Fatalf("train %s entry %d differs: %+v vs %+v", id, k, ea[k], eb[k])
			}
		}
	}
}
