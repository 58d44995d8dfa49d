package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/railopt/config"
	"github.com/kilianp07/railopt/core/decision"
	"github.com/kilianp07/railopt/core/decision/audit"
	"github.com/kilianp07/railopt/core/factory"
	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/core/optimizer"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Audit = audit.Config{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "audit.db")}
	cfg.Metrics.Sinks = []factory.ModuleConfig{
		{Type: "kpi", Conf: map[string]any{"path": filepath.Join(t.TempDir(), "kpi.db")}},
	}
	cfg.Optimizer.GA.Generations = 5
	cfg.Optimizer.RL.Episodes = 20
	return cfg
}

func TestService_Wiring(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	snap := model.Snapshot{
		Trains: []model.Train{
			{ID: "T1", Type: "Express", ScheduledTime: t0},
			{ID: "T2", Type: "Freight", ScheduledTime: t0.Add(10 * time.Minute)},
		},
		Sections: []model.Section{{ID: "S1", TrackCapacity: 1}},
		Assignments: []model.TrainSection{
			{ID: "a1", TrainID: "T1", SectionID: "S1", Start: t0, End: t0.Add(30 * time.Minute)},
			{ID: "a2", TrainID: "T2", SectionID: "S1", Start: t0.Add(10 * time.Minute), End: t0.Add(40 * time.Minute)},
		},
	}
	res, err := svc.Orchestrator.Optimize(ctx, snap, optimizer.MethodHeuristic)
	require.NoError(t, err)
	assert.True(t, res.Success)

	trains := map[string]model.Train{"T1": snap.Trains[0], "T2": snap.Trains[1]}
	conflict := model.SectionConflict{SectionID: "S1", CompetingTrains: []string{"T1", "T2"}, TrackCapacity: 1}
	b, err := svc.Decisions.Resolve(ctx, []model.SectionConflict{conflict}, trains)
	require.NoError(t, err)
	require.Len(t, b.Decisions, 2)
	assert.Equal(t, decision.Proceed, b.Decisions[0].Decision)

	hist, err := svc.Decisions.History(ctx, audit.Query{BatchID: b.ID})
	require.NoError(t, err)
	require.Len(t, hist, 1)
}

func TestNew_RejectsUnknownSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "graphite"}}
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestService_OpensAuditOnFirstBatch(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	cfg.Audit = audit.Config{Backend: "jsonl", Path: path}
	ctx := context.Background()

	svc, err := New(cfg)
	require.NoError(t, err)
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	snap := model.Snapshot{
		Trains:      []model.Train{{ID: "T1", Type: "Express", ScheduledTime: t0}},
		Sections:    []model.Section{{ID: "S1", TrackCapacity: 1}},
		Assignments: []model.TrainSection{{ID: "a1", TrainID: "T1", SectionID: "S1", Start: t0, End: t0.Add(30 * time.Minute)}},
	}
	_, err = svc.Orchestrator.Optimize(ctx, snap, optimizer.MethodHeuristic)
	require.NoError(t, err)
	hist, err := svc.Decisions.History(ctx, audit.Query{})
	require.NoError(t, err)
	assert.Empty(t, hist)
	require.NoError(t, svc.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "audit file created without a batch: %v", err)

	svc, err = New(cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()
	conflict := model.SectionConflict{SectionID: "S1", CompetingTrains: []string{"T1"}, TrackCapacity: 1}
	_, err = svc.Decisions.Resolve(ctx, []model.SectionConflict{conflict}, map[string]model.Train{"T1": snap.Trains[0]})
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
