package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/railopt/core/metrics"
	"github.com/kilianp07/railopt/infra/logger"
)

// InfluxConfig addresses an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes optimizer activity to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordOptimization writes one optimization_result point.
func (s *InfluxSink) RecordOptimization(rec coremetrics.OptimizationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("optimization_result").
		AddTag("method", rec.Method).
		AddTag("run_id", rec.RunID).
		AddTag("success", strconv.FormatBool(rec.Success)).
		AddTag("degraded", strconv.FormatBool(rec.Degraded)).
		AddField("total_delay", round3(rec.TotalDelay)).
		AddField("average_delay", round3(rec.AverageDelay)).
		AddField("throughput", round3(rec.Throughput)).
		AddField("conflicts", rec.Conflicts).
		AddField("conflicts_resolved", rec.ConflictsResolved).
		AddField("duration_ms", round3(rec.Duration.Seconds()*1000)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDecisions writes one conflict_decision point per train.
func (s *InfluxSink) RecordDecisions(recs []coremetrics.DecisionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(recs))
	for _, r := range recs {
		points = append(points, write.NewPointWithMeasurement("conflict_decision").
			AddTag("batch_id", r.BatchID).
			AddTag("section_id", r.SectionID).
			AddTag("train_id", r.TrainID).
			AddTag("decision", r.Decision).
			AddField("score", round3(r.Score)).
			AddField("hold_minutes", r.HoldMinutes).
			SetTime(r.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordReoptimization writes one reoptimization point.
func (s *InfluxSink) RecordReoptimization(rec coremetrics.ReoptimizationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("reoptimization").
		AddTag("disruption_id", rec.DisruptionID).
		AddTag("method", rec.Method).
		AddField("affected_sections", rec.AffectedSections).
		AddField("affected_trains", rec.AffectedTrains).
		AddField("total_delay", round3(rec.TotalDelay)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
