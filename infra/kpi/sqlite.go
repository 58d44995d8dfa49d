// Package kpi keeps daily per-method optimization KPIs in SQLite.
package kpi

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	coremetrics "github.com/kilianp07/railopt/core/metrics"
)

// Record aggregates the runs of one method on one UTC day.
type Record struct {
	Method     string
	Date       time.Time
	Runs       int
	Successes  int
	Degraded   int
	TotalDelay float64
	Duration   time.Duration
}

// AverageDelay is the mean total delay of the successful runs.
func (r Record) AverageDelay() float64 {
	if r.Successes == 0 {
		return 0
	}
	return r.TotalDelay / float64(r.Successes)
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SQLiteStore persists KPI records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS method_kpi (
        method TEXT,
        day INTEGER,
        runs INTEGER,
        successes INTEGER,
        degraded INTEGER,
        total_delay REAL,
        duration_ns INTEGER,
        PRIMARY KEY(method, day)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Add inserts or accumulates the KPI record.
func (s *SQLiteStore) Add(r Record) error {
	_, err := s.db.Exec(`INSERT INTO method_kpi (method, day, runs, successes, degraded, total_delay, duration_ns)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(method, day) DO UPDATE SET
            runs = runs + excluded.runs,
            successes = successes + excluded.successes,
            degraded = degraded + excluded.degraded,
            total_delay = total_delay + excluded.total_delay,
            duration_ns = duration_ns + excluded.duration_ns`,
		r.Method, Day(r.Date).Unix(), r.Runs, r.Successes, r.Degraded, r.TotalDelay, int64(r.Duration))
	return err
}

// RecordOptimization adds one run to the KPI of its method. Failed runs
// count as runs only.
func (s *SQLiteStore) RecordOptimization(rec coremetrics.OptimizationRecord) error {
	r := Record{Method: rec.Method, Date: rec.Time, Runs: 1, Duration: rec.Duration}
	if rec.Time.IsZero() {
		r.Date = time.Now()
	}
	if rec.Success {
		r.Successes = 1
		r.TotalDelay = rec.TotalDelay
	}
	if rec.Degraded {
		r.Degraded = 1
	}
	return s.Add(r)
}

// Query returns the records of method in the day range [start,end].
func (s *SQLiteStore) Query(method string, start, end time.Time) ([]Record, error) {
	rows, err := s.db.Query(`SELECT method, day, runs, successes, degraded, total_delay, duration_ns
        FROM method_kpi WHERE method = ? AND day >= ? AND day <= ? ORDER BY day`,
		method, Day(start).Unix(), Day(end).Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var r Record
		var ts, dur int64
		if err := rows.Scan(&r.Method, &ts, &r.Runs, &r.Successes, &r.Degraded, &r.TotalDelay, &dur); err != nil {
			return nil, err
		}
		r.Date = time.Unix(ts, 0).UTC()
		r.Duration = time.Duration(dur)
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
