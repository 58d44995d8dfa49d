package audit

import (
	"context"
	"time"

	"github.com/kilianp07/railopt/core/model"
)

// Record captures one batch of conflict decisions.
type Record struct {
	BatchID   string                  `json:"batch_id"`
	Timestamp time.Time               `json:"timestamp"`
	Conflicts []model.SectionConflict `json:"conflicts"`
	Decisions []Entry                 `json:"decisions"`
}

// Entry mirrors decision.Decision for audit purposes.
type Entry struct {
	TrainID     string  `json:"train_id"`
	SectionID   string  `json:"section_id"`
	Decision    string  `json:"decision"`
	Score       float64 `json:"score"`
	HoldMinutes int     `json:"hold_minutes,omitempty"`
	Reason      string  `json:"reason"`
}

// Query defines filters for retrieving records. Zero values match
// everything.
type Query struct {
	Start     time.Time
	End       time.Time
	BatchID   string
	TrainID   string
	SectionID string
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Match reports whether rec passes the filters of q.
func (q Query) Match(rec Record) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	if q.BatchID != "" && rec.BatchID != q.BatchID {
		return false
	}
	if q.TrainID == "" && q.SectionID == "" {
		return true
	}
	for _, e := range rec.Decisions {
		if q.TrainID != "" && e.TrainID != q.TrainID {
			continue
		}
		if q.SectionID != "" && e.SectionID != q.SectionID {
			continue
		}
		return true
	}
	return false
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error            { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                    { return nil }
