// Package export writes schedules in formats consumed outside the
// optimizer.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/railopt/core/schedule"
)

// WriteJSON writes the schedule entries to w as a JSON array ordered by
// train then route position.
func WriteJSON(w io.Writer, sched schedule.Schedule) error {
	entries := sched.Entries()
	if entries == nil {
		entries = []schedule.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{"train_id", "section_id", "assignment_id", "planned_start", "planned_end", "start", "end", "delay_added"}

// WriteCSV writes one row per schedule entry, with a header row.
func WriteCSV(w io.Writer, sched schedule.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range sched.Entries() {
		rec := []string{
			e.TrainID,
			e.SectionID,
			e.AssignmentID,
			e.PlannedStart.Format(time.RFC3339),
			e.PlannedEnd.Format(time.RFC3339),
			e.Start.Format(time.RFC3339),
			e.End.Format(time.RFC3339),
			strconv.FormatFloat(e.DelayAdded, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
