package reopt

import (
	"errors"
	"sort"
	"time"

	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/core/schedule"
)

// ErrMergeConflict is returned when the rescheduled scope cannot be merged
// into the current schedule without adding conflicts.
var ErrMergeConflict = errors.New("reopt: merged schedule adds conflicts")

// anchor ties sub to the current schedule. A scoped train may not enter the
// scope before it leaves, in current, the section preceding the scope on its
// route. Current occupancies of scoped sections by trains outside the scope
// are pinned.
func anchor(sub, full model.Snapshot, current schedule.Schedule, trains, sections map[string]struct{}) model.Snapshot {
	ix := model.NewIndex(full)
	release := make(map[string]time.Time, len(sub.Release))
	for id, at := range sub.Release {
		release[id] = at
	}
	for id := range trains {
		route := ix.Route(id)
		for k, a := range route {
			if _, in := sections[a.SectionID]; !in {
				continue
			}
			if k > 0 {
				if e, ok := entryOf(current[id], route[k-1].ID); ok && e.End.After(release[id]) {
					release[id] = e.End
				}
			}
			break
		}
	}
	if len(release) > 0 {
		sub.Release = release
	}

	pinned := append([]model.Occupancy(nil), sub.Occupied...)
	for id, entries := range current {
		if _, in := trains[id]; in {
			continue
		}
		for _, e := range entries {
			if _, in := sections[e.SectionID]; in {
				pinned = append(pinned, model.Occupancy{TrainID: id, SectionID: e.SectionID, Start: e.Start, End: e.End})
			}
		}
	}
	sort.SliceStable(pinned, func(i, j int) bool {
		if !pinned[i].Start.Equal(pinned[j].Start) {
			return pinned[i].Start.Before(pinned[j].Start)
		}
		return pinned[i].TrainID < pinned[j].TrainID
	})
	sub.Occupied = pinned
	return sub
}

func entryOf(entries []schedule.Entry, assignmentID string) (schedule.Entry, bool) {
	for _, e := range entries {
		if e.AssignmentID == assignmentID {
			return e, true
		}
	}
	return schedule.Entry{}, false
}
