package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/railopt/core/model"
)

// Solution is a decoded dispatch sequence. Starts[i][k] is the entry of leg k
// of train i in minutes after the epoch.
type Solution struct {
	Order      []int
	Starts     [][]float64
	Delays     []float64
	TotalDelay float64
}

// Clone returns a deep copy.
func (s Solution) Clone() Solution {
	out := Solution{
		Order:      append([]int(nil), s.Order...),
		Starts:     make([][]float64, len(s.Starts)),
		Delays:     append([]float64(nil), s.Delays...),
		TotalDelay: s.TotalDelay,
	}
	for i := range s.Starts {
		out.Starts[i] = append([]float64(nil), s.Starts[i]...)
	}
	return out
}

// Entry is one scheduled section occupancy.
type Entry struct {
	AssignmentID string    `json:"assignment_id"`
	TrainID      string    `json:"train_id"`
	SectionID    string    `json:"section_id"`
	PlannedStart time.Time `json:"planned_start"`
	PlannedEnd   time.Time `json:"planned_end"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	DelayAdded   float64   `json:"delay_added"`
}

// Schedule maps a train id to its entries in route order.
type Schedule map[string][]Entry

// Entries returns every entry ordered by train id then route position.
func (s Schedule) Entries() []Entry {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []Entry
	for _, id := range ids {
		out = append(out, s[id]...)
	}
	return out
}

// Merge returns base with the entries of upd applied on top. Entries are
// matched by assignment id; entries of upd unknown to base are added. Each
// train's entries are kept in start order.
func Merge(base, upd Schedule) Schedule {
	out := make(Schedule, len(base)+len(upd))
	for id, es := range base {
		out[id] = append([]Entry(nil), es...)
	}
	for id, es := range upd {
		cur := out[id]
		for _, e := range es {
			replaced := false
			for k := range cur {
				if cur[k].AssignmentID == e.AssignmentID {
					cur[k] = e
					replaced = true
					break
				}
			}
			if !replaced {
				cur = append(cur, e)
			}
		}
		sort.SliceStable(cur, func(i, j int) bool { return cur[i].Start.Before(cur[j].Start) })
		out[id] = cur
	}
	return out
}

// Baseline returns the schedule in which every assignment runs as planned.
func Baseline(snap model.Snapshot) Schedule {
	out := make(Schedule, len(snap.Trains))
	ix := model.NewIndex(snap)
	for _, t := range snap.Trains {
		route := ix.Route(t.ID)
		entries := make([]Entry, 0, len(route))
		for _, a := range route {
			entries = append(entries, Entry{
				AssignmentID: a.ID,
				TrainID:      a.TrainID,
				SectionID:    a.SectionID,
				PlannedStart: a.Start,
				PlannedEnd:   a.End,
				Start:        a.Start,
				End:          a.End,
			})
		}
		out[t.ID] = entries
	}
	return out
}

// Schedule converts a solution to wall-clock entries. Trains without legs get
// an empty entry list.
func (p *Problem) Schedule(sol Solution) Schedule {
	out := make(Schedule, len(p.Trains))
	for i, tp := range p.Trains {
		entries := make([]Entry, 0, len(tp.Legs))
		for k, leg := range tp.Legs {
			start := sol.Starts[i][k]
			entries = append(entries, Entry{
				AssignmentID: leg.AssignmentID,
				TrainID:      tp.Train.ID,
				SectionID:    p.Sections[leg.Section].Section.ID,
				PlannedStart: p.TimeAt(leg.PlannedStart),
				PlannedEnd:   p.TimeAt(leg.PlannedEnd),
				Start:        p.TimeAt(start),
				End:          p.TimeAt(start + leg.Duration()),
				DelayAdded:   start - leg.PlannedStart,
			})
		}
		out[tp.Train.ID] = entries
	}
	return out
}

// Throughput returns scheduled trains per hour over the horizon of sol.
func (p *Problem) Throughput(sol Solution) float64 {
	first, last := 0.0, 0.0
	n := 0
	for i, tp := range p.Trains {
		if len(tp.Legs) == 0 {
			continue
		}
		s := sol.Starts[i][0]
		e := sol.Starts[i][len(tp.Legs)-1] + tp.Legs[len(tp.Legs)-1].Duration()
		if n == 0 || s < first {
			first = s
		}
		if n == 0 || e > last {
			last = e
		}
		n++
	}
	if n == 0 || last <= first {
		return 0
	}
	return float64(n) / ((last - first) / 60)
}

// Shifted counts legs pushed past both their lower bound and the exit of the
// previous leg, i.e. contention the decoder had to resolve.
func (p *Problem) Shifted(sol Solution) int {
	n := 0
	for i, tp := range p.Trains {
		for k := range tp.Legs {
			free := tp.LowerBound(k)
			if k > 0 {
				prev := sol.Starts[i][k-1] + tp.Legs[k-1].Duration()
				if prev > free {
					free = prev
				}
			}
			if sol.Starts[i][k] > free+eps {
				n++
			}
		}
	}
	return n
}

// Conflicts counts capacity violations and route-order violations in sched.
// A capacity violation is counted every time an entry starts while its
// section already holds track_capacity occupants.
func Conflicts(sched Schedule, sections []model.Section) int {
	capacity := make(map[string]int, len(sections))
	for _, s := range sections {
		capacity[s.ID] = s.TrackCapacity
	}
	bySection := make(map[string][]Entry)
	n := 0
	for _, entries := range sched {
		for k, e := range entries {
			bySection[e.SectionID] = append(bySection[e.SectionID], e)
			if k > 0 && e.Start.Before(entries[k-1].End) {
				n++
			}
		}
	}
	for id, entries := range bySection {
		c, ok := capacity[id]
		if !ok || c < 1 {
			c = 1
		}
		type ev struct {
			at    time.Time
			delta int
		}
		evs := make([]ev, 0, 2*len(entries))
		for _, e := range entries {
			evs = append(evs, ev{e.Start, 1}, ev{e.End, -1})
		}
		sort.Slice(evs, func(a, b int) bool {
			if !evs[a].at.Equal(evs[b].at) {
				return evs[a].at.Before(evs[b].at)
			}
			return evs[a].delta < evs[b].delta
		})
		cur := 0
		for _, e := range evs {
			if e.delta > 0 && cur >= c {
				n++
			}
			cur += e.delta
		}
	}
	return n
}

// Verify checks that sched covers every assignment of snap exactly once,
// in route order, without capacity or ordering conflicts.
func Verify(snap model.Snapshot, sched Schedule) error {
	ix := model.NewIndex(snap)
	for _, t := range snap.Trains {
		want := ix.TrainAssignmentIDs(t.ID)
		got := sched[t.ID]
		if len(got) != len(want) {
			return fmt.Errorf("train %s: %d entries, want %d", t.ID, len(got), len(want))
		}
		for k, e := range got {
			if e.AssignmentID != want[k] {
				return fmt.Errorf("train %s: entry %d is %s, want %s", t.ID, k, e.AssignmentID, want[k])
			}
			if e.Start.Before(e.PlannedStart) {
				return fmt.Errorf("train %s: entry %s starts before plan", t.ID, e.AssignmentID)
			}
		}
	}
	if n := Conflicts(sched, snap.Sections); n > 0 {
		return fmt.Errorf("schedule has %d conflicts", n)
	}
	return nil
}

// Conflicts counts capacity and route-order violations of sol in minutes,
// pinned occupancies included, without building the wall-clock schedule.
func (p *Problem) Conflicts(sol Solution) int {
	n := 0
	evs := make([][]event, len(p.Sections))
	for i, tp := range p.Trains {
		for k, leg := range tp.Legs {
			s := sol.Starts[i][k]
			if k > 0 && s < sol.Starts[i][k-1]+tp.Legs[k-1].Duration()-eps {
				n++
			}
			evs[leg.Section] = append(evs[leg.Section], event{s, 1}, event{s + leg.Duration(), -1})
		}
	}
	for j, sec := range p.Sections {
		for _, w := range sec.Pinned {
			evs[j] = append(evs[j], event{w.Start, 1}, event{w.End, -1})
		}
	}
	for j, es := range evs {
		sort.Slice(es, func(a, b int) bool {
			if es[a].at != es[b].at {
				return es[a].at < es[b].at
			}
			return es[a].delta < es[b].delta
		})
		cur := 0
		for _, e := range es {
			if e.delta > 0 && cur >= p.Sections[j].Capacity {
				n++
			}
			cur += e.delta
		}
	}
	return n
}
