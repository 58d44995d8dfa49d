// Package schedule compiles snapshots into a placement problem and decodes
// dispatch sequences into capacity-feasible schedules.
//
// All strategies share the same decoder: they only decide the order in which
// trains are placed and, optionally, the earliest entry wanted for each leg.
// Times are float64 minutes relative to the snapshot epoch.
package schedule

import (
	"math"
	"time"

	"github.com/kilianp07/railopt/core/model"
)

// Window is a half-open interval of minutes.
type Window struct {
	Start float64
	End   float64
}

// Overlaps reports whether both windows share an instant.
func (w Window) Overlaps(o Window) bool { return w.Start < o.End && o.Start < w.End }

// Leg is one section occupancy of a train route.
type Leg struct {
	AssignmentID string
	Section      int
	PlannedStart float64
	PlannedEnd   float64
}

// Duration returns the planned running time on the section.
func (l Leg) Duration() float64 { return l.PlannedEnd - l.PlannedStart }

// TrainPlan is a train and its legs in route order. Release is the earliest
// entry of any leg, or -Inf.
type TrainPlan struct {
	Train   model.Train
	Legs    []Leg
	Release float64
}

// LowerBound is the earliest entry allowed for leg k: trains never run ahead
// of plan, carry their current delay and wait for their release.
func (tp TrainPlan) LowerBound(k int) float64 {
	return math.Max(tp.Legs[k].PlannedStart+tp.Train.DelayMinutes, tp.Release)
}

// PlannedExit returns the planned exit of the last leg.
func (tp TrainPlan) PlannedExit() float64 {
	if len(tp.Legs) == 0 {
		return 0
	}
	return tp.Legs[len(tp.Legs)-1].PlannedEnd
}

// SectionPlan is a section with the windows where it cannot be entered and
// the fixed occupancies that use up part of its capacity.
type SectionPlan struct {
	Section  model.Section
	Capacity int
	Blocks   []Window
	Pinned   []Window
}

// Problem is the compiled, read-only form of a snapshot. It is safe to share
// between goroutines; mutable placement state lives in State.
type Problem struct {
	Epoch    time.Time
	Headway  float64
	Trains   []TrainPlan
	Sections []SectionPlan

	trainIdx   map[string]int
	sectionIdx map[string]int
	solo       []float64
}

// Compile builds the problem for snap. headway is the minimum gap in minutes
// between two occupancies sharing a track slot. Assignments referring to
// unknown trains or sections are ignored; callers validate beforehand.
func Compile(snap model.Snapshot, headway float64) *Problem {
	if headway < 0 {
		headway = 0
	}
	p := &Problem{
		Epoch:      snap.Epoch(),
		Headway:    headway,
		trainIdx:   make(map[string]int, len(snap.Trains)),
		sectionIdx: make(map[string]int, len(snap.Sections)),
	}
	for _, sec := range snap.Sections {
		if _, dup := p.sectionIdx[sec.ID]; dup {
			continue
		}
		c := sec.TrackCapacity
		if c < 1 {
			c = 1
		}
		p.sectionIdx[sec.ID] = len(p.Sections)
		p.Sections = append(p.Sections, SectionPlan{Section: sec, Capacity: c})
	}
	for _, d := range snap.Disruptions {
		j, ok := p.sectionIdx[d.SectionID]
		if !ok || !d.Blocks() {
			continue
		}
		p.Sections[j].Blocks = append(p.Sections[j].Blocks, Window{Start: p.Minutes(d.Start), End: p.Minutes(d.End)})
	}

	for _, o := range snap.Occupied {
		if j, ok := p.sectionIdx[o.SectionID]; ok {
			p.Sections[j].Pinned = append(p.Sections[j].Pinned, Window{Start: p.Minutes(o.Start), End: p.Minutes(o.End)})
		}
	}

	ix := model.NewIndex(snap)
	for _, t := range snap.Trains {
		if _, dup := p.trainIdx[t.ID]; dup {
			continue
		}
		tp := TrainPlan{Train: t, Release: math.Inf(-1)}
		if at, ok := snap.Release[t.ID]; ok {
			tp.Release = p.Minutes(at)
		}
		for _, a := range ix.Route(t.ID) {
			j, ok := p.sectionIdx[a.SectionID]
			if !ok {
				continue
			}
			tp.Legs = append(tp.Legs, Leg{
				AssignmentID: a.ID,
				Section:      j,
				PlannedStart: p.Minutes(a.Start),
				PlannedEnd:   p.Minutes(a.End),
			})
		}
		p.trainIdx[t.ID] = len(p.Trains)
		p.Trains = append(p.Trains, tp)
	}

	p.solo = make([]float64, len(p.Trains))
	st := p.NewState()
	for i := range p.Trains {
		m := st.Mark()
		p.solo[i] = st.Place(i, nil)
		st.Rollback(m)
	}
	return p
}

// N returns the number of trains.
func (p *Problem) N() int { return len(p.Trains) }

// TrainIndex returns the position of the train with the given id.
func (p *Problem) TrainIndex(id string) (int, bool) {
	i, ok := p.trainIdx[id]
	return i, ok
}

// SectionIndex returns the position of the section with the given id.
func (p *Problem) SectionIndex(id string) (int, bool) {
	j, ok := p.sectionIdx[id]
	return j, ok
}

// Horizon is the planned span of the problem: from the first planned entry to
// the last planned exit. It is zero when no train has a leg.
func (p *Problem) Horizon() float64 {
	first, last := math.Inf(1), math.Inf(-1)
	for _, tp := range p.Trains {
		for _, l := range tp.Legs {
			first = math.Min(first, l.PlannedStart)
			last = math.Max(last, l.PlannedEnd)
		}
	}
	if last < first {
		return 0
	}
	return last - first
}

// SoloDelay is the delay train i would gain alone on the network, i.e. from
// blocking disruptions only. It is a lower bound of its added delay in any
// schedule.
func (p *Problem) SoloDelay(i int) float64 { return p.solo[i] }

// Minutes converts an instant to minutes after the epoch.
func (p *Problem) Minutes(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return t.Sub(p.Epoch).Minutes()
}

// TimeAt converts minutes after the epoch back to an instant.
func (p *Problem) TimeAt(m float64) time.Time {
	return p.Epoch.Add(time.Duration(math.Round(m * float64(time.Minute))))
}

// Decode places trains in the given order. desired, when non-nil, holds the
// wanted entry of every leg per train; missing values fall back to the lower
// bound. Trains absent from order are appended in index order.
func (p *Problem) Decode(order []int, desired [][]float64) Solution {
	st := p.NewState()
	full := make([]int, 0, p.N())
	for _, i := range order {
		if i < 0 || i >= p.N() || st.Placed(i) {
			continue
		}
		var want []float64
		if desired != nil {
			want = desired[i]
		}
		st.Place(i, want)
		full = append(full, i)
	}
	for i := range p.Trains {
		if !st.Placed(i) {
			st.Place(i, nil)
			full = append(full, i)
		}
	}
	return st.Solution(full)
}

// Identity returns the trains in index order.
func (p *Problem) Identity() []int {
	out := make([]int, p.N())
	for i := range out {
		out[i] = i
	}
	return out
}
