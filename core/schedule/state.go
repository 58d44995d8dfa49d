package schedule

import (
	"math"
	"sort"
)

const eps = 1e-9

type interval struct {
	start float64
	end   float64
}

// State is an in-progress placement. Placements can be undone in LIFO order
// with Mark and Rollback, which lets constructive searches try a train and
// backtrack cheaply. A State is not safe for concurrent use.
type State struct {
	p      *Problem
	occ    [][]interval
	starts [][]float64
	placed []bool
	log    []int
}

// NewState returns an empty placement over p.
func (p *Problem) NewState() *State {
	st := &State{
		p:      p,
		occ:    make([][]interval, len(p.Sections)),
		starts: make([][]float64, len(p.Trains)),
		placed: make([]bool, len(p.Trains)),
	}
	for i, tp := range p.Trains {
		st.starts[i] = make([]float64, len(tp.Legs))
	}
	for j, sec := range p.Sections {
		for _, w := range sec.Pinned {
			st.occ[j] = append(st.occ[j], interval{start: w.Start, end: w.End + p.Headway})
		}
	}
	return st
}

// Placed reports whether train i is already scheduled.
func (s *State) Placed(i int) bool { return s.placed[i] }

// Count returns how many trains are placed.
func (s *State) Count() int { return len(s.log) }

// Mark returns a token for Rollback.
func (s *State) Mark() int { return len(s.log) }

// Rollback removes every placement made after mark. Pinned occupancies sit
// below every placement and are never removed.
func (s *State) Rollback(mark int) {
	for len(s.log) > mark {
		i := s.log[len(s.log)-1]
		s.log = s.log[:len(s.log)-1]
		legs := s.p.Trains[i].Legs
		for k := len(legs) - 1; k >= 0; k-- {
			j := legs[k].Section
			s.occ[j] = s.occ[j][:len(s.occ[j])-1]
			s.starts[i][k] = 0
		}
		s.placed[i] = false
	}
}

// Place schedules every leg of train i at its earliest feasible entry and
// returns the delay added on top of the train's current delay.
func (s *State) Place(i int, desired []float64) float64 {
	if s.placed[i] {
		return s.Added(i)
	}
	tp := s.p.Trains[i]
	prevExit := math.Inf(-1)
	for k, leg := range tp.Legs {
		t0 := math.Max(tp.LowerBound(k), prevExit)
		if k < len(desired) && desired[k] > t0 {
			t0 = desired[k]
		}
		d := leg.Duration()
		t := s.earliest(leg.Section, t0, d)
		s.occ[leg.Section] = append(s.occ[leg.Section], interval{start: t, end: t + d + s.p.Headway})
		s.starts[i][k] = t
		prevExit = t + d
	}
	s.placed[i] = true
	s.log = append(s.log, i)
	return s.Added(i)
}

// Delay returns the delay of a placed train: its current delay or the lateness
// of its final exit, whichever is larger.
func (s *State) Delay(i int) float64 {
	tp := s.p.Trains[i]
	if !s.placed[i] || len(tp.Legs) == 0 {
		return tp.Train.DelayMinutes
	}
	last := len(tp.Legs) - 1
	exit := s.starts[i][last] + tp.Legs[last].Duration()
	return math.Max(tp.Train.DelayMinutes, exit-tp.PlannedExit())
}

// Added returns the delay train i gained from placement.
func (s *State) Added(i int) float64 {
	return s.Delay(i) - s.p.Trains[i].Train.DelayMinutes
}

// Occupancy returns how many placed occupancies (headway included) cover the
// instant at on section j.
func (s *State) Occupancy(j int, at float64) int {
	n := 0
	for _, iv := range s.occ[j] {
		if iv.start <= at && at < iv.end {
			n++
		}
	}
	return n
}

func (s *State) earliest(j int, t0, d float64) float64 {
	cands := []float64{t0}
	for _, iv := range s.occ[j] {
		if iv.end > t0 {
			cands = append(cands, iv.end)
		}
	}
	for _, b := range s.p.Sections[j].Blocks {
		if b.End > t0 {
			cands = append(cands, b.End)
		}
	}
	sort.Float64s(cands)
	for _, t := range cands {
		if s.fits(j, t, d) {
			return t
		}
	}
	// past every known end the section is free
	return cands[len(cands)-1]
}

type event struct {
	at    float64
	delta int
}

func (s *State) fits(j int, t, d float64) bool {
	sec := s.p.Sections[j]
	run := Window{Start: t, End: t + d}
	for _, b := range sec.Blocks {
		if b.Overlaps(run) {
			return false
		}
	}
	w := Window{Start: t, End: t + d + s.p.Headway}
	var evs []event
	for _, iv := range s.occ[j] {
		if iv.start < w.End && w.Start < iv.end {
			evs = append(evs, event{math.Max(iv.start, w.Start), 1}, event{math.Min(iv.end, w.End), -1})
		}
	}
	if len(evs)/2 < sec.Capacity {
		return true
	}
	return maxConcurrent(evs) < sec.Capacity
}

func maxConcurrent(evs []event) int {
	sort.Slice(evs, func(a, b int) bool {
		if evs[a].at != evs[b].at {
			return evs[a].at < evs[b].at
		}
		return evs[a].delta < evs[b].delta
	})
	cur, peak := 0, 0
	for _, e := range evs {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}

// Solution snapshots the state. order is recorded as the dispatch sequence.
func (s *State) Solution(order []int) Solution {
	sol := Solution{
		Order:  append([]int(nil), order...),
		Starts: make([][]float64, len(s.starts)),
		Delays: make([]float64, len(s.starts)),
	}
	for i := range s.starts {
		sol.Starts[i] = append([]float64(nil), s.starts[i]...)
		sol.Delays[i] = s.Delay(i)
		sol.TotalDelay += sol.Delays[i]
	}
	return sol
}
