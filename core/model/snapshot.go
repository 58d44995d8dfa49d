package model

import (
	"sort"
	"time"
)

// Snapshot is the immutable input of an optimization call. Callers hand it
// over by value; the core never mutates it and only produces new values.
type Snapshot struct {
	Trains      []Train        `json:"trains" yaml:"trains"`
	Sections    []Section      `json:"sections" yaml:"sections"`
	Assignments []TrainSection `json:"train_sections" yaml:"train_sections"`
	Disruptions []Disruption   `json:"disruptions,omitempty" yaml:"disruptions"`
	// Release holds, per train, the earliest instant it may enter its first
	// section, typically the exit from track outside the snapshot.
	Release map[string]time.Time `json:"release,omitempty" yaml:"release"`
	// Occupied lists fixed section uses that placement works around.
	Occupied []Occupancy `json:"occupied,omitempty" yaml:"occupied"`
}

// Empty reports whether there is nothing to schedule.
func (s Snapshot) Empty() bool {
	return len(s.Trains) == 0 || len(s.Sections) == 0
}

// Validate checks field constraints and cross references. The first problem
// found is returned as a *ValidationError.
func (s Snapshot) Validate() error {
	trains := make(map[string]struct{}, len(s.Trains))
	for _, t := range s.Trains {
		if err := checkStruct("train", t.ID, t); err != nil {
			return err
		}
		if _, dup := trains[t.ID]; dup {
			return &ValidationError{Entity: "train", ID: t.ID, Field: "id", Reason: "duplicate identifier"}
		}
		trains[t.ID] = struct{}{}
	}
	sections := make(map[string]struct{}, len(s.Sections))
	for _, sec := range s.Sections {
		if err := checkStruct("section", sec.ID, sec); err != nil {
			return err
		}
		if _, dup := sections[sec.ID]; dup {
			return &ValidationError{Entity: "section", ID: sec.ID, Field: "id", Reason: "duplicate identifier"}
		}
		sections[sec.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(s.Assignments))
	for _, a := range s.Assignments {
		if err := checkStruct("train_section", a.ID, a); err != nil {
			return err
		}
		if _, dup := seen[a.ID]; dup {
			return &ValidationError{Entity: "train_section", ID: a.ID, Field: "id", Reason: "duplicate identifier"}
		}
		seen[a.ID] = struct{}{}
		if _, ok := trains[a.TrainID]; !ok {
			return &ValidationError{Entity: "train_section", ID: a.ID, Field: "train_id", Reason: "unknown train " + a.TrainID}
		}
		if _, ok := sections[a.SectionID]; !ok {
			return &ValidationError{Entity: "train_section", ID: a.ID, Field: "section_id", Reason: "unknown section " + a.SectionID}
		}
	}
	for _, d := range s.Disruptions {
		if err := ValidateDisruption(d, sections); err != nil {
			return err
		}
	}
	for id := range s.Release {
		if _, ok := trains[id]; !ok {
			return &ValidationError{Entity: "release", ID: id, Field: "train_id", Reason: "unknown train " + id}
		}
	}
	for _, o := range s.Occupied {
		if err := checkStruct("occupancy", o.TrainID, o); err != nil {
			return err
		}
		if _, ok := sections[o.SectionID]; !ok {
			return &ValidationError{Entity: "occupancy", ID: o.TrainID, Field: "section_id", Reason: "unknown section " + o.SectionID}
		}
	}
	return nil
}

// ValidateDisruption checks a disruption against the known sections. A nil
// map skips the reference check.
func ValidateDisruption(d Disruption, sections map[string]struct{}) error {
	if err := checkStruct("disruption", d.ID, d); err != nil {
		return err
	}
	if !d.End.IsZero() && !d.End.After(d.Start) {
		return &ValidationError{Entity: "disruption", ID: d.ID, Field: "end", Reason: "must be after start"}
	}
	if sections != nil {
		if _, ok := sections[d.SectionID]; !ok {
			return &ValidationError{Entity: "disruption", ID: d.ID, Field: "section_id", Reason: "unknown section " + d.SectionID}
		}
	}
	return nil
}

// Epoch returns the earliest instant referenced by the snapshot. Internal
// minute offsets are measured from it.
func (s Snapshot) Epoch() time.Time {
	var epoch time.Time
	take := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if epoch.IsZero() || t.Before(epoch) {
			epoch = t
		}
	}
	for _, a := range s.Assignments {
		take(a.Start)
	}
	for _, t := range s.Trains {
		take(t.ScheduledTime)
	}
	return epoch
}

// Index gives O(1) lookups over a snapshot. Sections own their assignments
// ordered by start time; trains only keep the identifiers of theirs.
type Index struct {
	trains      map[string]Train
	sections    map[string]Section
	assignments map[string]TrainSection
	bySection   map[string][]TrainSection
	byTrain     map[string][]string
}

// NewIndex builds the lookup tables for s.
func NewIndex(s Snapshot) *Index {
	ix := &Index{
		trains:      make(map[string]Train, len(s.Trains)),
		sections:    make(map[string]Section, len(s.Sections)),
		assignments: make(map[string]TrainSection, len(s.Assignments)),
		bySection:   make(map[string][]TrainSection, len(s.Sections)),
		byTrain:     make(map[string][]string, len(s.Trains)),
	}
	for _, t := range s.Trains {
		ix.trains[t.ID] = t
	}
	for _, sec := range s.Sections {
		ix.sections[sec.ID] = sec
	}
	sorted := append([]TrainSection(nil), s.Assignments...)
	sortAssignments(sorted)
	for _, a := range sorted {
		ix.assignments[a.ID] = a
		ix.bySection[a.SectionID] = append(ix.bySection[a.SectionID], a)
		ix.byTrain[a.TrainID] = append(ix.byTrain[a.TrainID], a.ID)
	}
	return ix
}

func sortAssignments(as []TrainSection) {
	sort.SliceStable(as, func(i, j int) bool {
		if !as[i].Start.Equal(as[j].Start) {
			return as[i].Start.Before(as[j].Start)
		}
		return as[i].ID < as[j].ID
	})
}

// Train returns the train with the given id.
func (ix *Index) Train(id string) (Train, bool) {
	t, ok := ix.trains[id]
	return t, ok
}

// Section returns the section with the given id.
func (ix *Index) Section(id string) (Section, bool) {
	s, ok := ix.sections[id]
	return s, ok
}

// Assignment returns the assignment with the given id.
func (ix *Index) Assignment(id string) (TrainSection, bool) {
	a, ok := ix.assignments[id]
	return a, ok
}

// SectionAssignments returns the assignments of a section ordered by start.
func (ix *Index) SectionAssignments(sectionID string) []TrainSection {
	return append([]TrainSection(nil), ix.bySection[sectionID]...)
}

// TrainAssignmentIDs returns the identifiers of a train's assignments in
// route order.
func (ix *Index) TrainAssignmentIDs(trainID string) []string {
	return append([]string(nil), ix.byTrain[trainID]...)
}

// Route returns the assignments of a train in route order.
func (ix *Index) Route(trainID string) []TrainSection {
	ids := ix.byTrain[trainID]
	route := make([]TrainSection, 0, len(ids))
	for _, id := range ids {
		route = append(route, ix.assignments[id])
	}
	return route
}

// Subset returns a snapshot restricted to the given trains and sections.
// Assignments are kept when both their train and section are retained,
// disruptions and occupancies when their section is, and releases when their
// train is.
func (s Snapshot) Subset(trainIDs, sectionIDs map[string]struct{}) Snapshot {
	var out Snapshot
	for _, t := range s.Trains {
		if _, ok := trainIDs[t.ID]; ok {
			out.Trains = append(out.Trains, t)
		}
	}
	for _, sec := range s.Sections {
		if _, ok := sectionIDs[sec.ID]; ok {
			out.Sections = append(out.Sections, sec)
		}
	}
	for _, a := range s.Assignments {
		_, tok := trainIDs[a.TrainID]
		_, sok := sectionIDs[a.SectionID]
		if tok && sok {
			out.Assignments = append(out.Assignments, a)
		}
	}
	for _, d := range s.Disruptions {
		if _, ok := sectionIDs[d.SectionID]; ok {
			out.Disruptions = append(out.Disruptions, d)
		}
	}
	for id, at := range s.Release {
		if _, ok := trainIDs[id]; ok {
			if out.Release == nil {
				out.Release = make(map[string]time.Time)
			}
			out.Release[id] = at
		}
	}
	for _, o := range s.Occupied {
		if _, ok := sectionIDs[o.SectionID]; ok {
			out.Occupied = append(out.Occupied, o)
		}
	}
	return out
}

// ReplaceTrains returns a copy of s where trains found in repl replace the
// originals. The receiver is left untouched.
func (s Snapshot) ReplaceTrains(repl map[string]Train) Snapshot {
	out := s
	out.Trains = make([]Train, len(s.Trains))
	for i, t := range s.Trains {
		if r, ok := repl[t.ID]; ok {
			out.Trains[i] = r
			continue
		}
		out.Trains[i] = t
	}
	return out
}
