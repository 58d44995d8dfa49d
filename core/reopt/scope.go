package reopt

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/kilianp07/railopt/core/model"
)

// sectionGraph links each section to the sections trains enter next.
type sectionGraph struct {
	g   *simple.DirectedGraph
	ids []string
	idx map[string]int64
}

func buildSectionGraph(snap model.Snapshot) *sectionGraph {
	sg := &sectionGraph{g: simple.NewDirectedGraph(), idx: make(map[string]int64, len(snap.Sections))}
	for _, s := range snap.Sections {
		if _, ok := sg.idx[s.ID]; ok {
			continue
		}
		id := int64(len(sg.ids))
		sg.idx[s.ID] = id
		sg.ids = append(sg.ids, s.ID)
		sg.g.AddNode(simple.Node(id))
	}
	ix := model.NewIndex(snap)
	for _, t := range snap.Trains {
		route := ix.Route(t.ID)
		for k := 1; k < len(route); k++ {
			from, ok1 := sg.idx[route[k-1].SectionID]
			to, ok2 := sg.idx[route[k].SectionID]
			if !ok1 || !ok2 || from == to {
				continue
			}
			sg.g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}
	return sg
}

// downstream returns the section and every section reachable from it,
// sorted by id.
func (sg *sectionGraph) downstream(sectionID string) []string {
	id, ok := sg.idx[sectionID]
	if !ok {
		return nil
	}
	var out []string
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) { out = append(out, sg.ids[n.ID()]) },
	}
	bf.Walk(sg.g, sg.g.Node(id), nil)
	sort.Strings(out)
	return out
}

// Scope is the part of a snapshot touched by a disruption.
type Scope struct {
	// Sections is the disrupted section and its downstream closure.
	Sections []string
	// Trains run on at least one section of the closure.
	Trains []string
	// Delayed are the trains occupying the disrupted section during the
	// disruption window.
	Delayed []string
}

// ComputeScope derives the scope of d in snap.
func ComputeScope(snap model.Snapshot, d model.Disruption) Scope {
	var sc Scope
	sc.Sections = buildSectionGraph(snap).downstream(d.SectionID)
	in := toSet(sc.Sections)
	trains := make(map[string]struct{})
	delayed := make(map[string]struct{})
	for _, a := range snap.Assignments {
		if _, ok := in[a.SectionID]; !ok {
			continue
		}
		trains[a.TrainID] = struct{}{}
		if a.SectionID == d.SectionID && d.Overlaps(a.Start, a.End) {
			delayed[a.TrainID] = struct{}{}
		}
	}
	sc.Trains = sortedKeys(trains)
	sc.Delayed = sortedKeys(delayed)
	return sc
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
