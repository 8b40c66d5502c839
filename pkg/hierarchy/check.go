package hierarchy

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/companyview/pkg/model"
)

// Report summarizes the structural health of a flat company list.
type Report struct {
	Total      int      `json:"total"`
	Roots      int      `json:"roots"`
	MaxDepth   int      `json:"max_depth"`
	Orphans    []int    `json:"orphans,omitempty"`
	Duplicates []int    `json:"duplicates,omitempty"`
	Cycles     [][]int  `json:"cycles,omitempty"`
	Primaries  []int    `json:"primaries,omitempty"`
	Invalid    []string `json:"invalid,omitempty"`
}

// HasErrors reports problems that make ids or paths ambiguous.
func (r Report) HasErrors() bool {
	return len(r.Duplicates) > 0 || len(r.Cycles) > 0
}

// HasWarnings reports problems the dashboard tolerates.
func (r Report) HasWarnings() bool {
	return len(r.Orphans) > 0 || len(r.Primaries) > 1 || len(r.Invalid) > 0
}

// Check inspects companies without building a forest first. Cycles are
// found as strongly connected components of the child->parent graph.
func Check(companies []model.Company) Report {
	r := Report{Total: len(companies), MaxDepth: -1}

	seen := make(map[int]bool, len(companies))
	for i := range companies {
		c := &companies[i]
		if seen[c.ID] {
			r.Duplicates = append(r.Duplicates, c.ID)
		}
		seen[c.ID] = true
		if c.IsPrimary {
			r.Primaries = append(r.Primaries, c.ID)
		}
		if err := c.Validate(); err != nil {
			r.Invalid = append(r.Invalid, err.Error())
		}
	}

	g := simple.NewDirectedGraph()
	for id := range seen {
		g.AddNode(simple.Node(int64(id)))
	}
	for _, c := range companies {
		if c.ParentID == nil {
			continue
		}
		parent := *c.ParentID
		if !seen[parent] {
			r.Orphans = append(r.Orphans, c.ID)
			continue
		}
		if parent == c.ID {
			// simple graphs reject self edges
			r.Cycles = append(r.Cycles, []int{c.ID})
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(int64(c.ID)), simple.Node(int64(parent))))
	}

	for _, component := range topo.TarjanSCC(g) {
		if len(component) < 2 {
			continue
		}
		ids := make([]int, 0, len(component))
		for _, n := range component {
			ids = append(ids, int(n.ID()))
		}
		sort.Ints(ids)
		r.Cycles = append(r.Cycles, ids)
	}
	sort.Slice(r.Cycles, func(i, j int) bool { return r.Cycles[i][0] < r.Cycles[j][0] })
	r.Duplicates = sortedCopy(r.Duplicates)

	if forest, err := BuildTree(companies); err == nil {
		r.Roots = len(forest.Roots)
		r.MaxDepth = forest.MaxDepth()
	}
	return r
}
