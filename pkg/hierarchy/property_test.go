package hierarchy

import (
	"sort"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/companyview/pkg/model"
)

// genHierarchy draws an acyclic flat list in shuffled order. Each record's
// parent is an earlier record, nothing, or (when orphans is set) an id that
// does not exist. depth holds the true depth for non-orphan records.
func genHierarchy(t *rapid.T, orphans bool) (companies []model.Company, depth map[int]int) {
	n := rapid.IntRange(0, 60).Draw(t, "n")
	depth = make(map[int]int, n)
	for i := 0; i < n; i++ {
		c := company(i, nil)
		choice := rapid.IntRange(-2, i-1).Draw(t, "parent")
		switch {
		case choice >= 0:
			c.ParentID = p(choice)
			depth[i] = depth[choice] + 1
		case choice == -2 && orphans:
			c.ParentID = p(1000 + i)
			depth[i] = 0
		default:
			depth[i] = 0
		}
		companies = append(companies, c)
	}
	if len(companies) > 1 {
		companies = rapid.Permutation(companies).Draw(t, "order")
	}
	return companies, depth
}

func TestPropertyBuildTreeKeepsEveryID(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		companies, _ := genHierarchy(t, true)
		forest, err := BuildTree(companies)
		if err != nil {
			t.Fatalf("lenient build failed: %v", err)
		}

		got := forest.Flatten()
		want := ids(companies)
		sort.Ints(got)
		sort.Ints(want)
		if !equalInts(got, want) {
			t.Fatalf("flatten mismatch: got %v want %v", got, want)
		}
	})
}

func TestPropertyPathEndsAtNodeAndStartsAtRoot(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		companies, depth := genHierarchy(t, false)
		if len(companies) == 0 {
			return
		}
		target := rapid.SampledFrom(companies).Draw(t, "target")

		path := PathToCompany(target, companies)
		if path[len(path)-1].ID != target.ID {
			t.Fatalf("path must end at target %d, got %v", target.ID, ids(path))
		}
		if path[0].ParentID != nil {
			t.Fatalf("path must start at a root, got %v", ids(path))
		}
		if len(path) != depth[target.ID]+1 {
			t.Fatalf("expected length %d, got %d", depth[target.ID]+1, len(path))
		}
	})
}

func TestPropertyWindowIsBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		companies, _ := genHierarchy(t, true)
		if len(companies) == 0 {
			return
		}
		target := rapid.SampledFrom(companies).Draw(t, "target")
		maxVisible := rapid.IntRange(1, 12).Draw(t, "maxVisible")

		w := CalculateVisibleWindow(target, companies, maxVisible)
		if len(w.VisibleIDs) > maxVisible {
			t.Fatalf("window of %d exceeds %d", len(w.VisibleIDs), maxVisible)
		}
		if len(w.FullPath) <= maxVisible && (w.HasMoreAbove || w.HasMoreBelow) {
			t.Fatalf("short path must not be truncated: %+v", w)
		}
		found := false
		for _, id := range w.VisibleIDs {
			if id == target.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("selection %d missing from window %v", target.ID, w.VisibleIDs)
		}
	})
}

func TestPropertyDepthMatchesPath(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		companies, depth := genHierarchy(t, true)
		forest, err := BuildTree(companies)
		if err != nil {
			t.Fatal(err)
		}
		forest.Walk(func(n *Node) bool {
			if n.Depth != depth[n.Company.ID] {
				t.Fatalf("node %d: depth %d, want %d", n.Company.ID, n.Depth, depth[n.Company.ID])
			}
			return true
		})
	})
}
