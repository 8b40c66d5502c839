package hierarchy

import "github.com/vanderheijden86/companyview/pkg/model"

// DefaultMaxVisible is the number of hierarchy levels the dashboard shows
// when nothing else is configured.
const DefaultMaxVisible = 5

// windowLead is how many levels above the selection the window tries to keep.
const windowLead = 2

// Window is the bounded slice of a hierarchy path shown around a selection.
type Window struct {
	VisibleIDs    []int           `json:"visible_ids"`
	FullPath      []model.Company `json:"full_path"`
	SelectedIndex int             `json:"selected_index"`
	Start         int             `json:"start"`
	End           int             `json:"end"`
	HasMoreAbove  bool            `json:"has_more_above"`
	HasMoreBelow  bool            `json:"has_more_below"`
}

// Visible returns the companies inside the window.
func (w Window) Visible() []model.Company {
	if w.Start >= w.End {
		return nil
	}
	return w.FullPath[w.Start:w.End]
}

// HiddenAbove returns how many path entries are cut off above the window.
func (w Window) HiddenAbove() int {
	return w.Start
}

// HiddenBelow returns how many path entries are cut off below the window.
func (w Window) HiddenBelow() int {
	return len(w.FullPath) - w.End
}

// CalculateVisibleWindow computes the window around selected.
//
// The full path is the ancestor chain of selected followed by its
// unambiguous descendant chain (each step down has exactly one child). The
// window holds at most maxVisible entries, starts two levels above the
// selection when there is room, and is clamped so it never runs past either
// end of the path.
func CalculateVisibleWindow(selected model.Company, companies []model.Company, maxVisible int) Window {
	full, idx, _ := NewIndex(companies).FullPath(selected)
	return WindowOnPath(full, idx, maxVisible)
}

// FullPath returns the ancestors of target, target itself and its
// unambiguous descendant chain, along with target's position in the result
// and the status of the upward walk.
func (ix *Index) FullPath(target model.Company) ([]model.Company, int, PathStatus) {
	ancestors, status := ix.Resolve(target)

	exclude := make(map[int]bool, len(ancestors))
	for _, c := range ancestors {
		exclude[c.ID] = true
	}
	full := append(ancestors, ix.descendantChain(target, exclude)...)
	return full, len(ancestors) - 1, status
}

// WindowOnPath applies the window arithmetic to a caller-supplied path.
// maxVisible below 1 is treated as 1.
func WindowOnPath(path []model.Company, selectedIndex, maxVisible int) Window {
	if maxVisible < 1 {
		maxVisible = 1
	}
	n := len(path)
	w := Window{FullPath: path, SelectedIndex: selectedIndex}
	if n == 0 {
		return w
	}

	// For windows narrower than three the lead shrinks so the selection
	// stays inside.
	lead := min(windowLead, maxVisible-1)
	start := max(0, min(selectedIndex-lead, n-maxVisible))
	end := min(n, start+maxVisible)

	w.Start = start
	w.End = end
	w.HasMoreAbove = start > 0
	w.HasMoreBelow = end < n
	w.VisibleIDs = make([]int, 0, end-start)
	for _, c := range path[start:end] {
		w.VisibleIDs = append(w.VisibleIDs, c.ID)
	}
	return w
}

// IndexOf returns the position of id in path, or -1.
func IndexOf(path []model.Company, id int) int {
	for i, c := range path {
		if c.ID == id {
			return i
		}
	}
	return -1
}
