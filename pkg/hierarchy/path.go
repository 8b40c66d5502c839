package hierarchy

import "github.com/vanderheijden86/companyview/pkg/model"

// Index is an id lookup over a flat company list. The first record wins
// when an id is duplicated.
type Index struct {
	companies []model.Company
	byID      map[int]int
	children  map[int][]int // parent id -> positions of records naming it
}

// NewIndex builds an index over companies. The slice is retained, not copied.
func NewIndex(companies []model.Company) *Index {
	ix := &Index{
		companies: companies,
		byID:      make(map[int]int, len(companies)),
		children:  make(map[int][]int),
	}
	for i, c := range companies {
		if _, ok := ix.byID[c.ID]; !ok {
			ix.byID[c.ID] = i
		}
		if c.ParentID != nil {
			ix.children[*c.ParentID] = append(ix.children[*c.ParentID], i)
		}
	}
	return ix
}

// Find returns the company with the given id and whether it exists.
func (ix *Index) Find(id int) (model.Company, bool) {
	pos, ok := ix.byID[id]
	if !ok {
		return model.Company{}, false
	}
	return ix.companies[pos], true
}

// Len returns the number of records in the underlying list.
func (ix *Index) Len() int {
	return len(ix.companies)
}

// Children returns the records whose parent reference is id, in input order.
func (ix *Index) Children(id int) []model.Company {
	positions := ix.children[id]
	out := make([]model.Company, 0, len(positions))
	for _, pos := range positions {
		out = append(out, ix.companies[pos])
	}
	return out
}

// PathStatus describes how an ancestor walk ended.
type PathStatus int

const (
	// PathComplete means the walk reached a record with no parent.
	PathComplete PathStatus = iota
	// PathBroken means a parent reference did not resolve. The returned
	// path starts at the record carrying the dangling reference.
	PathBroken
	// PathCyclic means the walk revisited a record.
	PathCyclic
)

func (s PathStatus) String() string {
	switch s {
	case PathComplete:
		return "complete"
	case PathBroken:
		return "broken"
	case PathCyclic:
		return "cyclic"
	default:
		return "unknown"
	}
}

// Resolve walks parent references from target up to a root and returns the
// chain ordered root first, target last.
func (ix *Index) Resolve(target model.Company) ([]model.Company, PathStatus) {
	path := []model.Company{target}
	seen := map[int]bool{target.ID: true}
	status := PathComplete

	current := target
	for current.ParentID != nil {
		parent, ok := ix.Find(*current.ParentID)
		if !ok {
			status = PathBroken
			break
		}
		if seen[parent.ID] {
			status = PathCyclic
			break
		}
		seen[parent.ID] = true
		path = append(path, parent)
		current = parent
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, status
}

// PathToCompany returns the ancestor chain of target, root first and target
// last. A parent reference that cannot be found ends the walk instead of
// failing.
func PathToCompany(target model.Company, companies []model.Company) []model.Company {
	path, _ := NewIndex(companies).Resolve(target)
	return path
}

// descendantChain extends below target while the continuation is
// unambiguous, i.e. while the current tail has exactly one child.
func (ix *Index) descendantChain(target model.Company, exclude map[int]bool) []model.Company {
	var chain []model.Company
	current := target
	for {
		kids := ix.children[current.ID]
		if len(kids) != 1 {
			return chain
		}
		child := ix.companies[kids[0]]
		if exclude[child.ID] {
			return chain
		}
		exclude[child.ID] = true
		chain = append(chain, child)
		current = child
	}
}
