// Package hierarchy turns the flat company list into a forest and answers
// the path, window and lookup queries the dashboard needs. Every function in
// this package is pure: inputs are never mutated and no state is kept
// between calls.
package hierarchy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/companyview/pkg/model"
)

// Strictness controls how BuildTree treats structural problems in the input.
type Strictness int

const (
	// Lenient promotes orphans and cycle members to roots.
	Lenient Strictness = iota
	// Strict rejects input with orphans, duplicate ids or cycles.
	Strict
)

func (s Strictness) String() string {
	if s == Strict {
		return "strict"
	}
	return "lenient"
}

// ParseStrictness parses "lenient" or "strict" (case-insensitive).
func ParseStrictness(s string) (Strictness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	}
	return Lenient, fmt.Errorf("unknown strictness %q (expected lenient or strict)", s)
}

// StructuralError is returned by BuildTree in strict mode.
type StructuralError struct {
	Orphans    []int // parent reference does not resolve
	Duplicates []int // id seen more than once
	Cycles     []int // member of a parent cycle
}

func (e *StructuralError) Error() string {
	var parts []string
	if len(e.Orphans) > 0 {
		parts = append(parts, fmt.Sprintf("orphans %v", e.Orphans))
	}
	if len(e.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate ids %v", e.Duplicates))
	}
	if len(e.Cycles) > 0 {
		parts = append(parts, fmt.Sprintf("cycle members %v", e.Cycles))
	}
	return "invalid company hierarchy: " + strings.Join(parts, ", ")
}

// Node is a company placed in the forest.
type Node struct {
	Company  model.Company
	Children []*Node
	Parent   *Node // nil for roots
	Depth    int   // 0 for roots

	pos int // position in the input list and in the arena
}

// Forest is the rooted representation of a flat company list.
// Nodes are allocated in a single arena; Children and Parent point into it.
type Forest struct {
	Roots []*Node

	// Orphans lists ids whose parent reference did not resolve and that
	// were promoted to roots.
	Orphans []int
	// Promoted lists ids detached from a parent cycle and made roots.
	Promoted []int
	// Duplicates lists ids that appeared more than once. Only the first
	// occurrence is reachable through Node and FindCompanyByID by id.
	Duplicates []int

	arena []Node
	byID  map[int]*Node
}

type buildConfig struct {
	strictness Strictness
}

// BuildOption configures BuildTree.
type BuildOption func(*buildConfig)

// WithStrictness selects lenient (default) or strict structural handling.
func WithStrictness(s Strictness) BuildOption {
	return func(c *buildConfig) {
		c.strictness = s
	}
}

// BuildTree converts a flat list into a forest.
//
// Records with a nil parent are roots. Records whose parent id is not in
// the list are promoted to roots (orphan promotion). Roots keep first-seen
// input order and children keep input order. Every record of the input
// appears exactly once in the result. HierarchyLevel is recomputed from the
// tree, never taken from the input.
func BuildTree(companies []model.Company, opts ...BuildOption) (*Forest, error) {
	cfg := buildConfig{strictness: Lenient}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Forest{
		arena: make([]Node, len(companies)),
		byID:  make(map[int]*Node, len(companies)),
	}

	for i := range companies {
		n := &f.arena[i]
		n.Company = companies[i].Clone()
		n.pos = i
		if _, dup := f.byID[n.Company.ID]; dup {
			f.Duplicates = append(f.Duplicates, n.Company.ID)
			continue
		}
		f.byID[n.Company.ID] = n
	}

	for i := range f.arena {
		n := &f.arena[i]
		if !n.Company.HasParent() {
			f.Roots = append(f.Roots, n)
			continue
		}
		parent, ok := f.byID[*n.Company.ParentID]
		if !ok {
			f.Orphans = append(f.Orphans, n.Company.ID)
			f.Roots = append(f.Roots, n)
			continue
		}
		n.Parent = parent
		parent.Children = append(parent.Children, n)
	}

	visited := make([]bool, len(f.arena))
	for _, root := range f.Roots {
		f.assignDepths(root, visited)
	}

	// Anything not reached from a root hangs off a parent cycle.
	for i := range f.arena {
		if visited[i] {
			continue
		}
		entry := f.cycleEntry(&f.arena[i])
		f.detach(entry)
		f.Roots = append(f.Roots, entry)
		f.Promoted = append(f.Promoted, entry.Company.ID)
		f.assignDepths(entry, visited)
	}

	if cfg.strictness == Strict && (len(f.Orphans) > 0 || len(f.Duplicates) > 0 || len(f.Promoted) > 0) {
		return nil, &StructuralError{
			Orphans:    append([]int(nil), f.Orphans...),
			Duplicates: append([]int(nil), f.Duplicates...),
			Cycles:     append([]int(nil), f.Promoted...),
		}
	}

	return f, nil
}

// assignDepths walks the subtree under start with an explicit stack and
// records depth and hierarchy level on every node.
func (f *Forest) assignDepths(start *Node, visited []bool) {
	if start.Parent == nil {
		start.Depth = 0
	} else {
		start.Depth = start.Parent.Depth + 1
	}
	stack := []*Node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n.pos] {
			continue
		}
		visited[n.pos] = true
		n.Company.HierarchyLevel = n.Depth
		for _, child := range n.Children {
			child.Depth = n.Depth + 1
			stack = append(stack, child)
		}
	}
}

// cycleEntry follows parent links from an unreachable node until a node
// repeats, then returns the cycle member that came first in the input.
func (f *Forest) cycleEntry(n *Node) *Node {
	seen := make(map[*Node]bool)
	for n.Parent != nil && !seen[n] {
		seen[n] = true
		n = n.Parent
	}
	if n.Parent == nil {
		return n
	}
	first := n
	for m := n.Parent; m != n; m = m.Parent {
		if m.pos < first.pos {
			first = m
		}
	}
	return first
}

func (f *Forest) detach(n *Node) {
	if n.Parent == nil {
		return
	}
	siblings := n.Parent.Children
	for i, s := range siblings {
		if s == n {
			n.Parent.Children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	n.Parent = nil
}

// Node returns the node for id using the forest's index.
func (f *Forest) Node(id int) (*Node, bool) {
	if f == nil {
		return nil, false
	}
	n, ok := f.byID[id]
	return n, ok
}

// Len returns the number of nodes in the forest.
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.arena)
}

// Walk visits nodes depth-first in pre-order. Returning false from fn stops
// the walk.
func (f *Forest) Walk(fn func(n *Node) bool) {
	if f == nil {
		return
	}
	stack := make([]*Node, 0, len(f.Roots))
	for i := len(f.Roots) - 1; i >= 0; i-- {
		stack = append(stack, f.Roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			return
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Flatten returns every id in depth-first pre-order.
func (f *Forest) Flatten() []int {
	ids := make([]int, 0, f.Len())
	f.Walk(func(n *Node) bool {
		ids = append(ids, n.Company.ID)
		return true
	})
	return ids
}

// Companies returns the companies in depth-first pre-order with their
// recomputed hierarchy levels.
func (f *Forest) Companies() []model.Company {
	out := make([]model.Company, 0, f.Len())
	f.Walk(func(n *Node) bool {
		out = append(out, n.Company)
		return true
	})
	return out
}

// Subtree returns id followed by all of its descendants in pre-order.
// Unknown ids yield nil.
func (f *Forest) Subtree(id int) []int {
	start, ok := f.Node(id)
	if !ok {
		return nil
	}
	var ids []int
	stack := []*Node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ids = append(ids, n.Company.ID)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return ids
}

// MaxDepth returns the deepest level in the forest, or -1 when empty.
func (f *Forest) MaxDepth() int {
	depth := -1
	f.Walk(func(n *Node) bool {
		if n.Depth > depth {
			depth = n.Depth
		}
		return true
	})
	return depth
}

// Ancestors returns the chain from the root down to n, n included.
func (n *Node) Ancestors() []*Node {
	var chain []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

func sortedCopy(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}
