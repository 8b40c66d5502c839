package hierarchy

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vanderheijden86/companyview/pkg/model"
)

func company(id int, parent *int) model.Company {
	return model.Company{
		ID:               id,
		Name:             "Company",
		RelationshipType: model.RelBranch,
		Role:             model.RoleUser,
		ParentID:         parent,
	}
}

func p(id int) *int { return model.IntPtr(id) }

// chain builds ids 0..n-1, each parented to the previous one.
func chain(n int) []model.Company {
	out := make([]model.Company, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			out[i] = company(0, nil)
			continue
		}
		out[i] = company(i, p(i-1))
	}
	return out
}

// TestBuildTreeEmpty verifies BuildTree handles an empty list
func TestBuildTreeEmpty(t *testing.T) {
	forest, err := BuildTree(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forest.Roots) != 0 || forest.Len() != 0 {
		t.Errorf("expected empty forest, got %d roots / %d nodes", len(forest.Roots), forest.Len())
	}
	if forest.MaxDepth() != -1 {
		t.Errorf("expected max depth -1, got %d", forest.MaxDepth())
	}
}

// TestBuildTreeNoHierarchy verifies all companies become roots without parents
func TestBuildTreeNoHierarchy(t *testing.T) {
	companies := []model.Company{company(3, nil), company(1, nil), company(2, nil)}
	forest, err := BuildTree(companies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forest.Roots) != 3 {
		t.Fatalf("expected 3 roots, got %d", len(forest.Roots))
	}
	got := []int{forest.Roots[0].Company.ID, forest.Roots[1].Company.ID, forest.Roots[2].Company.ID}
	if !reflect.DeepEqual(got, []int{3, 1, 2}) {
		t.Errorf("roots should keep input order, got %v", got)
	}
}

// TestBuildTreeParentChild verifies nesting, child order and recomputed levels
func TestBuildTreeParentChild(t *testing.T) {
	companies := []model.Company{
		company(11, p(10)), // child listed before its parent
		company(10, nil),
		company(12, p(10)),
		company(13, p(11)),
	}
	companies[0].HierarchyLevel = 7 // must be ignored

	forest, err := BuildTree(companies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forest.Roots) != 1 || forest.Roots[0].Company.ID != 10 {
		t.Fatalf("expected single root 10, got %+v", forest.Roots)
	}
	root := forest.Roots[0]
	if len(root.Children) != 2 || root.Children[0].Company.ID != 11 || root.Children[1].Company.ID != 12 {
		t.Fatalf("unexpected children of root")
	}
	grandchild := root.Children[0].Children[0]
	if grandchild.Company.ID != 13 {
		t.Fatalf("expected grandchild 13, got %d", grandchild.Company.ID)
	}
	if grandchild.Depth != 2 || grandchild.Company.HierarchyLevel != 2 {
		t.Errorf("expected depth 2, got depth=%d level=%d", grandchild.Depth, grandchild.Company.HierarchyLevel)
	}
	n11, _ := forest.Node(11)
	if n11.Company.HierarchyLevel != 1 {
		t.Errorf("hierarchy level should be recomputed, got %d", n11.Company.HierarchyLevel)
	}
	if grandchild.Parent != root.Children[0] {
		t.Error("parent back-reference not set")
	}
}

// TestBuildTreeDoesNotMutateInput verifies the flat list is left alone
func TestBuildTreeDoesNotMutateInput(t *testing.T) {
	companies := chain(3)
	companies[2].HierarchyLevel = 42
	before := make([]model.Company, len(companies))
	for i, c := range companies {
		before[i] = c.Clone()
	}

	if _, err := BuildTree(companies); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, companies) {
		t.Error("BuildTree mutated its input")
	}
}

// TestBuildTreeOrphanParent verifies a dangling parent reference becomes a root
func TestBuildTreeOrphanParent(t *testing.T) {
	companies := []model.Company{
		company(1, nil),
		company(2, p(999)),
	}
	forest, err := BuildTree(companies)
	if err != nil {
		t.Fatalf("lenient build should not fail: %v", err)
	}
	if len(forest.Roots) != 2 {
		t.Fatalf("expected orphan promoted to root, got %d roots", len(forest.Roots))
	}
	if forest.Roots[1].Company.ID != 2 {
		t.Errorf("expected orphan 2 as second root, got %d", forest.Roots[1].Company.ID)
	}
	if !reflect.DeepEqual(forest.Orphans, []int{2}) {
		t.Errorf("expected Orphans=[2], got %v", forest.Orphans)
	}
}

func TestBuildTreeStrictRejectsOrphans(t *testing.T) {
	companies := []model.Company{company(1, nil), company(2, p(999))}

	forest, err := BuildTree(companies, WithStrictness(Strict))
	if forest != nil {
		t.Error("strict build should not return a forest on error")
	}
	var serr *StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StructuralError, got %v", err)
	}
	if !reflect.DeepEqual(serr.Orphans, []int{2}) {
		t.Errorf("expected orphan 2, got %v", serr.Orphans)
	}
}

func TestBuildTreeStrictAcceptsCleanInput(t *testing.T) {
	if _, err := BuildTree(chain(4), WithStrictness(Strict)); err != nil {
		t.Errorf("clean input rejected: %v", err)
	}
}

func TestBuildTreeDuplicates(t *testing.T) {
	companies := []model.Company{company(1, nil), company(1, nil), company(2, p(1))}

	forest, err := BuildTree(companies)
	if err != nil {
		t.Fatal(err)
	}
	if forest.Len() != 3 {
		t.Errorf("duplicates must still appear, got %d nodes", forest.Len())
	}
	if !reflect.DeepEqual(forest.Duplicates, []int{1}) {
		t.Errorf("expected Duplicates=[1], got %v", forest.Duplicates)
	}
	first := forest.Roots[0]
	if len(first.Children) != 1 {
		t.Error("child should attach to the first occurrence")
	}

	if _, err := BuildTree(companies, WithStrictness(Strict)); err == nil {
		t.Error("strict mode should reject duplicates")
	}
}

// TestBuildTreeCyclePromotion verifies cycle members are not dropped
func TestBuildTreeCyclePromotion(t *testing.T) {
	companies := []model.Company{
		company(1, nil),
		company(2, p(3)),
		company(3, p(2)),
		company(4, p(3)),
		company(5, p(5)),
	}
	forest, err := BuildTree(companies)
	if err != nil {
		t.Fatal(err)
	}

	ids := forest.Flatten()
	if len(ids) != len(companies) {
		t.Fatalf("expected %d ids, got %v", len(companies), ids)
	}
	if !reflect.DeepEqual(forest.Promoted, []int{2, 5}) {
		t.Errorf("expected promoted [2 5], got %v", forest.Promoted)
	}
	n2, _ := forest.Node(2)
	if n2.Parent != nil || n2.Depth != 0 {
		t.Error("promoted node should be a root")
	}
	n4, _ := forest.Node(4)
	if n4.Depth != 2 {
		t.Errorf("expected node 4 below 3 below 2, depth=%d", n4.Depth)
	}

	var serr *StructuralError
	if _, err := BuildTree(companies, WithStrictness(Strict)); !errors.As(err, &serr) || len(serr.Cycles) != 2 {
		t.Errorf("strict mode should report cycles, got %v", err)
	}
}

func TestForestFlattenPreOrder(t *testing.T) {
	companies := []model.Company{
		company(1, nil),
		company(2, p(1)),
		company(3, p(2)),
		company(4, p(1)),
		company(5, nil),
	}
	forest, _ := BuildTree(companies)
	if got := forest.Flatten(); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("unexpected pre-order %v", got)
	}
	if got := forest.Subtree(2); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("unexpected subtree %v", got)
	}
	if forest.Subtree(42) != nil {
		t.Error("unknown subtree should be nil")
	}
	if forest.MaxDepth() != 2 {
		t.Errorf("expected max depth 2, got %d", forest.MaxDepth())
	}
}

func TestBuildTreeDeepChainNoRecursion(t *testing.T) {
	const depth = 200000
	forest, err := BuildTree(chain(depth))
	if err != nil {
		t.Fatal(err)
	}
	if forest.MaxDepth() != depth-1 {
		t.Errorf("expected max depth %d, got %d", depth-1, forest.MaxDepth())
	}
	leaf, ok := forest.Node(depth - 1)
	if !ok || len(leaf.Ancestors()) != depth {
		t.Error("ancestor chain of deepest leaf has wrong length")
	}
}

func TestParseStrictness(t *testing.T) {
	if s, err := ParseStrictness("STRICT"); err != nil || s != Strict {
		t.Errorf("got %v, %v", s, err)
	}
	if s, err := ParseStrictness(""); err != nil || s != Lenient {
		t.Errorf("empty should default to lenient, got %v, %v", s, err)
	}
	if _, err := ParseStrictness("loose"); err == nil {
		t.Error("expected error")
	}
	if Strict.String() != "strict" || Lenient.String() != "lenient" {
		t.Error("unexpected String() output")
	}
}
