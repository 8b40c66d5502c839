// tree.go - Company tree panel: cursor, expand indicators and a bounded
// visible range over the forest.
package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
)

// TreeState is the persisted part of the dashboard, saved to
// .cv/tree-state.json so expansion and the active company survive restarts.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "expanded": [1, 4, 9],
//	  "active": 4
//	}
//
// A missing or corrupted file means defaults.
type TreeState struct {
	Version  int   `json:"version"`
	Expanded []int `json:"expanded"`
	Active   *int  `json:"active,omitempty"`
}

// TreeStateVersion is the current schema version for tree persistence
const TreeStateVersion = 1

const treeStateFileName = "tree-state.json"

// TreeStatePath returns the tree state file inside stateDir (".cv" when empty).
func TreeStatePath(stateDir string) string {
	if stateDir == "" {
		stateDir = ".cv"
	}
	return filepath.Join(stateDir, treeStateFileName)
}

// LoadTreeState reads a persisted state. A missing file yields (nil, nil).
func LoadTreeState(path string) (*TreeState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading tree state: %w", err)
	}
	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("invalid tree state %s: %w", path, err)
	}
	if state.Version != TreeStateVersion {
		return nil, fmt.Errorf("unsupported tree state version %d", state.Version)
	}
	return &state, nil
}

// SaveTreeState writes state to path, creating the directory if needed.
func SaveTreeState(path string, state TreeState) error {
	state.Version = TreeStateVersion
	if state.Expanded == nil {
		state.Expanded = []int{}
	}
	sort.Ints(state.Expanded)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tree state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// TreeModel renders the forest as an indented list. Expansion is owned by
// the selection controller; Build takes it as a predicate.
type TreeModel struct {
	forest         *hierarchy.Forest
	flatList       []*hierarchy.Node // visible nodes in display order
	expanded       func(id int) bool
	cursor         int
	theme          Theme
	width          int
	height         int
	viewportOffset int // index of first visible node

	activeID  int
	hasActive bool
	built     bool
}

// NewTreeModel creates an empty tree model
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{theme: theme}
}

// SetSize updates the available dimensions for the tree view
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// Build lays out the forest showing the children of every node for which
// expanded returns true. The cursor stays on the same company when it is
// still visible.
func (t *TreeModel) Build(forest *hierarchy.Forest, expanded func(id int) bool) {
	keepID, hadCursor := t.SelectedID()

	t.forest = forest
	t.expanded = expanded
	t.flatList = t.flatList[:0]
	if forest != nil {
		stack := make([]*hierarchy.Node, 0, len(forest.Roots))
		for i := len(forest.Roots) - 1; i >= 0; i-- {
			stack = append(stack, forest.Roots[i])
		}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			t.flatList = append(t.flatList, n)
			if expanded != nil && expanded(n.Company.ID) {
				for i := len(n.Children) - 1; i >= 0; i-- {
					stack = append(stack, n.Children[i])
				}
			}
		}
	}
	t.built = true

	if !hadCursor || !t.SelectByID(keepID) {
		t.clampCursor()
	}
}

// SetActive marks the company highlighted as the active selection.
func (t *TreeModel) SetActive(id int, ok bool) {
	t.activeID, t.hasActive = id, ok
}

// View renders the visible slice of the tree.
func (t *TreeModel) View() string {
	if !t.built || len(t.flatList) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		line := t.renderNode(t.flatList[i])
		if i == t.cursor {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (t *TreeModel) renderEmptyState() string {
	r := t.theme.Renderer
	title := r.NewStyle().Foreground(t.theme.Primary).Bold(true)
	muted := r.NewStyle().Foreground(t.theme.Muted)
	return title.Render("Companies") + "\n\n" +
		muted.Render("No companies to display.") + "\n" +
		muted.Render("Press r to reload the data file.")
}

// renderNode renders a single tree node with tree characters and styling.
func (t *TreeModel) renderNode(node *hierarchy.Node) string {
	r := t.theme.Renderer
	c := node.Company
	var sb strings.Builder

	prefix := t.buildTreePrefix(node)
	sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render(prefix))

	sb.WriteString(r.NewStyle().Foreground(t.theme.Secondary).Render(t.getExpandIndicator(node)))
	sb.WriteString(" ")

	icon, color := t.theme.RelationshipIcon(c.RelationshipType)
	sb.WriteString(r.NewStyle().Foreground(color).Render(icon))
	sb.WriteString(" ")

	id := fmt.Sprintf("#%d", c.ID)
	sb.WriteString(r.NewStyle().Foreground(t.theme.Highlight).Render(id))
	sb.WriteString(" ")

	maxName := t.width - runewidth.StringWidth(prefix) - runewidth.StringWidth(id) - 8
	if maxName < 12 {
		maxName = 12
	}
	name := runewidth.Truncate(c.Name, maxName, "…")
	if t.hasActive && c.ID == t.activeID {
		name = t.theme.Active.Render(name)
	}
	sb.WriteString(name)

	if c.IsPrimary {
		sb.WriteString(r.NewStyle().Foreground(t.theme.Highlight).Render(" ★"))
	}
	return sb.String()
}

// buildTreePrefix builds the indentation and branch characters for a node.
func (t *TreeModel) buildTreePrefix(node *hierarchy.Node) string {
	if node.Depth == 0 || node.Parent == nil {
		return ""
	}
	ancestors := node.Ancestors()
	var sb strings.Builder
	// ancestors[0] is a root and draws no column.
	for _, a := range ancestors[1 : len(ancestors)-1] {
		if t.hasSiblingsBelow(a) {
			sb.WriteString("│   ")
		} else {
			sb.WriteString("    ")
		}
	}
	if t.hasSiblingsBelow(node) {
		sb.WriteString("├── ")
	} else {
		sb.WriteString("└── ")
	}
	return sb.String()
}

// hasSiblingsBelow checks if a node has siblings below it in the tree.
func (t *TreeModel) hasSiblingsBelow(node *hierarchy.Node) bool {
	siblings := t.forest.Roots
	if node.Parent != nil {
		siblings = node.Parent.Children
	}
	for i, s := range siblings {
		if s == node {
			return i < len(siblings)-1
		}
	}
	return false
}

func (t *TreeModel) getExpandIndicator(node *hierarchy.Node) string {
	if node.IsLeaf() {
		return "•"
	}
	if t.expanded != nil && t.expanded(node.Company.ID) {
		return "▾"
	}
	return "▸"
}

// SelectedNode returns the node under the cursor, or nil if none.
func (t *TreeModel) SelectedNode() *hierarchy.Node {
	if t.cursor >= 0 && t.cursor < len(t.flatList) {
		return t.flatList[t.cursor]
	}
	return nil
}

// SelectedID returns the company id under the cursor.
func (t *TreeModel) SelectedID() (int, bool) {
	if n := t.SelectedNode(); n != nil {
		return n.Company.ID, true
	}
	return 0, false
}

// MoveDown moves the cursor down in the flat list.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// MoveUp moves the cursor up in the flat list.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

func (t *TreeModel) JumpToBottom() {
	if len(t.flatList) > 0 {
		t.cursor = len(t.flatList) - 1
		t.ensureCursorVisible()
	}
}

// PageDown moves cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.cursor += t.pageSize()
	t.clampCursor()
}

// PageUp moves cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.cursor -= t.pageSize()
	t.clampCursor()
}

func (t *TreeModel) pageSize() int {
	if t.height/2 < 1 {
		return 5
	}
	return t.height / 2
}

// SelectByID moves the cursor to the first visible node for id.
func (t *TreeModel) SelectByID(id int) bool {
	for i, n := range t.flatList {
		if n.Company.ID == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

func (t *TreeModel) clampCursor() {
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) rows() int {
	if t.height <= 0 {
		return 20
	}
	return t.height
}

// ensureCursorVisible scrolls the viewport so the cursor row is rendered.
func (t *TreeModel) ensureCursorVisible() {
	rows := t.rows()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+rows {
		t.viewportOffset = t.cursor - rows + 1
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

// visibleRange returns the [start, end) indices of nodes to render.
func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.flatList) == 0 {
		return 0, 0
	}
	rows := t.rows()
	start = t.viewportOffset
	end = start + rows
	if end > len(t.flatList) {
		end = len(t.flatList)
		start = end - rows
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

// IsBuilt returns whether the tree has been built.
func (t *TreeModel) IsBuilt() bool {
	return t.built
}

// NodeCount returns the number of visible rows.
func (t *TreeModel) NodeCount() int {
	return len(t.flatList)
}

// RootCount returns the number of top-level companies.
func (t *TreeModel) RootCount() int {
	if t.forest == nil {
		return 0
	}
	return len(t.forest.Roots)
}
