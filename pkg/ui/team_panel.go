package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
	"github.com/vanderheijden86/companyview/pkg/model"
)

// TeamPanelModel is the modal opened with t: the company and the companies
// directly under it. Enter selects the highlighted one.
type TeamPanelModel struct {
	owner         model.Company
	members       []model.Company
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewTeamPanelModel builds the panel for id. ok is false when the company
// is not in the forest.
func NewTeamPanelModel(forest *hierarchy.Forest, id int, theme Theme) (TeamPanelModel, bool) {
	node, ok := hierarchy.FindCompanyByID(forest, id)
	if !ok {
		return TeamPanelModel{theme: theme}, false
	}
	members := make([]model.Company, len(node.Children))
	for i, child := range node.Children {
		members[i] = child.Company
	}
	return TeamPanelModel{owner: node.Company, members: members, theme: theme}, true
}

// SetSize updates the panel dimensions
func (m *TeamPanelModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *TeamPanelModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

func (m *TeamPanelModel) MoveDown() {
	if m.selectedIndex < len(m.members)-1 {
		m.selectedIndex++
	}
}

// Owner returns the company the panel was opened for.
func (m *TeamPanelModel) Owner() model.Company {
	return m.owner
}

// Members returns the direct children shown in the panel.
func (m *TeamPanelModel) Members() []model.Company {
	return m.members
}

// SelectedID returns the highlighted member.
func (m *TeamPanelModel) SelectedID() (int, bool) {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.members) {
		return m.members[m.selectedIndex].ID, true
	}
	return 0, false
}

// View renders the panel centered in the available space.
func (m *TeamPanelModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}
	t := m.theme

	boxWidth := 44
	if m.width < 54 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}

	var lines []string
	titleStyle := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	lines = append(lines, titleStyle.Render(runewidth.Truncate("Team · "+m.owner.Name, boxWidth-6, "…")))
	lines = append(lines, t.Renderer.NewStyle().Foreground(t.Subtext).
		Render(fmt.Sprintf("%s · %s", m.owner.RelationshipType.Label(), m.owner.Role.Label())))
	lines = append(lines, "")

	if len(m.members) == 0 {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Muted).Render("No companies report to this one."))
	}
	for i, c := range m.members {
		isSelected := i == m.selectedIndex
		itemStyle := t.Renderer.NewStyle()
		prefix := "  "
		if isSelected {
			itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
			prefix = "> "
		} else {
			itemStyle = itemStyle.Foreground(t.Base.GetForeground())
		}
		icon, color := t.RelationshipIcon(c.RelationshipType)
		name := runewidth.Truncate(c.Name, boxWidth-14, "…")
		lines = append(lines, itemStyle.Render(prefix)+
			t.Renderer.NewStyle().Foreground(color).Render(icon)+" "+
			itemStyle.Render(name)+
			t.Renderer.NewStyle().Foreground(t.Muted).Render(fmt.Sprintf(" #%d", c.ID)))
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().Foreground(t.Secondary).Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | enter: select | esc: close"))

	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
