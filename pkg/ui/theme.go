package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/companyview/pkg/model"
)

// Theme holds the colors and base styles shared by every panel.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Selected lipgloss.Style
	Active   lipgloss.Style
}

// DefaultTheme returns the Dracula-flavoured palette used by the dashboard.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#6C3FC5", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#8BE9FD"},
		Highlight: lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FFB86C"},
		Muted:     lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#44475A"},
		Error:     lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FF5555"},
		Success:   lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#50FA7B"},
	}
	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#F8F8F2"})
	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#44475A"}).
		Bold(true)
	t.Active = r.NewStyle().Foreground(t.Success).Bold(true)
	return t
}

// RelationshipIcon returns the glyph and color used for a relationship type.
func (t Theme) RelationshipIcon(rt model.RelationshipType) (string, lipgloss.AdaptiveColor) {
	switch rt {
	case model.RelHeadOffice:
		return "◆", t.Primary
	case model.RelBranch:
		return "◇", t.Secondary
	case model.RelFreelancer:
		return "○", t.Highlight
	case model.RelPartner:
		return "◎", t.Subtext
	default:
		return "·", t.Muted
	}
}
