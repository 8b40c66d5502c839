package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
	"github.com/vanderheijden86/companyview/pkg/selection"
)

const (
	breadcrumbSep      = " › "
	breadcrumbRoot     = "All companies"
	breadcrumbEllipsis = "…"
	maxCrumbWidth      = 20
)

// RenderBreadcrumb draws the sliding window: the root crumb, an ellipsis
// for levels hidden above, the visible companies and an ellipsis for levels
// hidden below. The selected company is highlighted.
func RenderBreadcrumb(w hierarchy.Window, theme Theme, width int) string {
	r := theme.Renderer
	muted := r.NewStyle().Foreground(theme.Muted)
	path := r.NewStyle().Foreground(theme.Subtext)
	sep := muted.Render(breadcrumbSep)

	parts := []string{r.NewStyle().Foreground(theme.Primary).Render(breadcrumbRoot)}
	if w.HasMoreAbove {
		parts = append(parts, muted.Render(breadcrumbEllipsis))
	}
	for i, c := range w.Visible() {
		name := runewidth.Truncate(c.Name, maxCrumbWidth, "…")
		if w.Start+i == w.SelectedIndex {
			parts = append(parts, theme.Active.Render(name))
		} else {
			parts = append(parts, path.Render(name))
		}
	}
	if w.HasMoreBelow {
		parts = append(parts, muted.Render(breadcrumbEllipsis))
	}

	line := strings.Join(parts, sep)
	if width > 0 && lipgloss.Width(line) > width {
		// Styled text cannot be cut safely; fall back to plain names.
		return runewidth.Truncate(BreadcrumbText(w), width, "…")
	}
	return line
}

// BreadcrumbText is the unstyled form of RenderBreadcrumb.
func BreadcrumbText(w hierarchy.Window) string {
	parts := []string{breadcrumbRoot}
	if w.HasMoreAbove {
		parts = append(parts, breadcrumbEllipsis)
	}
	for _, c := range w.Visible() {
		parts = append(parts, runewidth.Truncate(c.Name, maxCrumbWidth, "…"))
	}
	if w.HasMoreBelow {
		parts = append(parts, breadcrumbEllipsis)
	}
	return strings.Join(parts, breadcrumbSep)
}

// RenderKPI draws the KPI bar for the current selection.
func RenderKPI(ctrl *selection.Controller, theme Theme) string {
	r := theme.Renderer
	muted := r.NewStyle().Foreground(theme.Muted)
	if _, ok := ctrl.ActiveID(); !ok {
		return muted.Render("No company selected")
	}
	state := ctrl.KPI()
	if !state.Loaded {
		return muted.Render("KPI loading…")
	}

	value := r.NewStyle().Foreground(theme.Secondary).Bold(true)
	k := state.KPI
	line := fmt.Sprintf("Forms %s · Leads %s · Active events %s",
		value.Render(fmt.Sprint(k.TotalForms)),
		value.Render(fmt.Sprint(k.TotalLeads)),
		value.Render(fmt.Sprint(k.ActiveEvents)))
	if len(k.CompanyIDs) > 1 {
		line += muted.Render(fmt.Sprintf(" (%d companies)", len(k.CompanyIDs)))
	}
	if state.Err != nil {
		line += " " + r.NewStyle().Foreground(theme.Error).Bold(true).Render("⚠ KPI unavailable")
	}
	return line
}
