package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/companyview/pkg/config"
	"github.com/vanderheijden86/companyview/pkg/hierarchy"
)

// ErrPickCancelled is returned when the user aborts a picker.
var ErrPickCancelled = errors.New("selection cancelled")

// pickerTheme matches the huh form colors to the dashboard theme.
func pickerTheme(t Theme) *huh.Theme {
	ht := huh.ThemeBase()

	ht.Focused.Title = lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	ht.Focused.Description = lipgloss.NewStyle().Foreground(t.Subtext)
	ht.Focused.SelectSelector = lipgloss.NewStyle().Foreground(t.Primary)
	ht.Focused.SelectedOption = lipgloss.NewStyle().Foreground(t.Success)
	ht.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(t.Base.GetForeground())
	ht.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(t.Primary)
	ht.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(t.Muted)

	ht.Blurred.Title = lipgloss.NewStyle().Foreground(t.Muted)
	ht.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(t.Muted)
	ht.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(t.Muted)
	ht.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(t.Muted)

	return ht
}

// CompanyOptions lists the forest in tree order, indented by depth.
func CompanyOptions(forest *hierarchy.Forest, theme Theme) []huh.Option[int] {
	var opts []huh.Option[int]
	forest.Walk(func(n *hierarchy.Node) bool {
		icon, _ := theme.RelationshipIcon(n.Company.RelationshipType)
		label := fmt.Sprintf("%s%s %s #%d", strings.Repeat("  ", n.Depth), icon, n.Company.Name, n.Company.ID)
		opts = append(opts, huh.NewOption(label, n.Company.ID))
		return true
	})
	return opts
}

// ProjectOptions lists projects by display name with their path.
func ProjectOptions(projects []config.Project) []huh.Option[int] {
	opts := make([]huh.Option[int], len(projects))
	for i, p := range projects {
		opts[i] = huh.NewOption(fmt.Sprintf("%s  (%s)", p.DisplayName(), p.ResolvedPath()), i)
	}
	return opts
}

func newPickerForm(title string, opts []huh.Option[int], value *int, theme Theme) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(title).
				Options(opts...).
				Height(15).
				Filtering(true).
				Value(value),
		),
	).WithTheme(pickerTheme(theme)).WithShowHelp(true)
}

// PickCompany asks the user for a company and returns its id.
func PickCompany(forest *hierarchy.Forest, theme Theme) (int, error) {
	opts := CompanyOptions(forest, theme)
	if len(opts) == 0 {
		return 0, errors.New("no companies to pick from")
	}
	id := opts[0].Value
	if err := runPicker(newPickerForm("Select a company", opts, &id, theme)); err != nil {
		return 0, err
	}
	return id, nil
}

// PickProject asks the user for one of the given projects.
func PickProject(projects []config.Project, theme Theme) (config.Project, error) {
	if len(projects) == 0 {
		return config.Project{}, errors.New("no projects registered or discovered")
	}
	idx := 0
	if err := runPicker(newPickerForm("Select a project", ProjectOptions(projects), &idx, theme)); err != nil {
		return config.Project{}, err
	}
	return projects[idx], nil
}

func runPicker(form *huh.Form) error {
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrPickCancelled
		}
		return err
	}
	return nil
}
