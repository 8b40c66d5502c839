package ui

import (
	"strings"
	"testing"
)

func TestNewTeamPanelModel(t *testing.T) {
	forest := buildForest(t, sampleCompanies())

	panel, ok := NewTeamPanelModel(forest, 1, plainTheme())
	if !ok {
		t.Fatal("expected panel for company 1")
	}
	if panel.Owner().ID != 1 || len(panel.Members()) != 2 {
		t.Errorf("owner %d with %d members", panel.Owner().ID, len(panel.Members()))
	}
	if id, _ := panel.SelectedID(); id != 2 {
		t.Errorf("first member should be highlighted, got %d", id)
	}

	if _, ok := NewTeamPanelModel(forest, 404, plainTheme()); ok {
		t.Error("unknown company should not open a panel")
	}
}

func TestTeamPanelNavigation(t *testing.T) {
	panel, _ := NewTeamPanelModel(buildForest(t, sampleCompanies()), 1, plainTheme())

	panel.MoveUp()
	if id, _ := panel.SelectedID(); id != 2 {
		t.Errorf("MoveUp at top = %d", id)
	}
	panel.MoveDown()
	panel.MoveDown()
	if id, _ := panel.SelectedID(); id != 4 {
		t.Errorf("MoveDown should stop at the last member, got %d", id)
	}
}

func TestTeamPanelLeaf(t *testing.T) {
	panel, ok := NewTeamPanelModel(buildForest(t, sampleCompanies()), 3, plainTheme())
	if !ok {
		t.Fatal("expected panel")
	}
	if _, ok := panel.SelectedID(); ok {
		t.Error("leaf company has no members to select")
	}
	if !strings.Contains(panel.View(), "No companies report to this one.") {
		t.Errorf("unexpected view:\n%s", panel.View())
	}
}

func TestTeamPanelView(t *testing.T) {
	panel, _ := NewTeamPanelModel(buildForest(t, sampleCompanies()), 1, plainTheme())
	panel.SetSize(80, 24)

	view := panel.View()
	for _, want := range []string{"Team · Acme", "Head Office · Admin", "> ◇ Acme North #2", "◇ Acme South #4", "enter: select"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}
