package ui

import (
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/companyview/pkg/config"
)

func TestCompanyOptions(t *testing.T) {
	opts := CompanyOptions(buildForest(t, sampleCompanies()), plainTheme())

	wants := []struct {
		key   string
		value int
	}{
		{"◆ Acme #1", 1},
		{"  ◇ Acme North #2", 2},
		{"    ○ Jo Freelance #3", 3},
		{"  ◇ Acme South #4", 4},
		{"◎ Partner Co #5", 5},
	}
	if len(opts) != len(wants) {
		t.Fatalf("got %d options, want %d", len(opts), len(wants))
	}
	for i, want := range wants {
		if opts[i].Key != want.key || opts[i].Value != want.value {
			t.Errorf("option %d = (%q, %d), want (%q, %d)", i, opts[i].Key, opts[i].Value, want.key, want.value)
		}
	}
}

func TestCompanyOptionsEmpty(t *testing.T) {
	if opts := CompanyOptions(buildForest(t, nil), plainTheme()); len(opts) != 0 {
		t.Errorf("expected no options, got %d", len(opts))
	}
	if _, err := PickCompany(buildForest(t, nil), plainTheme()); err == nil {
		t.Error("PickCompany on an empty forest should fail")
	}
}

func TestProjectOptions(t *testing.T) {
	dir := t.TempDir()
	projects := []config.Project{
		{Name: "acme", Path: filepath.Join(dir, "acme")},
		{Path: filepath.Join(dir, "other")},
	}

	opts := ProjectOptions(projects)
	if len(opts) != 2 {
		t.Fatalf("got %d options", len(opts))
	}
	if want := "acme  (" + filepath.Join(dir, "acme") + ")"; opts[0].Key != want {
		t.Errorf("option 0 = %q, want %q", opts[0].Key, want)
	}
	if want := "other  (" + filepath.Join(dir, "other") + ")"; opts[1].Key != want || opts[1].Value != 1 {
		t.Errorf("option 1 = (%q, %d)", opts[1].Key, opts[1].Value)
	}

	if _, err := PickProject(nil, plainTheme()); err == nil {
		t.Error("PickProject without projects should fail")
	}
}
