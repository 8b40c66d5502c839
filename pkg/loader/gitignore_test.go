package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCoversStateDir(t *testing.T) {
	tests := []struct {
		line    string
		matches bool
	}{
		{".cv", true},
		{".cv/", true},
		{".cv/*", true},
		{".cv/**", true},
		{".cv/**/*", true},
		{".cv2", false},
		{"cv/", false},
		{".cv-backup", false},
		{"*.cv", false},
		{".cv/tree-state.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := coversStateDir(tt.line); got != tt.matches {
				t.Errorf("coversStateDir(%q) = %v, want %v", tt.line, got, tt.matches)
			}
		})
	}
}

func TestEnsureStateIgnored(t *testing.T) {
	tests := []struct {
		name         string
		existing     *string
		wantContains []string
		wantHeader   bool
	}{
		{
			name:         "creates file",
			wantContains: []string{".cv/tree-state.json", ".cv/logs/"},
			wantHeader:   true,
		},
		{
			name:         "appends after content without newline",
			existing:     strPtr("node_modules/"),
			wantContains: []string{"node_modules/\n\n# cv local state", ".cv/logs/"},
			wantHeader:   true,
		},
		{
			name:         "whole dir already ignored",
			existing:     strPtr("/.cv/\n"),
			wantContains: []string{"/.cv/"},
			wantHeader:   false,
		},
		{
			name:         "one entry present",
			existing:     strPtr(".cv/tree-state.json\n"),
			wantContains: []string{".cv/logs/"},
			wantHeader:   true,
		},
		{
			name:         "commented entries do not count",
			existing:     strPtr("# .cv/\n"),
			wantContains: []string{".cv/tree-state.json"},
			wantHeader:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, ".gitignore")
			if tt.existing != nil {
				if err := os.WriteFile(path, []byte(*tt.existing), 0644); err != nil {
					t.Fatal(err)
				}
			}

			if err := EnsureStateIgnored(dir); err != nil {
				t.Fatalf("EnsureStateIgnored() error = %v", err)
			}
			content, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(string(content), want) {
					t.Errorf("expected %q in:\n%s", want, content)
				}
			}
			if got := strings.Contains(string(content), gitignoreHeader); got != tt.wantHeader {
				t.Errorf("header present = %v, want %v:\n%s", got, tt.wantHeader, content)
			}
			if strings.Count(string(content), ".cv/tree-state.json") > 1 {
				t.Errorf("entry duplicated:\n%s", content)
			}
		})
	}
}

// TestEnsureStateIgnoredIdempotent verifies repeated calls leave the file
// unchanged after the first.
func TestEnsureStateIgnoredIdempotent(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		if err := EnsureStateIgnored(dir); err != nil {
			t.Fatal(err)
		}
	}
	content, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(content), gitignoreHeader); n != 1 {
		t.Errorf("expected one block, got %d:\n%s", n, content)
	}
}

func TestEnsureStateIgnoredUsesCurrentDir(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if err := EnsureStateIgnored(""); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".gitignore")); err != nil {
		t.Errorf("expected .gitignore in working directory: %v", err)
	}
}

func strPtr(s string) *string { return &s }
