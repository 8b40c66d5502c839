package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/companyview/pkg/model"
)

const arrayInput = `[
  {"id": 1, "name": "Acme HQ", "relationship_type": "head_office", "role": "admin", "parent_id": null, "is_primary": true},
  {"id": 2, "name": "Acme North", "relationship_type": "branch", "role": "user", "parent_id": 1, "event_count": 3, "form_count": 4}
]`

func TestLoadCompaniesFormats(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"array", arrayInput, FormatArray},
		{"wrapped", `{"companies": ` + arrayInput + `}`, FormatWrapped},
		{"jsonl", `{"id": 1, "name": "Acme HQ", "relationship_type": "head_office", "role": "admin", "is_primary": true}
{"id": 2, "name": "Acme North", "relationship_type": "branch", "role": "user", "parent_id": 1, "event_count": 3, "form_count": 4}
`, FormatJSONL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := LoadCompanies(strings.NewReader(tt.input), Options{})
			if err != nil {
				t.Fatalf("LoadCompanies failed: %v", err)
			}
			if res.Format != tt.format {
				t.Errorf("format = %q, want %q", res.Format, tt.format)
			}
			if len(res.Companies) != 2 {
				t.Fatalf("expected 2 companies, got %d", len(res.Companies))
			}
			hq, branch := res.Companies[0], res.Companies[1]
			if hq.ParentID != nil || !hq.IsPrimary {
				t.Errorf("unexpected head office %+v", hq)
			}
			if !branch.ParentIs(1) || branch.FormCount != 4 || branch.EventCount != 3 {
				t.Errorf("unexpected branch %+v", branch)
			}
			if len(res.Warnings) != 0 {
				t.Errorf("unexpected warnings %v", res.Warnings)
			}
		})
	}
}

func TestLoadCompaniesEmpty(t *testing.T) {
	for _, input := range []string{"", "  \n", "[]", `{"companies": []}`} {
		res, err := LoadCompanies(strings.NewReader(input), Options{})
		if err != nil {
			t.Errorf("input %q: %v", input, err)
			continue
		}
		if res.Companies == nil || len(res.Companies) != 0 {
			t.Errorf("input %q: expected empty non-nil list, got %v", input, res.Companies)
		}
	}
}

// TestLoadCompaniesJSONLSkipsBadLines verifies malformed lines are counted
// and skipped while the rest of the file loads.
func TestLoadCompaniesJSONLSkipsBadLines(t *testing.T) {
	input := `{"id": 1, "name": "A", "relationship_type": "head_office", "role": "admin"}
{not json}
# comment

{"id": 2, "name": "B", "relationship_type": "branch", "role": "user", "parent_id": 1}
`
	res, err := LoadCompanies(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Companies) != 2 || res.Skipped != 1 {
		t.Errorf("expected 2 companies and 1 skipped, got %d and %d", len(res.Companies), res.Skipped)
	}
}

func TestLoadCompaniesMalformedArray(t *testing.T) {
	if _, err := LoadCompanies(strings.NewReader(`[{"id": 1,`), Options{}); err == nil {
		t.Error("expected error for truncated array")
	}
}

func TestLoadCompaniesNormalizesDisplayForms(t *testing.T) {
	input := `[{"id": 1, "name": "  Acme  ", "relationship_type": "Head Office", "role": "Admin"}]`
	res, err := LoadCompanies(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatal(err)
	}
	c := res.Companies[0]
	if c.RelationshipType != model.RelHeadOffice || c.Role != model.RoleAdmin || c.Name != "Acme" {
		t.Errorf("expected normalized record, got %+v", c)
	}
}

func TestLoadCompaniesKeepsInvalidRecords(t *testing.T) {
	input := `[{"id": 1, "name": "", "relationship_type": "head_office", "role": "admin"}]`
	res, err := LoadCompanies(strings.NewReader(input), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Companies) != 1 || len(res.Warnings) != 1 {
		t.Errorf("expected record kept with one warning, got %d records, warnings %v", len(res.Companies), res.Warnings)
	}
}

func TestWriteCompaniesRoundTrip(t *testing.T) {
	companies := []model.Company{
		{ID: 1, Name: "HQ", RelationshipType: model.RelHeadOffice, Role: model.RoleAdmin, IsPrimary: true},
		{ID: 2, Name: "Partner", RelationshipType: model.RelPartner, Role: model.RoleUser, ParentID: model.IntPtr(1)},
	}

	for _, format := range []Format{FormatArray, FormatWrapped, FormatJSONL} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteCompanies(&buf, companies, format); err != nil {
				t.Fatal(err)
			}
			res, err := LoadCompanies(&buf, Options{})
			if err != nil {
				t.Fatal(err)
			}
			if res.Format != format {
				t.Errorf("detected %q, wrote %q", res.Format, format)
			}
			if ContentHash(res.Companies) != ContentHash(companies) {
				t.Error("round trip changed content")
			}
		})
	}

	if err := WriteCompanies(&bytes.Buffer{}, companies, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteCompaniesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "companies.jsonl")
	companies := []model.Company{{ID: 1, Name: "HQ", RelationshipType: model.RelHeadOffice, Role: model.RoleAdmin}}

	if err := WriteCompaniesToFile(path, companies); err != nil {
		t.Fatal(err)
	}
	res, err := LoadCompaniesFromFile(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Format != FormatJSONL || len(res.Companies) != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestLoadCompaniesFromMissingFile(t *testing.T) {
	if _, err := LoadCompaniesFromFile(filepath.Join(t.TempDir(), "none.json"), Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestContentHash(t *testing.T) {
	a := []model.Company{{ID: 1, Name: "A"}, {ID: 2, Name: "B", ParentID: model.IntPtr(1)}}
	b := []model.Company{{ID: 1, Name: "A"}, {ID: 2, Name: "B", ParentID: model.IntPtr(1)}}
	if ContentHash(a) != ContentHash(b) {
		t.Error("equal lists should hash equally")
	}
	b[1].ParentID = nil
	if ContentHash(a) == ContentHash(b) {
		t.Error("parent change should change the hash")
	}
	b[1].ParentID = model.IntPtr(1)
	b[1].HierarchyLevel = 5
	if ContentHash(a) != ContentHash(b) {
		t.Error("derived hierarchy level should not affect the hash")
	}
}
