// Package export renders the company hierarchy as Markdown, SVG and PNG.
package export

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
	"github.com/vanderheijden86/companyview/pkg/model"
)

// GenerateMarkdown creates a report of the whole hierarchy: a summary, an
// indented outline, a Mermaid graph and a table of every company.
func GenerateMarkdown(forest *hierarchy.Forest, title string, generated time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generated.Format(time.RFC1123)))

	companies := forest.Companies()

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Companies**: %d\n", len(companies)))
	if forest != nil {
		sb.WriteString(fmt.Sprintf("- **Top-level**: %d\n", len(forest.Roots)))
	}
	sb.WriteString(fmt.Sprintf("- **Depth**: %d\n", forest.MaxDepth()+1))
	for _, rt := range []model.RelationshipType{model.RelHeadOffice, model.RelBranch, model.RelFreelancer, model.RelPartner} {
		n := 0
		for _, c := range companies {
			if c.RelationshipType == rt {
				n++
			}
		}
		if n > 0 {
			sb.WriteString(fmt.Sprintf("- **%s**: %d\n", rt.Label(), n))
		}
	}
	if forest != nil && len(forest.Orphans)+len(forest.Promoted) > 0 {
		promoted := append(append([]int(nil), forest.Orphans...), forest.Promoted...)
		sort.Ints(promoted)
		sb.WriteString(fmt.Sprintf("- **Shown at top level (parent unresolved)**: %s\n", joinIDs(promoted)))
	}
	sb.WriteString("\n")

	sb.WriteString("## Hierarchy\n\n")
	if len(companies) == 0 {
		sb.WriteString("_No companies._\n\n")
	} else {
		forest.Walk(func(n *hierarchy.Node) bool {
			sb.WriteString(strings.Repeat("  ", n.Depth))
			sb.WriteString(fmt.Sprintf("- **%s** (%s, #%d)", n.Company.Name, n.Company.RelationshipType.Label(), n.Company.ID))
			if n.Company.IsPrimary {
				sb.WriteString(" ★")
			}
			sb.WriteString("\n")
			return true
		})
		sb.WriteString("\n")
	}

	sb.WriteString("## Graph\n\n")
	sb.WriteString("```mermaid\ngraph TD\n")
	hasLinks := false
	forest.Walk(func(n *hierarchy.Node) bool {
		sb.WriteString(fmt.Sprintf("    c%d[\"%s\"]\n", n.Company.ID, mermaidLabel(n.Company.Name)))
		for _, child := range n.Children {
			sb.WriteString(fmt.Sprintf("    c%d --> c%d\n", n.Company.ID, child.Company.ID))
			hasLinks = true
		}
		return true
	})
	if !hasLinks {
		sb.WriteString("    NoLinks[No parent links]\n")
	}
	sb.WriteString("```\n\n")

	sb.WriteString("## Companies\n\n")
	sb.WriteString("| ID | Name | Type | Role | Parent | Level | Forms | Events |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, c := range companies {
		parent := "-"
		if c.ParentID != nil {
			parent = fmt.Sprint(*c.ParentID)
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %d | %d | %d |\n",
			c.ID, tableCell(c.Name), c.RelationshipType.Label(), c.Role.Label(), parent,
			c.HierarchyLevel, c.FormCount, c.EventCount))
	}
	sb.WriteString("\n")

	return sb.String()
}

// CompanyMarkdown describes one company: its breadcrumb, attributes and,
// when available, its KPI summary.
func CompanyMarkdown(c model.Company, path []model.Company, kpi *model.KPI) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", c.Name))
	if len(path) > 0 {
		names := make([]string, len(path))
		for i, p := range path {
			names[i] = p.Name
		}
		sb.WriteString(strings.Join(names, " › ") + "\n\n")
	}

	sb.WriteString("| ID | Type | Role | Level | Primary |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	primary := "no"
	if c.IsPrimary {
		primary = "yes"
	}
	sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %s |\n\n",
		c.ID, c.RelationshipType.Label(), c.Role.Label(), c.HierarchyLevel, primary))

	if kpi != nil {
		sb.WriteString("## KPI\n\n")
		sb.WriteString(fmt.Sprintf("- **Forms**: %d\n", kpi.TotalForms))
		sb.WriteString(fmt.Sprintf("- **Leads**: %d\n", kpi.TotalLeads))
		sb.WriteString(fmt.Sprintf("- **Active events**: %d\n", kpi.ActiveEvents))
		if len(kpi.CompanyIDs) > 1 {
			sb.WriteString(fmt.Sprintf("- **Covers**: %d companies\n", len(kpi.CompanyIDs)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// SaveMarkdownToFile writes the hierarchy report to a file.
func SaveMarkdownToFile(forest *hierarchy.Forest, title, filename string) error {
	content := GenerateMarkdown(forest, title, time.Now())
	return os.WriteFile(filename, []byte(content), 0644)
}

func mermaidLabel(s string) string {
	s = strings.NewReplacer("\"", "'", "[", "", "]", "", "(", "", ")", "").Replace(s)
	if r := []rune(s); len(r) > 30 {
		s = string(r[:27]) + "..."
	}
	return s
}

func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
