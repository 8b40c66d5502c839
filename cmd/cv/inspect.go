package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
	"github.com/vanderheijden86/companyview/pkg/model"
	"github.com/vanderheijden86/companyview/pkg/ui"
)

type treeNode struct {
	model.Company
	Children []treeNode `json:"children,omitempty"`
}

func toTreeNodes(nodes []*hierarchy.Node) []treeNode {
	out := make([]treeNode, len(nodes))
	for i, n := range nodes {
		out[i] = treeNode{Company: n.Company, Children: toTreeNodes(n.Children)}
	}
	return out
}

func newTreeCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the whole hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.loadSource(cmd.Context())
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), src)
			forest, err := a.forest(src.companies)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), toTreeNodes(forest.Roots))
			}
			return printTree(cmd.OutOrStdout(), forest)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output nested JSON")
	return cmd
}

// printTree renders every node expanded, without styling.
func printTree(w io.Writer, forest *hierarchy.Forest) error {
	tree := ui.NewTreeModel(ui.DefaultTheme(lipgloss.NewRenderer(io.Discard)))
	tree.Build(forest, func(int) bool { return true })
	if tree.NodeCount() == 0 {
		_, err := fmt.Fprintln(w, "No companies.")
		return err
	}
	tree.SetSize(200, tree.NodeCount())
	_, err := fmt.Fprintln(w, tree.View())
	return err
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("not a company id: %q", arg)
	}
	return id, nil
}

type pathOutput struct {
	ID     int             `json:"id"`
	Status string          `json:"status"`
	Path   []model.Company `json:"path"`
}

func newPathCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "path <id>",
		Short: "Print the ancestor chain of a company, root first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.loadSource(cmd.Context())
			if err != nil {
				return err
			}
			target, ix, err := findCompany(src.companies, id)
			if err != nil {
				return err
			}
			path, status := ix.Resolve(target)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), pathOutput{ID: id, Status: status.String(), Path: path})
			}
			if status != hierarchy.PathComplete {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: path is %s\n", status)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), pathText(path))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func pathText(path []model.Company) string {
	w := hierarchy.WindowOnPath(path, len(path)-1, len(path))
	return ui.BreadcrumbText(w)
}

func newWindowCmd(opts *globalOptions) *cobra.Command {
	var (
		asJSON bool
		size   int
	)

	cmd := &cobra.Command{
		Use:   "window <id>",
		Short: "Print the breadcrumb window around a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.loadSource(cmd.Context())
			if err != nil {
				return err
			}
			target, _, err := findCompany(src.companies, id)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("size") {
				size = a.cfg.MaxVisible
			}
			w := hierarchy.CalculateVisibleWindow(target, src.companies, size)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), w)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ui.BreadcrumbText(w))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the window as JSON")
	cmd.Flags().IntVar(&size, "size", hierarchy.DefaultMaxVisible, "Maximum visible levels (default from config)")
	return cmd
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report orphans, duplicates, cycles and invalid records",
		Long:  "check inspects the company list. Exit status is 1 when ids or paths are ambiguous (duplicates, cycles) and 2 when only warnings were found.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.loadSource(cmd.Context())
			if err != nil {
				return err
			}
			report := hierarchy.Check(src.companies)

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				printReport(out, report, src.skipped)
			}

			switch {
			case report.HasErrors():
				return &exitError{code: 1}
			case report.HasWarnings() || src.skipped > 0:
				return &exitError{code: 2}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the report as JSON")
	return cmd
}

func printReport(w io.Writer, r hierarchy.Report, skipped int) {
	fmt.Fprintf(w, "Companies: %d  Roots: %d  Max depth: %d\n", r.Total, r.Roots, r.MaxDepth)
	if skipped > 0 {
		fmt.Fprintf(w, "Skipped lines: %d\n", skipped)
	}
	for _, id := range r.Orphans {
		fmt.Fprintf(w, "orphan: #%d has an unknown parent\n", id)
	}
	for _, id := range r.Duplicates {
		fmt.Fprintf(w, "duplicate: #%d appears more than once\n", id)
	}
	for _, cycle := range r.Cycles {
		fmt.Fprintf(w, "cycle: %v\n", cycle)
	}
	if len(r.Primaries) > 1 {
		fmt.Fprintf(w, "primary: %d companies are marked primary %v\n", len(r.Primaries), r.Primaries)
	}
	for _, msg := range r.Invalid {
		fmt.Fprintf(w, "invalid: %s\n", msg)
	}
	if !r.HasErrors() && !r.HasWarnings() && skipped == 0 {
		fmt.Fprintln(w, "OK")
	}
}
