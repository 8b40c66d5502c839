package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/companyview/pkg/config"
	"github.com/vanderheijden86/companyview/pkg/hierarchy"
	"github.com/vanderheijden86/companyview/pkg/loader"
	"github.com/vanderheijden86/companyview/pkg/ui"
)

func newImportCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the companies in the database with the contents of a file",
		Long: "import loads a company file (JSON array, {\"companies\": [...]} or JSONL) into the --db database. " +
			"Statistics of companies that are still present are kept.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.store == nil {
				return errors.New("import needs a database: pass --db FILE or set db in the config")
			}

			res, err := loader.LoadCompaniesFromFile(args[0], loader.Options{Logger: a.log})
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), source{warnings: res.Warnings, skipped: res.Skipped})

			if a.cfg.Strict {
				if _, err := hierarchy.BuildTree(res.Companies, hierarchy.WithStrictness(hierarchy.Strict)); err != nil {
					return err
				}
			}
			if err := a.store.ReplaceCompanies(cmd.Context(), res.Companies); err != nil {
				return err
			}
			a.log.WithField("file", args[0]).WithField("count", len(res.Companies)).Info("imported companies")
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d companies into %s\n", len(res.Companies), a.cfg.DB)
			return nil
		},
	}
	return cmd
}

func newPickCmd(opts *globalOptions) *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose a company interactively and print its breadcrumb",
		Long:  "pick opens a filterable list of companies and prints the breadcrumb window of the chosen one. With --project it lists known projects instead and prints the chosen project's path.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			theme := ui.DefaultTheme(lipgloss.DefaultRenderer())
			out := cmd.OutOrStdout()

			if project {
				p, err := ui.PickProject(config.DiscoverProjects(a.cfg), theme)
				if errors.Is(err, ui.ErrPickCancelled) {
					return &exitError{code: 130}
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, p.ResolvedPath())
				return err
			}

			src, err := a.loadSource(cmd.Context())
			if err != nil {
				return err
			}
			forest, err := a.forest(src.companies)
			if err != nil {
				return err
			}
			id, err := ui.PickCompany(forest, theme)
			if errors.Is(err, ui.ErrPickCancelled) {
				return &exitError{code: 130}
			}
			if err != nil {
				return err
			}
			node, _ := hierarchy.FindCompanyByID(forest, id)
			w := hierarchy.CalculateVisibleWindow(node.Company, src.companies, a.cfg.MaxVisible)
			_, err = fmt.Fprintln(out, ui.BreadcrumbText(w))
			return err
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "Pick a project instead of a company")
	return cmd
}
