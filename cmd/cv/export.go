package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/companyview/pkg/export"
	"github.com/vanderheijden86/companyview/pkg/kpi"
	"github.com/vanderheijden86/companyview/pkg/selection"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		format   string
		out      string
		selectID int
		title    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the hierarchy as Markdown or the breadcrumb window as SVG/PNG",
		Long: "export writes the whole hierarchy as a Markdown report. With --select, md writes the detail page of that company " +
			"with its KPIs. svg and png draw the breadcrumb window of the selected company.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "md", "svg", "png":
			default:
				return fmt.Errorf("unknown format %q (want md, svg or png)", format)
			}
			if format == "png" && out == "-" {
				return fmt.Errorf("png output needs --out FILE")
			}
			selected := cmd.Flags().Changed("select")

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

			ctrl := a.controller()
			if _, err := ctrl.LoadCompanies(src.companies); err != nil {
				return err
			}
			if selected {
				if _, _, err := findCompany(src.companies, selectID); err != nil {
					return err
				}
				ctrl.SelectCompany(selectID)
			} else if a.store != nil {
				if id, ok, err := a.store.LastActiveCompany(cmd.Context()); err != nil {
					a.log.WithError(err).Warn("reading last active company")
				} else if _, found := ctrl.Forest().Node(id); ok && found {
					ctrl.SelectCompany(id)
				}
			}

			write := func(w io.Writer) error {
				switch format {
				case "md":
					if selected {
						svc, _ := a.kpiServices(src.companies)
						return writeCompanyMarkdown(cmd.Context(), w, ctrl, svc)
					}
					_, err := io.WriteString(w, export.GenerateMarkdown(ctrl.Forest(), title, time.Now()))
					return err
				case "svg":
					return export.WriteWindowSVG(w, ctrl.Window())
				default:
					return export.WriteWindowPNG(w, ctrl.Window())
				}
			}

			if out == "-" {
				return write(cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			if err := write(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.log.WithField("file", out).WithField("format", format).Info("exported")
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "md", "Output format: md, svg or png")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file (- for stdout)")
	cmd.Flags().IntVar(&selectID, "select", 0, "Company to export (default: the last active company in --db, else the initial selection)")
	cmd.Flags().StringVar(&title, "title", "Company hierarchy", "Markdown report title")
	return cmd
}

// writeCompanyMarkdown fetches the KPI of the active company and writes its
// detail page. A failed fetch omits the KPI section.
func writeCompanyMarkdown(ctx context.Context, w io.Writer, ctrl *selection.Controller, svc *kpi.Service) error {
	c, ok := ctrl.ActiveCompany()
	if !ok {
		return fmt.Errorf("no company selected")
	}
	if req, ok := ctrl.KPIRequest(); ok {
		ctrl.ApplyKPI(svc.Fetch(ctx, req))
	}
	state := ctrl.KPI()
	summary := &state.KPI
	if !state.Loaded || state.Err != nil {
		summary = nil
	}
	_, err := io.WriteString(w, export.CompanyMarkdown(c, ctrl.Breadcrumb(), summary))
	return err
}
