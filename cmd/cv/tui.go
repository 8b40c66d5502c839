package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/companyview/pkg/config"
	"github.com/vanderheijden86/companyview/pkg/kpi"
	"github.com/vanderheijden86/companyview/pkg/loader"
	"github.com/vanderheijden86/companyview/pkg/model"
	"github.com/vanderheijden86/companyview/pkg/selection"
	"github.com/vanderheijden86/companyview/pkg/ui"
)

// controller returns a selection controller configured from a.cfg.
func (a *app) controller() *selection.Controller {
	return selection.New(selection.Options{
		MaxVisible: a.cfg.MaxVisible,
		Strictness: a.cfg.Strictness(),
		KPIScope:   a.cfg.Scope(),
		Logger:     a.log,
	})
}

// kpiServices builds the KPI service and, with a database, the switch
// notifier. Without a database KPIs come from the record counters.
func (a *app) kpiServices(companies []model.Company) (*kpi.Service, *kpi.Notifier) {
	var (
		fetcher  kpi.Fetcher = kpi.NewMemoryFetcher(companies)
		notifier *kpi.Notifier
	)
	if a.store != nil {
		fetcher = a.store
		notifier = kpi.NewNotifier(a.store, a.cfg.KPI.Timeout, a.log)
	}
	svc := kpi.NewService(fetcher, kpi.WithTimeout(a.cfg.KPI.Timeout), kpi.WithLogger(a.log))
	return svc, notifier
}

// statePath is where tree state is kept, or "" when persistence is off or
// there is no project directory.
func (a *app) statePath() string {
	if !a.cfg.PersistState || a.projectRoot == "" {
		return ""
	}
	return ui.TreeStatePath(filepath.Join(a.projectRoot, config.StateDirName))
}

func runTUI(cmd *cobra.Command, opts *globalOptions) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("cv needs an interactive terminal; use a subcommand such as `cv tree` for scripted output")
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
	svc, notifier := a.kpiServices(src.companies)

	var worker *ui.BackgroundWorker
	if src.path != "" && a.cfg.WatchEnabled() {
		worker, err = ui.NewBackgroundWorker(ui.WorkerConfig{DataPath: src.path, Logger: a.log})
		if err != nil {
			a.log.WithError(err).Warn("file watching disabled")
			worker = nil
		}
	}

	statePath := a.statePath()
	if statePath != "" {
		if err := loader.EnsureStateIgnored(a.projectRoot); err != nil {
			a.log.WithError(err).Warn("updating .gitignore")
		}
	}

	title := "Companies"
	if a.projectRoot != "" {
		title = filepath.Base(a.projectRoot)
	}

	m, err := ui.NewModel(ui.Options{
		Controller: a.controller(),
		Companies:  src.companies,
		Title:      title,
		KPI:        svc,
		Notifier:   notifier,
		Worker:     worker,
		Reload: func() ([]model.Company, error) {
			fresh, err := a.loadSource(cmd.Context())
			return fresh.companies, err
		},
		StatePath: statePath,
		Logger:    a.log,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if worker != nil {
		worker.SetSender(p.Send)
		worker.SetBaseline(src.hash)
		if err := worker.Start(); err != nil {
			a.log.WithError(err).Warn("starting file watcher")
		}
		defer worker.Stop()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
