package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/companyview/pkg/config"
	"github.com/vanderheijden86/companyview/pkg/hierarchy"
	"github.com/vanderheijden86/companyview/pkg/loader"
	"github.com/vanderheijden86/companyview/pkg/logging"
	"github.com/vanderheijden86/companyview/pkg/model"
	"github.com/vanderheijden86/companyview/pkg/store"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	data       string
	db         string
	maxVisible int
	strict     bool
	logFile    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "cv",
		Short:         "Browse a company hierarchy in the terminal",
		Long:          "cv shows a company hierarchy as a collapsible tree with a breadcrumb of the selected company and its KPIs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Additional config file applied after the user and project files")
	f.StringVar(&opts.data, "data", "", "Company file (JSON array, {\"companies\": [...]} or JSONL)")
	f.StringVar(&opts.db, "db", "", "SQLite database for KPIs and imported companies")
	f.IntVar(&opts.maxVisible, "max-visible", hierarchy.DefaultMaxVisible, "Breadcrumb window size")
	f.BoolVar(&opts.strict, "strict", false, "Reject hierarchies with orphans, duplicates or cycles")
	f.StringVar(&opts.logFile, "log-file", "", "Write logs to this file")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newTreeCmd(opts),
		newPathCmd(opts),
		newWindowCmd(opts),
		newCheckCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newPickCmd(opts),
	)
	return cmd
}

// app is the resolved configuration and the resources built from it.
type app struct {
	cfg         config.Config
	projectRoot string
	dataFlag    bool
	log         *logrus.Logger
	closeLog    func() error
	store       *store.Store
}

// setup resolves config with flags applied last and opens the logger and,
// when configured, the store.
func (o *globalOptions) setup(cmd *cobra.Command) (*app, error) {
	root, _ := config.FindProjectRoot("")
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if o.configPath != "" {
		if _, err := os.Stat(o.configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := config.LoadFile(o.configPath, &cfg); err != nil {
			return nil, err
		}
		if err := config.ApplyEnv(&cfg); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Data = o.data
	}
	if flags.Changed("db") {
		cfg.DB = o.db
	}
	if flags.Changed("max-visible") {
		cfg.MaxVisible = o.maxVisible
	}
	if flags.Changed("strict") {
		cfg.Strict = o.strict
	}
	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, &config.ConfigError{Source: "flags", Err: err}
	}

	log, closeLog, err := logging.New(logging.Options{File: cfg.Log.File, Level: cfg.Log.Level})
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:         cfg,
		projectRoot: root,
		dataFlag:    flags.Changed("data"),
		log:         log,
		closeLog:    closeLog,
	}

	if cfg.DB != "" {
		st, err := store.Open(cfg.DB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.store = st
	}

	log.WithFields(logrus.Fields{
		"project": root,
		"data":    cfg.Data,
		"db":      cfg.DB,
		"strict":  cfg.Strict,
	}).Debug("configuration resolved")
	return a, nil
}

// Close releases the store and the log file.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.WithError(err).Warn("closing database")
		}
	}
	_ = a.closeLog()
}

// source is a loaded company list and where it came from.
type source struct {
	companies []model.Company
	path      string // data file; empty when read from the store
	hash      string
	warnings  []string
	skipped   int
}

var errNoData = errors.New("no company data: pass --data FILE or --db FILE, or create .cv/companies.json")

// useFile reports whether companies come from the data file rather than
// the store. An explicit --data always wins; the default project file is
// used only when it exists.
func (a *app) useFile() bool {
	if a.cfg.Data == "" {
		return false
	}
	if a.dataFlag || a.store == nil {
		return true
	}
	_, err := os.Stat(a.cfg.Data)
	return err == nil
}

// loadSource reads the company list from the data file or the store.
func (a *app) loadSource(ctx context.Context) (source, error) {
	if a.useFile() {
		res, err := loader.LoadCompaniesFromFile(a.cfg.Data, loader.Options{Logger: a.log})
		if err != nil {
			if !a.dataFlag && a.store == nil && errors.Is(err, os.ErrNotExist) {
				return source{}, errNoData
			}
			return source{}, err
		}
		return source{
			companies: res.Companies,
			path:      a.cfg.Data,
			hash:      loader.ContentHash(res.Companies),
			warnings:  res.Warnings,
			skipped:   res.Skipped,
		}, nil
	}
	if a.store == nil {
		return source{}, errNoData
	}
	companies, err := a.store.ListCompanies(ctx)
	if err != nil {
		return source{}, fmt.Errorf("reading companies from database: %w", err)
	}
	return source{companies: companies, hash: loader.ContentHash(companies)}, nil
}

// forest builds the tree with the configured strictness.
func (a *app) forest(companies []model.Company) (*hierarchy.Forest, error) {
	return hierarchy.BuildTree(companies, hierarchy.WithStrictness(a.cfg.Strictness()))
}

// findCompany looks id up, reporting a usable error when it is missing.
func findCompany(companies []model.Company, id int) (model.Company, *hierarchy.Index, error) {
	ix := hierarchy.NewIndex(companies)
	c, ok := ix.Find(id)
	if !ok {
		return model.Company{}, ix, fmt.Errorf("company #%d not found", id)
	}
	return c, ix, nil
}

// printWarnings reports loader warnings on stderr.
func printWarnings(w io.Writer, src source) {
	for _, msg := range src.warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
	if src.skipped > 0 {
		fmt.Fprintf(w, "warning: skipped %d malformed lines\n", src.skipped)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
