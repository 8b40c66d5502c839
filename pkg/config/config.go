// Package config loads cv settings from YAML files and CV_* environment
// variables.
//
// Precedence, lowest first: built-in defaults, the user file
// (~/.config/cv/config.yaml), the project file (.cv/config.yaml), the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
	"github.com/vanderheijden86/companyview/pkg/kpi"
)

// StateDirName is the per-project directory holding data, config and tree
// state.
const StateDirName = ".cv"

// Config holds every cv setting.
type Config struct {
	// Data is the company list file (JSON array, {"companies": [...]} or JSONL).
	// Default: .cv/companies.json in the project root
	Data string `yaml:"data,omitempty" env:"CV_DATA"`

	// DB is the SQLite database used for KPI aggregation. Empty disables it.
	DB string `yaml:"db,omitempty" env:"CV_DB"`

	// MaxVisible is the breadcrumb window size (default: 5)
	MaxVisible int `yaml:"max_visible,omitempty" env:"CV_MAX_VISIBLE"`

	// Strict rejects company lists with orphans, duplicates or cycles instead
	// of promoting the offending records to roots.
	Strict bool `yaml:"strict,omitempty" env:"CV_STRICT"`

	// Watch reloads the data file when it changes (default: true)
	Watch *bool `yaml:"watch,omitempty" env:"CV_WATCH"`

	// PersistState saves expanded nodes to .cv/tree-state.json
	PersistState bool `yaml:"persist_state,omitempty" env:"CV_PERSIST_STATE"`

	KPI KPIConfig `yaml:"kpi,omitempty"`
	Log LogConfig `yaml:"log,omitempty"`

	// Projects are registered project roots offered by `cv pick`.
	Projects []Project `yaml:"projects,omitempty" env:"-"`

	// Discovery scans directories for further projects.
	Discovery DiscoveryConfig `yaml:"discovery,omitempty" env:"-"`
}

// KPIConfig controls KPI fetching.
type KPIConfig struct {
	// Scope is "node" (active company only) or "subtree"
	Scope string `yaml:"scope,omitempty" env:"CV_KPI_SCOPE"`

	// Timeout bounds a single fetch (default: 5s)
	Timeout time.Duration `yaml:"timeout,omitempty" env:"CV_KPI_TIMEOUT"`
}

// LogConfig controls the log file.
type LogConfig struct {
	File  string `yaml:"file,omitempty" env:"CV_LOG_FILE"`
	Level string `yaml:"level,omitempty" env:"CV_LOG_LEVEL"`
}

// Project is a directory containing a .cv/ state directory.
type Project struct {
	Name string `yaml:"name,omitempty"`
	Path string `yaml:"path"`
}

// ResolvedPath returns the project path with ~ expanded and cleaned.
func (p Project) ResolvedPath() string {
	return filepath.Clean(expandHome(p.Path))
}

// DisplayName returns the project name, defaulting to the directory name.
func (p Project) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return filepath.Base(p.ResolvedPath())
}

// DataPath returns the default company file of the project.
func (p Project) DataPath() string {
	return filepath.Join(p.ResolvedPath(), StateDirName, "companies.json")
}

// DiscoveryConfig controls project discovery.
type DiscoveryConfig struct {
	ScanPaths []string `yaml:"scan_paths,omitempty"`

	// MaxDepth limits directory traversal depth (default: 3)
	MaxDepth int `yaml:"max_depth,omitempty"`
}

// ConfigError reports a problem with a specific config source.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Default returns the built-in configuration.
func Default() Config {
	watch := true
	return Config{
		MaxVisible: hierarchy.DefaultMaxVisible,
		Watch:      &watch,
		KPI: KPIConfig{
			Scope:   string(kpi.ScopeNode),
			Timeout: kpi.DefaultTimeout,
		},
		Log: LogConfig{
			Level: "info",
		},
		Discovery: DiscoveryConfig{
			MaxDepth: 3,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MaxVisible < 1 {
		return fmt.Errorf("max_visible must be at least 1, got %d", c.MaxVisible)
	}
	if _, err := kpi.ParseScope(c.KPI.Scope); err != nil {
		return err
	}
	if c.KPI.Timeout < 0 {
		return fmt.Errorf("kpi.timeout cannot be negative, got %s", c.KPI.Timeout)
	}
	for i, p := range c.Projects {
		if p.Path == "" {
			return fmt.Errorf("projects[%d]: path is required", i)
		}
	}
	return nil
}

// Strictness returns the tree-building mode selected by Strict.
func (c *Config) Strictness() hierarchy.Strictness {
	if c.Strict {
		return hierarchy.Strict
	}
	return hierarchy.Lenient
}

// Scope returns the parsed KPI scope. Invalid values fall back to node.
func (c *Config) Scope() kpi.Scope {
	s, err := kpi.ParseScope(c.KPI.Scope)
	if err != nil {
		return kpi.ScopeNode
	}
	return s
}

// WatchEnabled reports whether the data file should be watched.
func (c *Config) WatchEnabled() bool {
	return c.Watch == nil || *c.Watch
}

// UserConfigPath returns ~/.config/cv/config.yaml (or the platform
// equivalent).
func UserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cv", "config.yaml")
}

// ProjectConfigPath returns the config file inside a project root.
func ProjectConfigPath(root string) string {
	return filepath.Join(root, StateDirName, "config.yaml")
}

// Load builds the effective configuration for projectRoot. An empty
// projectRoot skips the project file. Missing files are not errors.
func Load(projectRoot string) (Config, error) {
	cfg := Default()

	if path := UserConfigPath(); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if projectRoot != "" {
		if err := LoadFile(ProjectConfigPath(projectRoot), &cfg); err != nil {
			return cfg, err
		}
		if cfg.Data == "" {
			cfg.Data = Project{Path: projectRoot}.DataPath()
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	cfg.Data = expandHome(cfg.Data)
	cfg.DB = expandHome(cfg.DB)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return cfg, &ConfigError{Source: "validation", Err: err}
	}
	return cfg, nil
}

// LoadFile merges the YAML file at path into cfg. Keys absent from the file
// keep their current values. A missing file leaves cfg untouched.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &ConfigError{Source: path, Err: err}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &ConfigError{Source: path, Err: fmt.Errorf("parsing yaml: %w", err)}
	}
	return nil
}

// ApplyEnv overrides cfg with CV_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return &ConfigError{Source: "environment", Err: err}
	}
	return nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
