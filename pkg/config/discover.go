package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DiscoverProjects scans directories for .cv/ subdirectories and returns
// projects found. It merges discovered projects with existing registered
// projects, preferring the registered name when a path matches.
func DiscoverProjects(cfg Config) []Project {
	seen := make(map[string]bool)
	var result []Project

	for _, p := range cfg.Projects {
		resolved := p.ResolvedPath()
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		result = append(result, p)
	}

	for _, scanPath := range cfg.Discovery.ScanPaths {
		maxDepth := cfg.Discovery.MaxDepth
		if maxDepth <= 0 {
			maxDepth = 3
		}
		for _, f := range scanForStateDirs(scanPath, maxDepth) {
			if !seen[f] {
				seen[f] = true
				result = append(result, Project{
					Name: filepath.Base(f),
					Path: f,
				})
			}
		}
	}

	return result
}

// scanForStateDirs walks a directory tree up to maxDepth levels deep,
// looking for directories that contain a .cv/ subdirectory.
func scanForStateDirs(root string, maxDepth int) []string {
	root = expandHome(root)
	var results []string

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
		if currentDepth > maxDepth {
			return filepath.SkipDir
		}

		// Hidden directories are skipped; the state dir itself is only ever
		// probed, never entered.
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}

		if isDir(filepath.Join(path, StateDirName)) {
			results = append(results, path)
			return filepath.SkipDir // projects do not nest
		}
		return nil
	})

	return results
}

// FindProjectRoot walks up from dir looking for a .cv/ directory. The walk
// stops at the home directory. An empty dir means the working directory.
func FindProjectRoot(dir string) (string, bool) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		dir = wd
	}
	home, _ := os.UserHomeDir()

	for {
		if isDir(filepath.Join(dir, StateDirName)) {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
