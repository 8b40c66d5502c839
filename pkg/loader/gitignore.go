package loader

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// StateDir is the per-project directory cv keeps its files in.
const StateDir = ".cv"

// generatedState lists files under StateDir that cv writes on its own and
// that should stay out of version control. The company data and config
// files next to them are left alone.
var generatedState = []string{
	StateDir + "/tree-state.json",
	StateDir + "/logs/",
}

const gitignoreHeader = "# cv local state"

// EnsureStateIgnored makes sure the project's .gitignore covers the files
// cv generates under .cv/. Entries already covered, either individually or
// by an ignore of the whole .cv directory, are not added again.
//
// An empty projectDir means the working directory. The file is created if
// needed and existing content is preserved.
func EnsureStateIgnored(projectDir string) error {
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		projectDir = wd
	}
	path := filepath.Join(projectDir, ".gitignore")

	lines, err := readIgnoreLines(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var missing []string
	for _, pattern := range generatedState {
		if !covered(lines, pattern) {
			missing = append(missing, pattern)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return appendToGitignore(path, missing)
}

func readIgnoreLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, strings.TrimPrefix(line, "/"))
	}
	return lines, scanner.Err()
}

// covered reports whether one of the ignore lines already matches pattern.
func covered(lines []string, pattern string) bool {
	for _, line := range lines {
		if coversStateDir(line) {
			return true
		}
		if strings.TrimSuffix(line, "/") == strings.TrimSuffix(pattern, "/") {
			return true
		}
	}
	return false
}

// coversStateDir reports whether a line ignores the whole state directory.
func coversStateDir(line string) bool {
	switch line {
	case StateDir, StateDir + "/", StateDir + "/*", StateDir + "/**", StateDir + "/**/*":
		return true
	}
	return false
}

// appendToGitignore appends patterns under a header comment, creating the
// file if needed and keeping a blank line between existing content and the
// new block.
func appendToGitignore(path string, patterns []string) error {
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	var b strings.Builder
	if len(content) > 0 {
		if content[len(content)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString(gitignoreHeader + "\n")
	for _, p := range patterns {
		b.WriteString(p + "\n")
	}

	_, err = file.WriteString(b.String())
	return err
}
