package harness

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioNotFoundError is returned when a named scenario file does not
// exist.
type ScenarioNotFoundError struct {
	Scenario     string
	ResolvedPath string
}

func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario file %q does not exist (resolved to: %s)", e.Scenario, e.ResolvedPath)
}

// ResolveScenarios expands names into scenario file paths. Relative names
// are resolved against dir; a directory contributes every .yaml and .yml
// file below it, in lexical order.
func ResolveScenarios(dir string, names ...string) ([]string, error) {
	var paths []string
	for _, name := range names {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}

		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ScenarioNotFoundError{Scenario: name, ResolvedPath: p}
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			ext := strings.ToLower(filepath.Ext(path))
			if !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}

// SuiteResult summarizes a batch of scenario files.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure is one failed scenario file.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// RunFiles loads and runs each scenario file. A file that fails to load
// or run counts as a failure; the batch continues.
func RunFiles(paths []string) *SuiteResult {
	suite := &SuiteResult{Failures: []ScenarioFailure{}}
	for _, p := range paths {
		suite.Total++

		s, err := LoadScenario(p)
		if err != nil {
			suite.fail("", p, err.Error())
			continue
		}
		result, err := Run(s)
		if err != nil {
			suite.fail(s.Name, p, err.Error())
			continue
		}
		if !result.Pass {
			suite.fail(s.Name, p, result.Errors...)
			continue
		}
		suite.Passed++
	}
	return suite
}

func (s *SuiteResult) fail(name, path string, errs ...string) {
	s.Failed++
	s.Failures = append(s.Failures, ScenarioFailure{Scenario: name, Path: path, Errors: errs})
}
