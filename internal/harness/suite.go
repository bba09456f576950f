package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FindScenarios returns the scenario files directly in dir, sorted by path.
// A non-empty filter is a filepath.Match pattern applied to base names.
func FindScenarios(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsScenarioFile(entry.Name()) {
			continue
		}
		if filter != "" {
			ok, err := filepath.Match(filter, entry.Name())
			if err != nil {
				return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !ok {
				continue
			}
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// SuiteResult summarises a directory of scenarios.
type SuiteResult struct {
	Total    int            `json:"total"`
	Passed   int            `json:"passed"`
	Failed   int            `json:"failed"`
	Failures []SuiteFailure `json:"failures,omitempty"`
}

// SuiteFailure describes one scenario that did not pass.
type SuiteFailure struct {
	ScenarioPath string `json:"scenario_path"`
	Scenario     string `json:"scenario,omitempty"`
	Error        string `json:"error"`
}

func (r *SuiteResult) fail(path, name, msg string) {
	r.Failed++
	r.Failures = append(r.Failures, SuiteFailure{
		ScenarioPath: path,
		Scenario:     name,
		Error:        msg,
	})
}

// RunSuite loads and runs every scenario in dir matching filter and compares
// each trace with dir/golden/<name>.golden. With update set the golden files
// are rewritten and only the scenario expectations are checked.
//
// For each scenario:
//  1. Load and validate the file
//  2. Run it via Run
//  3. Check step expectations and assertions
//  4. Compare (or update) the golden trace
func RunSuite(ctx context.Context, dir, filter string, update bool, opts ...Option) (*SuiteResult, error) {
	paths, err := FindScenarios(dir, filter)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{}
	for _, path := range paths {
		result.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail(path, "", fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		runResult, err := Run(ctx, scenario, opts...)
		if err != nil {
			result.fail(path, scenario.Name, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}

		if !runResult.Pass {
			result.fail(path, scenario.Name, fmt.Sprintf("scenario expectations failed: %v", runResult.Errors))
			continue
		}

		if err := CompareGolden(dir, scenario.Name, runResult, update); err != nil {
			result.fail(path, scenario.Name, err.Error())
			continue
		}

		result.Passed++
	}

	return result, nil
}
