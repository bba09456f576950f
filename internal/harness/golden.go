package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sigevent/internal/trace"
)

// GoldenDir is where golden traces live, relative to a scenario directory.
const GoldenDir = "golden"

// ErrGoldenMismatch is returned by CompareGolden when the trace differs
// from the golden file.
var ErrGoldenMismatch = errors.New("trace does not match golden file")

// Snapshot renders a result's trace as canonical JSON for golden comparison.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	return trace.MarshalSnapshot(trace.Snapshot{
		Scenario:  scenarioName,
		SessionID: result.SessionID,
		Events:    result.Trace,
	})
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Join("testdata", GoldenDir)),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}

// GoldenPath returns the golden file of a scenario in a scenario directory.
func GoldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, GoldenDir, scenarioName+".golden")
}

// CompareGolden compares a result's trace with its golden file under dir,
// for use outside of go test. With update set the golden file is rewritten
// instead.
func CompareGolden(dir, scenarioName string, result *Result, update bool) error {
	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	path := GoldenPath(dir, scenarioName)
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, traceJSON, 0o644); err != nil {
			return fmt.Errorf("write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, traceJSON) {
		return fmt.Errorf("%w: %s", ErrGoldenMismatch, path)
	}
	return nil
}
