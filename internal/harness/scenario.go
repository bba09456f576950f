package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// DefaultSessionID is used when a scenario does not name its session, so
// that golden traces stay deterministic.
const DefaultSessionID = "test-session-default"

// Scenario defines a conformance test scenario.
// A scenario scripts one host session step by step and checks what the
// attribute reports at each query.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// SessionID is an optional fixed session id.
	// If empty, defaults to DefaultSessionID.
	SessionID string `yaml:"session_id,omitempty" json:"session_id,omitempty"`

	// Signals holds initial signal values. Signals not listed start at "x".
	Signals map[string]string `yaml:"signals,omitempty" json:"signals,omitempty"`

	// Steps run in order against a fresh host.
	Steps []Step `yaml:"steps" json:"steps"`

	// Assertions validate the final trace and host state.
	// Supported types: trace_count, trace_order, finish_code
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// Step is one scripted host action. Exactly one field is set.
type Step struct {
	Register *RegisterStep `yaml:"register,omitempty" json:"register,omitempty"`
	Change   *ChangeStep   `yaml:"change,omitempty" json:"change,omitempty"`
	Query    *QueryStep    `yaml:"query,omitempty" json:"query,omitempty"`
	Teardown *TeardownStep `yaml:"teardown,omitempty" json:"teardown,omitempty"`
}

// RegisterStep compiles one call site of the attribute.
type RegisterStep struct {
	// Site names the call site for later queries.
	Site string `yaml:"site" json:"site"`

	// File and Line locate the call site in diagnostics.
	// They default to the scenario name and the step number.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
	Line int    `yaml:"line,omitempty" json:"line,omitempty"`

	// Args are the signal names passed to the attribute.
	Args []string `yaml:"args" json:"args"`

	// ExpectError is a substring of the expected setup diagnostic.
	// Empty means no diagnostic is expected.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// ChangeStep drives a signal to a value at a simulation time.
type ChangeStep struct {
	Signal string `yaml:"signal" json:"signal"`
	Value  string `yaml:"value" json:"value"`
	Time   uint64 `yaml:"time" json:"time"`
}

// QueryStep calls the attribute for a call site at a simulation time.
type QueryStep struct {
	Site string `yaml:"site" json:"site"`
	Time uint64 `yaml:"time" json:"time"`

	// Expect is the expected result of the attribute.
	Expect *bool `yaml:"expect,omitempty" json:"expect,omitempty"`

	// ExpectError is a substring of the expected call error.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// TeardownStep ends the simulation.
type TeardownStep struct {
	// ExpectReleased optionally checks how many monitors were released.
	ExpectReleased *int `yaml:"expect_released,omitempty" json:"expect_released,omitempty"`
}

// Assertion validates the trace or the host state after all steps ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_count": Check events of a kind appear exactly N times
	// - "trace_order": Check event kinds appear in order
	// - "finish_code": Check the finish status requested from the host
	Type string `yaml:"type" json:"type"`

	// Kind is the trace event kind (used by trace_count).
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Kinds is the expected kind order (used by trace_order).
	Kinds []string `yaml:"kinds,omitempty" json:"kinds,omitempty"`

	// Code is the expected finish status, 0 for none (used by finish_code).
	Code int `yaml:"code,omitempty" json:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
	AssertFinishCode = "finish_code"
)

// LoadScenario reads and parses a scenario file. Files ending in .cue are
// evaluated as CUE; everything else is parsed as YAML.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (YAML only), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch filepath.Ext(path) {
	case ".cue":
		scenario, err = parseCUE(path, data)
	default:
		scenario, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// IsScenarioFile reports whether path has a scenario file extension.
func IsScenarioFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

func parseYAML(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("scenario is not concrete: %w", err)
	}

	var scenario Scenario
	if err := value.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	sites := make(map[string]bool)
	ended := false
	for i, step := range s.Steps {
		if err := validateStep(i, &step, sites); err != nil {
			return err
		}
		// Monitors are gone after teardown; only queries and further
		// teardowns make sense.
		switch {
		case ended && step.Register != nil:
			return fmt.Errorf("steps[%d].register: not allowed after teardown", i)
		case ended && step.Change != nil:
			return fmt.Errorf("steps[%d].change: not allowed after teardown", i)
		case step.Teardown != nil:
			ended = true
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step, sites map[string]bool) error {
	set := 0
	for _, present := range []bool{step.Register != nil, step.Change != nil, step.Query != nil, step.Teardown != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of register, change, query, teardown is required", index)
	}

	switch {
	case step.Register != nil:
		r := step.Register
		if r.Site == "" {
			return fmt.Errorf("steps[%d].register: site is required", index)
		}
		if sites[r.Site] {
			return fmt.Errorf("steps[%d].register: site %q registered twice", index, r.Site)
		}
		sites[r.Site] = true
		if r.Line < 0 {
			return fmt.Errorf("steps[%d].register: line must be non-negative", index)
		}
		for j, arg := range r.Args {
			if arg == "" {
				return fmt.Errorf("steps[%d].register: args[%d] is empty", index, j)
			}
		}
	case step.Change != nil:
		if step.Change.Signal == "" {
			return fmt.Errorf("steps[%d].change: signal is required", index)
		}
	case step.Query != nil:
		q := step.Query
		if q.Site == "" {
			return fmt.Errorf("steps[%d].query: site is required", index)
		}
		if q.Expect == nil && q.ExpectError == "" {
			return fmt.Errorf("steps[%d].query: expect or expect_error is required", index)
		}
		if q.Expect != nil && q.ExpectError != "" {
			return fmt.Errorf("steps[%d].query: expect and expect_error are mutually exclusive", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceCount:
		if !validKind(a.Kind) {
			return fmt.Errorf("assertions[%d]: unknown kind %q for trace_count", index, a.Kind)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
		for _, k := range a.Kinds {
			if !validKind(k) {
				return fmt.Errorf("assertions[%d]: unknown kind %q for trace_order", index, k)
			}
		}
	case AssertFinishCode:
		if a.Code < 0 {
			return fmt.Errorf("assertions[%d]: code must be non-negative for finish_code", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
