package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pipetree/internal/compose"
)

// Scenario is a tree definition, a sequence of invocations and the
// assertions checked against their traces.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Tree        compose.Dump `yaml:"tree"`
	Flow        []FlowStep   `yaml:"flow"`
	Assertions  []Assertion  `yaml:"assertions"`
}

// FlowStep is one root invocation.
type FlowStep struct {
	Args   []any          `yaml:"args"`
	Kwargs map[string]any `yaml:"kwargs"`

	// Set assigns tree values before this step. The change persists.
	Set map[string]any `yaml:"set"`

	// Overrides apply to this invocation only.
	Overrides map[string]any `yaml:"overrides"`

	From string `yaml:"from"`
	To   string `yaml:"to"`

	// Previous is the index of an earlier step whose run supplies outputs
	// for skipped steps.
	Previous *int `yaml:"previous"`

	Expect *Expect `yaml:"expect"`
}

// Expect is checked against a step's return.
type Expect struct {
	Output any `yaml:"output"`

	// Error, when set, must be a substring of the returned error.
	Error string `yaml:"error"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalParam    = "final_param"
)

// Assertion is one check on the result of a scenario. Which fields apply
// depends on Type.
type Assertion struct {
	Type string `yaml:"type"`

	// Step selects the flow step a trace assertion reads. Nil means the
	// last step.
	Step *int `yaml:"step"`

	// trace_contains, trace_count, final_param
	Path string `yaml:"path"`

	// trace_contains
	Status string `yaml:"status"`
	Output any    `yaml:"output"`
	Flag   string `yaml:"flag"`

	// trace_order
	Paths []string `yaml:"paths"`

	// trace_count
	Count int `yaml:"count"`

	// final_param
	Value any `yaml:"value"`
}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Tree.Type == "" {
		return fmt.Errorf("tree.type is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must have at least one step")
	}

	for i, step := range s.Flow {
		if step.Previous != nil && (*step.Previous < 0 || *step.Previous >= i) {
			return fmt.Errorf("flow[%d]: previous must name an earlier step, got %d", i, *step.Previous)
		}
	}

	for i, a := range s.Assertions {
		if a.Step != nil && (*a.Step < 0 || *a.Step >= len(s.Flow)) {
			return fmt.Errorf("assertions[%d]: step %d out of range", i, *a.Step)
		}
		switch a.Type {
		case AssertTraceContains:
			if a.Path == "" {
				return fmt.Errorf("assertions[%d]: trace_contains requires path", i)
			}
		case AssertTraceOrder:
			if len(a.Paths) < 2 {
				return fmt.Errorf("assertions[%d]: trace_order requires at least 2 paths", i)
			}
		case AssertTraceCount:
			if a.Path == "" {
				return fmt.Errorf("assertions[%d]: trace_count requires path", i)
			}
			if a.Count < 0 {
				return fmt.Errorf("assertions[%d]: trace_count count must be >= 0", i)
			}
		case AssertFinalParam:
			if a.Path == "" {
				return fmt.Errorf("assertions[%d]: final_param requires path", i)
			}
		case "":
			return fmt.Errorf("assertions[%d]: type is required", i)
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
	return nil
}
