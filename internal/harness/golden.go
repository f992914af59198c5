package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pipetree/internal/ir"
)

// snapshot converts a result to plain maps and slices, the only shapes
// ir.MarshalCanonical lowers.
func snapshot(name string, result *Result) map[string]any {
	steps := make([]any, len(result.Steps))
	for i, s := range result.Steps {
		entries := make([]any, len(s.Entries))
		for j, e := range s.Entries {
			m := map[string]any{
				"path":   e.Path,
				"type":   e.Type,
				"status": string(e.Status),
				"seq":    e.Seq,
				"input": map[string]any{
					"args":   e.Input.Args,
					"kwargs": e.Input.Kwargs,
				},
			}
			if e.Output != nil {
				m["output"] = e.Output
			}
			if e.Error != "" {
				m["error"] = e.Error
			}
			if len(e.Flags) > 0 {
				m["flags"] = e.Flags
			}
			entries[j] = m
		}

		step := map[string]any{
			"run_id":  s.RunID,
			"entries": entries,
		}
		if s.Output != nil {
			step["output"] = s.Output
		}
		if s.Error != "" {
			step["error"] = s.Error
		}
		steps[i] = step
	}
	return map[string]any{
		"scenario_name": name,
		"steps":         steps,
	}
}

// RunWithGolden runs a scenario and compares its traces with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := ir.MarshalCanonical(snapshot(name, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
