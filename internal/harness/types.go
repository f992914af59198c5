package harness

import (
	"github.com/roach88/pipetree/internal/runctx"
)

// StepResult is the outcome of one flow step.
type StepResult struct {
	RunID   string         `json:"run_id"`
	Output  any            `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
	Entries []runctx.Entry `json:"entries"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Steps  []StepResult `json:"steps"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Step returns the result of step i; a negative i counts from the end.
func (r *Result) Step(i int) (StepResult, bool) {
	if i < 0 {
		i += len(r.Steps)
	}
	if i < 0 || i >= len(r.Steps) {
		return StepResult{}, false
	}
	return r.Steps[i], true
}
