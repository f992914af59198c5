package runctx

import "sync"

// SkipPlan selects which steps of a run execute.
//
// From names the first step to run (wildcards allowed); earlier siblings
// under the same parent are not executed. To names the last step to run;
// steps that start after it finishes are not executed. Skipped steps take
// their output from Previous when it has one.
type SkipPlan struct {
	From     string
	To       string
	Previous map[string]Entry
}

// PreviousFrom builds a SkipPlan.Previous map from an earlier run.
func PreviousFrom(r *Run) map[string]Entry {
	if r == nil {
		return nil
	}
	return r.Entries()
}

// Decision is what the skip middleware should do with one step.
type Decision int

const (
	// DecideRun executes the step normally.
	DecideRun Decision = iota
	// DecideReuse returns the output recorded by the previous run.
	DecideReuse
	// DecideSkip returns without executing and without a previous output.
	DecideSkip
)

type skipState struct {
	mu     sync.Mutex
	plan   SkipPlan
	gated  map[string]bool
	halted bool
}

// SetSkipPlan installs plan on the run. Forks created afterwards share it.
func (r *Run) SetSkipPlan(plan SkipPlan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skip = &skipState{plan: plan, gated: make(map[string]bool)}
}

// Decide returns the decision for the step at path and, for DecideReuse,
// the previous output.
func (r *Run) Decide(path string) (Decision, any) {
	r.mu.Lock()
	s := r.skip
	r.mu.Unlock()
	if s == nil {
		return DecideRun, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plan.From != "" && IsParentOf(path, s.plan.From) {
		s.gated[path] = true
	}

	parent := Parent(path)
	if s.gated[parent] {
		if Match(s.plan.From, path) {
			delete(s.gated, parent)
			return DecideRun, nil
		}
		return s.previous(path)
	}

	if s.halted {
		return s.previous(path)
	}
	return DecideRun, nil
}

func (s *skipState) previous(path string) (Decision, any) {
	if e, ok := s.plan.Previous[path]; ok && e.Status == StatusDone {
		return DecideReuse, e.Output
	}
	if s.halted {
		return DecideSkip, nil
	}
	// Nothing to substitute for a step before From; run it.
	return DecideRun, nil
}

// Finished tells the skip state that the step at path returned. Reaching
// To halts every later step.
func (r *Run) Finished(path string) {
	r.mu.Lock()
	s := r.skip
	r.mu.Unlock()
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan.To != "" && Match(s.plan.To, path) {
		s.halted = true
	}
}
