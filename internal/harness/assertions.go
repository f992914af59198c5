package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/roach88/pipetree/internal/compose"
	"github.com/roach88/pipetree/internal/ir"
	"github.com/roach88/pipetree/internal/runctx"
)

// AssertionContext carries what assertions need beyond the step traces.
type AssertionContext struct {
	Tree *compose.Composable
	Ctx  context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string

	// Entries is the trace the assertion read, for context.
	Entries []runctx.Entry
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Entries) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, entry := range e.Entries {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", entry.Seq, entry.Path, entry.Type, entry.Status)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	if a.Type == AssertFinalParam {
		return assertFinalParam(actx.Tree, a)
	}

	idx := -1
	if a.Step != nil {
		idx = *a.Step
	}
	step, ok := result.Step(idx)
	if !ok {
		return fmt.Errorf("no flow step %d", idx)
	}

	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(step.Entries, a)
	case AssertTraceOrder:
		return assertTraceOrder(step.Entries, a)
	case AssertTraceCount:
		return assertTraceCount(step.Entries, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertTraceContains checks for an entry at path that carries every
// attribute the assertion names.
func assertTraceContains(entries []runctx.Entry, a Assertion) error {
	for _, e := range entries {
		if e.Path != a.Path {
			continue
		}
		var mismatch []string
		if a.Status != "" && string(e.Status) != a.Status {
			mismatch = append(mismatch, fmt.Sprintf("status %s", e.Status))
		}
		if a.Output != nil && !sameValue(a.Output, e.Output) {
			mismatch = append(mismatch, fmt.Sprintf("output %v", e.Output))
		}
		if a.Flag != "" && !e.HasFlag(a.Flag) {
			mismatch = append(mismatch, fmt.Sprintf("flags %v", e.Flags))
		}
		if len(mismatch) == 0 {
			return nil
		}
		return &AssertionError{
			Type:     AssertTraceContains,
			Expected: describeEntry(a),
			Actual:   strings.Join(mismatch, ", "),
			Entries:  entries,
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeEntry(a),
		Actual:   "not found in trace",
		Entries:  entries,
	}
}

func describeEntry(a Assertion) string {
	parts := []string{"entry " + a.Path}
	if a.Status != "" {
		parts = append(parts, "status "+a.Status)
	}
	if a.Output != nil {
		parts = append(parts, fmt.Sprintf("output %v", a.Output))
	}
	if a.Flag != "" {
		parts = append(parts, "flag "+a.Flag)
	}
	return strings.Join(parts, ", ")
}

// assertTraceOrder checks that the paths began in the listed order.
// Other entries may come between them.
func assertTraceOrder(entries []runctx.Entry, a Assertion) error {
	seq := make(map[string]int64, len(entries))
	for _, e := range entries {
		seq[e.Path] = e.Seq
	}

	for _, p := range a.Paths {
		if _, ok := seq[p]; !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all paths present: %v", a.Paths),
				Actual:   fmt.Sprintf("missing path: %s", p),
				Entries:  entries,
			}
		}
	}

	for i := 1; i < len(a.Paths); i++ {
		prev, curr := a.Paths[i-1], a.Paths[i]
		if seq[prev] >= seq[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("paths in order: %v", a.Paths),
				Actual: fmt.Sprintf("%s (seq %d) should be before %s (seq %d)",
					prev, seq[prev], curr, seq[curr]),
				Entries: entries,
			}
		}
	}
	return nil
}

// assertTraceCount checks how many entries match the path pattern.
func assertTraceCount(entries []runctx.Entry, a Assertion) error {
	count := 0
	for _, e := range entries {
		if runctx.Match(a.Path, e.Path) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d entries matching %s", a.Count, a.Path),
			Actual:   fmt.Sprintf("%d entries", count),
			Entries:  entries,
		}
	}
	return nil
}

// assertFinalParam reads a dotted slot path from the tree after the flow.
func assertFinalParam(tree *compose.Composable, a Assertion) error {
	got, err := tree.GetPath(a.Path)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalParam,
			Expected: fmt.Sprintf("%s = %v", a.Path, a.Value),
			Actual:   err.Error(),
		}
	}
	if !sameValue(a.Value, got) {
		return &AssertionError{
			Type:     AssertFinalParam,
			Expected: fmt.Sprintf("%s = %v", a.Path, a.Value),
			Actual:   fmt.Sprintf("%s = %v", a.Path, got),
		}
	}
	return nil
}

// sameValue compares values by canonical form, so an int from YAML equals
// an int64 read back from the trace database.
func sameValue(expected, actual any) bool {
	e, err := ir.MarshalCanonical(expected)
	if err != nil {
		return false
	}
	a, err := ir.MarshalCanonical(actual)
	if err != nil {
		return false
	}
	return bytes.Equal(e, a)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
