// Package harness runs pipeline scenarios described in YAML and checks
// their traces.
//
// # Scenario Format
//
//	name: plus_reuse
//	description: "Re-running from .m reuses x and y"
//	tree:
//	  type: sample.Plus
//	  params: { a: 20, e: 20 }
//	  nodes:
//	    x: { type: sample.Sum1, params: { a: 20 } }
//	flow:
//	  - args: [1, 2]
//	    expect: { output: 281 }
//	  - args: [1, 2]
//	    from: .m
//	    previous: 0
//	    set: { y.a: 1 }
//	assertions:
//	  - type: trace_contains
//	    path: .x
//	    flag: skipped
//	  - type: trace_order
//	    paths: [.x, .y, .m]
//	  - type: trace_count
//	    path: ".*"
//	    count: 3
//	  - type: final_param
//	    path: y.a
//	    value: 1
//
// Each flow step is one root invocation. set changes the tree for this
// and later steps; overrides apply to the step only. previous names an
// earlier step by index whose run stands in for skipped steps.
//
// # Assertion Types
//
//   - trace_contains: an entry exists at path, optionally with the given
//     status, output and flag
//   - trace_order: paths began in the listed order
//   - trace_count: exactly count entries match the path pattern, where
//     "*" stands for one segment
//   - final_param: the tree's value at path after the flow
//
// Trace assertions read the step named by step, or the last step when it
// is omitted.
//
// # Deterministic Testing
//
// Runs use a testutil.DeterministicClock, sequential run ids and a memory
// cache. Finished runs are persisted to an in-memory SQLite store and
// read back for previous, so reuse goes through the same path as
// "pipetree run --previous".
package harness
