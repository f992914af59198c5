// Package runctx records hierarchical execution traces.
//
// A Run is one top-level invocation. Every node invoked during the run gets
// an Entry keyed by its structural path:
//
//	.          the root node
//	.x         the child reached through edge "x"
//	.x.y       a grandchild
//	.x[1]      the second call of edge "x" under the same parent
//
// The k-th repeat (k >= 1) of an edge under one parent is suffixed [k]; the
// first call carries the bare edge name. Entries move from running to done
// or error exactly once and are immutable afterwards.
//
// Runs live in a process-wide Store (Default) or an explicit one injected
// by the caller. The active run and path travel in context.Context, so
// concurrent invocations never share an active path. Fan-out children write
// into forked views of the run which are merged back after each child
// finishes.
package runctx
