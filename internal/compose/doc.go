// Package compose defines composable pipeline nodes.
//
// A Type declares slots (Params for plain values, Nodes for child
// composables), protected keywords, a middleware section and the run
// logic. Types are built once with Define, merging everything they inherit
// through Extends. A Composable is one configured instance of a Type.
//
// Invoking a Composable with no active run opens a new run in the
// environment's run store, builds the middleware chain of the type and
// executes it around the run logic. Run logic reaches its children through
// Call, which records each child under its edge name:
//
//	.        root
//	.x       first call of edge x
//	.x[1]    second call of edge x in the same run
//
// Dump and Load convert a tree to and from its structural description.
package compose
