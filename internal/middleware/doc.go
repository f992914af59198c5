// Package middleware builds the interceptor chain wrapped around a node's
// run logic.
//
// A chain is resolved from a named section (an ordered list of middleware
// names) and a map of per-type on/off switches, then folded right to left
// so the first listed middleware is outermost:
//
//	section [tracing, caching, skip]
//	tracing.before -> caching.before -> skip.before -> run
//	run -> skip.after -> caching.after -> tracing.after
//
// Sections and factories live in a Registry. Standard returns one populated
// with the built-in middleware.
package middleware
