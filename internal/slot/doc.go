// Package slot implements declared attributes (Params and Nodes) and the
// per-instance resolution table behind them.
//
// A Registry is built once per composable type. It merges the slot specs of
// the type and all of its ancestors (child declarations shadow ancestor ones)
// and accumulates protected keywords across the whole hierarchy. After that
// nothing walks ancestors again.
//
// A Table holds one instance's slot states. Resolution order for Get:
//
//  1. Explicit value
//  2. AutoFunc (recomputed when never computed, when uncached, or when a
//     watched dependency changed since the last computation)
//  3. Previously cached default or callback value
//  4. Default (a Factory default is instantiated now)
//  5. DefaultFunc
//  6. MISSING_VALUE
//
// DEPENDENCY TRACKING:
//
// Every explicit Set or Unset bumps the slot's version and the table's
// revision. An auto slot's effective version is the sum of the effective
// versions of the slots it watches, so chains of auto slots invalidate
// without eagerly recomputing intermediate values. A nil DependsOn watches
// the revision, meaning any explicit set on the instance, including slots
// that were never read by the callback.
//
// A Table is owned by one call stack. It is not safe for concurrent use;
// fan-out works on clones.
package slot
