// Package store provides SQLite-backed persistence for run traces and
// cached node outputs.
//
// Tables:
//   - runs: one row per top-level invocation, with its structural dump
//     and the dump's definition hash
//   - entries: one row per trace entry, keyed by (run_id, path)
//   - cache: fingerprint to encoded output, used by the caching middleware
//
// Writes are idempotent: re-persisting a run or entry is a no-op
// (ON CONFLICT DO NOTHING). Reads are ordered by logical seq, then path,
// never by wall-clock time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
