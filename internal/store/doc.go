// Package store provides SQLite-backed durable storage for monitor traces.
//
// The store is an append-only journal with two tables:
//   - sessions: one row per simulation session (id, scenario name)
//   - events: the trace.Event rows of a session, keyed by (session_id, seq)
//
// # Ordering
//
// All reads order by seq, the logical clock of the trace recorder. Wall time
// is never stored. Re-writing a trace that is already stored is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
