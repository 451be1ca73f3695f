// Package store provides SQLite-backed storage for edgebench runs.
//
// A run row records the scenario, design, precision and outcome of one
// execution; every engine event of the run is appended to the events table.
// Assertions query the stored samples and edges instead of scanning traces.
//
// # Ordering
//
//   - Events are keyed by (run_id, seq); seq comes from the scheduler's
//     logical clock, never from wall time
//   - Queries returning several events order by seq ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Signal values are unsigned 64-bit but SQLite integers are signed; values
// are stored bit-for-bit as int64 and converted back on read.
package store
