// Package store provides SQLite-backed storage for instrument configuration
// and computed readings.
//
// Tables:
//   - instruments: full configuration of each instrument as JSON, with its
//     content hash
//   - readings: one row per measurement event
//   - reading_input_values: raw values submitted with a reading
//   - reading_output_values: computed value, status or failure marker per
//     output of a reading
//   - reading_audit: append-only log of invalidations, restores, comment
//     edits and reprocessing
//
// # Patterns
//
// Atomic writes: a reading and all of its values are written in a single
// transaction. A rejected submission never leaves a partial row behind.
//
// Deterministic reads: every multi-row query orders by a total key
// (measured_at ASC, id ASC COLLATE BINARY for readings; id ASC for audit
// rows), so identical data always reads back identically.
//
// Readings are immutable except for the active flag, the comment and an
// explicit reprocess; each of those writes an audit row in the same
// transaction as the change.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
