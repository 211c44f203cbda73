// Package store provides the document store gateway for the event catalog.
//
// The catalog lives in exactly two documents of one collection:
//   - territory_events: { <territoryType>: [event, ...], ... }
//   - milestone_events: { milestones: [event, ...] }
//
// Documents are stored whole, as JSON text, in a SQLite table. Reads of a
// missing document return its empty default. Writes replace the whole
// document; there is no sub-document append, so callers follow a
// read-modify-write pattern.
//
// # Concurrency
//
// Every document carries a version that increases on each write.
// WriteDocument accepts the version a caller read and refuses the write if
// another writer got there first. Callers that pass AnyVersion accept the
// lost-update hazard of unconditional overwrites.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection
package store
