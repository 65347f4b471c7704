// Package syncstate persists the engine's only durable memory: one record
// per (table, show) pair holding the outcome of the last sync attempt.
//
// Records are created implicitly on the first attempt, transition through
// in_progress to success or failed, and are only ever overwritten, never
// deleted. Every write is a single-statement upsert so concurrent workers
// never race a read-modify-write cycle.
package syncstate
