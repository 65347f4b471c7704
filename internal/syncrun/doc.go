// Package syncrun orchestrates one synchronization run: fetch candidates,
// filter to the shows that need work, then resolve, enrich, write, and record
// an outcome per show. A single show's failure is recorded and counted, never
// fatal; systemic failures such as rejected provider credentials abort the
// whole run. Shows are processed by a bounded worker pool with per-run
// statistics behind a mutex.
package syncrun
