// Package writeretry wraps row-store writes with a bounded recovery protocol
// for stale schema caches.
//
// The backing store caches its schema description, and that cache can lag a
// concurrent schema change by tens of seconds. A write landing in that window
// fails with a "column not found" style error even though the row and the
// column are both fine. Do detects that class of failure, asks the backend to
// refresh its cache, and retries exactly once after a short backoff. Every
// other error propagates unmodified on the first attempt.
//
// UpdateWithColumnRepair is the narrower companion for flat key/value
// payloads: when the error names the missing column, the offending key is
// dropped and the reduced patch is retried, so one unpropagated optional
// column does not fail the whole write.
package writeretry
