// Package syncfilter decides which shows need synchronization in a run.
//
// Decide is a pure function over a show's observed state, its last recorded
// sync state, and the run options. The rule order is load-bearing: force and
// incremental overrides come first, recovery rules next, then cheap
// marker-based change detection, then the slower consistency checks. The
// batch wrapper fetches sync state and derived season counts once per run
// and accumulates a reason histogram for the run summary.
package syncfilter
