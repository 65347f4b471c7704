// Command showsync synchronizes a local show catalog against the TMDB
// metadata provider: it resolves missing provider ids, enriches show rows,
// and tracks per-show sync state so repeat runs only touch what changed.
package main
