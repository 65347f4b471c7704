// Package catalog implements the show row store backed by SQLite.
//
// It owns the shows and episodes tables, applies embedded migrations on
// open, and exposes the read/write surface the sync engine depends on:
// filtered show listings with derived episode markers, per-show season
// counts, and partial-patch updates.
//
// The store keeps a cached description of the shows table's columns (the
// schema cache). Patch writes are validated against that cache, so a column
// added by a concurrent migration is rejected until the cache is refreshed —
// the same failure mode the resilient write path in internal/writeretry is
// built to repair. Legacy column names (imdb_series_id, tmdb_show_id) are
// normalized to their canonical equivalents at this boundary; engine code
// only ever sees canonical names.
package catalog
