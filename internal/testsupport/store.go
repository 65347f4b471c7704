package testsupport

import (
	"context"
	"testing"

	"showsync/internal/catalog"
	"showsync/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewShow inserts a show row for tests using the provided store.
func NewShow(t testing.TB, store *catalog.Store, name, imdbID string, tmdbID int64) *catalog.ShowSnapshot {
	t.Helper()

	show, err := store.InsertShow(context.Background(), name, imdbID, tmdbID, "")
	if err != nil {
		t.Fatalf("store.InsertShow: %v", err)
	}
	return show
}

// NewEpisode inserts an episode row for tests using the provided store.
func NewEpisode(t testing.TB, store *catalog.Store, ep catalog.Episode) {
	t.Helper()

	if err := store.InsertEpisode(context.Background(), ep); err != nil {
		t.Fatalf("store.InsertEpisode: %v", err)
	}
}
