// Package tmdb provides the external metadata provider client used during
// show synchronization. It covers the two calls the sync engine needs: a
// cross-namespace lookup by IMDb id and a TV details fetch for enrichment.
// All requests pass through a shared rate limiter so concurrent workers stay
// inside the provider's request budget.
package tmdb
