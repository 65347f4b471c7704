package catalog

import (
	"fmt"
	"time"
)

// ShowSnapshot is a read-only view of a show's state at sync time. It is
// immutable for the duration of one sync decision; refreshed only between
// runs.
type ShowSnapshot struct {
	ID                      int64
	Name                    string
	IMDbID                  string
	TMDbID                  int64
	PremiereDate            string
	MostRecentEpisodeMarker string
	DeclaredTotalSeasons    *int
	NeedsResolution         bool
	UpdatedAt               time.Time
}

// PremiereYear extracts the four-digit year from the premiere date, or 0.
func (s ShowSnapshot) PremiereYear() int {
	if len(s.PremiereDate) < 4 {
		return 0
	}
	var year int
	if _, err := fmt.Sscanf(s.PremiereDate[:4], "%d", &year); err != nil {
		return 0
	}
	return year
}

// ListFilter selects the candidate shows for a run. Exactly one of All,
// ShowIDs, IMDbIDs, or TMDbIDs should be populated; Limit caps the result
// when positive.
type ListFilter struct {
	All     bool
	ShowIDs []int64
	IMDbIDs []string
	TMDbIDs []int64
	Limit   int
}

// Empty reports whether the filter selects nothing.
func (f ListFilter) Empty() bool {
	return !f.All && len(f.ShowIDs) == 0 && len(f.IMDbIDs) == 0 && len(f.TMDbIDs) == 0
}

// Episode is one row of the episodes child table.
type Episode struct {
	ID            int64
	ShowID        int64
	SeasonNumber  int
	EpisodeNumber int
	Title         string
	AirDate       string
	TMDbEpisodeID int64
}

// EpisodeMarker folds the most recent known episode into one opaque,
// comparable token. The sync engine compares markers for inequality only and
// never parses them.
func EpisodeMarker(season, episode int, title, airDate string, providerEpisodeID int64) string {
	return fmt.Sprintf("S%dE%d|%s|%s|%d", season, episode, title, airDate, providerEpisodeID)
}
