package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const showColumns = "id, name, imdb_id, tmdb_id, premiere_date, total_seasons, needs_resolution, updated_at"

// legacyColumns maps migration-era column names to their canonical
// equivalents. The engine only sees canonical names; the fallback lives here
// at the adapter boundary.
var legacyColumns = map[string]string{
	"imdb_series_id":       "imdb_id",
	"tmdb_show_id":         "tmdb_id",
	"series_premiere_date": "premiere_date",
}

// reservedColumns may never appear in a patch.
var reservedColumns = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"updated_at": {},
}

// InsertShow adds a show row and returns its snapshot.
func (s *Store) InsertShow(ctx context.Context, name, imdbID string, tmdbID int64, premiereDate string) (*ShowSnapshot, error) {
	if strings.TrimSpace(name) == "" && imdbID == "" && tmdbID == 0 {
		return nil, errors.New("show requires a name or a provider id")
	}
	now := timestamp()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO shows (name, imdb_id, tmdb_id, premiere_date, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		nullableString(strings.TrimSpace(name)),
		nullableString(strings.TrimSpace(imdbID)),
		nullableInt64(tmdbID),
		nullableString(strings.TrimSpace(premiereDate)),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert show: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetShow(ctx, id)
}

// InsertEpisode adds an episode row for a show.
func (s *Store) InsertEpisode(ctx context.Context, ep Episode) error {
	if ep.ShowID == 0 {
		return errors.New("episode requires a show id")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO episodes (show_id, season_number, episode_number, title, air_date, tmdb_episode_id)
         VALUES (?, ?, ?, ?, ?, ?)`,
		ep.ShowID,
		ep.SeasonNumber,
		ep.EpisodeNumber,
		nullableString(ep.Title),
		nullableString(ep.AirDate),
		nullableInt64(ep.TMDbEpisodeID),
	)
	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	return nil
}

// GetShow fetches one show snapshot by internal id, marker included.
func (s *Store) GetShow(ctx context.Context, id int64) (*ShowSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	snapshot, err := scanShow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get show: %w", err)
	}
	markers, err := s.episodeMarkers(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	snapshot.MostRecentEpisodeMarker = markers[id]
	return snapshot, nil
}

// ListShows returns candidate show snapshots matching the filter, each with
// its most recent episode marker populated.
func (s *Store) ListShows(ctx context.Context, filter ListFilter) ([]*ShowSnapshot, error) {
	if filter.Empty() {
		return nil, nil
	}

	query := `SELECT ` + showColumns + ` FROM shows`
	var args []any
	switch {
	case filter.All:
	case len(filter.ShowIDs) > 0:
		query += ` WHERE id IN (` + makePlaceholders(len(filter.ShowIDs)) + `)`
		for _, id := range filter.ShowIDs {
			args = append(args, id)
		}
	case len(filter.IMDbIDs) > 0:
		query += ` WHERE imdb_id IN (` + makePlaceholders(len(filter.IMDbIDs)) + `)`
		for _, id := range filter.IMDbIDs {
			args = append(args, id)
		}
	case len(filter.TMDbIDs) > 0:
		query += ` WHERE tmdb_id IN (` + makePlaceholders(len(filter.TMDbIDs)) + `)`
		for _, id := range filter.TMDbIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}
	defer rows.Close()

	var shows []*ShowSnapshot
	var ids []int64
	for rows.Next() {
		snapshot, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, snapshot)
		ids = append(ids, snapshot.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shows: %w", err)
	}

	markers, err := s.episodeMarkers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, snapshot := range shows {
		snapshot.MostRecentEpisodeMarker = markers[snapshot.ID]
	}
	return shows, nil
}

// GetDerivedSeasonCounts counts distinct season numbers per show from the
// episodes child table, batched across show ids.
func (s *Store) GetDerivedSeasonCounts(ctx context.Context, showIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(showIDs))
	if len(showIDs) == 0 {
		return counts, nil
	}

	args := make([]any, len(showIDs))
	for i, id := range showIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT show_id, COUNT(DISTINCT season_number) FROM episodes
         WHERE show_id IN (`+makePlaceholders(len(showIDs))+`) GROUP BY show_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("derive season counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var showID int64
		var count int
		if err := rows.Scan(&showID, &count); err != nil {
			return nil, err
		}
		counts[showID] = count
	}
	return counts, rows.Err()
}

// UpdateShow applies a partial patch to one show row. Unmentioned columns
// are untouched. Legacy key names are normalized to canonical ones; keys not
// present in the cached schema description fail with a SchemaCacheError so
// the resilient write path can repair or retry.
func (s *Store) UpdateShow(ctx context.Context, showID int64, patch map[string]any) (*ShowSnapshot, error) {
	if len(patch) == 0 {
		return s.GetShow(ctx, showID)
	}

	normalized := make(map[string]any, len(patch))
	for key, value := range patch {
		column := strings.ToLower(strings.TrimSpace(key))
		if canonical, ok := legacyColumns[column]; ok {
			column = canonical
		}
		if _, ok := reservedColumns[column]; ok {
			return nil, fmt.Errorf("column %q may not be patched", column)
		}
		normalized[column] = value
	}

	columns := make([]string, 0, len(normalized))
	for column := range normalized {
		if !s.cachedColumn(column) {
			return nil, &SchemaCacheError{Table: "shows", Column: column}
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	var set strings.Builder
	args := make([]any, 0, len(columns)+2)
	for _, column := range columns {
		if set.Len() > 0 {
			set.WriteString(", ")
		}
		set.WriteString(column)
		set.WriteString(" = ?")
		args = append(args, normalized[column])
	}
	set.WriteString(", updated_at = ?")
	args = append(args, timestamp(), showID)

	res, err := s.db.ExecContext(ctx, `UPDATE shows SET `+set.String()+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update show %d: %w", showID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("update show %d: no such show", showID)
	}
	return s.GetShow(ctx, showID)
}

// episodeMarkers loads the most recent episode per show and folds each into
// an opaque marker. One batched query per call, never one per show.
func (s *Store) episodeMarkers(ctx context.Context, showIDs []int64) (map[int64]string, error) {
	markers := make(map[int64]string, len(showIDs))
	if len(showIDs) == 0 {
		return markers, nil
	}

	args := make([]any, len(showIDs))
	for i, id := range showIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT show_id, season_number, episode_number, title, air_date, tmdb_episode_id
         FROM episodes WHERE show_id IN (`+makePlaceholders(len(showIDs))+`)
         ORDER BY show_id, season_number, episode_number`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("load episode markers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			showID        int64
			season        int
			episode       int
			title         sql.NullString
			airDate       sql.NullString
			tmdbEpisodeID sql.NullInt64
		)
		if err := rows.Scan(&showID, &season, &episode, &title, &airDate, &tmdbEpisodeID); err != nil {
			return nil, err
		}
		// Rows arrive ordered, so the last row per show wins.
		markers[showID] = EpisodeMarker(season, episode, title.String, airDate.String, tmdbEpisodeID.Int64)
	}
	return markers, rows.Err()
}

func scanShow(scanner interface{ Scan(dest ...any) error }) (*ShowSnapshot, error) {
	var (
		id              int64
		name            sql.NullString
		imdbID          sql.NullString
		tmdbID          sql.NullInt64
		premiereDate    sql.NullString
		totalSeasons    sql.NullInt64
		needsResolution sql.NullInt64
		updatedRaw      sql.NullString
	)
	if err := scanner.Scan(&id, &name, &imdbID, &tmdbID, &premiereDate, &totalSeasons, &needsResolution, &updatedRaw); err != nil {
		return nil, err
	}

	snapshot := &ShowSnapshot{
		ID:              id,
		Name:            name.String,
		IMDbID:          imdbID.String,
		TMDbID:          tmdbID.Int64,
		PremiereDate:    premiereDate.String,
		NeedsResolution: needsResolution.Int64 != 0,
	}
	if totalSeasons.Valid {
		count := int(totalSeasons.Int64)
		snapshot.DeclaredTotalSeasons = &count
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		snapshot.UpdatedAt = updated
	}
	return snapshot, nil
}
