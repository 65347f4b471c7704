package syncstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store reads and writes sync-state records. It shares the catalog database
// handle; the sync_state table is created by the catalog migrations.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetMany returns the records for the given shows in one batched query.
// Shows with no record are absent from the result map.
func (s *Store) GetMany(ctx context.Context, tableName string, showIDs []int64) (map[int64]*Record, error) {
	records := make(map[int64]*Record, len(showIDs))
	if len(showIDs) == 0 {
		return records, nil
	}

	args := make([]any, 0, len(showIDs)+1)
	args = append(args, tableName)
	placeholders := make([]byte, 0, len(showIDs)*2)
	for i, id := range showIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT table_name, show_id, status, last_seen_marker, last_success_at, last_error, updated_at
         FROM sync_state WHERE table_name = ? AND show_id IN (`+string(placeholders)+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records[record.ShowID] = record
	}
	return records, rows.Err()
}

// MarkInProgress records the start of a sync attempt. The previous marker
// and success timestamp are preserved.
func (s *Store) MarkInProgress(ctx context.Context, tableName string, showID int64) error {
	now := timestamp()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sync_state (table_name, show_id, status, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (table_name, show_id) DO UPDATE SET
             status = excluded.status,
             last_error = NULL,
             updated_at = excluded.updated_at`,
		tableName, showID, StatusInProgress, now,
	)
	if err != nil {
		return fmt.Errorf("mark in progress: %w", err)
	}
	return nil
}

// MarkSuccess records a successful sync with the marker observed at decision
// time.
func (s *Store) MarkSuccess(ctx context.Context, tableName string, showID int64, marker string) error {
	now := timestamp()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sync_state (table_name, show_id, status, last_seen_marker, last_success_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (table_name, show_id) DO UPDATE SET
             status = excluded.status,
             last_seen_marker = excluded.last_seen_marker,
             last_success_at = excluded.last_success_at,
             last_error = NULL,
             updated_at = excluded.updated_at`,
		tableName, showID, StatusSuccess, nullable(marker), now, now,
	)
	if err != nil {
		return fmt.Errorf("mark success: %w", err)
	}
	return nil
}

// MarkFailed records a failed sync. The previously seen marker and last
// success timestamp are deliberately preserved so a later run still detects
// the change that triggered this attempt.
func (s *Store) MarkFailed(ctx context.Context, tableName string, showID int64, cause string) error {
	now := timestamp()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sync_state (table_name, show_id, status, last_error, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (table_name, show_id) DO UPDATE SET
             status = excluded.status,
             last_error = excluded.last_error,
             updated_at = excluded.updated_at`,
		tableName, showID, StatusFailed, nullable(cause), now,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// Summary aggregates record counts by status for one table.
func (s *Store) Summary(ctx context.Context, tableName string) (map[Status]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(1) FROM sync_state WHERE table_name = ? GROUP BY status`,
		tableName,
	)
	if err != nil {
		return nil, fmt.Errorf("sync state summary: %w", err)
	}
	defer rows.Close()

	summary := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary[status] = count
	}
	return summary, rows.Err()
}

// ListByStatus returns the records for one table matching a status, oldest
// update first.
func (s *Store) ListByStatus(ctx context.Context, tableName string, status Status) ([]*Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT table_name, show_id, status, last_seen_marker, last_success_at, last_error, updated_at
         FROM sync_state WHERE table_name = ? AND status = ? ORDER BY updated_at`,
		tableName, status,
	)
	if err != nil {
		return nil, fmt.Errorf("list sync state: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		tableName    string
		showID       int64
		statusStr    string
		marker       sql.NullString
		lastSuccess  sql.NullString
		lastError    sql.NullString
		updatedAtRaw sql.NullString
	)
	if err := scanner.Scan(&tableName, &showID, &statusStr, &marker, &lastSuccess, &lastError, &updatedAtRaw); err != nil {
		return nil, err
	}

	record := &Record{
		TableName:      tableName,
		ShowID:         showID,
		Status:         Status(statusStr),
		LastSeenMarker: marker.String,
		LastError:      lastError.String,
	}
	if lastSuccess.Valid {
		if t, err := parseTimeString(lastSuccess.String); err == nil {
			record.LastSuccessAt = &t
		}
	}
	if t, err := parseTimeString(updatedAtRaw.String); err == nil {
		record.UpdatedAt = t
	}
	return record, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
