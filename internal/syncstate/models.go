package syncstate

import "time"

// Status is the recorded outcome of a sync attempt. Absence of a record
// means the pair has never been synced.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusInProgress Status = "in_progress"
)

// Record is one (table, show) sync-state row.
type Record struct {
	TableName      string
	ShowID         int64
	Status         Status
	LastSeenMarker string
	LastSuccessAt  *time.Time
	LastError      string
	UpdatedAt      time.Time
}
