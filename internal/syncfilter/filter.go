package syncfilter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"showsync/internal/catalog"
	"showsync/internal/syncstate"
)

// Options controls one run's selection behavior.
type Options struct {
	Force            bool
	Incremental      bool
	Resume           bool
	Since            *time.Time
	CheckSeasonCount bool
}

// Decision is the filter verdict for one show. Reason is a short
// machine-readable code used for aggregate reporting; it never influences
// correctness.
type Decision struct {
	ShouldSync bool
	Reason     string
}

// Reason codes emitted by Decide.
const (
	ReasonForce               = "force"
	ReasonIncrementalDisabled = "incremental-disabled"
	ReasonNoSyncState         = "no-sync-state"
	ReasonMarkerChanged       = "episode-marker-changed"
	ReasonSince               = "since"
	ReasonMissingSeasons      = "missing-seasons"
	ReasonSeasonMismatch      = "season-mismatch"
	ReasonUpToDate            = "up-to-date"
)

// Decide evaluates the sync rules for one show. state is nil when the
// (table, show) pair has never been synced; derivedSeasonCount is nil when
// the episodes table yields no count for the show. First matching rule wins.
func Decide(show *catalog.ShowSnapshot, state *syncstate.Record, derivedSeasonCount *int, opts Options) Decision {
	if opts.Force {
		return Decision{ShouldSync: true, Reason: ReasonForce}
	}
	if !opts.Incremental {
		return Decision{ShouldSync: true, Reason: ReasonIncrementalDisabled}
	}
	if state == nil {
		return Decision{ShouldSync: true, Reason: ReasonNoSyncState}
	}
	if opts.Resume && state.Status != syncstate.StatusSuccess {
		switch state.Status {
		case syncstate.StatusFailed, syncstate.StatusInProgress:
			return Decision{ShouldSync: true, Reason: "resume-" + string(state.Status)}
		default:
			return Decision{ShouldSync: true, Reason: "status-" + string(state.Status)}
		}
	}
	if show.MostRecentEpisodeMarker != state.LastSeenMarker {
		return Decision{ShouldSync: true, Reason: ReasonMarkerChanged}
	}
	if opts.Since != nil && (state.LastSuccessAt == nil || state.LastSuccessAt.Before(*opts.Since)) {
		return Decision{ShouldSync: true, Reason: ReasonSince}
	}
	if opts.CheckSeasonCount {
		// A missing derived count means we cannot verify consistency, so
		// assume stale.
		if derivedSeasonCount == nil {
			return Decision{ShouldSync: true, Reason: ReasonMissingSeasons}
		}
		if show.DeclaredTotalSeasons == nil || *show.DeclaredTotalSeasons != *derivedSeasonCount {
			return Decision{ShouldSync: true, Reason: ReasonSeasonMismatch}
		}
	}
	return Decision{ShouldSync: false, Reason: ReasonUpToDate}
}

// StateReader is the batched sync-state lookup the filter depends on.
type StateReader interface {
	GetMany(ctx context.Context, tableName string, showIDs []int64) (map[int64]*syncstate.Record, error)
}

// SeasonCounter derives per-show season counts from a child table.
type SeasonCounter interface {
	GetDerivedSeasonCounts(ctx context.Context, showIDs []int64) (map[int64]int, error)
}

// Result is the outcome of filtering one run's candidate set.
type Result struct {
	Selected  []*catalog.ShowSnapshot
	Decisions map[int64]Decision
	Histogram map[string]int
	Skipped   int
}

// Summary renders the one-line run summary, reasons sorted for stable
// output.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "selected=%d skipped=%d", len(r.Selected), r.Skipped)

	reasons := make([]string, 0, len(r.Histogram))
	for reason := range r.Histogram {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(&b, " %s=%d", reason, r.Histogram[reason])
	}
	return b.String()
}

// FilterForSync shrinks the candidate set to the shows that need work.
// Sync-state records are fetched in one batched lookup, and derived season
// counts are computed once up front (and only when the option needs them),
// never per rule evaluation.
func FilterForSync(ctx context.Context, states StateReader, seasons SeasonCounter, tableName string, shows []*catalog.ShowSnapshot, opts Options) (Result, error) {
	result := Result{
		Decisions: make(map[int64]Decision, len(shows)),
		Histogram: make(map[string]int),
	}
	if len(shows) == 0 {
		return result, nil
	}

	ids := make([]int64, len(shows))
	for i, show := range shows {
		ids[i] = show.ID
	}

	records, err := states.GetMany(ctx, tableName, ids)
	if err != nil {
		return result, fmt.Errorf("fetch sync state: %w", err)
	}

	var derived map[int64]int
	if opts.CheckSeasonCount {
		derived, err = seasons.GetDerivedSeasonCounts(ctx, ids)
		if err != nil {
			return result, fmt.Errorf("derive season counts: %w", err)
		}
	}

	for _, show := range shows {
		var derivedCount *int
		if opts.CheckSeasonCount {
			if count, ok := derived[show.ID]; ok {
				derivedCount = &count
			}
		}
		decision := Decide(show, records[show.ID], derivedCount, opts)
		result.Decisions[show.ID] = decision
		result.Histogram[decision.Reason]++
		if decision.ShouldSync {
			result.Selected = append(result.Selected, show)
		} else {
			result.Skipped++
		}
	}
	return result, nil
}
