package syncfilter_test

import (
	"context"
	"testing"
	"time"

	"showsync/internal/catalog"
	"showsync/internal/syncfilter"
	"showsync/internal/syncstate"
)

func successState(marker string, successAt time.Time) *syncstate.Record {
	return &syncstate.Record{
		TableName:      "shows",
		ShowID:         1,
		Status:         syncstate.StatusSuccess,
		LastSeenMarker: marker,
		LastSuccessAt:  &successAt,
	}
}

func intPtr(v int) *int { return &v }

func TestDecideRuleOrder(t *testing.T) {
	now := time.Now().UTC()
	upToDate := successState("S1E1", now)
	show := &catalog.ShowSnapshot{ID: 1, MostRecentEpisodeMarker: "S1E1"}

	cases := []struct {
		name       string
		show       *catalog.ShowSnapshot
		state      *syncstate.Record
		derived    *int
		opts       syncfilter.Options
		shouldSync bool
		reason     string
	}{
		{
			name:       "force wins over everything",
			show:       show,
			state:      upToDate,
			opts:       syncfilter.Options{Force: true, Incremental: true, Resume: true},
			shouldSync: true,
			reason:     "force",
		},
		{
			name:       "incremental disabled",
			show:       show,
			state:      upToDate,
			opts:       syncfilter.Options{Incremental: false},
			shouldSync: true,
			reason:     "incremental-disabled",
		},
		{
			name:       "no sync state",
			show:       show,
			state:      nil,
			opts:       syncfilter.Options{Incremental: true, Resume: true},
			shouldSync: true,
			reason:     "no-sync-state",
		},
		{
			name:       "resume failed",
			show:       show,
			state:      &syncstate.Record{Status: syncstate.StatusFailed, LastSeenMarker: "S1E1"},
			opts:       syncfilter.Options{Incremental: true, Resume: true},
			shouldSync: true,
			reason:     "resume-failed",
		},
		{
			name:       "resume in progress",
			show:       show,
			state:      &syncstate.Record{Status: syncstate.StatusInProgress, LastSeenMarker: "S1E1"},
			opts:       syncfilter.Options{Incremental: true, Resume: true},
			shouldSync: true,
			reason:     "resume-in_progress",
		},
		{
			name:       "unknown status with resume",
			show:       show,
			state:      &syncstate.Record{Status: "queued", LastSeenMarker: "S1E1"},
			opts:       syncfilter.Options{Incremental: true, Resume: true},
			shouldSync: true,
			reason:     "status-queued",
		},
		{
			name:       "marker changed",
			show:       &catalog.ShowSnapshot{ID: 1, MostRecentEpisodeMarker: "S1E2"},
			state:      successState("S1E1", now),
			opts:       syncfilter.Options{Incremental: true, Resume: true},
			shouldSync: true,
			reason:     "episode-marker-changed",
		},
		{
			name:       "up to date",
			show:       show,
			state:      upToDate,
			opts:       syncfilter.Options{Incremental: true, Resume: true},
			shouldSync: false,
			reason:     "up-to-date",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := syncfilter.Decide(tc.show, tc.state, tc.derived, tc.opts)
			if decision.ShouldSync != tc.shouldSync || decision.Reason != tc.reason {
				t.Fatalf("Decide = %+v, want sync=%v reason=%s", decision, tc.shouldSync, tc.reason)
			}
		})
	}
}

func TestDecideSinceRule(t *testing.T) {
	since := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	show := &catalog.ShowSnapshot{ID: 1, MostRecentEpisodeMarker: "S1E1"}
	opts := syncfilter.Options{Incremental: true, Resume: true, Since: &since}

	stale := successState("S1E1", since.Add(-24*time.Hour))
	if d := syncfilter.Decide(show, stale, nil, opts); !d.ShouldSync || d.Reason != "since" {
		t.Fatalf("stale success: %+v", d)
	}

	fresh := successState("S1E1", since.Add(24*time.Hour))
	if d := syncfilter.Decide(show, fresh, nil, opts); d.ShouldSync {
		t.Fatalf("fresh success should not resync: %+v", d)
	}

	noSuccess := &syncstate.Record{Status: syncstate.StatusSuccess, LastSeenMarker: "S1E1"}
	if d := syncfilter.Decide(show, noSuccess, nil, opts); !d.ShouldSync || d.Reason != "since" {
		t.Fatalf("null last_success_at should resync: %+v", d)
	}
}

func TestDecideSeasonRules(t *testing.T) {
	now := time.Now().UTC()
	opts := syncfilter.Options{Incremental: true, Resume: true, CheckSeasonCount: true}

	show := &catalog.ShowSnapshot{ID: 1, MostRecentEpisodeMarker: "S1E1", DeclaredTotalSeasons: intPtr(3)}
	state := successState("S1E1", now)

	if d := syncfilter.Decide(show, state, nil, opts); d.Reason != "missing-seasons" {
		t.Fatalf("missing derived count: %+v", d)
	}
	if d := syncfilter.Decide(show, state, intPtr(2), opts); d.Reason != "season-mismatch" {
		t.Fatalf("mismatched count: %+v", d)
	}
	if d := syncfilter.Decide(show, state, intPtr(3), opts); d.ShouldSync {
		t.Fatalf("matching count should not resync: %+v", d)
	}

	undeclared := &catalog.ShowSnapshot{ID: 1, MostRecentEpisodeMarker: "S1E1"}
	if d := syncfilter.Decide(undeclared, state, intPtr(3), opts); d.Reason != "season-mismatch" {
		t.Fatalf("undeclared seasons with derived count: %+v", d)
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	show := &catalog.ShowSnapshot{ID: 9, MostRecentEpisodeMarker: "S2E4"}
	state := successState("S2E3", time.Now().UTC())
	opts := syncfilter.Options{Incremental: true, Resume: true}

	first := syncfilter.Decide(show, state, nil, opts)
	for i := 0; i < 5; i++ {
		if got := syncfilter.Decide(show, state, nil, opts); got != first {
			t.Fatalf("decision changed: %+v vs %+v", got, first)
		}
	}
}

type stubStates map[int64]*syncstate.Record

func (s stubStates) GetMany(_ context.Context, _ string, ids []int64) (map[int64]*syncstate.Record, error) {
	out := make(map[int64]*syncstate.Record)
	for _, id := range ids {
		if record, ok := s[id]; ok {
			out[id] = record
		}
	}
	return out, nil
}

type stubSeasons map[int64]int

func (s stubSeasons) GetDerivedSeasonCounts(_ context.Context, ids []int64) (map[int64]int, error) {
	out := make(map[int64]int)
	for _, id := range ids {
		if count, ok := s[id]; ok {
			out[id] = count
		}
	}
	return out, nil
}

func TestFilterForSyncHistogram(t *testing.T) {
	now := time.Now().UTC()
	shows := []*catalog.ShowSnapshot{
		{ID: 1, MostRecentEpisodeMarker: "S1E2"},
		{ID: 2, MostRecentEpisodeMarker: "S3E9"},
		{ID: 3, MostRecentEpisodeMarker: "S1E1"},
	}
	states := stubStates{
		1: {ShowID: 1, Status: syncstate.StatusSuccess, LastSeenMarker: "S1E1", LastSuccessAt: &now},
		2: {ShowID: 2, Status: syncstate.StatusSuccess, LastSeenMarker: "S3E9", LastSuccessAt: &now},
	}

	result, err := syncfilter.FilterForSync(context.Background(), states, stubSeasons{}, "shows",
		shows, syncfilter.Options{Incremental: true, Resume: true})
	if err != nil {
		t.Fatalf("FilterForSync: %v", err)
	}

	if len(result.Selected) != 2 || result.Skipped != 1 {
		t.Fatalf("selected=%d skipped=%d, want 2/1", len(result.Selected), result.Skipped)
	}
	if result.Histogram["episode-marker-changed"] != 1 || result.Histogram["no-sync-state"] != 1 || result.Histogram["up-to-date"] != 1 {
		t.Fatalf("unexpected histogram: %v", result.Histogram)
	}
	if got := result.Summary(); got != "selected=2 skipped=1 episode-marker-changed=1 no-sync-state=1 up-to-date=1" {
		t.Fatalf("unexpected summary: %q", got)
	}
}
