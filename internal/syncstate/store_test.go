package syncstate_test

import (
	"context"
	"testing"

	"showsync/internal/syncstate"
	"showsync/internal/testsupport"
)

func TestLifecycleTransitions(t *testing.T) {
	catalogStore := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	states := syncstate.New(catalogStore.Handle())
	ctx := context.Background()

	// No row means never synced.
	records, err := states.GetMany(ctx, "shows", []int64{1})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %v", records)
	}

	if err := states.MarkInProgress(ctx, "shows", 1); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}
	record := mustGet(t, states, "shows", 1)
	if record.Status != syncstate.StatusInProgress {
		t.Fatalf("status = %s", record.Status)
	}

	if err := states.MarkSuccess(ctx, "shows", 1, "S1E9|...|1"); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}
	record = mustGet(t, states, "shows", 1)
	if record.Status != syncstate.StatusSuccess || record.LastSeenMarker != "S1E9|...|1" {
		t.Fatalf("after success: %+v", record)
	}
	if record.LastSuccessAt == nil {
		t.Fatal("last_success_at not set")
	}
	if record.LastError != "" {
		t.Fatalf("last_error should be clear, got %q", record.LastError)
	}
}

func TestFailurePreservesMarkerAndSuccessTimestamp(t *testing.T) {
	catalogStore := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	states := syncstate.New(catalogStore.Handle())
	ctx := context.Background()

	if err := states.MarkSuccess(ctx, "shows", 7, "S2E3|...|9"); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}
	success := mustGet(t, states, "shows", 7)

	if err := states.MarkFailed(ctx, "shows", 7, "provider timeout"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	failed := mustGet(t, states, "shows", 7)
	if failed.Status != syncstate.StatusFailed || failed.LastError != "provider timeout" {
		t.Fatalf("after failure: %+v", failed)
	}
	// The marker that triggered this attempt survives so the next run still
	// sees the change.
	if failed.LastSeenMarker != "S2E3|...|9" {
		t.Fatalf("marker lost on failure: %q", failed.LastSeenMarker)
	}
	if failed.LastSuccessAt == nil || !failed.LastSuccessAt.Equal(*success.LastSuccessAt) {
		t.Fatalf("last_success_at changed on failure: %v vs %v", failed.LastSuccessAt, success.LastSuccessAt)
	}
}

func TestInProgressPreservesMarker(t *testing.T) {
	catalogStore := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	states := syncstate.New(catalogStore.Handle())
	ctx := context.Background()

	if err := states.MarkSuccess(ctx, "shows", 3, "S1E1|pilot||0"); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}
	if err := states.MarkFailed(ctx, "shows", 3, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := states.MarkInProgress(ctx, "shows", 3); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}

	record := mustGet(t, states, "shows", 3)
	if record.Status != syncstate.StatusInProgress || record.LastSeenMarker != "S1E1|pilot||0" {
		t.Fatalf("after in_progress: %+v", record)
	}
	if record.LastError != "" {
		t.Fatalf("in_progress should clear last_error, got %q", record.LastError)
	}
}

func TestGetManyBatchesAndScopesByTable(t *testing.T) {
	catalogStore := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	states := syncstate.New(catalogStore.Handle())
	ctx := context.Background()

	if err := states.MarkSuccess(ctx, "shows", 1, "a"); err != nil {
		t.Fatal(err)
	}
	if err := states.MarkFailed(ctx, "shows", 2, "x"); err != nil {
		t.Fatal(err)
	}
	if err := states.MarkSuccess(ctx, "episodes", 1, "b"); err != nil {
		t.Fatal(err)
	}

	records, err := states.GetMany(ctx, "shows", []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[1].LastSeenMarker != "a" {
		t.Fatalf("table scoping broken: %+v", records[1])
	}
	if _, ok := records[3]; ok {
		t.Fatal("unsynced show must be absent")
	}
}

func TestSummaryAndListByStatus(t *testing.T) {
	catalogStore := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	states := syncstate.New(catalogStore.Handle())
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		if err := states.MarkSuccess(ctx, "shows", id, "m"); err != nil {
			t.Fatal(err)
		}
	}
	if err := states.MarkFailed(ctx, "shows", 4, "timeout"); err != nil {
		t.Fatal(err)
	}

	summary, err := states.Summary(ctx, "shows")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary[syncstate.StatusSuccess] != 3 || summary[syncstate.StatusFailed] != 1 {
		t.Fatalf("summary = %v", summary)
	}

	failed, err := states.ListByStatus(ctx, "shows", syncstate.StatusFailed)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(failed) != 1 || failed[0].ShowID != 4 || failed[0].LastError != "timeout" {
		t.Fatalf("failed = %+v", failed)
	}
}

func mustGet(t *testing.T, states *syncstate.Store, table string, id int64) *syncstate.Record {
	t.Helper()
	records, err := states.GetMany(context.Background(), table, []int64{id})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	record, ok := records[id]
	if !ok {
		t.Fatalf("no record for %s/%d", table, id)
	}
	return record
}
