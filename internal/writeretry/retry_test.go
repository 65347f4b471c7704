package writeretry_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"showsync/internal/catalog"
	"showsync/internal/logging"
	"showsync/internal/writeretry"
)

func fastPolicy() writeretry.Policy {
	return writeretry.Policy{Backoff: time.Millisecond}
}

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) InvalidateSchemaCache(context.Context) error {
	c.calls++
	return c.err
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := writeretry.Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestDoPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("disk I/O error")
	calls := 0
	err := writeretry.Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-schema-cache error must not retry, calls=%d", calls)
	}
	if strings.Contains(err.Error(), "schema cache") {
		t.Fatalf("error must propagate unmodified: %v", err)
	}
}

func TestDoRetriesSchemaCacheErrorOnce(t *testing.T) {
	invalidator := &countingInvalidator{}
	policy := fastPolicy()
	policy.Invalidator = invalidator

	stale := &catalog.SchemaCacheError{Table: "shows", Column: "premiere_date"}
	calls := 0
	err := writeretry.Do(context.Background(), policy, func(context.Context) error {
		calls++
		if calls == 1 {
			return stale
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if calls != 2 || invalidator.calls != 1 {
		t.Fatalf("calls=%d invalidations=%d", calls, invalidator.calls)
	}
}

func TestDoExhaustionWrapsWithHint(t *testing.T) {
	invalidator := &countingInvalidator{err: errors.New("refresh endpoint down")}
	policy := fastPolicy()
	policy.Invalidator = invalidator

	stale := &catalog.SchemaCacheError{Table: "shows", Column: "tagline"}
	calls := 0
	err := writeretry.Do(context.Background(), policy, func(context.Context) error {
		calls++
		return stale
	})
	if calls != 2 {
		t.Fatalf("default policy allows exactly one retry, calls=%d", calls)
	}
	if !errors.Is(err, stale) {
		t.Fatalf("wrapped error must preserve the cause: %v", err)
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Fatalf("exhaustion error must carry a remediation hint: %v", err)
	}
	// Invalidation failure is ignored, not propagated.
	if invalidator.calls != 1 {
		t.Fatalf("invalidations=%d", invalidator.calls)
	}
}

func TestDoExhaustionLogsHint(t *testing.T) {
	var buf bytes.Buffer
	policy := fastPolicy()
	policy.Logger = slog.New(slog.NewJSONHandler(&buf, nil))

	stale := &catalog.SchemaCacheError{Table: "shows", Column: "tagline"}
	_ = writeretry.Do(context.Background(), policy, func(context.Context) error {
		return stale
	})

	logs := buf.String()
	if !strings.Contains(logs, "schema cache retries exhausted") {
		t.Fatalf("missing exhaustion warning:\n%s", logs)
	}
	if !strings.Contains(logs, logging.FieldErrorHint) || !strings.Contains(logs, "--force") {
		t.Fatalf("exhaustion warning must carry the remediation hint:\n%s", logs)
	}
}

func TestDoClassifiesHeuristically(t *testing.T) {
	cases := []struct {
		err         error
		schemaCache bool
	}{
		{errors.New("PGRST204: could not find the 'tagline' column of 'shows' in the schema cache"), true},
		{errors.New("no such column: needs_resolution"), true},
		{errors.New("UNIQUE constraint failed: shows.tmdb_id"), false},
		{errors.New("context deadline exceeded"), false},
	}
	for _, tc := range cases {
		if got := writeretry.IsSchemaCacheError(tc.err); got != tc.schemaCache {
			t.Errorf("IsSchemaCacheError(%v) = %v, want %v", tc.err, got, tc.schemaCache)
		}
	}
}

func TestMissingColumn(t *testing.T) {
	typed := &catalog.SchemaCacheError{Table: "shows", Column: "tagline"}
	if got := writeretry.MissingColumn(typed); got != "tagline" {
		t.Fatalf("typed extraction: %q", got)
	}
	heuristic := errors.New("could not find the 'premiere_date' column of 'shows' in the schema cache")
	if got := writeretry.MissingColumn(heuristic); got != "premiere_date" {
		t.Fatalf("heuristic extraction: %q", got)
	}
	if got := writeretry.MissingColumn(errors.New("database is locked")); got != "" {
		t.Fatalf("unrelated error yielded %q", got)
	}
}

func TestUpdateWithColumnRepairDropsMissingKey(t *testing.T) {
	var lastPatch map[string]any
	attempts := 0
	err := writeretry.UpdateWithColumnRepair(context.Background(), fastPolicy(),
		map[string]any{"name": "Severance", "tagline": "stale"},
		func(_ context.Context, patch map[string]any) error {
			attempts++
			lastPatch = patch
			if _, ok := patch["tagline"]; ok {
				return &catalog.SchemaCacheError{Table: "shows", Column: "tagline"}
			}
			return nil
		})
	if err != nil {
		t.Fatalf("repair should have recovered: %v", err)
	}
	if _, ok := lastPatch["tagline"]; ok {
		t.Fatal("missing column should have been dropped from the patch")
	}
	if lastPatch["name"] != "Severance" {
		t.Fatalf("surviving keys must be untouched: %v", lastPatch)
	}
	// Two Do attempts with the full patch, then one with the reduced patch.
	if attempts != 3 {
		t.Fatalf("attempts=%d", attempts)
	}
}

func TestUpdateWithColumnRepairGivesUpOnEmptyPatch(t *testing.T) {
	err := writeretry.UpdateWithColumnRepair(context.Background(), fastPolicy(),
		map[string]any{"tagline": "stale"},
		func(_ context.Context, patch map[string]any) error {
			return &catalog.SchemaCacheError{Table: "shows", Column: "tagline"}
		})
	if !writeretry.IsSchemaCacheError(err) {
		t.Fatalf("want surviving schema-cache error, got %v", err)
	}
}

func TestUpdateWithColumnRepairPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("FOREIGN KEY constraint failed")
	attempts := 0
	err := writeretry.UpdateWithColumnRepair(context.Background(), fastPolicy(),
		map[string]any{"name": "Dark"},
		func(context.Context, map[string]any) error {
			attempts++
			return boom
		})
	if !errors.Is(err, boom) || attempts != 1 {
		t.Fatalf("err=%v attempts=%d", err, attempts)
	}
}
