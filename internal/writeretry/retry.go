package writeretry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"showsync/internal/logging"
)

// Defaults for a zero-valued Policy. The retry bound is deliberately tiny:
// the stale-cache window is short, and anything a single refresh-and-retry
// cannot fix needs a human.
const (
	DefaultMaxRetries = 1
	DefaultBackoff    = 500 * time.Millisecond
)

// CacheInvalidator asks the backend to rebuild its schema description. The
// signal is idempotent and safe to issue concurrently from multiple workers.
type CacheInvalidator interface {
	InvalidateSchemaCache(ctx context.Context) error
}

// Policy configures the retry protocol. The zero value uses the defaults
// above, no invalidator, and a no-op logger.
type Policy struct {
	MaxRetries  int
	Backoff     time.Duration
	Invalidator CacheInvalidator
	Logger      *slog.Logger
}

func (p Policy) maxRetries() int {
	if p.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return p.MaxRetries
}

func (p Policy) backoff() time.Duration {
	if p.Backoff <= 0 {
		return DefaultBackoff
	}
	return p.Backoff
}

func (p Policy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logging.NewNop()
}

// Do executes op, retrying only stale-schema-cache failures. Before each
// retry it issues a best-effort cache invalidation and sleeps the configured
// backoff. Non-schema-cache errors return unmodified from the first attempt.
// When retries are exhausted the error is wrapped with a remediation hint.
func Do(ctx context.Context, policy Policy, op func(context.Context) error) error {
	retries := policy.maxRetries()
	var err error
	for attempt := 0; ; attempt++ {
		err = op(ctx)
		if err == nil || !IsSchemaCacheError(err) {
			return err
		}
		if attempt >= retries {
			break
		}
		policy.logger().Warn("write hit stale schema cache, refreshing and retrying",
			logging.Int("attempt", attempt+1),
			logging.Error(err))
		invalidate(ctx, policy)
		if sleepErr := sleepContext(ctx, policy.backoff()); sleepErr != nil {
			return sleepErr
		}
	}
	policy.logger().Warn("schema cache retries exhausted",
		logging.Int("retries", retries),
		logging.String(logging.FieldErrorHint, "wait for the schema change to settle and re-run the sync with --force"),
		logging.Error(err))
	return fmt.Errorf("%w; schema cache is still stale after %d retry attempt(s), wait for the schema change to settle and re-run the sync with --force", err, retries)
}

// UpdateWithColumnRepair runs write under the Do protocol, then, when the
// surviving error names a column still present in patch, drops exactly that
// key and retries with the reduced payload. The write lands on whichever
// columns exist instead of failing outright because one newly added column
// has not propagated yet.
func UpdateWithColumnRepair(ctx context.Context, policy Policy, patch map[string]any, write func(context.Context, map[string]any) error) error {
	reduced := make(map[string]any, len(patch))
	for key, value := range patch {
		reduced[key] = value
	}

	for {
		err := Do(ctx, policy, func(ctx context.Context) error {
			return write(ctx, reduced)
		})
		if err == nil || !IsSchemaCacheError(err) {
			return err
		}
		column := MissingColumn(err)
		if _, present := reduced[column]; column == "" || !present {
			return err
		}
		delete(reduced, column)
		if len(reduced) == 0 {
			return err
		}
		policy.logger().Warn("dropping column missing from schema cache and retrying write",
			logging.String("column", column),
			logging.Int("remaining_keys", len(reduced)))
	}
}

func invalidate(ctx context.Context, policy Policy) {
	if policy.Invalidator == nil {
		return
	}
	if err := policy.Invalidator.InvalidateSchemaCache(ctx); err != nil {
		// Best effort only; the retry itself decides whether the write can
		// proceed.
		policy.logger().Debug("schema cache invalidation failed", logging.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
