package syncrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"showsync/internal/catalog"
	"showsync/internal/logging"
	"showsync/internal/resolve"
	"showsync/internal/syncfilter"
	"showsync/internal/syncstate"
	"showsync/internal/tmdb"
	"showsync/internal/writeretry"
)

// ShowStore is the row-store surface the runner reads and writes.
type ShowStore interface {
	ListShows(ctx context.Context, filter catalog.ListFilter) ([]*catalog.ShowSnapshot, error)
	GetDerivedSeasonCounts(ctx context.Context, showIDs []int64) (map[int64]int, error)
	UpdateShow(ctx context.Context, showID int64, patch map[string]any) (*catalog.ShowSnapshot, error)
	InvalidateSchemaCache(ctx context.Context) error
}

// StateStore records per-(table, show) sync outcomes.
type StateStore interface {
	GetMany(ctx context.Context, tableName string, showIDs []int64) (map[int64]*syncstate.Record, error)
	MarkInProgress(ctx context.Context, tableName string, showID int64) error
	MarkSuccess(ctx context.Context, tableName string, showID int64, marker string) error
	MarkFailed(ctx context.Context, tableName string, showID int64, cause string) error
}

// Options configures one run.
type Options struct {
	TableName        string
	Filter           catalog.ListFilter
	DryRun           bool
	Verbose          bool
	Force            bool
	Incremental      bool
	Resume           bool
	Since            *time.Time
	CheckSeasonCount bool
	Workers          int
	FailureSample    int
}

const (
	defaultTableName     = "shows"
	maxWorkers           = 8
	defaultFailureSample = 5
)

func (o Options) tableName() string {
	if o.TableName == "" {
		return defaultTableName
	}
	return o.TableName
}

func (o Options) workers() int {
	switch {
	case o.Workers < 1:
		return 1
	case o.Workers > maxWorkers:
		return maxWorkers
	default:
		return o.Workers
	}
}

func (o Options) failureSample() int {
	if o.FailureSample <= 0 {
		return defaultFailureSample
	}
	return o.FailureSample
}

// Summary aggregates one run's outcome.
type Summary struct {
	RunID      string
	DryRun     bool
	Scanned    int
	Skipped    int
	Resolved   int
	Unresolved int
	Updated    int
	Failed     int
	Reasons    map[string]int
	Failures   []string
}

// String renders the one-line machine-parsable run summary.
func (s Summary) String() string {
	return fmt.Sprintf("scanned=%d resolved=%d unresolved=%d updated=%d skipped=%d failed=%d",
		s.Scanned, s.Resolved, s.Unresolved, s.Updated, s.Skipped, s.Failed)
}

// Runner drives synchronization runs against one row store, state store, and
// metadata provider.
type Runner struct {
	shows    ShowStore
	states   StateStore
	provider tmdb.Provider
	logger   *slog.Logger
}

// New builds a Runner. A nil logger disables logging.
func New(shows ShowStore, states StateStore, provider tmdb.Provider, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		shows:    shows,
		states:   states,
		provider: provider,
		logger:   logging.WithComponent(logger, "syncrun"),
	}
}

// Run executes one synchronization pass. Per-show failures are recorded in
// the summary; the returned error is non-nil only for systemic failures that
// abort the run.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	summary := Summary{
		RunID:  uuid.NewString(),
		DryRun: opts.DryRun,
	}
	logger := r.logger.With(logging.String(logging.FieldRunID, summary.RunID))

	shows, err := r.shows.ListShows(ctx, opts.Filter)
	if err != nil {
		return summary, fmt.Errorf("list candidate shows: %w", err)
	}
	summary.Scanned = len(shows)

	filtered, err := syncfilter.FilterForSync(ctx, r.states, r.shows, opts.tableName(), shows, syncfilter.Options{
		Force:            opts.Force,
		Incremental:      opts.Incremental,
		Resume:           opts.Resume,
		Since:            opts.Since,
		CheckSeasonCount: opts.CheckSeasonCount,
	})
	if err != nil {
		return summary, err
	}
	summary.Skipped = filtered.Skipped
	summary.Reasons = filtered.Histogram
	logger.Info("selection complete", logging.String("summary", filtered.Summary()))
	if opts.Verbose {
		for _, show := range shows {
			decision := filtered.Decisions[show.ID]
			logger.Info("sync decision",
				logging.Int64(logging.FieldShowID, show.ID),
				logging.String("name", show.Name),
				logging.Bool("selected", decision.ShouldSync),
				logging.String("reason", decision.Reason))
		}
	}
	if len(filtered.Selected) == 0 {
		return summary, nil
	}

	st := &runStats{failureCap: opts.failureSample()}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan *catalog.ShowSnapshot)
	var wg sync.WaitGroup
	for i := 0; i < opts.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for show := range jobs {
				if runCtx.Err() != nil {
					continue
				}
				if err := r.processShow(runCtx, logger, show, opts, st); err != nil {
					st.recordSystemic(err)
					cancel()
				}
			}
		}()
	}
	for _, show := range filtered.Selected {
		jobs <- show
	}
	close(jobs)
	wg.Wait()

	st.fill(&summary)
	if err := st.systemicError(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	logger.Info("run complete", logging.String("summary", summary.String()))
	return summary, nil
}

// processShow handles one selected show end to end. The returned error is
// non-nil only for systemic failures; everything else is recorded in stats
// and in the sync state store.
func (r *Runner) processShow(ctx context.Context, logger *slog.Logger, show *catalog.ShowSnapshot, opts Options, st *runStats) error {
	tableName := opts.tableName()
	showLogger := logger.With(
		logging.String(logging.FieldTable, tableName),
		logging.Int64(logging.FieldShowID, show.ID))

	if !opts.DryRun {
		if err := r.states.MarkInProgress(ctx, tableName, show.ID); err != nil {
			st.recordFailure(show.ID, fmt.Errorf("mark in progress: %w", err))
			return nil
		}
	}

	tmdbID := show.TMDbID
	resolvedNow := false
	if tmdbID == 0 && show.IMDbID != "" {
		outcome, err := r.resolveShow(ctx, show)
		if err != nil {
			if tmdb.IsAuthError(err) {
				return err
			}
			r.markFailed(ctx, showLogger, tableName, show.ID, opts, err)
			st.recordFailure(show.ID, err)
			return nil
		}
		if !outcome.Resolved() {
			st.recordUnresolved()
			showLogger.Info("resolution inconclusive", logging.String("reason", string(outcome.Reason)))
			if !opts.DryRun {
				if err := r.patchShow(ctx, show.ID, map[string]any{"needs_resolution": true}); err != nil {
					r.markFailed(ctx, showLogger, tableName, show.ID, opts, err)
					st.recordFailure(show.ID, err)
				}
			}
			return nil
		}
		tmdbID = outcome.ResolvedID
		resolvedNow = true
		st.recordResolved()
		if opts.Verbose {
			showLogger.Info("resolved show",
				logging.Int64("tmdb_id", tmdbID),
				logging.String("reason", string(outcome.Reason)))
		}
	}

	if tmdbID == 0 {
		err := errors.New("show has no provider ids to sync from")
		r.markFailed(ctx, showLogger, tableName, show.ID, opts, err)
		st.recordFailure(show.ID, err)
		return nil
	}

	details, err := r.provider.GetTVDetails(ctx, tmdbID)
	if err != nil {
		if tmdb.IsAuthError(err) {
			return err
		}
		r.markFailed(ctx, showLogger, tableName, show.ID, opts, err)
		st.recordFailure(show.ID, err)
		return nil
	}

	if opts.DryRun {
		st.recordUpdated()
		showLogger.Info("dry-run: would update show", logging.String("name", details.Name))
		return nil
	}

	patch := enrichmentPatch(details)
	if resolvedNow {
		patch["tmdb_id"] = tmdbID
	}
	if err := r.patchShow(ctx, show.ID, patch); err != nil {
		r.markFailed(ctx, showLogger, tableName, show.ID, opts, err)
		st.recordFailure(show.ID, err)
		return nil
	}

	if err := r.states.MarkSuccess(ctx, tableName, show.ID, show.MostRecentEpisodeMarker); err != nil {
		st.recordFailure(show.ID, fmt.Errorf("record success: %w", err))
		return nil
	}
	st.recordUpdated()
	if opts.Verbose {
		showLogger.Info("show updated", logging.String("name", details.Name))
	}
	return nil
}

func (r *Runner) resolveShow(ctx context.Context, show *catalog.ShowSnapshot) (resolve.Outcome, error) {
	found, err := r.provider.FindByIMDbID(ctx, show.IMDbID)
	if err != nil {
		return resolve.Outcome{}, fmt.Errorf("find by imdb id %s: %w", show.IMDbID, err)
	}
	candidates := make([]resolve.Candidate, len(found))
	for i, result := range found {
		candidates[i] = resolve.Candidate{
			ID:           result.ID,
			Name:         result.Name,
			AltName:      result.OriginalName,
			FirstAirDate: result.FirstAirDate,
			Popularity:   result.Popularity,
		}
	}
	return resolve.Resolve(candidates, show.Name, show.PremiereYear()), nil
}

// patchShow writes a partial update through the schema-cache retry protocol,
// repairing the payload when a named column has not propagated yet.
func (r *Runner) patchShow(ctx context.Context, showID int64, patch map[string]any) error {
	policy := writeretry.Policy{
		Invalidator: r.shows,
		Logger:      r.logger,
	}
	return writeretry.UpdateWithColumnRepair(ctx, policy, patch, func(ctx context.Context, reduced map[string]any) error {
		_, err := r.shows.UpdateShow(ctx, showID, reduced)
		return err
	})
}

func (r *Runner) markFailed(ctx context.Context, logger *slog.Logger, tableName string, showID int64, opts Options, cause error) {
	logger.Warn("show sync failed", logging.Error(cause))
	if opts.DryRun {
		return
	}
	if err := r.states.MarkFailed(ctx, tableName, showID, cause.Error()); err != nil {
		logger.Warn("record failure", logging.Error(err))
	}
}

// enrichmentPatch maps provider details onto row-store columns. Only fields
// the provider actually returned are patched.
func enrichmentPatch(details *tmdb.ShowDetails) map[string]any {
	patch := map[string]any{
		"needs_resolution": false,
	}
	if details.Name != "" {
		patch["name"] = details.Name
	}
	if details.FirstAirDate != "" {
		patch["premiere_date"] = details.FirstAirDate
	}
	if details.NumberOfSeasons > 0 {
		patch["total_seasons"] = details.NumberOfSeasons
	}
	if len(details.Raw) > 0 {
		patch["details_json"] = string(details.Raw)
	}
	return patch
}

type runStats struct {
	mu         sync.Mutex
	resolved   int
	unresolved int
	updated    int
	failed     int
	failures   []string
	failureCap int
	systemic   error
}

func (s *runStats) recordResolved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved++
}

func (s *runStats) recordUnresolved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unresolved++
}

func (s *runStats) recordUpdated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated++
}

func (s *runStats) recordFailure(showID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	if len(s.failures) < s.failureCap {
		s.failures = append(s.failures, fmt.Sprintf("show %d: %v", showID, err))
	}
}

func (s *runStats) recordSystemic(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.systemic == nil {
		s.systemic = err
	}
}

func (s *runStats) systemicError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.systemic
}

func (s *runStats) fill(summary *Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary.Resolved = s.resolved
	summary.Unresolved = s.unresolved
	summary.Updated = s.updated
	summary.Failed = s.failed
	summary.Failures = s.failures
}
