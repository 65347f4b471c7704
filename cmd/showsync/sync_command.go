package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"showsync/internal/catalog"
	"showsync/internal/syncrun"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var (
		all          bool
		showIDs      []int64
		imdbIDs      []string
		tmdbIDs      []int64
		limit        int
		dryRun       bool
		verbose      bool
		incremental  bool
		resume       bool
		force        bool
		since        string
		checkSeasons bool
		workers      int
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize show metadata from TMDB",
		Long: `Synchronize selected shows against TMDB. Shows missing a TMDB id are
resolved from their IMDb id first; ambiguous matches are flagged for manual
resolution instead of guessed. Per-show failures are reported in the run
summary and never abort the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			filter := catalog.ListFilter{
				All:     all,
				ShowIDs: showIDs,
				IMDbIDs: imdbIDs,
				TMDbIDs: tmdbIDs,
				Limit:   limit,
			}
			if filter.Empty() {
				return errors.New("select shows with --all, --show-id, --imdb-series-id, or --tmdb-show-id")
			}

			sinceTime, err := parseSince(since)
			if err != nil {
				return err
			}

			// Flags override config only when set on the command line.
			if !cmd.Flags().Changed("incremental") {
				incremental = cfg.Sync.Incremental
			}
			if !cmd.Flags().Changed("resume") {
				resume = cfg.Sync.Resume
			}
			if !cmd.Flags().Changed("check-seasons") {
				checkSeasons = cfg.Sync.CheckSeasonCount
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Sync.Workers
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			provider, err := ctx.newProvider()
			if err != nil {
				return err
			}

			if !dryRun {
				lock := syncrun.NewRunLock(cfg.LockPath())
				if err := lock.Acquire(); err != nil {
					return err
				}
				defer func() { _ = lock.Release() }()
			}

			store, states, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer store.Close()

			runner := syncrun.New(store, states, provider, logger)
			summary, err := runner.Run(cmd.Context(), syncrun.Options{
				Filter:           filter,
				DryRun:           dryRun,
				Verbose:          verbose,
				Force:            force,
				Incremental:      incremental,
				Resume:           resume,
				Since:            sinceTime,
				CheckSeasonCount: checkSeasons,
				Workers:          workers,
				FailureSample:    cfg.Sync.FailureSample,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary.DryRun {
				fmt.Fprintln(out, "dry-run:", summary.String())
			} else {
				fmt.Fprintln(out, summary.String())
			}
			for _, failure := range summary.Failures {
				fmt.Fprintln(out, "  failed:", failure)
			}
			if summary.Failed > len(summary.Failures) {
				fmt.Fprintf(out, "  ... and %d more failures (see logs)\n", summary.Failed-len(summary.Failures))
			}
			// Per-show failures are reported, not fatal.
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Sync every show in the catalog")
	cmd.Flags().Int64SliceVar(&showIDs, "show-id", nil, "Internal show id to sync (repeatable)")
	cmd.Flags().StringSliceVar(&imdbIDs, "imdb-series-id", nil, "IMDb series id to sync (repeatable)")
	cmd.Flags().Int64SliceVar(&tmdbIDs, "tmdb-show-id", nil, "TMDB show id to sync (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Cap the number of candidate shows")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would sync without writing anything")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log a decision line per show")
	cmd.Flags().BoolVar(&incremental, "incremental", true, "Skip shows whose episode marker is unchanged")
	cmd.Flags().BoolVar(&resume, "resume", true, "Re-sync shows whose last attempt did not succeed")
	cmd.Flags().BoolVar(&force, "force", false, "Sync every selected show regardless of state")
	cmd.Flags().StringVar(&since, "since", "", "Re-sync shows whose last success predates this time (ISO 8601 or YYYY-MM-DD)")
	cmd.Flags().BoolVar(&checkSeasons, "check-seasons", false, "Re-sync shows whose stored season count disagrees with the episodes table")
	cmd.Flags().IntVar(&workers, "workers", 1, "Concurrent show workers (1-8)")

	return cmd
}

func parseSince(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("parse --since %q: expected ISO 8601 timestamp or YYYY-MM-DD", value)
}
