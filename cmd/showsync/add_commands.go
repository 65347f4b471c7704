package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"showsync/internal/catalog"
)

func newAddShowCommand(ctx *commandContext) *cobra.Command {
	var (
		name         string
		imdbID       string
		tmdbID       int64
		premiereDate string
	)

	cmd := &cobra.Command{
		Use:   "add-show",
		Short: "Add a show to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer store.Close()

			show, err := store.InsertShow(cmd.Context(), name, imdbID, tmdbID, premiereDate)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added show %d: %s\n", show.ID, show.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Show name")
	cmd.Flags().StringVar(&imdbID, "imdb-series-id", "", "IMDb series id")
	cmd.Flags().Int64Var(&tmdbID, "tmdb-show-id", 0, "TMDB show id")
	cmd.Flags().StringVar(&premiereDate, "premiere-date", "", "Premiere date (YYYY-MM-DD)")
	return cmd
}

func newAddEpisodeCommand(ctx *commandContext) *cobra.Command {
	var ep catalog.Episode

	cmd := &cobra.Command{
		Use:   "add-episode",
		Short: "Add an episode row for a show",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ep.ShowID == 0 {
				return errors.New("--show-id is required")
			}
			store, _, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.InsertEpisode(cmd.Context(), ep); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added S%dE%d for show %d\n",
				ep.SeasonNumber, ep.EpisodeNumber, ep.ShowID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&ep.ShowID, "show-id", 0, "Internal show id")
	cmd.Flags().IntVar(&ep.SeasonNumber, "season", 0, "Season number")
	cmd.Flags().IntVar(&ep.EpisodeNumber, "episode", 0, "Episode number")
	cmd.Flags().StringVar(&ep.Title, "title", "", "Episode title")
	cmd.Flags().StringVar(&ep.AirDate, "air-date", "", "Air date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&ep.TMDbEpisodeID, "tmdb-episode-id", 0, "TMDB episode id")
	return cmd
}
