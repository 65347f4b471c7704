package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"showsync/internal/resolve"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var showID int64
	var apply bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a show's TMDB id from its IMDb id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showID == 0 {
				return fmt.Errorf("--show-id is required")
			}

			store, _, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer store.Close()

			show, err := store.GetShow(cmd.Context(), showID)
			if err != nil {
				return err
			}
			if show == nil {
				return fmt.Errorf("show %d not found", showID)
			}
			if show.IMDbID == "" {
				return fmt.Errorf("show %d has no IMDb id to resolve from", showID)
			}

			provider, err := ctx.newProvider()
			if err != nil {
				return err
			}
			found, err := provider.FindByIMDbID(cmd.Context(), show.IMDbID)
			if err != nil {
				return err
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

			outcome := resolve.Resolve(candidates, show.Name, show.PremiereYear())
			out := cmd.OutOrStdout()
			if !outcome.Resolved() {
				fmt.Fprintf(out, "show %d (%s): unresolved (%s), %d candidate(s)\n",
					show.ID, show.Name, outcome.Reason, len(candidates))
				for _, candidate := range candidates {
					fmt.Fprintf(out, "  candidate %d: %s (%s)\n", candidate.ID, candidate.Name, candidate.FirstAirDate)
				}
				return nil
			}

			fmt.Fprintf(out, "show %d (%s): tmdb id %d (%s)\n", show.ID, show.Name, outcome.ResolvedID, outcome.Reason)
			if !apply {
				return nil
			}
			if _, err := store.UpdateShow(cmd.Context(), show.ID, map[string]any{
				"tmdb_id":          outcome.ResolvedID,
				"needs_resolution": false,
			}); err != nil {
				return err
			}
			fmt.Fprintln(out, "applied")
			return nil
		},
	}

	cmd.Flags().Int64Var(&showID, "show-id", 0, "Internal show id to resolve")
	cmd.Flags().BoolVar(&apply, "apply", false, "Write the resolved id back to the catalog")
	return cmd
}
