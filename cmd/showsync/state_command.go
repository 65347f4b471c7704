package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"showsync/internal/syncstate"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	var tableName string
	var status string

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show sync-state counts and records",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, states, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if status == "" {
				summary, err := states.Summary(cmd.Context(), tableName)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(summary))
				for _, st := range []syncstate.Status{syncstate.StatusSuccess, syncstate.StatusFailed, syncstate.StatusInProgress} {
					if count, ok := summary[st]; ok {
						rows = append(rows, []string{string(st), strconv.Itoa(count)})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintf(out, "no sync state recorded for table %q\n", tableName)
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Shows"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			}

			records, err := states.ListByStatus(cmd.Context(), tableName, syncstate.Status(status))
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(out, "no %s records for table %q\n", status, tableName)
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, record := range records {
				lastSuccess := ""
				if record.LastSuccessAt != nil {
					lastSuccess = record.LastSuccessAt.Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{
					strconv.FormatInt(record.ShowID, 10),
					record.LastSeenMarker,
					lastSuccess,
					record.LastError,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Show", "Last Marker", "Last Success", "Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&tableName, "table", "shows", "Sync-state table name")
	cmd.Flags().StringVar(&status, "status", "", "List records with this status instead of the summary")
	return cmd
}
