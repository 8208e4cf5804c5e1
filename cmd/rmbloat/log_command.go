package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runs bool

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent conversions and batch runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openRunLog()
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()

			if runs {
				list, err := store.Runs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				view := tableView{
					headers: []string{"Run", "Started", "Strategy", "Host", "OK", "Short", "Failed", "Took"},
					aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				}
				for _, r := range list {
					took := "running"
					if !r.FinishedAt.IsZero() {
						took = formatDuration(r.FinishedAt.Sub(r.StartedAt))
					}
					view.rows = append(view.rows, []string{
						shortID(r.ID), formatWhen(r.StartedAt), r.Strategy, r.Host,
						fmt.Sprint(r.Converted), fmt.Sprint(r.Short), fmt.Sprint(r.Failed), took,
					})
				}
				fmt.Fprintln(out, view.render())
				return nil
			}

			events, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No events recorded")
				return nil
			}
			view := tableView{
				headers: []string{"When", "Kind", "Outcome", "Run", "Saved", "File", "Detail"},
				aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			}
			for _, e := range events {
				saved := "-"
				if e.InputBytes > 0 && e.OutputBytes > 0 {
					saved = formatDelta(e.OutputBytes - e.InputBytes)
				}
				view.rows = append(view.rows, []string{
					formatWhen(e.At), string(e.Kind), e.Outcome, shortID(e.RunID), saved, e.Path, e.Detail,
				})
			}
			fmt.Fprintln(out, view.render())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&runs, "runs", false, "Show batch runs instead of individual events")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}
