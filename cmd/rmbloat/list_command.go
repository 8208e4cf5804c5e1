package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rmbloat/internal/discover"
	"rmbloat/internal/engine"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var filter string

	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "Probe paths and show candidates without converting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := discover.Paths(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.New("no video files found")
			}
			s, err := ctx.openSession(cmd.Context(), sessionOptions{engine: engine.Options{}})
			if err != nil {
				return err
			}
			defer s.close()

			summary, err := s.engine.Load(cmd.Context(), paths)
			if err != nil {
				return err
			}
			reg := s.engine.Registry()
			reg.SetFilter(filter)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, loadLine(summary))
			fmt.Fprintln(out, candidateTable(reg.Visible(), reg.Totals(), all).render())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include files that are within policy")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show paths containing this text")
	return cmd
}
