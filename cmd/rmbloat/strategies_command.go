package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"rmbloat/internal/deps"
	"rmbloat/internal/runlog"
	"rmbloat/internal/strategy"
)

func (c *commandContext) openRunLog() (*runlog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := runlog.Open(cfg.RunLogPath())
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return store, nil
}

func newStrategiesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "Show which execution strategies work on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openRunLog()
			if err != nil {
				return err
			}
			defer store.Close()

			opts := strategy.OptionsFromConfig(cfg)
			chooser := strategy.NewChooser(opts, store, ctx.sessionLogger())
			out := cmd.OutOrStdout()

			tools := tableView{headers: []string{"Tool", "Command", "Required", "Available", "Detail"}}
			for _, status := range deps.CheckBinaries(deps.Requirements(cfg.FFprobeBinary(), cfg.FFmpegBinary())) {
				tools.rows = append(tools.rows, []string{status.Name, status.Command, yesNo(!status.Optional), yesNo(status.Available), status.Detail})
			}
			fmt.Fprintln(out, tools.render())

			view := tableView{headers: []string{"Rank", "Strategy", "Available", "Benchmark", "Detail"}}
			for i, s := range chooser.Discover(cmd.Context()) {
				view.rows = append(view.rows, []string{
					fmt.Sprint(i + 1),
					string(s.Name),
					yesNo(s.Available),
					benchmarkLabel(cmd, store, opts.Host, s.Name),
					s.Detail,
				})
			}
			fmt.Fprintln(out, view.render())
			fmt.Fprintf(out, "Configured preference: %s\n", cfg.Strategy.Prefer)
			return nil
		},
	}
}

func benchmarkLabel(cmd *cobra.Command, store *runlog.Store, host string, name strategy.Name) string {
	ok, found, err := store.LastBenchmark(cmd.Context(), host, string(name))
	switch {
	case err != nil:
		return "error"
	case !found:
		return "-"
	case ok:
		return "passed"
	}
	return "failed"
}

func newBenchmarkCommand(ctx *commandContext) *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "benchmark <sample-file>",
		Short: "Encode a short excerpt under each available strategy and record the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("benchmark sample: %w", err)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openRunLog()
			if err != nil {
				return err
			}
			defer store.Close()

			chooser := strategy.NewChooser(strategy.OptionsFromConfig(cfg), store, ctx.sessionLogger())
			var want strategy.Name
			if only != "" {
				if want, err = strategy.ParseName(only); err != nil {
					return err
				}
			}

			view := tableView{
				headers: []string{"Strategy", "Result", "Elapsed", "Speed", "Output", "Detail"},
				aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			}
			ran := 0
			for _, s := range chooser.Discover(cmd.Context()) {
				if want != "" && s.Name != want {
					continue
				}
				if !s.Available && want == "" {
					continue
				}
				ran++
				result := chooser.Benchmark(cmd.Context(), s, args[0])
				status := "failed"
				if result.OK {
					status = "passed"
				}
				view.rows = append(view.rows, []string{
					string(result.Strategy),
					status,
					formatDuration(result.Elapsed.Round(time.Second)),
					fmt.Sprintf("%.2fx", result.Throughput),
					formatBytes(result.OutputBytes),
					result.StderrExcerpt,
				})
			}
			if ran == 0 {
				return errors.New("no strategy available to benchmark")
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.render())
			return nil
		},
	}
	cmd.Flags().StringVar(&only, "strategy", "", "Benchmark only this strategy")
	return cmd
}
