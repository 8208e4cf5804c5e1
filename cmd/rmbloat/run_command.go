package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"rmbloat/internal/discover"
	"rmbloat/internal/encoding"
	"rmbloat/internal/engine"
	"rmbloat/internal/strategy"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		interactive  bool
		dryRun       bool
		sample       bool
		keepBackup   bool
		fullSpeed    bool
		strategyName string
		quality      int
		minShrink    int
	)

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Probe paths and convert bloated candidates",
		Long: `Walk the given files and directories (or "-" to read paths from stdin),
probe every video, and convert the candidates that exceed the bloat policy,
highest bloat first. With --interactive the selection is edited from a prompt
before the batch is started.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strategyName != "" && strategyName != strategy.Auto {
				if _, err := strategy.ParseName(strategyName); err != nil {
					return err
				}
			}
			paths, err := discover.Paths(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.New("no video files found")
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			flags := cmd.Flags()
			s, err := ctx.openSession(runCtx, sessionOptions{
				engine: engine.Options{
					Auto:     !interactive,
					Strategy: strategyName,
					DryRun:   dryRun,
					Sample:   sample,
				},
				tune: func(o *encoding.Options) {
					o.DryRun = dryRun
					o.Sample = sample
					if flags.Changed("keep-backup") {
						o.KeepBackup = keepBackup
					}
					if flags.Changed("full-speed") {
						o.FullSpeed = fullSpeed
					}
					if flags.Changed("quality") {
						o.Quality = quality
					}
					if flags.Changed("min-shrink") {
						o.MinShrinkPercent = minShrink
					}
				},
				watch: true,
			})
			if err != nil {
				return err
			}
			defer s.close()

			out := cmd.OutOrStdout()
			summary, err := s.engine.Load(runCtx, paths)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, loadLine(summary))

			printer := newStatusPrinter(out)
			stopPrinter := make(chan struct{})
			printed := make(chan struct{})
			go func() {
				defer close(printed)
				for {
					select {
					case status := <-s.engine.Status():
						printer.print(status)
					case <-stopPrinter:
						select {
						case status := <-s.engine.Status():
							printer.print(status)
						default:
						}
						return
					}
				}
			}()

			if interactive {
				c := console{engine: s.engine, in: cmd.InOrStdin(), out: out}
				go c.run(runCtx)
			}
			runErr := s.engine.Run(runCtx)
			close(stopPrinter)
			<-printed
			printer.finishLine()

			reg := s.engine.Registry()
			fmt.Fprintln(out, candidateTable(reg.Ranked(), reg.Totals(), false).render())
			if runErr != nil && !errors.Is(runErr, runCtx.Err()) {
				return runErr
			}
			return runCtx.Err()
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&interactive, "interactive", "i", false, "Edit the selection at a prompt before converting")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "Show what would be converted and renamed without touching files")
	flags.BoolVar(&sample, "sample", false, "Encode a short excerpt of each file beside the original")
	flags.BoolVar(&keepBackup, "keep-backup", false, "Keep originals as ORIG.<name> instead of trashing them")
	flags.BoolVar(&fullSpeed, "full-speed", false, "Run the encoder without lowered priority or the x265 thread-pool limit")
	flags.StringVar(&strategyName, "strategy", "", "Execution strategy ("+strategyChoices()+")")
	flags.IntVarP(&quality, "quality", "q", 0, "Constant quality factor (lower is better)")
	flags.IntVar(&minShrink, "min-shrink", 0, "Minimum size reduction in percent to keep an output")
	return cmd
}

func strategyChoices() string {
	names := []string{strategy.Auto}
	for _, name := range strategy.Ranked {
		names = append(names, string(name))
	}
	return strings.Join(names, ", ")
}

func loadLine(sum engine.LoadSummary) string {
	parts := []string{fmt.Sprintf("%d files", sum.Added)}
	if sum.Cached > 0 {
		parts = append(parts, fmt.Sprintf("%d cached", sum.Cached))
	}
	if sum.Probed > 0 {
		parts = append(parts, fmt.Sprintf("%d probed", sum.Probed))
	}
	if sum.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed to probe", sum.Failed))
	}
	if sum.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicates skipped", sum.Skipped))
	}
	if sum.Vanished > 0 {
		parts = append(parts, fmt.Sprintf("%d vanished", sum.Vanished))
	}
	return "Loaded " + strings.Join(parts, ", ")
}
