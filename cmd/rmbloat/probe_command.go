package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rmbloat/internal/bloat"
	"rmbloat/internal/probe"
)

type probeReport struct {
	Path   string       `json:"path"`
	Result probe.Result `json:"probe"`
	Bloat  float64      `json:"bloat"`
	Causes []string     `json:"causes,omitempty"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe <file>...",
		Short: "Inspect files with ffprobe and score them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			prober := probe.NewProber(cfg.FFprobeBinary(), cfg.ProbeTimeout(), nil, ctx.sessionLogger())
			policy := policyFromConfig(cfg)

			reports := make([]probeReport, 0, len(args))
			for _, path := range args {
				outcome, err := prober.Probe(cmd.Context(), path)
				if err != nil {
					return err
				}
				score := bloat.Evaluate(outcome.Result, policy)
				reports = append(reports, probeReport{
					Path:   outcome.Fingerprint.Path,
					Result: outcome.Result,
					Bloat:  score.Bloat,
					Causes: causes(score),
				})
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			out := cmd.OutOrStdout()
			for i, r := range reports {
				if i > 0 {
					fmt.Fprintln(out)
				}
				writeProbeReport(out, r, policy)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func causes(score bloat.Score) []string {
	var list []string
	if score.OverBloat {
		list = append(list, "bloat")
	}
	if score.OverHeight {
		list = append(list, "height")
	}
	if score.BadCodec {
		list = append(list, "codec")
	}
	return list
}

func writeProbeReport(out io.Writer, r probeReport, policy bloat.Policy) {
	res := r.Result
	verdict := "within policy"
	if len(r.Causes) > 0 {
		verdict = "candidate (" + strings.Join(r.Causes, ", ") + ")"
	}
	fmt.Fprintf(out, "%s\n", r.Path)
	fmt.Fprintf(out, "  Verdict:    %s\n", verdict)
	fmt.Fprintf(out, "  Bloat:      %s (threshold %d)\n", formatBloat(r.Bloat), policy.Threshold)
	fmt.Fprintf(out, "  Video:      %s %dx%d @ %.3g fps, %.0f kb/s\n", res.Codec, res.Width, res.Height, res.FPS, res.BitrateKbps)
	fmt.Fprintf(out, "  Duration:   %s\n", formatDuration(time.Duration(res.DurationSeconds*float64(time.Second))))
	fmt.Fprintf(out, "  Size:       %s\n", formatBytes(res.SizeBytes))
	if res.ColorSpace != "" || res.ColorPrimaries != "" || res.ColorTransfer != "" {
		fmt.Fprintf(out, "  Color:      space=%s primaries=%s transfer=%s\n", orDash(res.ColorSpace), orDash(res.ColorPrimaries), orDash(res.ColorTransfer))
	}
	for _, a := range res.Audio {
		fmt.Fprintf(out, "  Audio #%d:   %s %s\n", a.Index, a.Codec, a.Language)
	}
	for _, s := range res.Subtitles {
		fmt.Fprintf(out, "  Subtitle #%d: %s %s [%s]\n", s.Index, s.Codec, s.Language, s.Class)
	}
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
