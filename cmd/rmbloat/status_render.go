package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"rmbloat/internal/encoding"
	"rmbloat/internal/engine"
	"rmbloat/internal/logging"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	clearLine  = "\r\x1b[2K"
)

// progressLogBucket is the percent step between progress lines when output
// is not a terminal.
const progressLogBucket = 10

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// statusPrinter turns engine snapshots into terminal output. On a terminal
// the progress line is rewritten in place; otherwise one line is written
// per progress bucket.
type statusPrinter struct {
	out  io.Writer
	live bool

	sampler    *logging.ProgressSampler
	activePath string
	last       *encoding.Outcome
	lastErr    string
	pending    bool
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{
		out:     out,
		live:    shouldColorize(out),
		sampler: logging.NewProgressSampler(progressLogBucket),
	}
}

func (p *statusPrinter) paint(color, text string) string {
	if !p.live || color == "" {
		return text
	}
	return color + text + ansiReset
}

func (p *statusPrinter) print(s engine.Status) {
	if s.Last != nil && s.Last != p.last {
		p.finishLine()
		p.printOutcome(*s.Last, s.Vitals)
		p.last = s.Last
	}
	if s.Err != "" && s.Err != p.lastErr {
		p.finishLine()
		fmt.Fprintln(p.out, p.paint(ansiRed, "error: "+s.Err))
	}
	p.lastErr = s.Err

	if s.Active == nil {
		p.activePath = ""
		return
	}
	if s.Active.Path != p.activePath {
		p.finishLine()
		p.activePath = s.Active.Path
		p.sampler.Reset()
		label := "converting"
		if s.Strategy != "" {
			label += " [" + s.Strategy + "]"
		}
		fmt.Fprintln(p.out, p.paint(ansiBlue, "==> "+label+" "+s.Active.Path))
	}

	line := progressLine(s)
	if p.live {
		fmt.Fprint(p.out, clearLine+line)
		p.pending = true
		return
	}
	pct := s.Active.Progress.Percent()
	if pct >= 0 && p.sampler.ShouldLog(pct, s.Active.Path) {
		fmt.Fprintln(p.out, line)
	}
}

func (p *statusPrinter) printOutcome(out encoding.Outcome, v engine.Vitals) {
	switch out.Kind {
	case encoding.KindOK:
		switch {
		case out.DryRun:
			for _, op := range out.Ops {
				fmt.Fprintln(p.out, "    "+op)
			}
		case out.Sample:
			fmt.Fprintln(p.out, p.paint(ansiGreen, "    sample written to "+out.OutputPath))
		default:
			fmt.Fprintln(p.out, p.paint(ansiGreen, fmt.Sprintf("    converted: %s -> %s (-%.0f%%) in %s",
				formatBytes(out.InputBytes), formatBytes(out.OutputBytes), out.ShrinkPercent, formatDuration(out.Elapsed))))
		}
	case encoding.KindShort:
		fmt.Fprintln(p.out, p.paint(ansiYellow, fmt.Sprintf("    kept original: output only %.0f%% smaller", out.ShrinkPercent)))
	case encoding.KindFailed:
		fmt.Fprintln(p.out, p.paint(ansiRed, fmt.Sprintf("    failed (%d in a row): %s", v.Consecutive, out.Reason)))
	case encoding.KindAborted:
		fmt.Fprintln(p.out, p.paint(ansiYellow, "    aborted"))
	case encoding.KindVanished:
		fmt.Fprintln(p.out, p.paint(ansiYellow, "    source vanished; dropped from the list"))
	}
}

// finishLine ends an in-place progress line before other output.
func (p *statusPrinter) finishLine() {
	if p.pending {
		fmt.Fprintln(p.out)
		p.pending = false
	}
}

func progressLine(s engine.Status) string {
	pr := s.Active.Progress
	parts := make([]string, 0, 6)
	if pct := pr.Percent(); pct >= 0 {
		prefix := ""
		if pr.Estimated {
			prefix = "~"
		}
		parts = append(parts, fmt.Sprintf("%s%5.1f%%", prefix, pct))
	} else {
		parts = append(parts, "    ?%")
	}
	parts = append(parts, "elapsed "+formatDuration(pr.Elapsed))
	if pr.ETA > 0 {
		parts = append(parts, "eta "+formatDuration(pr.ETA))
	}
	if pr.Speed > 0 {
		parts = append(parts, fmt.Sprintf("%.2fx", pr.Speed))
	}
	if !s.Host.At.IsZero() {
		parts = append(parts, s.Host.String())
	}
	parts = append(parts, filepath.Base(s.Active.Path))
	return "    " + strings.Join(parts, "  ")
}
