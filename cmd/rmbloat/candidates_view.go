package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rmbloat/internal/candidate"
)

// candidateTable lays out candidates in rank order. When all is false, only
// candidates that exceed the policy or have a non-default status are shown.
func candidateTable(list []candidate.Candidate, totals candidate.Totals, all bool) tableView {
	view := tableView{
		headers: []string{"#", "Status", "Bloat", "Why", "Resolution", "Codec", "Duration", "Size", "File"},
		aligns:  []columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
	}
	shown := 0
	for _, c := range list {
		if !all && !interesting(c) {
			continue
		}
		shown++
		view.rows = append(view.rows, []string{
			strconv.Itoa(shown),
			c.Status.Short(),
			formatBloat(c.Bloat()),
			reasons(c),
			resolution(c),
			codec(c),
			duration(c),
			formatBytes(c.SizeBytes()),
			displayPath(c),
		})
	}
	view.footer = []string{
		"",
		fmt.Sprintf("%d/%d", totals.Picked, totals.Count),
		"",
		"",
		"",
		"",
		"",
		formatBytes(totals.SelectedBytes),
		footerNote(totals),
	}
	return view
}

func interesting(c candidate.Candidate) bool {
	if c.Score.Exceeds() {
		return true
	}
	return c.Status.State != candidate.StateProbed
}

// reasons flags why a file is a candidate: B for bloat, H for height, C for
// codec.
func reasons(c candidate.Candidate) string {
	if c.Probe == nil {
		return ""
	}
	var b strings.Builder
	if c.Score.OverBloat {
		b.WriteByte('B')
	}
	if c.Score.OverHeight {
		b.WriteByte('H')
	}
	if c.Score.BadCodec {
		b.WriteByte('C')
	}
	if c.NeverConvert {
		b.WriteString("!")
	}
	return b.String()
}

func resolution(c candidate.Candidate) string {
	if c.Probe == nil {
		return "-"
	}
	return fmt.Sprintf("%dx%d", c.Probe.Width, c.Probe.Height)
}

func codec(c candidate.Candidate) string {
	if c.Probe == nil {
		return "-"
	}
	return c.Probe.Codec
}

func duration(c candidate.Candidate) string {
	if c.Probe == nil {
		return "-"
	}
	return formatDuration(time.Duration(c.Probe.DurationSeconds * float64(time.Second)))
}

func displayPath(c candidate.Candidate) string {
	if c.NewPath != "" && c.NewPath != c.Path {
		return filepath.Base(c.Path) + " -> " + filepath.Base(c.NewPath)
	}
	return c.Path
}

func footerNote(t candidate.Totals) string {
	parts := []string{fmt.Sprintf("%s total", formatBytes(t.TotalBytes))}
	if t.Converted > 0 {
		parts = append(parts, fmt.Sprintf("%d converted (%s)", t.Converted, formatDelta(t.NetDelta)))
	}
	if t.Short > 0 {
		parts = append(parts, fmt.Sprintf("%d short", t.Short))
	}
	if t.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", t.Failed))
	}
	return strings.Join(parts, ", ")
}
