package encoding

import (
	"fmt"
	"strings"
)

// corruptThreshold is the severity total at which a failed encode is
// attributed to a corrupt source.
const corruptThreshold = 30

// corruptionSignals are checked in order; a line scores its first match only.
var corruptionSignals = []struct {
	text   string
	weight int
}{
	{"corrupt decoded frame", 10},
	{"illegal mb_num", 9},
	{"marker does not match f_code", 9},
	{"damaged at", 8},
	{"Error at MB:", 7},
	{"time_increment_bits", 6},
	{"slice end not reached", 5},
	{"concealing", 2},
}

type corruptionScore struct {
	total  int
	events int
}

func (c *corruptionScore) observe(line string) {
	for _, signal := range corruptionSignals {
		if strings.Contains(line, signal.text) {
			c.total += signal.weight
			c.events++
			return
		}
	}
}

func (c corruptionScore) corrupt() bool {
	return c.total >= corruptThreshold
}

func (c corruptionScore) String() string {
	return fmt.Sprintf("CORRUPT VIDEO: total severity score %d from %d events", c.total, c.events)
}

// diagnostics keeps the last non-progress lines for failure reports.
type diagnostics struct {
	limit int
	lines []string
}

func (d *diagnostics) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	d.lines = append(d.lines, line)
	if d.limit > 0 && len(d.lines) > d.limit {
		d.lines = d.lines[len(d.lines)-d.limit:]
	}
}

func (d *diagnostics) tail(n int) []string {
	if n <= 0 || n >= len(d.lines) {
		return append([]string(nil), d.lines...)
	}
	return append([]string(nil), d.lines[len(d.lines)-n:]...)
}
