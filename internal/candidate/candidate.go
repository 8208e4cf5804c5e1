package candidate

import (
	"path/filepath"
	"strings"

	"rmbloat/internal/bloat"
	"rmbloat/internal/probe"
)

// Candidate is one tracked video file.
type Candidate struct {
	Path        string
	Fingerprint probe.Fingerprint
	Probe       *probe.Result
	Score       bloat.Score
	Status      Status
	Selected    bool

	ProbeFailures   int
	ConvertFailures int

	// NeverConvert marks work products and test clips that are listed but
	// never selectable.
	NeverConvert bool

	ResultSize int64
	NewPath    string
	Reason     string

	// rest is the status shown when the candidate is neither selected nor
	// running.
	rest    Status
	running bool
}

// Probed reports whether a probe result is present.
func (c Candidate) Probed() bool {
	return c.Probe != nil
}

// Bloat returns the score's bloat value, or 0 when unprobed.
func (c Candidate) Bloat() float64 {
	if c.Probe == nil {
		return 0
	}
	return c.Score.Bloat
}

// SizeBytes returns the probed file size.
func (c Candidate) SizeBytes() int64 {
	if c.Probe == nil {
		return c.Fingerprint.Size
	}
	return c.Probe.SizeBytes
}

// Selectable reports whether the operator may select the candidate at all.
func (c Candidate) Selectable() bool {
	if c.Probe == nil || c.NeverConvert || c.running {
		return false
	}
	return c.rest.State != StateConvertedOK
}

// DefaultSelected is the policy selection derived purely from status and score.
func (c Candidate) DefaultSelected() bool {
	if !c.Selectable() || !c.Score.Exceeds() {
		return false
	}
	switch c.rest.State {
	case StateProbed:
		return true
	case StateConvertFailed:
		return c.rest.Count <= 1
	}
	return false
}

func (c *Candidate) refresh() {
	switch {
	case c.running:
		c.Status = Status{State: StateInProgress}
	case c.Selected:
		c.Status = Status{State: StateSelected}
	default:
		c.Status = c.rest
	}
}

// NeverConvert reports whether path names a file that must never be
// re-encoded: sample and test clips, and files already produced by a
// conversion.
func NeverConvert(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasPrefix(base, "sample.") ||
		strings.HasPrefix(base, "test.") ||
		strings.HasSuffix(base, ".recode.mkv")
}
