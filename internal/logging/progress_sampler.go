package logging

import "strings"

// ProgressSampler decides which progress updates are worth a log line: the
// first update of each job, then one per percent step crossed.
type ProgressSampler struct {
	step float64
	job  string
	seen int // highest step index already logged; -1 before the first
}

// NewProgressSampler returns a sampler logging once per step percent.
// A non-positive step means 10.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 10
	}
	return &ProgressSampler{step: step, seen: -1}
}

// ShouldLog reports whether an update for job at percent should be logged.
// A negative percent means unknown and only logs on a job change. A nil
// sampler logs everything.
func (s *ProgressSampler) ShouldLog(percent float64, job string) bool {
	if s == nil {
		return true
	}
	changed := false
	if job = strings.TrimSpace(job); job != "" && job != s.job {
		s.job, s.seen = job, -1
		changed = true
	}
	if percent < 0 {
		return changed
	}
	idx := int(min(percent, 100) / s.step)
	if idx <= s.seen {
		return changed
	}
	s.seen = idx
	return true
}

// Reset forgets the current job.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.job, s.seen = "", -1
	}
}
