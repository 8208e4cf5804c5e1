package engine

import (
	"context"
	"time"

	"rmbloat/internal/candidate"
	"rmbloat/internal/encoding"
	"rmbloat/internal/hoststat"
)

// Status is a point-in-time view of the session for the presentation layer.
type Status struct {
	At         time.Time
	Candidates []candidate.Candidate
	Totals     candidate.Totals
	Filter     string
	Strategy   string
	RunID      string
	Batch      bool
	Stopping   bool
	Active     *ActiveJob
	Vitals     Vitals
	Probing    ProbeProgress
	Host       hoststat.Snapshot
	Err        string
	// Last is the most recently finished job.
	Last *encoding.Outcome
}

// ActiveJob is the running conversion and its latest progress.
type ActiveJob struct {
	Path     string
	Started  time.Time
	Progress encoding.Progress
}

// Vitals count outcomes across the session.
type Vitals struct {
	OK          int
	Short       int
	Failed      int
	Consecutive int
}

// ProbeProgress tracks the initial probe pass.
type ProbeProgress struct {
	Done  int
	Total int
}

func (e *Engine) snapshot() Status {
	s := Status{
		At:         time.Now(),
		Candidates: e.registry.Visible(),
		Totals:     e.registry.Totals(),
		Filter:     e.registry.Filter(),
		Strategy:   e.override,
		Vitals:     e.vitals,
		Probing:    e.probing,
		Host:       e.hostSnap,
		Err:        e.lastErr,
		Last:       e.last,
	}
	if b := e.batch; b != nil {
		s.Batch = true
		s.Stopping = b.stopping
		s.RunID = b.runID
		s.Strategy = string(b.strategy.Name)
		if b.job != nil {
			s.Active = &ActiveJob{Path: b.job.path, Started: b.job.started, Progress: b.job.progressSnap}
		}
	}
	return s
}

// publish replaces any unread snapshot with the current one.
func (e *Engine) publish(_ context.Context) {
	snap := e.snapshot()
	for {
		select {
		case e.status <- snap:
			return
		default:
		}
		select {
		case <-e.status:
		default:
		}
	}
}
