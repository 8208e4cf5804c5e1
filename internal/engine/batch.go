package engine

import (
	"context"
	"fmt"
	"time"

	"rmbloat/internal/candidate"
	"rmbloat/internal/encoding"
	"rmbloat/internal/logging"
	"rmbloat/internal/runlog"
	"rmbloat/internal/services"
	"rmbloat/internal/strategy"
)

const progressBuffer = 8

type jobResult struct {
	path    string
	outcome encoding.Outcome
	err     error
}

type activeJob struct {
	path         string
	started      time.Time
	cancel       context.CancelFunc
	progress     chan encoding.Progress
	done         chan jobResult
	progressSnap encoding.Progress
}

type batch struct {
	runID     string
	strategy  strategy.Strategy
	job       *activeJob
	stopping  bool
	reason    string
	converted int
	short     int
	failed    int
}

// startBatch chooses a strategy and launches the first job. Nothing selected
// is not an error.
func (e *Engine) startBatch(ctx context.Context) error {
	if !e.token.Valid() {
		e.lastErr = "instance lock released"
		return services.Wrap(services.ErrLockBusy, "engine", "start batch", e.lastErr, nil)
	}
	next, ok := e.registry.NextSelected()
	if !ok {
		e.logger.Info("nothing selected", logging.String(logging.FieldEventType, "batch_empty"))
		return nil
	}
	chosen, err := e.chooser.Choose(ctx, strategy.Request{Override: e.override, SamplePath: next.Path})
	if err != nil {
		e.lastErr = err.Error()
		logging.ErrorWithContext(e.logger, "no usable strategy", "strategy_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'rmbloat strategies' to see discovery results"),
		)
		return err
	}
	e.lastErr = ""

	runID, err := e.runlog.BeginRun(ctx, string(chosen.Name))
	if err != nil {
		logging.WarnWithContext(e.logger, "run log unavailable", "runlog_begin_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcomes are not linked to a run"),
		)
	}
	e.batch = &batch{runID: runID, strategy: chosen}
	e.vitals.Consecutive = 0
	e.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldStrategy, string(chosen.Name)),
	)
	e.launchNext(ctx)
	return nil
}

// launchNext starts the highest-ranked SELECTED candidate, or ends the batch
// when none remain.
func (e *Engine) launchNext(ctx context.Context) {
	for e.batch != nil && !e.batch.stopping {
		c, ok := e.registry.NextSelected()
		if !ok {
			e.batch.reason = "complete"
			break
		}
		if err := e.registry.Begin(c.Path); err != nil {
			e.logger.Warn("cannot start candidate", logging.String(logging.FieldCandidate, c.Path), logging.Error(err))
			e.batch.reason = "blocked"
			break
		}
		jobCtx, cancel := context.WithCancel(ctx)
		job := &activeJob{
			path:     c.Path,
			started:  time.Now(),
			cancel:   cancel,
			progress: make(chan encoding.Progress, progressBuffer),
			done:     make(chan jobResult, 1),
		}
		e.batch.job = job
		req := encoding.Job{Path: c.Path, Probe: *c.Probe, Strategy: e.batch.strategy}
		go func() {
			out, err := e.runner.Run(jobCtx, req, job.progress)
			job.done <- jobResult{path: req.Path, outcome: out, err: err}
		}()
		return
	}
	if e.batch != nil {
		e.endBatch(ctx, e.batch.reason)
	}
}

// finishJob folds a job outcome into the registry, run log, and caches.
func (e *Engine) finishJob(ctx context.Context, res jobResult) {
	if e.batch == nil || e.batch.job == nil {
		return
	}
	e.batch.job.cancel()
	e.batch.job = nil
	out := res.outcome
	e.last = &out
	event := runlog.Event{
		Kind:        runlog.KindConvert,
		Outcome:     string(out.Kind),
		Path:        res.path,
		Detail:      out.Reason,
		InputBytes:  out.InputBytes,
		OutputBytes: out.OutputBytes,
	}

	switch out.Kind {
	case encoding.KindVanished:
		_ = e.registry.Abort(res.path)
		e.registry.Retire(res.path)
		if e.watcher != nil {
			e.watcher.Untrack(res.path)
		}
		event.Kind = runlog.KindRetire
		event.Outcome = "vanished"

	case encoding.KindAborted:
		_ = e.registry.Abort(res.path)
		event.Kind = runlog.KindAbort

	case encoding.KindOK:
		c, err := e.registry.Complete(res.path, candidate.Outcome{
			Kind:       candidate.OutcomeOK,
			ResultSize: out.OutputBytes,
			NewPath:    out.OutputPath,
			Reason:     out.Reason,
		})
		if err == nil && !out.Sample && !out.DryRun {
			e.afterReplace(ctx, c, out)
		}
		e.vitals.OK++
		e.vitals.Consecutive = 0
		e.batch.converted++
		if out.DryRun {
			event.Outcome = "dry-run"
			event.Detail = fmt.Sprintf("%d planned operations", len(out.Ops))
		} else if out.Sample {
			event.Outcome = "sample"
			event.Detail = out.OutputPath
		}

	case encoding.KindShort:
		_, _ = e.registry.Complete(res.path, candidate.Outcome{
			Kind:       candidate.OutcomeShort,
			ResultSize: out.OutputBytes,
			Reason:     out.Reason,
		})
		e.vitals.Short++
		e.vitals.Consecutive = 0
		e.batch.short++

	default:
		c, err := e.registry.Complete(res.path, candidate.Outcome{Kind: candidate.OutcomeFailed, Reason: out.Reason})
		if err == nil {
			e.saveAttempts(ctx, c, runlog.Attempts{ProbeFailures: c.ProbeFailures, ConvertFailures: c.ConvertFailures})
		}
		e.vitals.Failed++
		e.vitals.Consecutive++
		e.batch.failed++
		if res.err != nil && event.Detail == "" {
			event.Detail = res.err.Error()
		}
		if limit := e.opts.MaxConsecutiveFailures; limit > 0 && e.vitals.Consecutive >= limit {
			e.batch.stopping = true
			e.batch.reason = "failures"
			e.lastErr = fmt.Sprintf("stopped after %d consecutive failures", e.vitals.Consecutive)
			logging.ErrorWithContext(e.logger, "too many consecutive failures", "batch_failures",
				logging.Int("consecutive", e.vitals.Consecutive),
				logging.String(logging.FieldErrorHint, "inspect 'rmbloat log' for the failing files"),
			)
		}
	}
	e.appendEvent(ctx, event)
	e.publish(ctx)

	if e.batch.stopping {
		e.endBatch(ctx, e.batch.reason)
		return
	}
	e.launchNext(ctx)
}

// afterReplace refreshes the probe cache and counters for a replaced file.
func (e *Engine) afterReplace(ctx context.Context, c candidate.Candidate, out encoding.Outcome) {
	e.saveAttempts(ctx, c, runlog.Attempts{})
	if e.watcher != nil {
		e.watcher.Untrack(c.Path)
	}
	if e.cache != nil {
		if err := e.cache.Forget(c.Path); err != nil {
			e.logger.Debug("probe cache forget failed", logging.String(logging.FieldCandidate, c.Path), logging.Error(err))
		}
	}
	if out.OutputPath == "" {
		return
	}
	if _, err := e.prober.Probe(ctx, out.OutputPath); err != nil {
		e.logger.Debug("probe of converted file failed",
			logging.String(logging.FieldCandidate, out.OutputPath),
			logging.Error(err),
		)
	}
}

func (e *Engine) saveAttempts(ctx context.Context, c candidate.Candidate, a runlog.Attempts) {
	if c.Fingerprint.Path == "" {
		return
	}
	if err := e.runlog.SetAttempts(context.WithoutCancel(ctx), c.Fingerprint.Key(), c.Path, a); err != nil {
		logging.WarnWithContext(e.logger, "failure counters not saved", "runlog_attempts_failed",
			logging.String(logging.FieldCandidate, c.Path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "retry counts reset on next run"),
		)
	}
}

// abortBatch stops launching jobs and cancels the active one. Repeated
// calls are harmless.
func (e *Engine) abortBatch() {
	if e.batch == nil {
		return
	}
	if !e.batch.stopping {
		e.batch.stopping = true
		e.batch.reason = "aborted"
	}
	if e.batch.job != nil {
		e.batch.job.cancel()
	}
}

func (e *Engine) endBatch(ctx context.Context, reason string) {
	b := e.batch
	e.batch = nil
	if b.job != nil {
		b.job.cancel()
	}
	if b.runID != "" {
		if err := e.runlog.FinishRun(context.WithoutCancel(ctx), b.runID, b.converted, b.short, b.failed); err != nil {
			e.logger.Warn("run log finish failed", logging.String(logging.FieldRunID, b.runID), logging.Error(err))
		}
	}
	if e.cache != nil {
		if err := e.cache.Flush(); err != nil {
			e.logger.Warn("probe cache flush failed", logging.Error(err))
		}
	}
	e.logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.String(logging.FieldRunID, b.runID),
		logging.String("reason", reason),
		logging.Int("converted", b.converted),
		logging.Int("short", b.short),
		logging.Int("failed", b.failed),
	)
	e.publish(ctx)
}
