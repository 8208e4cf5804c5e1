package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rmbloat/internal/candidate"
	"rmbloat/internal/encoding"
	"rmbloat/internal/hoststat"
	"rmbloat/internal/instancelock"
	"rmbloat/internal/logging"
	"rmbloat/internal/probe"
	"rmbloat/internal/runlog"
	"rmbloat/internal/services"
	"rmbloat/internal/strategy"
)

// Prober inspects one file.
type Prober interface {
	Probe(ctx context.Context, path string) (probe.Outcome, error)
}

// ProbeCache is the part of the probe cache the engine maintains directly.
type ProbeCache interface {
	Forget(path string) error
	Flush() error
}

// Chooser picks the execution strategy for a batch.
type Chooser interface {
	Choose(ctx context.Context, req strategy.Request) (strategy.Strategy, error)
}

// JobRunner converts one file.
type JobRunner interface {
	Run(ctx context.Context, job encoding.Job, progress chan<- encoding.Progress) (encoding.Outcome, error)
}

// RunLog is the durable record of runs, outcomes, and failure counters.
type RunLog interface {
	BeginRun(ctx context.Context, strategy string) (string, error)
	FinishRun(ctx context.Context, runID string, converted, short, failed int) error
	Append(ctx context.Context, event runlog.Event) error
	Attempts(ctx context.Context, fingerprint string) (runlog.Attempts, error)
	SetAttempts(ctx context.Context, fingerprint, path string, a runlog.Attempts) error
}

// Watcher reports tracked files that disappear.
type Watcher interface {
	Track(path string) error
	Untrack(path string)
	Vanished() <-chan string
}

// HostSampler reads host load for status snapshots.
type HostSampler interface {
	Sample(ctx context.Context) (hoststat.Snapshot, error)
}

// Options tunes a session.
type Options struct {
	// Auto starts a batch as soon as Run begins and returns when it ends.
	Auto bool
	// Strategy overrides the configured strategy preference.
	Strategy               string
	MaxConsecutiveFailures int
	StatusInterval         time.Duration
	DryRun                 bool
	Sample                 bool
}

// Deps are the collaborators an Engine drives. Cache, Watcher, and Host are
// optional.
type Deps struct {
	Registry *candidate.Registry
	Prober   Prober
	Cache    ProbeCache
	Chooser  Chooser
	Runner   JobRunner
	RunLog   RunLog
	Watcher  Watcher
	Host     HostSampler
	Logger   *slog.Logger
}

// Engine is the coordinating loop of one session.
type Engine struct {
	token    *instancelock.Token
	opts     Options
	registry *candidate.Registry
	prober   Prober
	cache    ProbeCache
	chooser  Chooser
	runner   JobRunner
	runlog   RunLog
	watcher  Watcher
	host     HostSampler
	logger   *slog.Logger

	intents chan Intent
	status  chan Status

	// Loop-owned state.
	override string
	batch    *batch
	vitals   Vitals
	hostSnap hoststat.Snapshot
	lastErr  string
	last     *encoding.Outcome
	probing  ProbeProgress
}

// New builds an Engine. token must be a held instance lock.
func New(token *instancelock.Token, opts Options, deps Deps) (*Engine, error) {
	if token == nil || !token.Valid() {
		return nil, services.Wrap(services.ErrLockBusy, "engine", "new", "instance lock not held", nil)
	}
	if deps.Registry == nil || deps.Prober == nil || deps.Chooser == nil || deps.Runner == nil || deps.RunLog == nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "new", "missing collaborator", nil)
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = time.Second
	}
	return &Engine{
		token:    token,
		opts:     opts,
		registry: deps.Registry,
		prober:   deps.Prober,
		cache:    deps.Cache,
		chooser:  deps.Chooser,
		runner:   deps.Runner,
		runlog:   deps.RunLog,
		watcher:  deps.Watcher,
		host:     deps.Host,
		logger:   logging.NewComponentLogger(deps.Logger, "engine"),
		intents:  make(chan Intent, 16),
		status:   make(chan Status, 1),
		override: opts.Strategy,
	}, nil
}

// Registry exposes the candidate registry for read-only presentation.
func (e *Engine) Registry() *candidate.Registry {
	return e.registry
}

// Submit queues an intent. It blocks only when the intent buffer is full.
func (e *Engine) Submit(ctx context.Context, intent Intent) error {
	select {
	case e.intents <- intent:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status delivers the latest snapshot. Unread snapshots are replaced, so a
// slow reader only ever sees the newest state.
func (e *Engine) Status() <-chan Status {
	return e.status
}

// Run is the coordinating loop. It returns nil after a Quit intent, the
// batch error after an Auto batch, or ctx's error on cancellation. An active
// job is aborted and awaited before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	var vanished <-chan string
	if e.watcher != nil {
		vanished = e.watcher.Vanished()
	}
	ticker := time.NewTicker(e.opts.StatusInterval)
	defer ticker.Stop()

	e.publish(ctx)
	if e.opts.Auto {
		if err := e.startBatch(ctx); err != nil {
			return err
		}
		if e.batch == nil {
			return nil
		}
	}

	for {
		var (
			progress <-chan encoding.Progress
			done     <-chan jobResult
		)
		if e.batch != nil && e.batch.job != nil {
			progress = e.batch.job.progress
			done = e.batch.job.done
		}

		select {
		case <-ctx.Done():
			e.shutdown(ctx)
			return ctx.Err()

		case intent := <-e.intents:
			if quit := e.handleIntent(ctx, intent); quit {
				e.shutdown(ctx)
				return nil
			}

		case snap := <-progress:
			e.batch.job.progressSnap = snap
			e.publish(ctx)

		case res := <-done:
			e.finishJob(ctx, res)
			if e.opts.Auto && e.batch == nil {
				e.publish(ctx)
				return e.batchErr()
			}

		case path := <-vanished:
			e.retireVanished(ctx, path)

		case <-ticker.C:
			if e.host != nil && e.batch != nil {
				if snap, err := e.host.Sample(ctx); err == nil {
					e.hostSnap = snap
				}
			}
			e.publish(ctx)
		}
	}
}

func (e *Engine) batchErr() error {
	if e.lastErr == "" {
		return nil
	}
	return errors.New(e.lastErr)
}

func (e *Engine) handleIntent(ctx context.Context, intent Intent) bool {
	e.logger.Debug("intent", logging.String("intent", intent.Kind.String()), logging.String(logging.FieldCandidate, intent.Path))
	var err error
	switch intent.Kind {
	case IntentToggle:
		_, err = e.registry.Toggle(intent.Path)
	case IntentSelect:
		err = e.registry.Select(intent.Path)
	case IntentDeselect:
		err = e.registry.Deselect(intent.Path)
	case IntentSelectAll:
		e.registry.SelectAllEligible()
	case IntentDeselectAll:
		e.registry.DeselectAll()
	case IntentResetDefault:
		e.registry.ResetToDefault()
	case IntentFilter:
		e.registry.SetFilter(intent.Value)
	case IntentOverrideStrategy:
		err = e.setOverride(intent.Value)
	case IntentStart:
		if e.batch == nil {
			err = e.startBatch(ctx)
		}
	case IntentAbort:
		e.abortBatch()
	case IntentQuit:
		return true
	}
	if err != nil {
		e.logger.Info("intent rejected",
			logging.String("intent", intent.Kind.String()),
			logging.String(logging.FieldCandidate, intent.Path),
			logging.Error(err),
		)
	}
	e.publish(ctx)
	return false
}

func (e *Engine) setOverride(name string) error {
	if name != "" && name != strategy.Auto {
		if _, err := strategy.ParseName(name); err != nil {
			return err
		}
	}
	e.override = name
	return nil
}

func (e *Engine) retireVanished(ctx context.Context, path string) {
	if e.batch != nil && e.batch.job != nil && e.batch.job.path == path {
		// The runner reports its own vanished source.
		return
	}
	if !e.registry.Retire(path) {
		return
	}
	e.appendEvent(ctx, runlog.Event{Kind: runlog.KindRetire, Outcome: "vanished", Path: path})
	e.logger.Info("candidate retired",
		logging.String(logging.FieldEventType, "candidate_retired"),
		logging.String(logging.FieldCandidate, path),
	)
	e.publish(ctx)
}

// shutdown aborts and awaits any active job, then closes the batch.
func (e *Engine) shutdown(ctx context.Context) {
	if e.batch == nil {
		return
	}
	e.abortBatch()
	if job := e.batch.job; job != nil {
		res := <-job.done
		e.finishJob(context.WithoutCancel(ctx), res)
	}
	if e.batch != nil {
		e.endBatch(context.WithoutCancel(ctx), "shutdown")
	}
}

func (e *Engine) appendEvent(ctx context.Context, event runlog.Event) {
	if e.batch != nil {
		event.RunID = e.batch.runID
		if event.Strategy == "" {
			event.Strategy = string(e.batch.strategy.Name)
		}
	}
	if err := e.runlog.Append(context.WithoutCancel(ctx), event); err != nil {
		logging.WarnWithContext(e.logger, "run log append failed", "runlog_append_failed",
			logging.Error(err),
			logging.String(logging.FieldCandidate, event.Path),
			logging.String(logging.FieldImpact, "event missing from the run log"),
		)
	}
}
