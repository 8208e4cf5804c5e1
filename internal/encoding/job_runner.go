package encoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"rmbloat/internal/config"
	"rmbloat/internal/logging"
	"rmbloat/internal/naming"
	"rmbloat/internal/probe"
	"rmbloat/internal/services"
	"rmbloat/internal/strategy"
)

const (
	defaultKillGrace  = 15 * time.Second
	diagnosticLines   = 50
	progressLogBucket = 10
	minLivenessTick   = 50 * time.Millisecond
	maxLivenessTick   = time.Second
	readBufferSize    = 32 * 1024
	defaultSampleSecs = 30
)

var errStalled = errors.New("encoder stalled")

// Options controls how jobs run and how their outcomes are applied.
type Options struct {
	Quality          int
	Preset           string
	ThreadCount      int
	FullSpeed        bool
	MinShrinkPercent int
	KeepBackup       bool
	KeepShortOutput  bool
	MergeSubtitles   bool
	MaxHeight        int
	ProgressTimeout  time.Duration
	ProgressInterval time.Duration
	KillGrace        time.Duration
	Sample           bool
	SampleSeconds    int
	DryRun           bool
}

// OptionsFromConfig maps configuration onto runner options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Quality:          cfg.Encode.Quality,
		Preset:           cfg.Encode.Preset,
		ThreadCount:      cfg.Encode.ThreadCount,
		FullSpeed:        cfg.Encode.FullSpeed,
		MinShrinkPercent: cfg.Encode.MinShrinkPercent,
		KeepBackup:       cfg.Encode.KeepBackup,
		KeepShortOutput:  cfg.Encode.KeepShortOutput,
		MergeSubtitles:   cfg.Encode.MergeSubtitles,
		MaxHeight:        cfg.Selection.MaxHeight,
		ProgressTimeout:  cfg.ProgressTimeout(),
		ProgressInterval: cfg.ProgressInterval(),
		KillGrace:        defaultKillGrace,
		SampleSeconds:    cfg.Encode.SampleSeconds,
	}
}

// Recycler disposes of replaced originals.
type Recycler interface {
	Put(path string) (string, error)
}

// CompanionRenamer renames files that travel with a video.
type CompanionRenamer interface {
	RenameCompanions(dir, oldName, newName string, skip []string) []naming.CompanionRename
}

// Job is one conversion request.
type Job struct {
	Path     string
	Probe    probe.Result
	Strategy strategy.Strategy
}

// Kind classifies a finished job.
type Kind string

const (
	KindOK       Kind = "ok"
	KindShort    Kind = "short"
	KindFailed   Kind = "failed"
	KindAborted  Kind = "aborted"
	KindVanished Kind = "vanished"
)

// Outcome reports everything a job did.
type Outcome struct {
	Kind            Kind
	Path            string
	OutputPath      string
	InputBytes      int64
	OutputBytes     int64
	ShrinkPercent   float64
	ExitCode        int
	Reason          string
	CorruptionScore int
	Corrupt         bool
	Elapsed         time.Duration
	Command         []string
	Ops             []string
	Renamed         bool
	Sample          bool
	DryRun          bool
	Diagnostics     []string
}

// Runner executes conversion jobs one at a time.
type Runner struct {
	opts     Options
	recycler Recycler
	renamer  CompanionRenamer
	logger   *slog.Logger
}

// NewRunner builds a Runner. A nil renamer uses naming.Renamer.
func NewRunner(opts Options, recycler Recycler, renamer CompanionRenamer, logger *slog.Logger) *Runner {
	if opts.KillGrace <= 0 {
		opts.KillGrace = defaultKillGrace
	}
	if opts.SampleSeconds <= 0 {
		opts.SampleSeconds = defaultSampleSecs
	}
	if renamer == nil {
		renamer = naming.Renamer{DryRun: opts.DryRun}
	}
	return &Runner{
		opts:     opts,
		recycler: recycler,
		renamer:  renamer,
		logger:   logging.NewComponentLogger(logger, "encoding"),
	}
}

// Options returns the runner's effective options.
func (r *Runner) Options() Options {
	return r.opts
}

// Run converts job.Path. Progress snapshots are sent to progress without
// blocking, at most once per ProgressInterval. The returned error is nil for
// OK and short outcomes and carries a services marker otherwise.
func (r *Runner) Run(ctx context.Context, job Job, progress chan<- Progress) (Outcome, error) {
	started := time.Now()
	logger := r.logger.With(
		logging.String(logging.FieldCandidate, job.Path),
		logging.String(logging.FieldStrategy, string(job.Strategy.Name)),
	)
	out := Outcome{Path: job.Path, Sample: r.opts.Sample, DryRun: r.opts.DryRun}
	finish := func(o Outcome, err error) (Outcome, error) {
		o.Elapsed = time.Since(started)
		return o, err
	}

	info, err := os.Stat(job.Path)
	if err != nil {
		out.Kind = KindVanished
		out.Reason = "source vanished"
		return finish(out, services.Wrap(services.ErrSourceVanished, "encoding", "stat source", job.Path, err))
	}
	out.InputBytes = info.Size()

	p := r.plan(job)
	out.Command = p.Argv
	out.OutputPath = p.Output

	if r.opts.DryRun {
		out.Ops = []string{"WOULD run " + strings.Join(p.Argv, " ")}
		if !r.opts.Sample {
			ops, err := r.replaceOriginal(p)
			out.Ops = append(out.Ops, ops...)
			if err != nil {
				out.Kind = KindFailed
				out.Reason = err.Error()
				return finish(out, err)
			}
			out.OutputPath = p.Final
			out.Renamed = p.Rename
		}
		out.Kind = KindOK
		return finish(out, nil)
	}

	if err := removeIfExists(p.Output); err != nil {
		out.Kind = KindFailed
		out.Reason = "cannot remove stale output"
		return finish(out, services.Wrap(services.ErrConvertFailure, "encoding", "remove stale output", p.Output, err))
	}

	logger.Info("encode started",
		logging.String(logging.FieldEventType, "encode_started"),
		logging.String("output", p.Output),
		logging.Bool("sample", r.opts.Sample),
	)

	run, err := r.execute(ctx, job, p, progress, logger)
	out.ExitCode = run.exitCode
	out.CorruptionScore = run.score.total
	out.Corrupt = run.score.corrupt()
	out.Diagnostics = run.diag.tail(10)

	switch {
	case ctx.Err() != nil:
		_ = removeIfExists(p.Output)
		out.Kind = KindAborted
		out.Reason = "aborted"
		logger.Info("encode aborted", logging.String(logging.FieldEventType, "encode_aborted"))
		return finish(out, services.Wrap(services.ErrAborted, "encoding", "run encoder", "", context.Cause(ctx)))
	case run.stalled:
		_ = removeIfExists(p.Output)
		out.Kind = KindFailed
		out.Reason = fmt.Sprintf("no progress for %s", r.opts.ProgressTimeout)
		logging.WarnWithContext(logger, "encoder stalled", "encode_stalled",
			logging.Duration("timeout", r.opts.ProgressTimeout),
			logging.String(logging.FieldErrorHint, "check the source file and encoder health"),
			logging.String(logging.FieldImpact, "candidate marked convert failed"),
		)
		return finish(out, services.Wrap(services.ErrTimeout, "encoding", "run encoder", out.Reason, errStalled))
	case err != nil:
		_ = removeIfExists(p.Output)
		out.Kind = KindFailed
		if out.Corrupt {
			out.Reason = run.score.String()
		} else {
			out.Reason = fmt.Sprintf("encoder exited with code %d", run.exitCode)
		}
		logging.WarnWithContext(logger, "encode failed", "encode_failed",
			logging.Int("exit_code", run.exitCode),
			logging.Int("corruption_score", run.score.total),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, strings.Join(out.Diagnostics, " | ")),
			logging.String(logging.FieldImpact, "original left untouched"),
		)
		return finish(out, services.Wrap(services.ErrConvertFailure, "encoding", "run encoder", out.Reason, err))
	}

	produced, statErr := os.Stat(p.Output)
	if statErr != nil || produced.Size() == 0 {
		_ = removeIfExists(p.Output)
		out.Kind = KindFailed
		out.Reason = "encoder produced no output"
		return finish(out, services.Wrap(services.ErrConvertFailure, "encoding", "verify output", p.Output, statErr))
	}
	out.OutputBytes = produced.Size()
	if out.InputBytes > 0 {
		out.ShrinkPercent = 100 * float64(out.InputBytes-out.OutputBytes) / float64(out.InputBytes)
	}

	if r.opts.Sample {
		out.Kind = KindOK
		logger.Info("sample encoded",
			logging.String(logging.FieldEventType, "sample_encoded"),
			logging.String("output", p.Output),
			logging.Int64("output_bytes", out.OutputBytes),
		)
		return finish(out, nil)
	}

	if !shrunkEnough(out.InputBytes, out.OutputBytes, r.opts.MinShrinkPercent) {
		out.Kind = KindShort
		out.Reason = "insufficient-shrink"
		if !r.opts.KeepShortOutput {
			_ = removeIfExists(p.Output)
		}
		logger.Info("encode did not shrink enough",
			logging.String(logging.FieldEventType, "encode_short"),
			logging.Int64("input_bytes", out.InputBytes),
			logging.Int64("output_bytes", out.OutputBytes),
			logging.Int("min_shrink_pct", r.opts.MinShrinkPercent),
			logging.Bool("kept_output", r.opts.KeepShortOutput),
		)
		return finish(out, nil)
	}

	ops, err := r.replaceOriginal(p)
	out.Ops = ops
	if err != nil {
		_ = removeIfExists(p.Output)
		out.Kind = KindFailed
		out.Reason = "replacement failed"
		logging.ErrorWithContext(logger, "replacement failed", "replace_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the source directory for ORIG. and TEMP. files"),
		)
		return finish(out, err)
	}
	out.Kind = KindOK
	out.OutputPath = p.Final
	out.Renamed = p.Rename
	logger.Info("encode complete",
		logging.String(logging.FieldEventType, "encode_complete"),
		logging.String("final", p.Final),
		logging.Float64("shrink_pct", out.ShrinkPercent),
	)
	return finish(out, nil)
}

// shrunkEnough applies the integer shrink rule: out*100 < in*(100-min).
func shrunkEnough(in, out int64, minPercent int) bool {
	return out*100 < in*int64(100-minPercent)
}

type execution struct {
	exitCode int
	stalled  bool
	score    corruptionScore
	diag     diagnostics
}

func (r *Runner) execute(ctx context.Context, job Job, p Plan, progress chan<- Progress, logger *slog.Logger) (execution, error) {
	res := execution{diag: diagnostics{limit: diagnosticLines}}
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	cmd := commandContext(runCtx, p.Argv[0], p.Argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// The negative pid signals the whole group, including any wrapper.
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}
	cmd.WaitDelay = r.opts.KillGrace
	pr, pw := io.Pipe()
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		res.exitCode = -1
		return res, services.Wrap(services.ErrExternalTool, "encoding", "start encoder", p.Argv[0], err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		var splitter lineSplitter
		buf := make([]byte, readBufferSize)
		for {
			n, err := pr.Read(buf)
			for _, line := range splitter.feed(buf[:n]) {
				lines <- line
			}
			if err != nil {
				if rest := splitter.flush(); rest != "" {
					lines <- rest
				}
				return
			}
		}
	}()

	parser := progressParser{duration: p.Duration, fps: job.Probe.FPS}
	sampler := logging.NewProgressSampler(progressLogBucket)
	started := time.Now()
	lastActivity := started
	var lastPublish time.Time

	ticker := time.NewTicker(livenessTick(r.opts.ProgressTimeout))
	defer ticker.Stop()

	for open := true; open; {
		select {
		case line, ok := <-lines:
			if !ok {
				open = false
				continue
			}
			lastActivity = time.Now()
			res.score.observe(line)
			snap, isProgress := parser.parse(line, time.Since(started))
			if !isProgress {
				res.diag.add(line)
				continue
			}
			snap.Path = job.Path
			if time.Since(lastPublish) >= r.opts.ProgressInterval {
				publish(progress, snap)
				lastPublish = time.Now()
			}
			if sampler.ShouldLog(snap.Percent(), job.Path) {
				logger.Debug("encode progress",
					logging.String(logging.FieldEventType, "encode_progress"),
					logging.String("progress", snap.String()),
				)
			}
		case <-ticker.C:
			if r.opts.ProgressTimeout > 0 && !res.stalled && time.Since(lastActivity) > r.opts.ProgressTimeout {
				res.stalled = true
				cancel(errStalled)
			}
		}
	}

	err := <-waitErr
	if err != nil {
		res.exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.exitCode = exitErr.ExitCode()
		}
	}
	return res, err
}

func livenessTick(timeout time.Duration) time.Duration {
	return min(maxLivenessTick, max(minLivenessTick, timeout/4))
}

func publish(ch chan<- Progress, snap Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- snap:
	default:
	}
}
