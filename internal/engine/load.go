package engine

import (
	"context"
	"errors"
	"path/filepath"

	"rmbloat/internal/candidate"
	"rmbloat/internal/logging"
	"rmbloat/internal/probe"
	"rmbloat/internal/runlog"
	"rmbloat/internal/services"
)

const loadPublishEvery = 10

// LoadSummary counts what Load did with its paths.
type LoadSummary struct {
	Added    int
	Cached   int
	Probed   int
	Failed   int
	Skipped  int
	Vanished int
}

// Load registers and probes paths in order. Call it before Run; it shares
// loop-owned state and is not safe to run alongside it.
func (e *Engine) Load(ctx context.Context, paths []string) (LoadSummary, error) {
	var sum LoadSummary
	e.probing = ProbeProgress{Total: len(paths)}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		e.loadOne(ctx, path, &sum)
		e.probing.Done = i + 1
		if e.probing.Done%loadPublishEvery == 0 {
			e.publish(ctx)
		}
	}
	if e.cache != nil {
		if err := e.cache.Flush(); err != nil {
			e.logger.Warn("probe cache flush failed", logging.Error(err))
		}
	}
	e.logger.Info("candidates loaded",
		logging.String(logging.FieldEventType, "candidates_loaded"),
		logging.Int("added", sum.Added),
		logging.Int("cached", sum.Cached),
		logging.Int("probed", sum.Probed),
		logging.Int("failed", sum.Failed),
	)
	e.publish(ctx)
	return sum, nil
}

func (e *Engine) loadOne(ctx context.Context, path string, sum *LoadSummary) {
	abs, err := filepath.Abs(path)
	if err != nil {
		sum.Skipped++
		return
	}
	added, err := e.registry.Add(abs)
	if err != nil || !added {
		sum.Skipped++
		return
	}
	sum.Added++

	fp, err := probe.FingerprintFile(abs)
	if err != nil {
		e.registry.Retire(abs)
		sum.Vanished++
		return
	}
	attempts, err := e.runlog.Attempts(ctx, fp.Key())
	if err != nil {
		e.logger.Warn("failure counters unavailable", logging.String(logging.FieldCandidate, abs), logging.Error(err))
	}
	_ = e.registry.Restore(abs, attempts.ProbeFailures, attempts.ConvertFailures)

	if attempts.ProbeFailures >= candidate.MaxFailures {
		_, _ = e.registry.RecordProbeFailure(abs, fp)
		sum.Failed++
		return
	}

	out, err := e.prober.Probe(ctx, abs)
	switch {
	case err == nil:
		_ = e.registry.RecordProbe(abs, out.Fingerprint, out.Result)
		if out.Cached {
			sum.Cached++
		} else {
			sum.Probed++
		}
		if attempts.ProbeFailures > 0 {
			c, _ := e.registry.Get(abs)
			e.saveAttempts(ctx, c, runlog.Attempts{ConvertFailures: attempts.ConvertFailures})
		}
		if e.watcher != nil {
			if err := e.watcher.Track(abs); err != nil {
				e.logger.Debug("watch failed", logging.String(logging.FieldCandidate, abs), logging.Error(err))
			}
		}
	case ctx.Err() != nil:
		return
	case errors.Is(err, services.ErrSourceVanished):
		e.registry.Retire(abs)
		sum.Vanished++
	default:
		n, _ := e.registry.RecordProbeFailure(abs, fp)
		c, _ := e.registry.Get(abs)
		e.saveAttempts(ctx, c, runlog.Attempts{ProbeFailures: n, ConvertFailures: attempts.ConvertFailures})
		e.appendEvent(ctx, runlog.Event{Kind: runlog.KindProbe, Outcome: "failed", Path: abs, Detail: err.Error()})
		sum.Failed++
	}
}
