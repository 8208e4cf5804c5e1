package probe

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"rmbloat/internal/logging"
	"rmbloat/internal/media/ffprobe"
	"rmbloat/internal/services"
)

// Cache is the persistence the prober consults before running ffprobe.
type Cache interface {
	Lookup(fp Fingerprint) (Result, bool)
	Store(fp Fingerprint, result Result) error
}

type inspectFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Prober runs ffprobe with a bounded timeout, memoized by fingerprint.
type Prober struct {
	binary  string
	timeout time.Duration
	cache   Cache
	logger  *slog.Logger
	inspect inspectFunc
}

// Outcome is a successful probe plus where it came from.
type Outcome struct {
	Fingerprint Fingerprint
	Result      Result
	Cached      bool
}

// NewProber constructs a prober. cache may be nil.
func NewProber(binary string, timeout time.Duration, cache Cache, logger *slog.Logger) *Prober {
	return &Prober{
		binary:  binary,
		timeout: timeout,
		cache:   cache,
		logger:  logging.NewComponentLogger(logger, "probe"),
		inspect: ffprobe.Inspect,
	}
}

// Probe returns the probe result for path. Failures are wrapped with
// services.ErrProbeFailure and are never cached; a missing file is reported
// as services.ErrSourceVanished.
func (p *Prober) Probe(ctx context.Context, path string) (Outcome, error) {
	fp, err := FingerprintFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Outcome{}, services.Wrap(services.ErrSourceVanished, "probe", "stat", path, err)
		}
		return Outcome{}, services.Wrap(services.ErrProbeFailure, "probe", "stat", path, err)
	}
	if p.cache != nil {
		if cached, ok := p.cache.Lookup(fp); ok {
			return Outcome{Fingerprint: fp, Result: cached, Cached: true}, nil
		}
	}

	probeCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	raw, err := p.inspect(probeCtx, p.binary, fp.Path)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(services.ErrTimeout, err)
		}
		return Outcome{}, services.Wrap(services.ErrProbeFailure, "probe", "ffprobe", fp.Path, err)
	}
	result, err := FromFFprobe(raw, fp.Size)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrProbeFailure, "probe", "normalize", fp.Path, err)
	}

	if p.cache != nil {
		if err := p.cache.Store(fp, result); err != nil {
			logging.WarnWithContext(p.logger, "probe cache store failed", "probe_cache_store_failed",
				logging.String(logging.FieldCandidate, fp.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state directory permissions"),
				logging.String(logging.FieldImpact, "file will be re-probed next run"),
			)
		}
	}
	p.logger.Debug("probed",
		logging.String(logging.FieldCandidate, fp.Path),
		logging.String("codec", result.Codec),
		logging.Int("height", result.Height),
		logging.Float64("kbps", result.BitrateKbps),
	)
	return Outcome{Fingerprint: fp, Result: result}, nil
}
