package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"rmbloat/internal/config"
	"rmbloat/internal/logging"
	"rmbloat/internal/services"
)

// History persists benchmark outcomes per host.
type History interface {
	LastBenchmark(ctx context.Context, host, strategy string) (ok bool, found bool, err error)
	RecordBenchmark(ctx context.Context, host, strategy string, ok bool, throughput float64, excerpt string) error
}

// Options configures discovery and selection.
type Options struct {
	FFmpeg                    string
	Image                     string
	Prefer                    string
	ForcePull                 bool
	DRIDir                    string
	Host                      string
	RuntimeCheckTimeout       time.Duration
	AccelTestTimeout          time.Duration
	ContainerAccelTestTimeout time.Duration
	PullTimeout               time.Duration
	BenchmarkDuration         time.Duration
}

// OptionsFromConfig derives chooser options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	host, _ := os.Hostname()
	return Options{
		FFmpeg:                    cfg.FFmpegBinary(),
		Image:                     cfg.Strategy.Image,
		Prefer:                    cfg.Strategy.Prefer,
		ForcePull:                 cfg.Strategy.ForcePull,
		Host:                      host,
		RuntimeCheckTimeout:       time.Duration(cfg.Strategy.RuntimeCheckTimeoutSeconds) * time.Second,
		AccelTestTimeout:          10 * time.Second,
		ContainerAccelTestTimeout: 30 * time.Second,
		PullTimeout:               time.Duration(cfg.Strategy.ImagePullTimeoutSeconds) * time.Second,
		BenchmarkDuration:         time.Duration(cfg.Strategy.BenchmarkSeconds) * time.Second,
	}
}

// Chooser discovers, verifies, and selects strategies.
type Chooser struct {
	opts       Options
	history    History
	logger     *slog.Logger
	mu         sync.Mutex
	discovered []Strategy
}

// NewChooser builds a chooser. history may be nil.
func NewChooser(opts Options, history History, logger *slog.Logger) *Chooser {
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if opts.BenchmarkDuration <= 0 {
		opts.BenchmarkDuration = 30 * time.Second
	}
	return &Chooser{
		opts:    opts,
		history: history,
		logger:  logging.NewComponentLogger(logger, "strategy"),
	}
}

// Request selects how Choose behaves for one batch.
type Request struct {
	// Override replaces the configured preference when set.
	Override string
	// SamplePath, when set, lets Choose benchmark an unverified strategy
	// before committing to it.
	SamplePath string
}

// Choose returns the strategy the batch should use. A pinned strategy is used
// as-is when discovery passes and is an error otherwise. In auto mode the
// ranked list is walked, skipping strategies that failed discovery or a
// recorded benchmark on this host; system_cpu is never skipped for history.
func (c *Chooser) Choose(ctx context.Context, req Request) (Strategy, error) {
	discovered := c.Discover(ctx)
	pin := strings.TrimSpace(req.Override)
	if pin == "" {
		pin = c.opts.Prefer
	}
	if pin != "" && pin != Auto {
		name, err := ParseName(pin)
		if err != nil {
			return Strategy{}, services.Wrap(services.ErrConfiguration, "strategy", "choose", "", err)
		}
		s := find(discovered, name)
		if !s.Available {
			return Strategy{}, services.Wrap(services.ErrStrategyUnavailable, "strategy", "choose",
				fmt.Sprintf("pinned strategy %s failed discovery: %s", name, s.Detail), nil)
		}
		return s, nil
	}

	for _, s := range discovered {
		if !s.Available {
			continue
		}
		if s.Name == SystemCPU {
			return s, nil
		}
		ok, found := c.lastBenchmark(ctx, s.Name)
		if found && !ok {
			c.logger.Info("skipping strategy with failed benchmark",
				logging.String(logging.FieldStrategy, string(s.Name)),
				logging.String("host", c.opts.Host),
			)
			continue
		}
		if !found && req.SamplePath != "" {
			result := c.Benchmark(ctx, s, req.SamplePath)
			if !result.OK {
				continue
			}
		}
		return s, nil
	}
	return Strategy{}, services.Wrap(services.ErrStrategyUnavailable, "strategy", "choose", "no strategy can encode on this host", nil)
}

func find(list []Strategy, name Name) Strategy {
	for _, s := range list {
		if s.Name == name {
			return s
		}
	}
	return Strategy{Name: name, Detail: "not discovered"}
}

func (c *Chooser) lastBenchmark(ctx context.Context, name Name) (ok bool, found bool) {
	if c.history == nil {
		return false, false
	}
	ok, found, err := c.history.LastBenchmark(ctx, c.opts.Host, string(name))
	if err != nil {
		logging.WarnWithContext(c.logger, "benchmark history unavailable", "benchmark_history_failed",
			logging.Error(err),
			logging.String(logging.FieldStrategy, string(name)),
			logging.String(logging.FieldImpact, "strategy treated as unverified"),
		)
		return false, false
	}
	return ok, found
}

// BenchmarkResult is the outcome of a bounded real encode.
type BenchmarkResult struct {
	Strategy      Name
	OK            bool
	Elapsed       time.Duration
	Throughput    float64
	OutputBytes   int64
	StderrExcerpt string
}

// Benchmark encodes the first BenchmarkDuration of sample under s and records
// the outcome. The output is written beside the sample and removed afterwards.
// The run is capped at five times the sample duration.
func (c *Chooser) Benchmark(ctx context.Context, s Strategy, sample string) BenchmarkResult {
	result := BenchmarkResult{Strategy: s.Name}
	abs, err := filepath.Abs(sample)
	if err != nil {
		result.StderrExcerpt = err.Error()
		return c.record(ctx, result)
	}
	if !s.Available {
		result.StderrExcerpt = s.Detail
		return c.record(ctx, result)
	}

	seconds := c.opts.BenchmarkDuration.Seconds()
	output := filepath.Join(filepath.Dir(abs), "BENCH."+string(s.Name)+"."+strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))+".mkv")
	defer os.Remove(output)

	argv := s.Command(EncodeParams{
		Input:     abs,
		Output:    output,
		Quality:   28,
		Preset:    "medium",
		FullSpeed: true,
		PostInput: []string{"-t", strconv.FormatFloat(seconds, 'f', -1, 64)},
	})

	c.logger.Info("benchmark starting",
		logging.String(logging.FieldStrategy, string(s.Name)),
		logging.String("sample", abs),
		logging.Duration("duration", c.opts.BenchmarkDuration),
	)
	start := time.Now()
	err = run(ctx, 5*c.opts.BenchmarkDuration, argv[0], argv[1:]...)
	result.Elapsed = time.Since(start)
	if err != nil {
		result.StderrExcerpt = tail(err.Error(), 500)
		return c.record(ctx, result)
	}
	info, statErr := os.Stat(output)
	if statErr != nil || info.Size() == 0 {
		result.StderrExcerpt = "encoder exited cleanly but produced no output"
		return c.record(ctx, result)
	}
	result.OK = true
	result.OutputBytes = info.Size()
	if result.Elapsed > 0 {
		result.Throughput = seconds / result.Elapsed.Seconds()
	}
	return c.record(ctx, result)
}

func (c *Chooser) record(ctx context.Context, result BenchmarkResult) BenchmarkResult {
	attrs := []logging.Attr{
		logging.String(logging.FieldStrategy, string(result.Strategy)),
		logging.Bool("ok", result.OK),
		logging.Duration("elapsed", result.Elapsed),
		logging.Float64("throughput", result.Throughput),
	}
	if result.OK {
		c.logger.Info("benchmark finished", logging.Args(attrs...)...)
	} else {
		attrs = append(attrs, logging.String("stderr", result.StderrExcerpt))
		logging.WarnWithContext(c.logger, "benchmark failed", "benchmark_failed", append(attrs,
			logging.String(logging.FieldErrorHint, "run `rmbloat strategies --benchmark <file>` to inspect"),
			logging.String(logging.FieldImpact, "strategy skipped on this host"),
		)...)
	}
	if c.history != nil {
		if err := c.history.RecordBenchmark(ctx, c.opts.Host, string(result.Strategy), result.OK, result.Throughput, result.StderrExcerpt); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Debug("benchmark record failed", logging.Error(err))
		}
	}
	return result
}
