package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rmbloat/internal/bloat"
	"rmbloat/internal/candidate"
	"rmbloat/internal/config"
	"rmbloat/internal/encoding"
	"rmbloat/internal/engine"
	"rmbloat/internal/hoststat"
	"rmbloat/internal/instancelock"
	"rmbloat/internal/logging"
	"rmbloat/internal/probe"
	"rmbloat/internal/probecache"
	"rmbloat/internal/runlog"
	"rmbloat/internal/strategy"
	"rmbloat/internal/trash"
	"rmbloat/internal/watch"
)

const hostSampleInterval = 2 * time.Second

// session owns everything a locked run needs. close releases it in reverse
// order of acquisition.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	token   *instancelock.Token
	store   *runlog.Store
	cache   *probecache.Cache
	chooser *strategy.Chooser
	watcher *watch.Watcher
	engine  *engine.Engine

	stopWatch context.CancelFunc
}

type sessionOptions struct {
	engine engine.Options
	// tune adjusts runner options after they are read from configuration.
	tune func(*encoding.Options)
	// watch enables vanished-file notifications.
	watch bool
}

func (c *commandContext) openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.sessionLogger()

	token, err := instancelock.Acquire(cfg.LockPath())
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, logger: logger, token: token}

	store, err := runlog.Open(cfg.RunLogPath())
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open run log: %w", err)
	}
	s.store = store
	s.cache = probecache.NewCache(cfg.ProbeCachePath(), logger)
	s.chooser = strategy.NewChooser(strategy.OptionsFromConfig(cfg), store, logger)

	bin, err := trash.New()
	if err != nil {
		s.close()
		return nil, fmt.Errorf("locate trash: %w", err)
	}
	runnerOpts := encoding.OptionsFromConfig(cfg)
	if opts.tune != nil {
		opts.tune(&runnerOpts)
	}

	deps := engine.Deps{
		Registry: candidate.NewRegistry(policyFromConfig(cfg), 1),
		Prober:   probe.NewProber(cfg.FFprobeBinary(), cfg.ProbeTimeout(), s.cache, logger),
		Cache:    s.cache,
		Chooser:  s.chooser,
		Runner:   encoding.NewRunner(runnerOpts, bin, nil, logger),
		RunLog:   store,
		Host:     hoststat.NewSampler(hostSampleInterval),
		Logger:   logger,
	}
	if opts.watch {
		watcher, err := watch.New(logger)
		if err != nil {
			logging.WarnWithContext(logger, "file watcher unavailable; vanished files are detected at job start", "watch_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "deleted candidates stay listed until they are attempted"),
			)
		} else {
			watchCtx, cancel := context.WithCancel(ctx)
			go watcher.Run(watchCtx)
			s.watcher = watcher
			s.stopWatch = cancel
			deps.Watcher = watcher
		}
	}

	if opts.engine.MaxConsecutiveFailures == 0 {
		opts.engine.MaxConsecutiveFailures = cfg.Encode.MaxConsecutiveFailures
	}
	eng, err := engine.New(token, opts.engine, deps)
	if err != nil {
		s.close()
		return nil, err
	}
	s.engine = eng
	return s, nil
}

func (s *session) close() error {
	var errs []error
	if s.stopWatch != nil {
		s.stopWatch()
	}
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Flush())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.token != nil {
		errs = append(errs, s.token.Release())
	}
	return errors.Join(errs...)
}

func policyFromConfig(cfg *config.Config) bloat.Policy {
	return bloat.Policy{
		Threshold:     cfg.Selection.BloatThreshold,
		MaxHeight:     cfg.Selection.MaxHeight,
		AllowedCodecs: cfg.Selection.AllowedCodecs,
	}
}
