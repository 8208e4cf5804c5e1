package config

import (
	"errors"
	"fmt"
)

var validStrategies = map[string]struct{}{
	StrategyAuto:   {},
	"system_accel": {},
	"docker_accel": {},
	"system_cpu":   {},
	"docker_cpu":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateEncode(); err != nil {
		return err
	}
	if err := c.validateStrategy(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSelection() error {
	switch c.Selection.AllowedCodecs {
	case AllowedCodecsHEVC, AllowedCodecsH26x, AllowedCodecsAll:
	default:
		return fmt.Errorf("selection.allowed_codecs must be one of x265, x26*, all (got %q)", c.Selection.AllowedCodecs)
	}
	return nil
}

func (c *Config) validateEncode() error {
	if c.Encode.Quality < 0 || c.Encode.Quality > 51 {
		return errors.New("encode.quality must be between 0 and 51")
	}
	if c.Encode.MinShrinkPercent < 0 || c.Encode.MinShrinkPercent > 99 {
		return errors.New("encode.min_shrink_pct must be between 0 and 99")
	}
	return nil
}

func (c *Config) validateStrategy() error {
	if _, ok := validStrategies[c.Strategy.Prefer]; !ok {
		return fmt.Errorf("strategy.prefer: unsupported value %q", c.Strategy.Prefer)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
