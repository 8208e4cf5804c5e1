package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSelection()
	c.normalizeEncode()
	c.normalizeStrategy()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSelection() {
	// Thresholds below the floor would select nearly every file.
	if c.Selection.BloatThreshold < minBloatThreshold {
		c.Selection.BloatThreshold = minBloatThreshold
	}
	if c.Selection.MaxHeight <= 0 {
		c.Selection.MaxHeight = defaultMaxHeight
	}
	c.Selection.AllowedCodecs = strings.ToLower(strings.TrimSpace(c.Selection.AllowedCodecs))
	if c.Selection.AllowedCodecs == "" {
		c.Selection.AllowedCodecs = defaultAllowedCodecs
	}
}

func (c *Config) normalizeEncode() {
	c.Encode.Preset = strings.ToLower(strings.TrimSpace(c.Encode.Preset))
	if c.Encode.Preset == "" {
		c.Encode.Preset = defaultPreset
	}
	if c.Encode.ThreadCount < 0 {
		c.Encode.ThreadCount = 0
	}
	if c.Encode.ProgressTimeoutSeconds <= 0 {
		c.Encode.ProgressTimeoutSeconds = defaultProgressTimeoutSeconds
	}
	if c.Encode.ProgressIntervalMillis <= 0 {
		c.Encode.ProgressIntervalMillis = defaultProgressIntervalMillis
	}
	if c.Encode.SampleSeconds <= 0 {
		c.Encode.SampleSeconds = defaultSampleSeconds
	}
	if c.Encode.MaxConsecutiveFailures <= 0 {
		c.Encode.MaxConsecutiveFailures = defaultMaxConsecutiveFailures
	}
}

func (c *Config) normalizeStrategy() {
	c.Strategy.Prefer = strings.ToLower(strings.TrimSpace(c.Strategy.Prefer))
	if c.Strategy.Prefer == "" {
		c.Strategy.Prefer = defaultStrategyPreference
	}
	c.Strategy.Image = strings.TrimSpace(c.Strategy.Image)
	if c.Strategy.Image == "" {
		c.Strategy.Image = defaultContainerImage
	}
	if c.Strategy.BenchmarkSeconds <= 0 {
		c.Strategy.BenchmarkSeconds = defaultBenchmarkSeconds
	}
	if c.Strategy.ProbeTimeoutSeconds <= 0 {
		c.Strategy.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
	if c.Strategy.RuntimeCheckTimeoutSeconds <= 0 {
		c.Strategy.RuntimeCheckTimeoutSeconds = defaultRuntimeCheckTimeout
	}
	if c.Strategy.ImagePullTimeoutSeconds <= 0 {
		c.Strategy.ImagePullTimeoutSeconds = defaultImagePullTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
