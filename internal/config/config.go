package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains per-user state locations.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Selection contains the thresholds that decide whether a file needs conversion.
type Selection struct {
	BloatThreshold int    `toml:"bloat_thresh"`
	MaxHeight      int    `toml:"max_height"`
	AllowedCodecs  string `toml:"allowed_codecs"`
}

// Encode contains encoder and outcome policy settings.
type Encode struct {
	Quality                int    `toml:"quality"`
	Preset                 string `toml:"preset"`
	ThreadCount            int    `toml:"thread_count"`
	FullSpeed              bool   `toml:"full_speed"`
	MinShrinkPercent       int    `toml:"min_shrink_pct"`
	KeepBackup             bool   `toml:"keep_backup"`
	KeepShortOutput        bool   `toml:"keep_short_output"`
	MergeSubtitles         bool   `toml:"merge_subtitles"`
	ProgressTimeoutSeconds int    `toml:"progress_timeout_seconds"`
	ProgressIntervalMillis int    `toml:"progress_interval_ms"`
	SampleSeconds          int    `toml:"sample_seconds"`
	MaxConsecutiveFailures int    `toml:"max_consecutive_failures"`
}

// Strategy contains execution strategy preferences.
type Strategy struct {
	Prefer                     string `toml:"prefer"`
	Image                      string `toml:"image"`
	ForcePull                  bool   `toml:"force_pull"`
	BenchmarkSeconds           int    `toml:"benchmark_seconds"`
	ProbeTimeoutSeconds        int    `toml:"probe_timeout_seconds"`
	RuntimeCheckTimeoutSeconds int    `toml:"runtime_check_timeout_seconds"`
	ImagePullTimeoutSeconds    int    `toml:"image_pull_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for rmbloat.
//
// Configuration sections by subsystem:
//   - Paths: state directory holding the probe cache, lock, run log, and logs
//   - Selection: bloat threshold, height ceiling, and codec allow-list
//   - Encode: quality, threading, priority, and outcome policy
//   - Strategy: execution strategy pinning and container settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Selection Selection `toml:"selection"`
	Encode    Encode    `toml:"encode"`
	Strategy  Strategy  `toml:"strategy"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rmbloat/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rmbloat.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// ProbeCachePath is the persisted probe cache location.
func (c *Config) ProbeCachePath() string {
	return filepath.Join(c.Paths.StateDir, probeCacheFileName)
}

// LockPath is the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, lockFileName)
}

// RunLogPath is the durable run log database location.
func (c *Config) RunLogPath() string {
	return filepath.Join(c.Paths.StateDir, runLogFileName)
}

// LogPath is the rotating text log location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, logFileName)
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// FFmpegBinary returns the ffmpeg executable name used for encodes.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// ProbeTimeout bounds a single ffprobe invocation.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Strategy.ProbeTimeoutSeconds) * time.Second
}

// ProgressTimeout is the liveness window for encoder progress.
func (c *Config) ProgressTimeout() time.Duration {
	return time.Duration(c.Encode.ProgressTimeoutSeconds) * time.Second
}

// ProgressInterval is the minimum gap between published progress snapshots.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Encode.ProgressIntervalMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the embedded sample configuration text.
func Sample() string {
	return sampleConfig
}
