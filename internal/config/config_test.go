package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"rmbloat/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".config", "rmbloat")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.ProbeCachePath() != filepath.Join(wantState, "probe_cache.json") {
		t.Fatalf("unexpected probe cache path: %q", cfg.ProbeCachePath())
	}
	if cfg.Selection.BloatThreshold != 1600 {
		t.Fatalf("expected default bloat threshold 1600, got %d", cfg.Selection.BloatThreshold)
	}
	if cfg.Selection.AllowedCodecs != config.AllowedCodecsHEVC {
		t.Fatalf("expected x265 allowed codecs, got %q", cfg.Selection.AllowedCodecs)
	}
	if cfg.Encode.Quality != 28 || cfg.Encode.ThreadCount != 3 {
		t.Fatalf("unexpected encode defaults: %+v", cfg.Encode)
	}
	if cfg.Strategy.Prefer != config.StrategyAuto {
		t.Fatalf("expected auto strategy, got %q", cfg.Strategy.Prefer)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `[paths]
state_dir = "~/state"

[selection]
bloat_thresh = 2000
allowed_codecs = " X26* "

[encode]
keep_backup = true
min_shrink_pct = 15

[strategy]
prefer = "SYSTEM_CPU"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Selection.BloatThreshold != 2000 {
		t.Fatalf("unexpected bloat threshold: %d", cfg.Selection.BloatThreshold)
	}
	if cfg.Selection.AllowedCodecs != config.AllowedCodecsH26x {
		t.Fatalf("unexpected allowed codecs: %q", cfg.Selection.AllowedCodecs)
	}
	if !cfg.Encode.KeepBackup || cfg.Encode.MinShrinkPercent != 15 {
		t.Fatalf("unexpected encode overrides: %+v", cfg.Encode)
	}
	if cfg.Strategy.Prefer != "system_cpu" {
		t.Fatalf("expected lower-cased strategy, got %q", cfg.Strategy.Prefer)
	}
}

func TestBloatThresholdFloor(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[selection]\nbloat_thresh = 100\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Selection.BloatThreshold != 500 {
		t.Fatalf("expected threshold clamped to 500, got %d", cfg.Selection.BloatThreshold)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"codecs", func(c *config.Config) { c.Selection.AllowedCodecs = "vp9" }, "allowed_codecs"},
		{"quality", func(c *config.Config) { c.Encode.Quality = 60 }, "encode.quality"},
		{"shrink", func(c *config.Config) { c.Encode.MinShrinkPercent = 100 }, "min_shrink_pct"},
		{"strategy", func(c *config.Config) { c.Strategy.Prefer = "gpu" }, "strategy.prefer"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	var cfg config.Config
	if err := toml.Unmarshal([]byte(config.Sample()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Strategy.Image == "" {
		t.Fatal("expected sample config to set strategy.image")
	}

	dest := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(dest); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected sample written: %v", err)
	}
}
