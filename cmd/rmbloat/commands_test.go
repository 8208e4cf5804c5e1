package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.StateDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
}

func TestConfigShowPrintsEffectiveValues(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "bloat_thresh = 1600")
	requireContains(t, out, "[logging]")
}

func TestListShowsCandidatesAndReusesProbeCache(t *testing.T) {
	env := setupCLITestEnv(t)
	env.addVideo(t, "movie.mkv")

	out, _, err := runCLI(t, []string{"list", env.mediaDir}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Loaded 1 files, 1 probed")
	requireContains(t, out, "movie.mkv")
	requireContains(t, out, "1920x1080")
	requireContains(t, out, "h264")
	requireContains(t, out, "BC")

	out, _, err = runCLI(t, []string{"list", env.mediaDir}, env.configPath)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	requireContains(t, out, "1 cached")
}

func TestListFilterHidesOtherPaths(t *testing.T) {
	env := setupCLITestEnv(t)
	env.addVideo(t, "alpha.mkv")
	env.addVideo(t, "beta.mkv")

	out, _, err := runCLI(t, []string{"list", "--filter", "BETA", env.mediaDir}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "beta.mkv")
	if strings.Contains(out, "alpha.mkv") {
		t.Fatalf("filtered list should hide alpha.mkv:\n%s", out)
	}
}

func TestListWithoutVideosFails(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"list", env.mediaDir}, env.configPath); err == nil {
		t.Fatal("expected an error for a directory without videos")
	}
}

func TestProbeJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.addVideo(t, "movie.mkv")

	out, _, err := runCLI(t, []string{"probe", "--json", path}, env.configPath)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	requireContains(t, out, `"codec": "h264"`)
	requireContains(t, out, `"causes": [`)
	requireContains(t, out, `"bloat"`)
}

func TestProbeText(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.addVideo(t, "movie.mkv")

	out, _, err := runCLI(t, []string{"probe", path}, env.configPath)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	requireContains(t, out, "candidate (bloat, codec)")
	requireContains(t, out, "Audio #1:")
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.addVideo(t, "movie.mkv")

	out, _, err := runCLI(t, []string{"run", "--dry-run", "--strategy", "system_cpu", env.mediaDir}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "WOULD run")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("source should be untouched: %v", err)
	}
	entries, err := os.ReadDir(env.mediaDir)
	if err != nil {
		t.Fatalf("read media dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dry run created files: %v", entries)
	}

	out, _, err = runCLI(t, []string{"log"}, env.configPath)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	requireContains(t, out, "dry-run")

	out, _, err = runCLI(t, []string{"log", "--runs"}, env.configPath)
	if err != nil {
		t.Fatalf("log --runs: %v", err)
	}
	requireContains(t, out, "system_cpu")
}

func TestRunRejectsUnknownStrategy(t *testing.T) {
	env := setupCLITestEnv(t)
	env.addVideo(t, "movie.mkv")

	_, _, err := runCLI(t, []string{"run", "--strategy", "quantum", env.mediaDir}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown strategy") {
		t.Fatalf("expected unknown strategy error, got %v", err)
	}
}

func TestLogEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"log"}, env.configPath)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	requireContains(t, out, "No events recorded")
}

func TestStrategiesListsRankedNames(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"strategies"}, env.configPath)
	if err != nil {
		t.Fatalf("strategies: %v", err)
	}
	for _, name := range []string{"system_accel", "docker_accel", "system_cpu", "docker_cpu", "FFprobe"} {
		requireContains(t, out, name)
	}
	requireContains(t, out, "Configured preference: auto")
}
