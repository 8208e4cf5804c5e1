package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rmbloat/internal/config"
	"rmbloat/internal/testsupport"
)

// ffprobeStub reports a 1080p H.264 file at 4 Mb/s, well over the default
// bloat threshold. Only shell builtins are used so PATH can be narrowed to
// the stub directory.
const ffprobeStub = `printf '%s\n' '{"streams":[{"index":0,"codec_type":"video","codec_name":"h264","width":1920,"height":1080,"avg_frame_rate":"24/1"},{"index":1,"codec_type":"audio","codec_name":"aac","tags":{"language":"eng"}}],"format":{"duration":"60","bit_rate":"4000000","size":"30000000"}}'`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	mediaDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))

	testsupport.StubTools(t, base, map[string]string{
		"ffprobe": ffprobeStub,
		"ffmpeg":  "exit 0",
	})

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	mediaDir := filepath.Join(base, "media")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		t.Fatalf("mkdir media: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, mediaDir: mediaDir}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf("[paths]\nstate_dir = %q\n\n[logging]\nlevel = \"error\"\nretention_days = 0\n", cfg.Paths.StateDir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) addVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.mediaDir, name)
	testsupport.WriteFile(t, path, 4096)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
