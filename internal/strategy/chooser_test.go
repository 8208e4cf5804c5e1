package strategy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rmbloat/internal/services"
)

func writeStub(t *testing.T, dir, name string, exitCode int) {
	t.Helper()
	script := fmt.Sprintf("#!/bin/sh\nexit %d\n", exitCode)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

// writeEncoderStub creates an ffmpeg stand-in that writes its last argument.
func writeEncoderStub(t *testing.T, dir string) {
	t.Helper()
	script := "#!/bin/sh\nfor last; do :; done\ncase \"$last\" in -) exit 0;; esac\necho encoded > \"$last\"\nexit 0\n"
	if err := os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
}

type fakeHistory struct {
	results  map[string]bool
	recorded []string
}

func (f *fakeHistory) LastBenchmark(_ context.Context, _ string, strategy string) (bool, bool, error) {
	ok, found := f.results[strategy]
	return ok, found, nil
}

func (f *fakeHistory) RecordBenchmark(_ context.Context, _ string, strategy string, ok bool, _ float64, _ string) error {
	if f.results == nil {
		f.results = map[string]bool{}
	}
	f.results[strategy] = ok
	f.recorded = append(f.recorded, strategy)
	return nil
}

func testOptions(dri string) Options {
	return Options{
		FFmpeg:                    "ffmpeg",
		Image:                     "img:latest",
		Prefer:                    Auto,
		DRIDir:                    dri,
		Host:                      "testhost",
		RuntimeCheckTimeout:       2 * time.Second,
		AccelTestTimeout:          2 * time.Second,
		ContainerAccelTestTimeout: 2 * time.Second,
		PullTimeout:               2 * time.Second,
		BenchmarkDuration:         time.Second,
	}
}

func withRenderNode(t *testing.T) string {
	t.Helper()
	dri := t.TempDir()
	if err := os.WriteFile(filepath.Join(dri, "renderD128"), nil, 0o666); err != nil {
		t.Fatalf("write render node: %v", err)
	}
	return dri
}

func TestChooseCPUOnlyHost(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "ffmpeg", 0)
	t.Setenv("PATH", bin)

	chooser := NewChooser(testOptions(t.TempDir()), nil, nil)
	s, err := chooser.Choose(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if s.Name != SystemCPU {
		t.Fatalf("expected system_cpu, got %s", s.Name)
	}

	for _, d := range chooser.Discover(context.Background()) {
		if d.Name != SystemCPU && d.Available {
			t.Fatalf("expected %s unavailable on CPU-only host", d.Name)
		}
		if !d.Available && d.Detail == "" {
			t.Fatalf("expected detail for unavailable %s", d.Name)
		}
	}
}

func TestChoosePrefersAccel(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "ffmpeg", 0)
	writeStub(t, bin, "docker", 0)
	t.Setenv("PATH", bin)

	chooser := NewChooser(testOptions(withRenderNode(t)), nil, nil)
	s, err := chooser.Choose(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if s.Name != SystemAccel || s.RenderDevice == "" {
		t.Fatalf("expected system_accel with render device, got %+v", s)
	}
}

func TestChooseSkipsFailedBenchmarkHistory(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "ffmpeg", 0)
	writeStub(t, bin, "docker", 0)
	t.Setenv("PATH", bin)

	history := &fakeHistory{results: map[string]bool{"system_accel": false, "docker_accel": false}}
	chooser := NewChooser(testOptions(withRenderNode(t)), history, nil)
	s, err := chooser.Choose(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if s.Name != SystemCPU {
		t.Fatalf("expected fall through to system_cpu, got %s", s.Name)
	}
}

func TestChooseCPUFallbackIgnoresHistory(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "ffmpeg", 0)
	t.Setenv("PATH", bin)

	history := &fakeHistory{results: map[string]bool{"system_cpu": false}}
	chooser := NewChooser(testOptions(t.TempDir()), history, nil)
	s, err := chooser.Choose(context.Background(), Request{})
	if err != nil || s.Name != SystemCPU {
		t.Fatalf("expected guaranteed system_cpu fallback, got %s err=%v", s.Name, err)
	}
}

func TestChoosePinnedUnavailableFails(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "ffmpeg", 0)
	t.Setenv("PATH", bin)

	chooser := NewChooser(testOptions(t.TempDir()), nil, nil)
	_, err := chooser.Choose(context.Background(), Request{Override: "docker_cpu"})
	if !errors.Is(err, services.ErrStrategyUnavailable) {
		t.Fatalf("expected strategy unavailable, got %v", err)
	}
	if _, err := chooser.Choose(context.Background(), Request{Override: "gpu"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown pin, got %v", err)
	}
	s, err := chooser.Choose(context.Background(), Request{Override: "system_cpu"})
	if err != nil || s.Name != SystemCPU {
		t.Fatalf("expected pinned system_cpu, got %s err=%v", s.Name, err)
	}
}

func TestChooseNothingAvailable(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	chooser := NewChooser(testOptions(t.TempDir()), nil, nil)
	if _, err := chooser.Choose(context.Background(), Request{}); !services.IsBatchFatal(err) {
		t.Fatalf("expected batch-fatal error, got %v", err)
	}
}

func TestChooseBenchmarksUnverifiedStrategy(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "ffmpeg", 0)
	writeStub(t, bin, "docker", 0)
	t.Setenv("PATH", bin)

	sample := filepath.Join(t.TempDir(), "sample.mkv")
	if err := os.WriteFile(sample, []byte("x"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	// The stub exits 0 without writing output, so both accelerated
	// benchmarks fail and are recorded.
	history := &fakeHistory{}
	chooser := NewChooser(testOptions(withRenderNode(t)), history, nil)
	s, err := chooser.Choose(context.Background(), Request{SamplePath: sample})
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if s.Name != SystemCPU {
		t.Fatalf("expected system_cpu after failed benchmarks, got %s", s.Name)
	}
	if len(history.recorded) != 2 || history.results["system_accel"] || history.results["docker_accel"] {
		t.Fatalf("expected two failed benchmarks recorded, got %+v", history)
	}
}

func TestBenchmarkSuccess(t *testing.T) {
	bin := t.TempDir()
	writeEncoderStub(t, bin)
	t.Setenv("PATH", bin)

	dir := t.TempDir()
	sample := filepath.Join(dir, "sample.mkv")
	if err := os.WriteFile(sample, []byte("x"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	history := &fakeHistory{}
	chooser := NewChooser(testOptions(t.TempDir()), history, nil)
	result := chooser.Benchmark(context.Background(), Strategy{Name: SystemCPU, Available: true, FFmpeg: "ffmpeg"}, sample)
	if !result.OK || result.OutputBytes == 0 {
		t.Fatalf("expected successful benchmark, got %+v", result)
	}
	if !history.results["system_cpu"] {
		t.Fatal("expected success recorded")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected benchmark output removed, found %d entries", len(entries))
	}
}
