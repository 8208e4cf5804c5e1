package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != present {
		t.Fatalf("expected resolved path %q, got %q", present, results[0].Detail)
	}
}

func TestAvailableHonoursPath(t *testing.T) {
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "docker"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)
	if !Available("docker") {
		t.Fatal("expected docker stub to be found")
	}
	if Available("podman") {
		t.Fatal("expected podman to be missing")
	}
	if Available("  ") {
		t.Fatal("expected blank command to be unavailable")
	}
}

func TestRequirementsMarkFFprobeRequired(t *testing.T) {
	for _, req := range Requirements("ffprobe", "ffmpeg") {
		if req.Command == "ffprobe" && req.Optional {
			t.Fatal("ffprobe must be required")
		}
		if req.Command == "ffmpeg" && !req.Optional {
			t.Fatal("ffmpeg should be optional")
		}
	}
}

func TestRenderDevice(t *testing.T) {
	dri := t.TempDir()
	if _, err := RenderDevice(dri); err == nil {
		t.Fatal("expected error with no render nodes")
	}
	for _, name := range []string{"card0", "renderD129", "renderD128"} {
		if err := os.WriteFile(filepath.Join(dri, name), nil, 0o666); err != nil {
			t.Fatalf("write node: %v", err)
		}
	}
	got, err := RenderDevice(dri)
	if err != nil {
		t.Fatalf("RenderDevice: %v", err)
	}
	if got != filepath.Join(dri, "renderD128") {
		t.Fatalf("expected first render node, got %q", got)
	}
}
