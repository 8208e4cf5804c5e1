package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"rmbloat/internal/encoding"
	"rmbloat/internal/engine"
)

func TestStatusPrinterSamplesProgressWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	p := newStatusPrinter(&buf)
	if p.live {
		t.Fatal("buffer must not be treated as a terminal")
	}

	for _, fraction := range []float64{0.01, 0.02, 0.12, 0.13, 0.55} {
		p.print(engine.Status{
			Strategy: "system_cpu",
			Active: &engine.ActiveJob{
				Path:     "/media/movie.mkv",
				Progress: encoding.Progress{Fraction: fraction, Elapsed: 90 * time.Second, Speed: 1.5},
			},
		})
	}
	out := buf.String()
	if got := strings.Count(out, "==> converting"); got != 1 {
		t.Fatalf("expected one job header, got %d:\n%s", got, out)
	}
	requireContains(t, out, "[system_cpu]")
	requireContains(t, out, "  1.0%")
	requireContains(t, out, " 12.0%")
	requireContains(t, out, " 55.0%")
	if strings.Contains(out, "  2.0%") || strings.Contains(out, " 13.0%") {
		t.Fatalf("progress within a bucket should be suppressed:\n%s", out)
	}
	requireContains(t, out, "1.50x")
}

func TestStatusPrinterReportsEachOutcomeOnce(t *testing.T) {
	var buf bytes.Buffer
	p := newStatusPrinter(&buf)

	dry := &encoding.Outcome{Kind: encoding.KindOK, DryRun: true, Ops: []string{"WOULD run ffmpeg", "WOULD trash /media/movie.mkv"}}
	p.print(engine.Status{Last: dry, Vitals: engine.Vitals{OK: 1}})
	p.print(engine.Status{Last: dry, Vitals: engine.Vitals{OK: 1}})
	failed := &encoding.Outcome{Kind: encoding.KindFailed, Reason: "encoder exited with code 1"}
	p.print(engine.Status{Last: failed, Vitals: engine.Vitals{OK: 1, Failed: 1, Consecutive: 1}, Err: "stopped after 1 consecutive failures"})

	out := buf.String()
	if got := strings.Count(out, "WOULD run ffmpeg"); got != 1 {
		t.Fatalf("dry-run ops printed %d times:\n%s", got, out)
	}
	requireContains(t, out, "WOULD trash /media/movie.mkv")
	requireContains(t, out, "failed (1 in a row): encoder exited with code 1")
	requireContains(t, out, "error: stopped after 1 consecutive failures")
}

func TestConsoleParse(t *testing.T) {
	c := console{}

	intents, quit, err := c.parse([]string{"f", "season", "one"})
	if err != nil || quit {
		t.Fatalf("filter: quit=%v err=%v", quit, err)
	}
	if len(intents) != 1 || intents[0].Kind != engine.IntentFilter || intents[0].Value != "season one" {
		t.Fatalf("unexpected filter intents: %+v", intents)
	}

	cases := map[string]engine.IntentKind{
		"a":     engine.IntentSelectAll,
		"n":     engine.IntentDeselectAll,
		"r":     engine.IntentResetDefault,
		"go":    engine.IntentStart,
		"x":     engine.IntentAbort,
		"quit":  engine.IntentQuit,
		"abort": engine.IntentAbort,
	}
	for word, want := range cases {
		intents, _, err := c.parse([]string{word})
		if err != nil {
			t.Fatalf("%s: %v", word, err)
		}
		if len(intents) != 1 || intents[0].Kind != want {
			t.Fatalf("%s: got %+v, want %v", word, intents, want)
		}
	}

	if _, quit, _ := c.parse([]string{"q"}); !quit {
		t.Fatal("q should quit")
	}
	if _, _, err := c.parse([]string{"s"}); err == nil {
		t.Fatal("strategy without a name should fail")
	}
	if _, _, err := c.parse([]string{"dance"}); err == nil {
		t.Fatal("unknown command should fail")
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatDuration(3725 * time.Second); got != "1:02:05" {
		t.Fatalf("formatDuration = %q", got)
	}
	if got := formatDuration(65 * time.Second); got != "1:05" {
		t.Fatalf("formatDuration = %q", got)
	}
	if got := formatDuration(0); got != "-" {
		t.Fatalf("formatDuration(0) = %q", got)
	}
	if got := formatDelta(-2048); got != "-2.0 KiB" {
		t.Fatalf("formatDelta = %q", got)
	}
	if got := formatDelta(0); got != "0 B" {
		t.Fatalf("formatDelta(0) = %q", got)
	}
	if got := formatBloat(2777.4); got != "2,777" {
		t.Fatalf("formatBloat = %q", got)
	}
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("shortID = %q", got)
	}
}

func TestLoadLineLabelsDuplicates(t *testing.T) {
	got := loadLine(engine.LoadSummary{Added: 3, Probed: 2, Failed: 1, Skipped: 2})
	want := "Loaded 3 files, 2 probed, 1 failed to probe, 2 duplicates skipped"
	if got != want {
		t.Fatalf("loadLine = %q, want %q", got, want)
	}
}
