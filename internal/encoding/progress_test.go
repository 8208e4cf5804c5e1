package encoding

import (
	"testing"
	"time"
)

func TestParseTimedProgress(t *testing.T) {
	parser := progressParser{duration: 100 * time.Second, fps: 25}
	snap, ok := parser.parse("frame= 1250 fps= 50 q=28.0 size=  2048kB time=00:00:50.00 bitrate=335.5kbits/s speed=2.50x", 20*time.Second)
	if !ok {
		t.Fatal("expected progress line")
	}
	if snap.Frame != 1250 || snap.Position != 50*time.Second || snap.Speed != 2.5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Percent() != 50 || snap.ETA != 20*time.Second || snap.Estimated {
		t.Fatalf("unexpected fraction/eta %+v", snap)
	}
}

func TestParseEstimatesFromFrames(t *testing.T) {
	parser := progressParser{duration: 100 * time.Second, fps: 25}
	line := "frame=  500 fps= 50 q=28.0 size=N/A"

	early, ok := parser.parse(line, 2*time.Second)
	if !ok || early.Fraction >= 0 || !early.Estimated {
		t.Fatalf("expected unknown progress during warmup, got %+v", early)
	}
	if early.String() != "Frame 500: MAKING PROGRESS..." {
		t.Fatalf("unexpected rendering %q", early.String())
	}

	snap, _ := parser.parse(line, 10*time.Second)
	if snap.Percent() != 20 {
		t.Fatalf("expected 20%%, got %v", snap.Percent())
	}
	if snap.ETA != 40*time.Second {
		t.Fatalf("expected 40s eta, got %v", snap.ETA)
	}
	if snap.Speed != 2 {
		t.Fatalf("expected 2x, got %v", snap.Speed)
	}
}

func TestParseIgnoresOtherLines(t *testing.T) {
	parser := progressParser{duration: time.Minute}
	if _, ok := parser.parse("Stream #0:0: Video: h264", time.Second); ok {
		t.Fatal("expected non-progress line to be ignored")
	}
}

func TestLineSplitterHoldsPartialLines(t *testing.T) {
	var s lineSplitter
	lines := s.feed([]byte("frame=1\rframe=2\nfra"))
	if len(lines) != 2 || lines[0] != "frame=1" || lines[1] != "frame=2" {
		t.Fatalf("unexpected lines %q", lines)
	}
	lines = s.feed([]byte("me=3\r\n"))
	if len(lines) != 1 || lines[0] != "frame=3" {
		t.Fatalf("expected joined partial, got %q", lines)
	}
	s.feed([]byte("tail"))
	if rest := s.flush(); rest != "tail" {
		t.Fatalf("unexpected flush %q", rest)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatETA(3725 * time.Second); got != "1h2m5s" {
		t.Fatalf("formatETA = %q", got)
	}
	if got := formatClock(65 * time.Second); got != "1:05" {
		t.Fatalf("formatClock = %q", got)
	}
	if got := clockSpec(3725 * time.Second); got != "01:02:05" {
		t.Fatalf("clockSpec = %q", got)
	}
}

func TestCorruptionScoreFirstMatchOnly(t *testing.T) {
	var score corruptionScore
	score.observe("Error at MB: 12 concealing 40 DC errors")
	score.observe("nothing interesting")
	score.observe("[mpeg4] marker does not match f_code")
	if score.total != 16 || score.events != 2 {
		t.Fatalf("unexpected score %+v", score)
	}
	if score.corrupt() {
		t.Fatal("score below threshold must not be corrupt")
	}
}
