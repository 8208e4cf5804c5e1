package bloat

import (
	"math"
	"testing"

	"rmbloat/internal/probe"
)

func TestValueMatchesFormula(t *testing.T) {
	got := Value(4000, 1920, 1080)
	want := 1000 * 4000 / math.Sqrt(1920*1080)
	if got != want {
		t.Fatalf("Value = %v, want %v", got, want)
	}
	if math.Abs(got-2777.8) > 0.1 {
		t.Fatalf("Value = %v, expected about 2777.8", got)
	}
	if Value(4000, 0, 1080) != 0 {
		t.Fatal("zero width should yield zero bloat")
	}
}

func TestEvaluateExample(t *testing.T) {
	result := probe.Result{Codec: "h264", Width: 1920, Height: 1080, BitrateKbps: 4000}
	score := Evaluate(result, Policy{Threshold: 1600, MaxHeight: 1080, AllowedCodecs: "x26*"})
	if !score.OverBloat || !score.Exceeds() {
		t.Fatalf("expected bloat to exceed threshold: %+v", score)
	}
	if math.Abs(score.Bloat-2777.8) > 0.1 {
		t.Fatalf("Bloat = %v, expected about 2777.8", score.Bloat)
	}
	if score.OverHeight || score.BadCodec {
		t.Fatalf("unexpected secondary causes: %+v", score)
	}
}

func TestEvaluateIndependentCauses(t *testing.T) {
	tests := []struct {
		name   string
		result probe.Result
		policy Policy
		height bool
		codec  bool
	}{
		{
			name:   "tall hevc under threshold",
			result: probe.Result{Codec: "hevc", Width: 3840, Height: 2160, BitrateKbps: 1000},
			policy: Policy{Threshold: 1600, MaxHeight: 1080, AllowedCodecs: "x265"},
			height: true,
		},
		{
			name:   "h264 under threshold with x265 policy",
			result: probe.Result{Codec: "h264", Width: 1280, Height: 720, BitrateKbps: 500},
			policy: Policy{Threshold: 1600, MaxHeight: 1080, AllowedCodecs: "x265"},
			codec:  true,
		},
		{
			name:   "h264 allowed by wildcard",
			result: probe.Result{Codec: "h264", Width: 1280, Height: 720, BitrateKbps: 500},
			policy: Policy{Threshold: 1600, MaxHeight: 1080, AllowedCodecs: "x26*"},
		},
		{
			name:   "mpeg4 allowed by all",
			result: probe.Result{Codec: "mpeg4", Width: 640, Height: 480, BitrateKbps: 300},
			policy: Policy{Threshold: 1600, MaxHeight: 1080, AllowedCodecs: "all"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Evaluate(tt.result, tt.policy)
			if score.OverBloat {
				t.Fatalf("bloat should be under threshold: %+v", score)
			}
			if score.OverHeight != tt.height || score.BadCodec != tt.codec {
				t.Fatalf("unexpected causes: %+v", score)
			}
			if score.Exceeds() != (tt.height || tt.codec) {
				t.Fatalf("Exceeds mismatch: %+v", score)
			}
		})
	}
}
