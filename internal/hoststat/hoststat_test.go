package hoststat

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSampleReportsCores(t *testing.T) {
	s := NewSampler(0)
	snap, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if snap.Cores < 1 {
		t.Fatalf("expected at least one core, got %d", snap.Cores)
	}
	if snap.CPUPercent < 0 || snap.CPUPercent > 100 {
		t.Fatalf("cpu percent out of range: %v", snap.CPUPercent)
	}
	if !strings.Contains(snap.String(), "cores") {
		t.Fatalf("unexpected rendering %q", snap.String())
	}
}

func TestSampleRateLimited(t *testing.T) {
	s := NewSampler(time.Hour)
	first, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	second, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if !second.At.Equal(first.At) {
		t.Fatal("expected cached snapshot within the interval")
	}
}
