package services_test

import (
	"errors"
	"strings"
	"testing"

	"rmbloat/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConvertFailure, "encoding", "ffmpeg", "exit 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConvertFailure) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encoding", "ffmpeg", "exit 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsBatchFatal(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{services.Wrap(services.ErrProbeFailure, "probe", "ffprobe", "", nil), false},
		{services.Wrap(services.ErrConvertFailure, "encoding", "", "", nil), false},
		{services.Wrap(services.ErrSourceVanished, "encoding", "", "", nil), false},
		{services.Wrap(services.ErrStrategyUnavailable, "strategy", "choose", "", nil), true},
		{services.Wrap(services.ErrLockBusy, "lock", "acquire", "", nil), true},
	}
	for _, tc := range cases {
		if got := services.IsBatchFatal(tc.err); got != tc.want {
			t.Fatalf("IsBatchFatal(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
