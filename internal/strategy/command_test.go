package strategy

import (
	"slices"
	"strings"
	"testing"
)

func TestCRFToQP(t *testing.T) {
	cases := map[int]int{18: 20, 28: 30, 40: 42, 50: 51, -5: 0}
	for crf, want := range cases {
		if got := CRFToQP(crf); got != want {
			t.Fatalf("CRFToQP(%d) = %d, want %d", crf, got, want)
		}
	}
}

func TestMapPreset(t *testing.T) {
	if MapPreset("ultrafast", true) != "veryfast" || MapPreset("placebo", true) != "veryslow" {
		t.Fatal("hardware presets not mapped")
	}
	if MapPreset("ultrafast", false) != "ultrafast" || MapPreset("slow", true) != "slow" {
		t.Fatal("unexpected preset mapping")
	}
}

func TestCommandSystemCPU(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	s := Strategy{Name: SystemCPU, FFmpeg: "ffmpeg"}
	got := s.Command(EncodeParams{
		Input:         "/media/tv/show.mkv",
		Output:        "/media/tv/TEMP.show.mkv",
		Quality:       28,
		Preset:        "medium",
		ThreadCount:   3,
		ScaleWidth:    1920,
		Color:         Color{Space: "bt709", Primaries: "bt709", Transfer: "709"},
		DropSubtitles: []int{1, 3},
	})
	want := []string{
		"ffmpeg", "-y", "-i", "/media/tv/show.mkv",
		"-vf", "scale=1920:-2",
		"-crf", "28", "-x265-params", "pools=3",
		"-preset", "medium", "-pix_fmt", "yuv420p10le",
		"-colorspace", "bt709", "-color_primaries", "bt709", "-color_trc", "709",
		"-map", "0:v:0", "-map", "0:a?", "-c:a", "copy",
		"-map", "0:s?", "-map", "-0:s:1", "-map", "-0:s:3",
		"-map", "-0:t", "-map", "-0:d", "-c:v", "libx265", "-c:s", "srt",
		"/media/tv/TEMP.show.mkv",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected argv:\n got %v\nwant %v", got, want)
	}
}

func TestCommandDockerAccelUsesBasenames(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	s := Strategy{Name: DockerAccel, Runtime: "podman", Image: "img:latest", RenderDevice: "/dev/dri/renderD128"}
	got := s.Command(EncodeParams{
		Input:            "/media/movies/film.mp4",
		Output:           "/media/movies/TEMP.film.mkv",
		Quality:          28,
		Preset:           "ultrafast",
		ExternalSubtitle: "/media/movies/film.en.srt",
	})
	joined := strings.Join(got, " ")
	for _, fragment := range []string{
		"podman run --rm -v /media/movies:/media/movies -w /media/movies --device=/dev/dri:/dev/dri img:latest -y",
		"-i film.mp4 -i film.en.srt",
		"-qp 30 -profile:v main10 -vf format=p010le,hwupload -vaapi_device /dev/dri/renderD128",
		"-preset veryfast -pix_fmt p010le",
		"-map -0:s -map -0:t -map -0:d -map 1:s:0 -c:s srt",
		"-metadata:s:s:0 language=eng",
		"-c:v hevc_vaapi TEMP.film.mkv",
	} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in %q", fragment, joined)
		}
	}
	if strings.Contains(joined, "/media/movies/film.mp4") {
		t.Fatalf("container command should use basenames: %q", joined)
	}
}

func TestCommandIgnoresSubtitleOutsideWorkdir(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	s := Strategy{Name: DockerCPU, Runtime: "docker", Image: "img"}
	got := strings.Join(s.Command(EncodeParams{
		Input:            "/media/a/film.mkv",
		Output:           "/media/a/TEMP.film.mkv",
		ExternalSubtitle: "/other/film.en.srt",
	}), " ")
	if strings.Contains(got, "film.en.srt") || !strings.Contains(got, "-map 0:s?") {
		t.Fatalf("expected external subtitle ignored: %q", got)
	}
}

func TestCommandLowPriorityPrefix(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, bin, "ionice", 0)
	writeStub(t, bin, "nice", 0)
	t.Setenv("PATH", bin)

	s := Strategy{Name: SystemCPU, FFmpeg: "ffmpeg"}
	got := s.Command(EncodeParams{Input: "/m/a.mkv", Output: "/m/b.mkv"})
	if !slices.Equal(got[:5], []string{"ionice", "-c3", "nice", "-n20", "ffmpeg"}) {
		t.Fatalf("expected priority prefix, got %v", got[:5])
	}
	fast := s.Command(EncodeParams{Input: "/m/a.mkv", Output: "/m/b.mkv", FullSpeed: true, ThreadCount: 3})
	if fast[0] != "ffmpeg" {
		t.Fatalf("full speed should skip prefix, got %v", fast[:2])
	}
	if slices.Contains(fast, "-x265-params") {
		t.Fatalf("full speed should not limit x265 thread pools, got %v", fast)
	}
}
