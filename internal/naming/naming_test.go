package naming

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		want Parsed
	}{
		{"The.Office.S02E05.720p.x264.mkv", Parsed{Kind: KindEpisode, Title: "The Office", Season: 2, Episode: 5}},
		{"breaking bad s1e10.mp4", Parsed{Kind: KindEpisode, Title: "Breaking Bad", Season: 1, Episode: 10}},
		{"Blade.Runner.1982.1080p.BluRay.mkv", Parsed{Kind: KindMovie, Title: "Blade Runner", Year: 1982}},
		{"Heat (1995).avi", Parsed{Kind: KindMovie, Title: "Heat", Year: 1995}},
		{"home-video.mp4", Parsed{}},
		{"2001.mkv", Parsed{}},
	}
	for _, tc := range cases {
		if got := Parse(tc.name); got != tc.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestStandardParsedNames(t *testing.T) {
	name, changed := Standard("/tv/The.Office.S02E05.720p.x264.mkv", 720, 28)
	if name != "The.Office.S02E05.720p.x265-cmf28.recode.mkv" || !changed {
		t.Fatalf("unexpected episode name %q changed=%v", name, changed)
	}
	name, _ = Standard("/movies/Blade Runner (1982) 2160p.mkv", 1080, 24)
	if name != "Blade.Runner.1982.1080p.x265-cmf24.recode.mkv" {
		t.Fatalf("unexpected movie name %q", name)
	}
}

func TestStandardInPlaceCorrection(t *testing.T) {
	cases := []struct {
		in      string
		height  int
		want    string
		changed bool
	}{
		{"family.4K.H264.mp4", 1080, "family.1080P.X265.mkv", true},
		{"clip.xvid.480p.avi", 480, "clip.x265.480p.mkv", true},
		{"holiday.mp4", 720, "holiday.mkv", false},
		{"concert.h.264.720i.mkv", 720, "concert.x265.720p.mkv", true},
		{"Show_x264_720p.mkv", 1080, "Show_x265_1080p.mkv", true},
		{"home_XVID_DivX_576i.avi", 480, "home_X265_x265_480p.mkv", true},
		{"avcamera_720px.mp4", 1080, "avcamera_720px.mkv", false},
	}
	for _, tc := range cases {
		got, changed := Standard(tc.in, tc.height, 28)
		if got != tc.want || changed != tc.changed {
			t.Fatalf("Standard(%q) = %q,%v want %q,%v", tc.in, got, changed, tc.want, tc.changed)
		}
	}
}

func TestWithSubtitleSuffix(t *testing.T) {
	if got := WithSubtitleSuffix("Show.S01E01.1080p.x265-cmf28.recode.mkv"); got != "Show.S01E01.1080p.x265-cmf28.recode.sb.mkv" {
		t.Fatalf("unexpected suffix %q", got)
	}
}

func TestRenameCompanions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"old.en.srt",
		"old.REFERENCE.srt",
		"old.nfo",
		"old-poster.jpg",
		"other.srt",
		"new.mkv",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "old", "extras"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "old", "extras", "old.srt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ops := Renamer{}.RenameCompanions(dir, "old.mp4", "new.mkv", nil)
	for _, op := range ops {
		if op.Err != nil {
			t.Fatalf("rename failed: %v", op)
		}
	}
	for _, name := range []string{"new.en.srt", "new.REFERENCE.srt", "new.nfo", "old-poster.jpg", "other.srt", "new/extras/new.srt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
	if len(ops) != 5 {
		t.Fatalf("expected 5 renames, got %d: %v", len(ops), ops)
	}
}

func TestRenameCompanionsDryRunAndSkip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"old.srt", "old.nfo"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ops := Renamer{DryRun: true}.RenameCompanions(dir, "old.mkv", "new.mkv", []string{"old.nfo"})
	if len(ops) != 1 || filepath.Base(ops[0].To) != "new.srt" {
		t.Fatalf("unexpected ops %v", ops)
	}
	if _, err := os.Stat(filepath.Join(dir, "old.srt")); err != nil {
		t.Fatal("dry run must not rename")
	}
}
