package probe

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"rmbloat/internal/media/ffprobe"
)

// SubtitleClass tags a subtitle stream as transcodable or not.
type SubtitleClass string

const (
	SubtitleSafe   SubtitleClass = "SAFE"
	SubtitleUnsafe SubtitleClass = "UNSAFE"
)

var textSubtitleCodecs = map[string]struct{}{
	"subrip":   {},
	"srt":      {},
	"ass":      {},
	"ssa":      {},
	"mov_text": {},
	"webvtt":   {},
	"text":     {},
}

// AudioStream describes one audio track.
type AudioStream struct {
	Index    int    `json:"index"`
	Codec    string `json:"codec"`
	Language string `json:"language,omitempty"`
}

// SubtitleStream describes one subtitle track. Index is relative to the
// subtitle streams of the container, matching ffmpeg's 0:s:N addressing.
type SubtitleStream struct {
	Index    int           `json:"index"`
	Codec    string        `json:"codec"`
	Language string        `json:"language,omitempty"`
	Class    SubtitleClass `json:"class"`
}

// Safe reports whether the stream can be transcoded to a text format.
func (s SubtitleStream) Safe() bool {
	return s.Class == SubtitleSafe
}

// Result is a normalized probe of one video file.
type Result struct {
	Codec           string           `json:"codec"`
	Width           int              `json:"width"`
	Height          int              `json:"height"`
	FPS             float64          `json:"fps"`
	DurationSeconds float64          `json:"duration"`
	BitrateKbps     float64          `json:"bitrate_kbps"`
	SizeBytes       int64            `json:"size_bytes"`
	ColorSpace      string           `json:"color_space"`
	ColorPrimaries  string           `json:"color_primaries"`
	ColorTransfer   string           `json:"color_transfer"`
	Audio           []AudioStream    `json:"audio,omitempty"`
	Subtitles       []SubtitleStream `json:"subtitles,omitempty"`
}

// ClassifySubtitle maps a subtitle codec name to SAFE or UNSAFE. Unknown
// codecs are treated as UNSAFE.
func ClassifySubtitle(codec string) SubtitleClass {
	if _, ok := textSubtitleCodecs[strings.ToLower(strings.TrimSpace(codec))]; ok {
		return SubtitleSafe
	}
	return SubtitleUnsafe
}

// UnsafeSubtitleIndexes returns the subtitle-relative indexes to drop from
// the output plan.
func (r Result) UnsafeSubtitleIndexes() []int {
	var out []int
	for _, sub := range r.Subtitles {
		if !sub.Safe() {
			out = append(out, sub.Index)
		}
	}
	return out
}

// GB returns the file size in gigabytes.
func (r Result) GB() float64 {
	return float64(r.SizeBytes) / 1e9
}

// FromFFprobe normalizes ffprobe output. sizeHint is used when the container
// does not report a size.
func FromFFprobe(raw ffprobe.Result, sizeHint int64) (Result, error) {
	video, ok := raw.VideoStream()
	if !ok {
		return Result{}, errors.New("no video stream")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return Result{}, fmt.Errorf("invalid dimensions %dx%d", video.Width, video.Height)
	}

	duration := raw.DurationSeconds()
	if math.IsNaN(duration) || duration < 0 {
		duration = 0
	}
	size := raw.SizeBytes()
	if size <= 0 {
		size = sizeHint
	}

	kbps := float64(raw.BitRate()) / 1000
	if kbps <= 0 && duration > 0 && size > 0 {
		kbps = float64(size) * 8 / duration / 1000
	}
	if kbps <= 0 {
		return Result{}, errors.New("bitrate unavailable")
	}

	result := Result{
		Codec:           strings.ToLower(video.CodecName),
		Width:           video.Width,
		Height:          video.Height,
		FPS:             video.FrameRate(),
		DurationSeconds: duration,
		BitrateKbps:     kbps,
		SizeBytes:       size,
		ColorSpace:      normalizeColor(video.ColorSpace),
		ColorPrimaries:  normalizeColor(video.ColorPrimaries),
		ColorTransfer:   normalizeColor(video.ColorTransfer),
	}
	for _, stream := range raw.StreamsOfType("audio") {
		result.Audio = append(result.Audio, AudioStream{
			Index:    stream.Index,
			Codec:    stream.CodecName,
			Language: stream.Tags["language"],
		})
	}
	for i, stream := range raw.StreamsOfType("subtitle") {
		result.Subtitles = append(result.Subtitles, SubtitleStream{
			Index:    i,
			Codec:    stream.CodecName,
			Language: stream.Tags["language"],
			Class:    ClassifySubtitle(stream.CodecName),
		})
	}
	return result, nil
}

func normalizeColor(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
