package strategy

import (
	"path/filepath"
	"strconv"

	"rmbloat/internal/deps"
)

// Color carries the colour metadata written to the output.
type Color struct {
	Space     string
	Primaries string
	Transfer  string
}

// EncodeParams describes one encode independent of strategy.
type EncodeParams struct {
	Input            string
	Output           string
	Quality          int
	Preset           string
	ThreadCount      int
	FullSpeed        bool
	PreInput         []string
	PostInput        []string
	ScaleWidth       int
	Color            Color
	DropSubtitles    []int
	ExternalSubtitle string
}

// CRFToQP maps a software CRF to the hardware QP of similar quality.
func CRFToQP(crf int) int {
	return min(51, max(0, crf+2))
}

// MapPreset replaces presets the VAAPI encoder does not accept.
func MapPreset(preset string, accelerated bool) string {
	if !accelerated {
		return preset
	}
	switch preset {
	case "ultrafast", "superfast":
		return "veryfast"
	case "placebo":
		return "veryslow"
	}
	return preset
}

// lowPriorityPrefix returns the ionice/nice wrapper available on this host.
func lowPriorityPrefix() []string {
	var prefix []string
	if deps.Available("ionice") {
		prefix = append(prefix, "ionice", "-c3")
	}
	if deps.Available("nice") {
		prefix = append(prefix, "nice", "-n20")
	}
	return prefix
}

// Command renders the argv that performs p under s. Containerized strategies
// mount the input directory at the same path and refer to files by basename,
// so Output and ExternalSubtitle must live beside Input.
func (s Strategy) Command(p EncodeParams) []string {
	var cmd []string
	if !p.FullSpeed {
		cmd = append(cmd, lowPriorityPrefix()...)
	}

	workdir := filepath.Dir(p.Input)
	ref := func(path string) string {
		if s.Containerized() {
			return filepath.Base(path)
		}
		return path
	}

	if s.Containerized() {
		cmd = append(cmd, s.Runtime, "run", "--rm", "-v", workdir+":"+workdir, "-w", workdir)
		if s.Accelerated() {
			cmd = append(cmd, "--device=/dev/dri:/dev/dri")
		}
		cmd = append(cmd, s.Image)
	} else {
		cmd = append(cmd, s.ffmpegBinary())
	}

	cmd = append(cmd, "-y")
	cmd = append(cmd, p.PreInput...)
	cmd = append(cmd, "-i", ref(p.Input))
	external := p.ExternalSubtitle != "" && filepath.Dir(p.ExternalSubtitle) == workdir
	if external {
		cmd = append(cmd, "-i", ref(p.ExternalSubtitle))
	}
	cmd = append(cmd, p.PostInput...)

	scale := ""
	if p.ScaleWidth > 0 {
		scale = "scale=" + strconv.Itoa(p.ScaleWidth) + ":-2"
	}

	var codec, pixFmt string
	if s.Accelerated() {
		codec = "hevc_vaapi"
		pixFmt = "p010le"
		filter := "format=" + pixFmt + ",hwupload"
		if scale != "" {
			filter = scale + "," + filter
		}
		cmd = append(cmd, "-qp", strconv.Itoa(CRFToQP(p.Quality)), "-profile:v", "main10",
			"-vf", filter, "-vaapi_device", s.RenderDevice)
	} else {
		codec = "libx265"
		pixFmt = "yuv420p10le"
		if scale != "" {
			cmd = append(cmd, "-vf", scale)
		}
		cmd = append(cmd, "-crf", strconv.Itoa(p.Quality))
		if p.ThreadCount > 0 && !p.FullSpeed {
			cmd = append(cmd, "-x265-params", "pools="+strconv.Itoa(p.ThreadCount))
		}
	}

	preset := p.Preset
	if preset == "" {
		preset = "medium"
	}
	cmd = append(cmd, "-preset", MapPreset(preset, s.Accelerated()), "-pix_fmt", pixFmt)
	if p.Color.Space != "" {
		cmd = append(cmd, "-colorspace", p.Color.Space, "-color_primaries", p.Color.Primaries, "-color_trc", p.Color.Transfer)
	}

	cmd = append(cmd, "-map", "0:v:0", "-map", "0:a?", "-c:a", "copy")
	if external {
		cmd = append(cmd, "-map", "-0:s", "-map", "-0:t", "-map", "-0:d",
			"-map", "1:s:0", "-c:s", "srt",
			"-metadata:s:s:0", "language=eng", "-metadata:s:s:0", "title=English",
			"-c:v", codec)
	} else {
		cmd = append(cmd, "-map", "0:s?")
		for _, idx := range p.DropSubtitles {
			cmd = append(cmd, "-map", "-0:s:"+strconv.Itoa(idx))
		}
		cmd = append(cmd, "-map", "-0:t", "-map", "-0:d", "-c:v", codec, "-c:s", "srt")
	}
	cmd = append(cmd, ref(p.Output))
	return cmd
}

func (s Strategy) ffmpegBinary() string {
	if s.FFmpeg != "" {
		return s.FFmpeg
	}
	return "ffmpeg"
}
