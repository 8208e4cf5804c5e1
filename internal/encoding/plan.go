package encoding

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rmbloat/internal/naming"
	"rmbloat/internal/probe"
	"rmbloat/internal/strategy"
)

const (
	tempPrefix   = "TEMP."
	backupPrefix = "ORIG."
	samplePrefix = "SAMPLE."

	defaultSpace     = "bt709"
	defaultPrimaries = "bt709"
	defaultTransfer  = "709"
)

// Plan is every path and argument a job will touch, computed before anything
// is spawned.
type Plan struct {
	Source           string
	Dir              string
	Base             string
	StandardName     string
	Rename           bool
	Output           string
	Backup           string
	Final            string
	ExternalSubtitle string
	Duration         time.Duration
	Argv             []string
}

func (r *Runner) plan(job Job) Plan {
	dir := filepath.Dir(job.Path)
	base := filepath.Base(job.Path)
	result := job.Probe

	outHeight := result.Height
	scaleWidth := 0
	if r.opts.MaxHeight > 0 && result.Height > r.opts.MaxHeight {
		outHeight = r.opts.MaxHeight
		scaleWidth = r.opts.MaxHeight * result.Width / result.Height
	}

	standard, rename := naming.Standard(job.Path, outHeight, r.opts.Quality)
	external := ""
	if r.opts.MergeSubtitles {
		candidate := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".en.srt")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			external = candidate
			standard = naming.WithSubtitleSuffix(standard)
		}
	}

	p := Plan{
		Source:           job.Path,
		Dir:              dir,
		Base:             base,
		StandardName:     standard,
		Rename:           rename,
		Backup:           filepath.Join(dir, backupPrefix+base),
		Final:            filepath.Join(dir, standard),
		ExternalSubtitle: external,
		Duration:         time.Duration(result.DurationSeconds * float64(time.Second)),
	}

	params := strategy.EncodeParams{
		Input:            job.Path,
		Quality:          r.opts.Quality,
		Preset:           r.opts.Preset,
		ThreadCount:      r.opts.ThreadCount,
		FullSpeed:        r.opts.FullSpeed,
		ScaleWidth:       scaleWidth,
		Color:            colorFor(result),
		DropSubtitles:    result.UnsafeSubtitleIndexes(),
		ExternalSubtitle: external,
	}
	if r.opts.Sample {
		p.Output = filepath.Join(dir, samplePrefix+strconv.Itoa(r.opts.Quality)+"."+standard)
		seconds := r.opts.SampleSeconds
		start := math.Max(120, result.DurationSeconds) * 0.20
		params.PreInput = []string{"-ss", clockSpec(time.Duration(start * float64(time.Second)))}
		params.PostInput = []string{"-t", strconv.Itoa(seconds)}
		p.Duration = time.Duration(seconds) * time.Second
	} else {
		p.Output = filepath.Join(dir, tempPrefix+standard)
	}
	params.Output = p.Output
	p.Argv = job.Strategy.Command(params)
	return p
}

// colorFor fills unknown colour metadata with BT.709.
func colorFor(result probe.Result) strategy.Color {
	space := result.ColorSpace
	if space == "" || space == "unknown" {
		space = defaultSpace
	}
	primaries := result.ColorPrimaries
	if primaries == "" || primaries == "unknown" {
		primaries = defaultPrimaries
	}
	transfer := result.ColorTransfer
	if transfer == "" || transfer == "unknown" || transfer == "bt709" {
		transfer = defaultTransfer
	}
	return strategy.Color{Space: space, Primaries: primaries, Transfer: transfer}
}
