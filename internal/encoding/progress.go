package encoding

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// progressPattern matches ffmpeg status lines. Time and speed are optional;
// without them progress is estimated from the frame count.
var progressPattern = regexp.MustCompile(`(?i)\s*frame[=\s]+(\d+)\s+(?:.*?time[=\s]+(\d{2}):(\d{2}):(\d{2})\.(\d{2}))?(?:.*?speed[=\s]+(\d+\.\d+)x)?`)

// roughWarmup is how long frame-count estimates wait before reporting.
const roughWarmup = 5 * time.Second

// Progress is one snapshot of a running encode.
type Progress struct {
	Path string
	// Fraction is in [0,1], or negative when unknown.
	Fraction  float64
	Elapsed   time.Duration
	ETA       time.Duration
	Speed     float64
	Position  time.Duration
	Duration  time.Duration
	Frame     int
	Estimated bool
}

// Percent returns Fraction as a percentage, or -1 when unknown.
func (p Progress) Percent() float64 {
	if p.Fraction < 0 {
		return -1
	}
	return p.Fraction * 100
}

func (p Progress) String() string {
	if p.Fraction < 0 {
		return fmt.Sprintf("Frame %d: MAKING PROGRESS...", p.Frame)
	}
	approx := ""
	if p.Estimated {
		approx = "~"
	}
	eta := formatETA(p.ETA)
	if eta == "" {
		eta = "N/A"
	}
	return fmt.Sprintf("%.1f%% | %s | -%s | %s%.1fx | At %s%s/%s",
		p.Percent(), formatClock(p.Elapsed), eta, approx, p.Speed,
		approx, formatClock(p.Position), formatClock(p.Duration))
}

type progressParser struct {
	duration time.Duration
	fps      float64
}

// parse converts one stderr line into a Progress snapshot. elapsed is the
// wall time since the encoder started.
func (p progressParser) parse(line string, elapsed time.Duration) (Progress, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	frame, _ := strconv.Atoi(m[1])
	out := Progress{Elapsed: elapsed, Duration: p.duration, Frame: frame, Fraction: -1}

	if m[2] != "" && m[6] != "" {
		h, _ := strconv.Atoi(m[2])
		mins, _ := strconv.Atoi(m[3])
		s, _ := strconv.Atoi(m[4])
		cs, _ := strconv.Atoi(m[5])
		speed, _ := strconv.ParseFloat(m[6], 64)
		out.Position = time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute +
			time.Duration(s)*time.Second + time.Duration(cs)*10*time.Millisecond
		out.Speed = speed
		if p.duration > 0 {
			out.Fraction = math.Min(1, out.Position.Seconds()/p.duration.Seconds())
			if speed > 0 && out.Position < p.duration {
				out.ETA = time.Duration(float64(p.duration-out.Position) / speed)
			}
		} else {
			out.Fraction = 0
		}
		return out, true
	}
	return p.estimate(out), true
}

// estimate derives progress from the frame count alone.
func (p progressParser) estimate(out Progress) Progress {
	out.Estimated = true
	total := int(math.Round(p.fps * p.duration.Seconds()))
	if out.Elapsed < roughWarmup || total == 0 || out.Frame == 0 {
		return out
	}
	elapsed := out.Elapsed.Seconds()
	estimatedTotal := elapsed / float64(out.Frame) * float64(total)
	out.ETA = time.Duration((estimatedTotal - elapsed) * float64(time.Second))
	if out.ETA < 0 {
		out.ETA = 0
	}
	if p.fps > 0 {
		out.Speed = float64(out.Frame) / elapsed / p.fps
	}
	out.Fraction = math.Min(1, float64(out.Frame)/float64(total))
	out.Position = time.Duration(out.Fraction * float64(p.duration))
	return out
}

// lineSplitter splits a byte stream on \r or \n, holding back an incomplete
// trailing fragment until more data arrives.
type lineSplitter struct {
	partial []byte
}

func (s *lineSplitter) feed(chunk []byte) []string {
	var lines []string
	data := append(s.partial, chunk...)
	start := 0
	for i, b := range data {
		if b != '\r' && b != '\n' {
			continue
		}
		if i > start {
			lines = append(lines, string(data[start:i]))
		}
		start = i + 1
	}
	s.partial = append([]byte(nil), data[start:]...)
	return lines
}

// flush returns whatever fragment remains at end of stream.
func (s *lineSplitter) flush() string {
	rest := strings.TrimSpace(string(s.partial))
	s.partial = nil
	return rest
}

func formatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, "")
}

// formatClock renders H:MM:SS, dropping a zero hour.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h == 0 {
		return fmt.Sprintf("%d:%02d", m, s)
	}
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// clockSpec renders HH:MM:SS for ffmpeg -ss.
func clockSpec(d time.Duration) string {
	total := int(math.Round(d.Seconds()))
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
