// Package naming derives the standard output name for a converted file and
// propagates renames to companion files that share its base name.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	episodePattern    = regexp.MustCompile(`(?i)^(.*?)[\s._-]*\bS(\d{1,2})[\s._-]?E(\d{1,3})\b`)
	movieYearPattern  = regexp.MustCompile(`^(.+?)[\s._(\[-]+((?:19|20)\d{2})(?:[\s._)\]-]|$)`)
	// Tokens are delimited by any non-alphanumeric rune; \b would treat "_"
	// as part of a word.
	codecPattern      = regexp.MustCompile(`(?i)(?:^|[^[:alnum:]])([xh]\.?264|avc|xvid|divx)(?:[^[:alnum:]]|$)`)
	resolutionPattern = regexp.MustCompile(`(?i)(?:^|[^[:alnum:]])(\d+[pi]|UHD|4K|2K|8K)(?:[^[:alnum:]]|$)`)
	separatorPattern  = regexp.MustCompile(`[\s._]+`)
	dottedPattern     = regexp.MustCompile(`[\s.\-]+`)

	titleCaser = cases.Title(language.English)
)

// Kind reports what a file name was recognised as.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindEpisode
	KindMovie
)

// Parsed holds the metadata recognised in a file name.
type Parsed struct {
	Kind    Kind
	Title   string
	Season  int
	Episode int
	Year    int
}

// Parse recognises TV episode (Title S01E02) and movie-year (Title 2001)
// names. Unrecognised names return KindUnknown.
func Parse(name string) Parsed {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if m := episodePattern.FindStringSubmatch(stem); m != nil {
		title := cleanTitle(m[1])
		if title != "" {
			season, _ := strconv.Atoi(m[2])
			episode, _ := strconv.Atoi(m[3])
			return Parsed{Kind: KindEpisode, Title: title, Season: season, Episode: episode}
		}
	}
	if m := movieYearPattern.FindStringSubmatch(stem); m != nil {
		title := cleanTitle(m[1])
		if title != "" {
			year, _ := strconv.Atoi(m[2])
			return Parsed{Kind: KindMovie, Title: title, Year: year}
		}
	}
	return Parsed{}
}

func cleanTitle(raw string) string {
	title := strings.TrimSpace(separatorPattern.ReplaceAllString(raw, " "))
	title = strings.Trim(title, " -([")
	if title != "" && title == strings.ToLower(title) {
		title = titleCaser.String(title)
	}
	return title
}

// Key renders the identifying part of the name.
func (p Parsed) Key() string {
	switch p.Kind {
	case KindEpisode:
		return fmt.Sprintf("%s S%02dE%02d", p.Title, p.Season, p.Episode)
	case KindMovie:
		return fmt.Sprintf("%s %d", p.Title, p.Year)
	}
	return ""
}

// Standard returns the base name a converted file should carry and whether
// it differs from the current name. Recognised names are rebuilt as
// <Title>.<SxxEyy|Year>.<h>p.x265-cmf<q>.recode.mkv. Other names only get
// codec and resolution tokens corrected in place; a change of container
// extension alone does not count as a rename.
func Standard(path string, height, quality int) (string, bool) {
	base := filepath.Base(path)
	if parsed := Parse(base); parsed.Kind != KindUnknown {
		name := dottedPattern.ReplaceAllString(parsed.Key(), ".")
		name = fmt.Sprintf("%s.%dp.x265-cmf%d.recode.mkv", name, height, quality)
		return name, name != base
	}

	renamed := replaceTokens(codecPattern, base, func(token string) string {
		if token == strings.ToUpper(token) {
			return "X265"
		}
		return "x265"
	})
	target := strconv.Itoa(height) + "p"
	renamed = replaceTokens(resolutionPattern, renamed, func(token string) string {
		if token == strings.ToUpper(token) {
			return strings.ToUpper(target)
		}
		return target
	})
	changed := renamed != base
	return strings.TrimSuffix(renamed, filepath.Ext(renamed)) + ".mkv", changed
}

// replaceTokens rewrites capture group 1 of every match of re. Delimiters
// are left in place and may be shared by adjacent tokens.
func replaceTokens(re *regexp.Regexp, s string, fn func(string) string) string {
	var b strings.Builder
	last := 0
	for pos := 0; pos < len(s); {
		loc := re.FindStringSubmatchIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[2], pos+loc[3]
		b.WriteString(s[last:start])
		b.WriteString(fn(s[start:end]))
		last, pos = end, end
	}
	b.WriteString(s[last:])
	return b.String()
}

// WithSubtitleSuffix marks a standard name as carrying merged subtitles.
func WithSubtitleSuffix(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".sb.mkv"
}
