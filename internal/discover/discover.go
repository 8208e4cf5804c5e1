// Package discover expands command-line arguments into candidate video paths.
package discover

import (
	"bufio"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".mkv": {}, ".avi": {}, ".webm": {}, ".flv": {},
	".wmv": {}, ".mpg": {}, ".mpeg": {}, ".3gp": {}, ".m4v": {}, ".ts": {},
	".ogg": {}, ".ogv": {},
}

var skipPrefixes = []string{"TEMP.", "ORIG."}

// IsVideo reports whether name has a known video extension and is not a
// work file left by a conversion.
func IsVideo(name string) bool {
	base := filepath.Base(name)
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(base, prefix) {
			return false
		}
	}
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(base))]
	return ok
}

// Paths resolves args to absolute candidate paths. Directories are walked
// recursively and grouped in case-insensitive order; explicit files follow
// the directory groups. An argument of "-" reads one path per line from
// stdin. Duplicates are dropped, first occurrence wins.
func Paths(args []string, stdin io.Reader) ([]string, error) {
	var raw []string
	for _, arg := range args {
		if arg == "-" && stdin != nil {
			scanner := bufio.NewScanner(stdin)
			for scanner.Scan() {
				if line := strings.TrimSpace(scanner.Text()); line != "" {
					raw = append(raw, line)
				}
			}
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			continue
		}
		raw = append(raw, arg)
	}

	seen := make(map[string]struct{})
	var dirs, files []string
	for _, p := range raw {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil {
			continue
		}
		if info.IsDir() {
			dirs = append(dirs, abs)
		} else {
			files = append(files, abs)
		}
	}
	sortFold(dirs)
	sortFold(files)

	var out []string
	walked := make(map[string]struct{})
	for _, dir := range dirs {
		found, err := walk(dir)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if _, ok := walked[p]; ok {
				continue
			}
			walked[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, p := range files {
		if _, ok := walked[p]; ok {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// walk lists videos below root, visiting entries in case-insensitive order.
func walk(root string) ([]string, error) {
	var out []string
	var visit func(dir string) error
	visit = func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
		})
		var subdirs []string
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				subdirs = append(subdirs, path)
				continue
			}
			if entry.Type()&fs.ModeType == 0 && IsVideo(entry.Name()) {
				out = append(out, path)
			}
		}
		for _, sub := range subdirs {
			if err := visit(sub); err != nil && !os.IsPermission(err) {
				return err
			}
		}
		return nil
	}
	return out, visit(root)
}

func sortFold(list []string) {
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i]) < strings.ToLower(list[j])
	})
}
