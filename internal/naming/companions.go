package naming

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const referenceSuffix = ".REFERENCE.srt"

// CompanionRename is one planned or performed rename.
type CompanionRename struct {
	From string
	To   string
	Err  error
}

func (r CompanionRename) String() string {
	if r.Err != nil {
		return fmt.Sprintf("ERR: rename %q %q: %v", r.From, r.To, r.Err)
	}
	return fmt.Sprintf("rename %q %q", r.From, r.To)
}

// Renamer renames companion files (subtitles, artwork, sidecar directories)
// under the directory of a converted video.
type Renamer struct {
	DryRun bool
}

// RenameCompanions renames every entry below dir whose name shares oldName's
// base, giving it newName's base and keeping its own extension. Two-part
// extensions such as .en.srt and the .REFERENCE.srt suffix are preserved.
// Names in skip are left alone. Entries are visited deepest first so
// directory renames do not invalidate pending paths.
func (r Renamer) RenameCompanions(dir, oldName, newName string, skip []string) []CompanionRename {
	oldBase := strings.TrimSuffix(oldName, filepath.Ext(oldName))
	newBase := strings.TrimSuffix(newName, filepath.Ext(newName))
	if oldBase == newBase || oldBase == "" {
		return nil
	}

	var entries []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == dir {
			return nil
		}
		entries = append(entries, path)
		return nil
	})
	// Deepest first.
	slices.SortStableFunc(entries, func(a, b string) int {
		return strings.Count(b, string(filepath.Separator)) - strings.Count(a, string(filepath.Separator))
	})

	var ops []CompanionRename
	for _, path := range entries {
		name := filepath.Base(path)
		if slices.Contains(skip, name) {
			continue
		}
		target := companionName(name, oldBase, newBase)
		if target == "" {
			continue
		}
		op := CompanionRename{From: path, To: filepath.Join(filepath.Dir(path), target)}
		if !r.DryRun {
			op.Err = os.Rename(op.From, op.To)
		}
		ops = append(ops, op)
	}
	return ops
}

func companionName(name, oldBase, newBase string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	ext2 := filepath.Ext(stem)
	stem2 := strings.TrimSuffix(stem, ext2)

	switch {
	case name == oldBase:
		return newBase
	case strings.HasSuffix(strings.ToLower(name), strings.ToLower(referenceSuffix)) &&
		name[:len(name)-len(referenceSuffix)] == oldBase:
		return newBase + referenceSuffix
	case stem2 == oldBase && ext2 != "":
		return newBase + ext2 + ext
	case stem == oldBase:
		return newBase + ext
	}
	return ""
}
