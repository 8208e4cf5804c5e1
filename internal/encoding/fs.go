package encoding

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"rmbloat/internal/logging"
	"rmbloat/internal/services"
)

type fileTimes struct {
	atime time.Time
	mtime time.Time
}

func statTimes(path string) (fileTimes, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileTimes{}, err
	}
	return fileTimes{
		atime: time.Unix(st.Atim.Unix()),
		mtime: time.Unix(st.Mtim.Unix()),
	}, nil
}

// replaceOriginal swaps the encoded output in for the source. The original
// is kept as ORIG.<name> or recycled, the output takes the standard name,
// companions are renamed when the name changed, and the original timestamps
// are applied to the result. It returns the operations performed, prefixed
// with WOULD in dry-run mode.
func (r *Runner) replaceOriginal(p Plan) ([]string, error) {
	would := ""
	if r.opts.DryRun {
		would = "WOULD "
	}
	var ops []string

	if p.Final != p.Source {
		if _, err := os.Lstat(p.Final); err == nil {
			return nil, services.Wrap(services.ErrConvertFailure, "encoding", "replace original",
				fmt.Sprintf("target %s already exists", p.Final), nil)
		}
	}

	var times fileTimes
	if !r.opts.DryRun {
		var err error
		if times, err = statTimes(p.Source); err != nil {
			return nil, services.Wrap(services.ErrSourceVanished, "encoding", "replace original", "stat source", err)
		}
	}

	trashed := ""
	if r.opts.KeepBackup {
		if !r.opts.DryRun {
			if err := os.Rename(p.Source, p.Backup); err != nil {
				return ops, services.Wrap(services.ErrConvertFailure, "encoding", "backup original", "", err)
			}
		}
		ops = append(ops, fmt.Sprintf("%srename %q %q", would, p.Source, p.Backup))
	} else {
		if !r.opts.DryRun {
			dest, err := r.recycler.Put(p.Source)
			if err != nil {
				return ops, services.Wrap(services.ErrConvertFailure, "encoding", "recycle original", "", err)
			}
			trashed = dest
		}
		ops = append(ops, fmt.Sprintf("%strash %q", would, p.Source))
	}

	if !r.opts.DryRun {
		if err := os.Rename(p.Output, p.Final); err != nil {
			restoreErr := r.restore(p, trashed)
			return ops, services.Wrap(services.ErrConvertFailure, "encoding", "install output",
				"manual cleanup may be required", errors.Join(err, restoreErr))
		}
	}
	ops = append(ops, fmt.Sprintf("%srename %q %q", would, p.Output, p.Final))

	if p.Rename {
		for _, op := range r.renamer.RenameCompanions(p.Dir, p.Base, p.StandardName, []string{filepath.Base(p.Final), p.Base}) {
			if op.Err != nil {
				logging.WarnWithContext(r.logger, "companion rename failed", "companion_rename_failed",
					logging.String("from", op.From),
					logging.String("to", op.To),
					logging.Error(op.Err),
					logging.String(logging.FieldErrorHint, "rename the companion file by hand"),
					logging.String(logging.FieldImpact, "companion keeps its old name"),
				)
			}
			ops = append(ops, would+op.String())
		}
	}

	if !r.opts.DryRun {
		if err := os.Chtimes(p.Final, times.atime, times.mtime); err != nil {
			r.logger.Debug("timestamp preservation failed", logging.String("path", p.Final), logging.Error(err))
		}
	}
	return ops, nil
}

// restore puts the original back after a failed install.
func (r *Runner) restore(p Plan, trashed string) error {
	switch {
	case r.opts.KeepBackup:
		return os.Rename(p.Backup, p.Source)
	case trashed != "":
		return os.Rename(trashed, p.Source)
	}
	return nil
}

func removeIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
