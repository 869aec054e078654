package scanner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"imagededup/imageprocessor"
)

// DefaultExtensions is the extension filter used when none is given.
var DefaultExtensions = []string{".jpg"}

// FindImages walks root recursively and returns the files whose extension
// matches exts, case-insensitively, sorted. The directory skipDir is not
// descended into. Entries that cannot be read are passed to onError and
// skipped; only a failure on root itself is returned.
func FindImages(root string, exts []string, skipDir string, onError func(path string, err error)) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	wanted := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		wanted[imageprocessor.NormalizeExtension(e)] = struct{}{}
	}
	if skipDir != "" {
		skipDir = filepath.Clean(skipDir)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if onError != nil {
				onError(path, err)
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skipDir != "" && path != root && filepath.Clean(path) == skipDir {
				return fs.SkipDir
			}
			return nil
		}
		if _, ok := wanted[strings.ToLower(filepath.Ext(path))]; ok {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// Move is one relocated file.
type Move struct {
	From string
	To   string
}

// MoveStats summarises MoveDuplicates.
type MoveStats struct {
	Moved   []Move
	Missing []string
	Failed  []error
}

// MoveDuplicates moves each path into dest, keeping its base name. Missing
// sources are skipped and recorded. A name already taken in dest gets a
// numeric suffix. With dryRun nothing on disk changes.
func MoveDuplicates(dest string, paths []string, dryRun bool) (MoveStats, error) {
	var stats MoveStats
	if !dryRun {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return stats, fmt.Errorf("cannot create %s: %w", dest, err)
		}
	}

	taken := make(map[string]struct{})
	for _, src := range paths {
		if _, err := os.Stat(src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				stats.Missing = append(stats.Missing, src)
				continue
			}
			stats.Failed = append(stats.Failed, err)
			continue
		}

		target := freeName(dest, filepath.Base(src), taken)
		taken[target] = struct{}{}
		if !dryRun {
			if err := moveFile(src, target); err != nil {
				stats.Failed = append(stats.Failed, fmt.Errorf("cannot move %s: %w", src, err))
				continue
			}
		}
		stats.Moved = append(stats.Moved, Move{From: src, To: target})
	}
	return stats, nil
}

// freeName returns dest/name, or dest/stem_N.ext for the first N that is
// neither on disk nor already handed out.
func freeName(dest, name string, taken map[string]struct{}) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := filepath.Join(dest, name)
	for i := 1; ; i++ {
		_, used := taken[candidate]
		if _, err := os.Lstat(candidate); !used && errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
		candidate = filepath.Join(dest, stem+"_"+strconv.Itoa(i)+ext)
	}
}

func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	// Different filesystems.
	if err := copyFile(src, dst); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
