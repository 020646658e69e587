package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
)

var ErrDestExists = errors.New("destination already exists")

// IsAudio reports whether the path has one of the container extensions we sort.
func IsAudio(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav", ".flac", ".aiff":
		return true
	}
	return false
}

// Scan recursively lists audio files under root in lexical walk order. Subdirectories
// which can't be read are skipped. root may be a symlink to a directory; returned paths
// are still under root as given.
func Scan(root string) ([]string, error) {
	walkRoot, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == walkRoot {
				return err
			}
			slog.Debug("skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsAudio(path) {
			return nil
		}
		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			return fmt.Errorf("rel path: %w", err)
		}
		paths = append(paths, filepath.Join(root, rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return paths, nil
}

// resolveRoot follows root if it's a symlink, since WalkDir won't descend into one.
func resolveRoot(root string) (string, error) {
	if _, err := os.Stat(root); err != nil {
		return "", fmt.Errorf("stat root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	return resolved, nil
}

// Reap removes empty directories under root, children before parents, so a single
// call settles the whole tree. root itself is never removed.
func Reap(root string) (int, error) {
	root, err := resolveRoot(root)
	if err != nil {
		return 0, err
	}

	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk: %w", err)
	}

	// WalkDir visits parents first
	slices.Reverse(dirs)

	var removed int
	var errs []error
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("read dir: %w", err))
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			errs = append(errs, fmt.Errorf("remove dir: %w", err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Move renames src to dest, copying across filesystems when it has to. It won't
// replace a file which is already at dest.
func Move(src, dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("%w: %q", ErrDestExists, dest)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat dest: %w", err)
	}

	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("rename: %w", err)
	}
	if err := copyFile(src, dest); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("copy across devices: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove src: %w", err)
	}
	return nil
}

func copyFile(src, dest string) (err error) {
	srcf, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open src: %w", err)
	}
	defer srcf.Close()

	info, err := srcf.Stat()
	if err != nil {
		return fmt.Errorf("stat src: %w", err)
	}

	destf, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode())
	if err != nil {
		return fmt.Errorf("open dest: %w", err)
	}
	defer func() {
		err = errors.Join(err, destf.Close())
	}()

	if _, err := io.Copy(destf, srcf); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename replaces each character that some filesystems reject with an underscore.
// The result has the same number of runes as the input.
func SanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}

// SafeSegment makes s usable as exactly one path element.
func SafeSegment(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = SanitizeFilename(s)
	s = strings.Join(strings.Fields(s), " ")
	switch s {
	case "", ".", "..":
		return "_"
	}
	return s
}
