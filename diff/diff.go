// Package diff shows where a file is going compared with where it is.
package diff

import (
	"path/filepath"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var dmp = diffmatchpatch.New()

type Diff struct {
	Before, After string
	Changes       []diffmatchpatch.Diff
}

// Paths diffs src against dest, both made relative to root where possible.
func Paths(root, src, dest string) Diff {
	before, after := rel(root, src), rel(root, dest)
	return Diff{
		Before:  before,
		After:   after,
		Changes: dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false)),
	}
}

// Distance is the number of runes inserted, deleted, or substituted.
func (d Diff) Distance() int {
	return dmp.DiffLevenshtein(d.Changes)
}

// Pretty renders the changes with terminal colours.
func (d Diff) Pretty() string {
	if d := dmp.DiffPrettyText(d.Changes); d != "" {
		return d
	}
	return "[empty]"
}

func rel(root, path string) string {
	if path == "" {
		return ""
	}
	if r, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}
