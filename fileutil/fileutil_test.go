package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/sortify/fileutil"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello.mp3", fileutil.SanitizeFilename("hello.mp3"))
	assert.Equal(t, "a_b_c_d_e_f_g_h_i_j.mp3", fileutil.SanitizeFilename(`a\b/c:d*e?f"g<h>i|j.mp3`))
	assert.Equal(t, "Rähinä_ I.flac", fileutil.SanitizeFilename("Rähinä: I.flac"))

	for _, in := range []string{`\\//::`, `what?.wav`, `<<|>>`, `ok`, `ünï*cöde`} {
		out := fileutil.SanitizeFilename(in)
		assert.NotContains(t, out, `\`)
		assert.NotContains(t, out, "/")
		assert.NotContains(t, out, ":")
		assert.NotContains(t, out, "*")
		assert.NotContains(t, out, "?")
		assert.NotContains(t, out, `"`)
		assert.NotContains(t, out, "<")
		assert.NotContains(t, out, ">")
		assert.NotContains(t, out, "|")
		assert.Equal(t, utf8.RuneCountInString(in), utf8.RuneCountInString(out))
	}
}

func TestSafeSegment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AC_DC", fileutil.SafeSegment("AC/DC"))
	assert.Equal(t, "a b", fileutil.SafeSegment("  a   b "))
	assert.Equal(t, "hello", fileutil.SafeSegment("hel\x00lo"))
	assert.Equal(t, "_", fileutil.SafeSegment(".."))
	assert.Equal(t, "_", fileutil.SafeSegment("."))
	assert.Equal(t, "_", fileutil.SafeSegment("   "))
}

func TestScan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a.mp3", "b.WAV", "notes.txt", "x/c.flac", "x/y/d.aiff", "x/y/e.ogg", "cover.jpg")

	paths, err := fileutil.Scan(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a.mp3"),
		filepath.Join(root, "b.WAV"),
		filepath.Join(root, "x", "c.flac"),
		filepath.Join(root, "x", "y", "d.aiff"),
	}, paths)
}

func TestScanSymlinkedRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	touch(t, target, "a.mp3", "x/b.flac")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "empty", "dir"), os.ModePerm))

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	paths, err := fileutil.Scan(link)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(link, "a.mp3"),
		filepath.Join(link, "x", "b.flac"),
	}, paths)

	n, err := fileutil.Reap(link)
	require.NoError(t, err)
	assert.Equal(t, 2, n) // empty, empty/dir
	assert.NoDirExists(t, filepath.Join(target, "empty"))
	assert.FileExists(t, filepath.Join(target, "x", "b.flac"))
}

func TestScanEmpty(t *testing.T) {
	t.Parallel()

	paths, err := fileutil.Scan(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, paths)

	_, err = fileutil.Scan(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReap(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), os.ModePerm))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "d", "e"), os.ModePerm))
	touch(t, root, "d/keep.mp3")

	n, err := fileutil.Reap(root)
	require.NoError(t, err)
	assert.Equal(t, 4, n) // a, a/b, a/b/c, d/e

	assert.NoDirExists(t, filepath.Join(root, "a"))
	assert.NoDirExists(t, filepath.Join(root, "d", "e"))
	assert.FileExists(t, filepath.Join(root, "d", "keep.mp3"))
	assert.DirExists(t, root)

	// settled already
	n, err = fileutil.Reap(root)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMove(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a.mp3", "b/a.mp3")

	src := filepath.Join(root, "a.mp3")
	err := fileutil.Move(src, filepath.Join(root, "b", "a.mp3"))
	assert.ErrorIs(t, err, fileutil.ErrDestExists)
	assert.FileExists(t, src)

	dest := filepath.Join(root, "b", "renamed.mp3")
	require.NoError(t, fileutil.Move(src, dest))
	assert.NoFileExists(t, src)
	assert.FileExists(t, dest)
}

func touch(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), os.ModePerm))
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	}
}
