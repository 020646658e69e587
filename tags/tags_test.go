package tags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMP3(t *testing.T) {
	t.Parallel()

	path := newMP3(t, func(tag *id3v2.Tag) {
		tag.SetArtist("Daft Punk")
		tag.SetGenre("electro")
	})

	f, err := Store{}.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "Daft Punk", f.Artist)
	assert.Equal(t, "electro", f.Genre)
	assert.False(t, f.HasTempo)
}

func TestWriteTempoRoundTrip(t *testing.T) {
	t.Parallel()

	path := newMP3(t, func(tag *id3v2.Tag) {
		tag.SetArtist("Luke Vibert")
	})

	var st Store
	require.NoError(t, st.WriteTempo(path, 128.4))
	require.NoError(t, st.WriteTempo(path, 128.45)) // replaces, doesn't append

	f, err := st.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "Luke Vibert", f.Artist)
	assert.True(t, f.HasTempo)
	assert.Equal(t, 128.45, f.Tempo)
}

func TestReadTBPMFallback(t *testing.T) {
	t.Parallel()

	path := newMP3(t, func(tag *id3v2.Tag) {
		tag.AddTextFrame("TBPM", id3v2.EncodingUTF8, "174")
	})

	f, err := Store{}.Read(path)
	require.NoError(t, err)
	assert.True(t, f.HasTempo)
	assert.Equal(t, 174.0, f.Tempo)
}

func TestWAVHasNoTags(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "b.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))

	f, err := Store{}.Read(path)
	require.NoError(t, err)
	assert.Equal(t, Fields{}, f)

	assert.ErrorIs(t, Store{}.WriteTempo(path, 120), ErrUnsupported)
}

func TestReadBrokenFLAC(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.flac")
	require.NoError(t, os.WriteFile(path, []byte("definitely not flac"), 0o644))

	_, err := Store{}.Read(path)
	assert.Error(t, err)
	assert.ErrorIs(t, Store{}.WriteTempo(path, 120), ErrUnsupported)
}

func TestReadUnsupported(t *testing.T) {
	t.Parallel()

	_, err := Store{}.Read("/music/a.ogg")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestParseTempo(t *testing.T) {
	t.Parallel()

	for in, exp := range map[string]float64{"128": 128, " 128.4 ": 128.4, "0": 0, "1000": 1000} {
		v, ok := parseTempo(in)
		assert.True(t, ok, in)
		assert.Equal(t, exp, v, in)
	}
	for _, in := range []string{"", "fast", "-3", "NaN", "+Inf", "1e300", "1000.5"} {
		_, ok := parseTempo(in)
		assert.False(t, ok, in)
	}
	assert.Equal(t, "128.4", FormatTempo(128.4))
	assert.Equal(t, "120", FormatTempo(120))
}

func TestReadNotMP3(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.mp3")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not audio at all"), 0o644))
	empty := filepath.Join(dir, "empty.mp3")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	for _, path := range []string{garbage, empty} {
		_, err := Store{}.Read(path)
		assert.ErrorIs(t, err, ErrNotMP3, path)
		assert.ErrorIs(t, Store{}.WriteTempo(path, 120), ErrNotMP3, path)
	}

	// untagged, but starts with an mpeg frame
	bare := filepath.Join(dir, "bare.mp3")
	frame := append([]byte{0xFF, 0xFB, 0x90, 0x00}, make([]byte, 413)...)
	require.NoError(t, os.WriteFile(bare, frame, 0o644))
	f, err := Store{}.Read(bare)
	require.NoError(t, err)
	assert.Equal(t, Fields{}, f)
}

func newMP3(t *testing.T, fn func(*id3v2.Tag)) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	fn(tag)
	require.NoError(t, tag.Save())
	require.NoError(t, tag.Close())
	return path
}
