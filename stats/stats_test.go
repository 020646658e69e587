package stats_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.senan.xyz/sortify/genre"
	"go.senan.xyz/sortify/metadata"
	"go.senan.xyz/sortify/stats"
)

func TestAggregateEmpty(t *testing.T) {
	t.Parallel()

	st, err := stats.Aggregate(context.Background(), fakeResolver{}, stats.Options{Aliases: genre.Default()}, nil)
	require.NoError(t, err)
	assert.Zero(t, st.Files)
	assert.Empty(t, st.Genres)
	assert.Empty(t, st.Artists)
	assert.Empty(t, st.TempoRanges)
	assert.Equal(t, "0.0 B", stats.FormatBytes(st.TotalBytes))
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := write(t, dir, "a.mp3", 100)
	b := write(t, dir, "b.mp3", 200)
	c := write(t, dir, "c.wav", 300)
	d := write(t, dir, "d.flac", 400)
	gone := filepath.Join(dir, "gone.mp3")

	r := fakeResolver{
		a: {Artist: "Daft Punk", Genre: "electro", Tempo: 121.3, HasTempo: true},
		b: {Artist: "Daft Punk", Genre: "Electronic", Tempo: 0, HasTempo: true},
		c: {},
		d: {Err: assert.AnError},
	}

	st, err := stats.Aggregate(context.Background(), r, stats.Options{Aliases: genre.Default()}, []string{a, b, c, d, gone})
	require.NoError(t, err)

	assert.Equal(t, 4, st.Files)
	assert.Equal(t, int64(1000), st.TotalBytes)
	assert.Equal(t, map[string]int{"Electronic": 2, "Unknown Genre": 2}, st.Genres)
	assert.Equal(t, map[string]int{"Daft Punk": 2, "Unknown Artist": 2}, st.Artists)
	assert.Equal(t, map[string]int{"120-129 BPM": 1}, st.TempoRanges) // zero tempo is unknown by default
}

func TestAggregateCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stats.Aggregate(ctx, fakeResolver{}, stats.Options{}, []string{write(t, dir, "a.mp3", 1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeys(t *testing.T) {
	t.Parallel()

	counts := map[string]int{"120-129 BPM": 1, "90-99 BPM": 1, "170-179 BPM": 1, "0-9 BPM": 1}
	assert.Equal(t, []string{"0-9 BPM", "90-99 BPM", "120-129 BPM", "170-179 BPM"}, stats.Keys(counts))
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0.0 B", stats.FormatBytes(0))
	assert.Equal(t, "1023.0 B", stats.FormatBytes(1023))
	assert.Equal(t, "1.0 KB", stats.FormatBytes(1024))
	assert.Equal(t, "1.5 KB", stats.FormatBytes(1536))
	assert.Equal(t, "3.2 MB", stats.FormatBytes(3355443))
	assert.Equal(t, "1.0 GB", stats.FormatBytes(1<<30))
	assert.Equal(t, "2.0 TB", stats.FormatBytes(2<<40))
	assert.Equal(t, "2048.0 TB", stats.FormatBytes(2<<50))
}

type fakeResolver map[string]metadata.Metadata

func (f fakeResolver) ResolveTags(path string) metadata.Metadata {
	md := f[path]
	md.Path = path
	md.Filename = filepath.Base(path)
	return md
}

func write(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0o644))
	return p
}
