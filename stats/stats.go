// Package stats summarises a library without touching it.
package stats

import (
	"context"
	"fmt"
	"maps"
	"os"
	"runtime"
	"slices"
	"sync"

	"go.senan.xyz/natcmp"
	"golang.org/x/sync/errgroup"

	"go.senan.xyz/sortify/genre"
	"go.senan.xyz/sortify/metadata"
	"go.senan.xyz/sortify/sortpath"
)

// TagResolver reads stored tags without analysing audio.
type TagResolver interface {
	ResolveTags(path string) metadata.Metadata
}

type Stats struct {
	Files       int
	Genres      map[string]int
	Artists     map[string]int
	TempoRanges map[string]int
	TotalBytes  int64
}

type Options struct {
	Aliases   genre.Aliases
	ZeroTempo sortpath.ZeroTempo
}

// Aggregate counts files per normalised genre, per artist, and per tempo bucket for files
// with a tagged tempo, and sums their sizes. Files which vanished are ignored.
func Aggregate(ctx context.Context, r TagResolver, opts Options, paths []string) (Stats, error) {
	st := Stats{
		Genres:      map[string]int{},
		Artists:     map[string]int{},
		TempoRanges: map[string]int{},
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return nil
			}
			md := r.ResolveTags(path)

			mu.Lock()
			defer mu.Unlock()

			st.Files++
			st.TotalBytes += info.Size()
			st.Genres[opts.Aliases.Normalize(md.Genre)]++
			st.Artists[or(md.Artist, sortpath.UnknownArtist)]++
			if label := sortpath.TempoLabel(md.Tempo, md.HasTempo, opts.ZeroTempo); label != sortpath.UnknownTempo {
				st.TempoRanges[label]++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("aggregate: %w", err)
	}
	return st, nil
}

// Keys returns the keys of counts in natural order, so "90-99 BPM" comes before "120-129 BPM".
func Keys(counts map[string]int) []string {
	return slices.SortedFunc(maps.Keys(counts), natcmp.Compare)
}

// FormatBytes renders n with one decimal in the largest unit that keeps it under 1024.
func FormatBytes(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
