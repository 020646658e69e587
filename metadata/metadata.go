// Package metadata merges what the tag store knows about a track with on-demand audio
// analysis.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"go.senan.xyz/sortify/tags"
)

var (
	ErrInvalidTempo = errors.New("invalid tempo")
	ErrNoAnalyzer   = errors.New("no analyzer")
)

type TagStore interface {
	Read(path string) (tags.Fields, error)
	WriteTempo(path string, tempo float64) error
}

// Analyzer estimates musical properties from the audio itself. Calls can be slow.
type Analyzer interface {
	Tempo(ctx context.Context, path string) (float64, error)
	Key(ctx context.Context, path string) (string, error)
}

// Metadata is everything one classification pass knows about a file. Empty strings and
// HasTempo == false mean the value is absent, which is different from Err being set.
type Metadata struct {
	Filename string
	Path     string

	Artist   string
	Genre    string
	Tempo    float64
	HasTempo bool
	Key      string

	Err error
}

// Needs says which analysis results are wanted.
type Needs struct {
	Tempo bool
	Key   bool
}

type Resolver struct {
	Tags     TagStore
	Analyzer Analyzer
}

// ResolveTags reads stored tags only. It never analyses audio.
func (r *Resolver) ResolveTags(path string) Metadata {
	md := Metadata{
		Filename: filepath.Base(path),
		Path:     path,
	}
	f, err := r.Tags.Read(path)
	if err != nil {
		md.Err = fmt.Errorf("read tags: %w", err)
		return md
	}
	md.Artist = f.Artist
	md.Genre = f.Genre
	md.Tempo, md.HasTempo = f.Tempo, f.HasTempo
	return md
}

// Resolve reads stored tags then fills in tempo and key from analysis as needs asks. Tempo
// is only analysed when it isn't tagged already, and is written back for next time. Key is
// analysed every time. Analysis failures leave the field absent.
func (r *Resolver) Resolve(ctx context.Context, path string, needs Needs) Metadata {
	md := r.ResolveTags(path)
	if md.Err != nil {
		return md
	}

	if needs.Tempo && !md.HasTempo {
		tempo, err := r.analyzeTempo(ctx, path)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "analysing tempo", "path", path, "err", err)
		default:
			md.Tempo, md.HasTempo = tempo, true
			if err := r.Tags.WriteTempo(path, tempo); err != nil && !errors.Is(err, tags.ErrUnsupported) {
				slog.WarnContext(ctx, "writing tempo tag", "path", path, "err", err)
			}
		}
	}

	if needs.Key {
		key, err := r.analyzeKey(ctx, path)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "analysing key", "path", path, "err", err)
		default:
			md.Key = key
		}
	}

	return md
}

func (r *Resolver) analyzeTempo(ctx context.Context, path string) (float64, error) {
	if r.Analyzer == nil {
		return 0, ErrNoAnalyzer
	}
	tempo, err := r.Analyzer.Tempo(ctx, path)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(tempo) || math.IsInf(tempo, 0) || tempo < 0 || tempo > tags.MaxTempo {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTempo, tempo)
	}
	return math.Round(tempo*100) / 100, nil
}

func (r *Resolver) analyzeKey(ctx context.Context, path string) (string, error) {
	if r.Analyzer == nil {
		return "", ErrNoAnalyzer
	}
	return r.Analyzer.Key(ctx, path)
}
