package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"go.senan.xyz/sortify/fileutil"
	"go.senan.xyz/sortify/tags"
)

var tg = tags.Store{}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage:\n")
		fmt.Fprintf(os.Stderr, "  $ %s read  [TAG]...   -- [PATH]...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  $ %s write bpm VALUE -- [PATH]...\n", os.Args[0])
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "example:\n")
		fmt.Fprintf(os.Stderr, "  $ %s read -- a.mp3 b.flac c.aiff\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  $ %s read artist genre -- dir/\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  $ %s write bpm 174 -- dir/*.mp3\n", os.Args[0])
	}
	flag.Parse()

	command := flag.Arg(0)

	switch command {
	case "read", "write":
	default:
		flag.Usage()
		os.Exit(1)
	}

	argPaths := flag.Args()[1:]

	var args, paths []string
	if i := slices.Index(argPaths, "--"); i >= 0 {
		args = argPaths[:i]
		paths = argPaths[i+1:]
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "no paths provided\n")
		fmt.Fprintln(os.Stderr)
		flag.Usage()
		os.Exit(1)
	}

	var err error
	switch command {
	case "read":
		keys := parseTags(args)
		err = iterFiles(paths, func(p string) error {
			return read(p, keys)
		})
	case "write":
		var tempo float64
		tempo, err = parseTempoArgs(args)
		if err != nil {
			break
		}
		err = iterFiles(paths, func(p string) error {
			return write(p, tempo)
		})
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func read(path string, keys map[string]struct{}) error {
	f, err := tg.Read(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var bpm string
	if f.HasTempo {
		bpm = tags.FormatTempo(f.Tempo)
	}
	for _, kv := range [][2]string{
		{"artist", f.Artist},
		{"genre", f.Genre},
		{"bpm", bpm},
	} {
		if len(keys) > 0 {
			if _, ok := keys[kv[0]]; !ok {
				continue
			}
		}
		if kv[1] == "" {
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", path, kv[0], kv[1])
	}
	return nil
}

func write(path string, tempo float64) error {
	if err := tg.WriteTempo(path, tempo); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func parseTags(args []string) map[string]struct{} {
	var keys = map[string]struct{}{}
	for _, k := range args {
		keys[k] = struct{}{}
	}
	return keys
}

func parseTempoArgs(args []string) (float64, error) {
	if len(args) != 2 || args[0] != "bpm" {
		return 0, fmt.Errorf("only \"bpm VALUE\" can be written")
	}
	tempo, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse bpm: %w", err)
	}
	if math.IsNaN(tempo) || tempo < 0 || tempo > tags.MaxTempo {
		return 0, fmt.Errorf("bpm %v out of range 0-%d", tempo, tags.MaxTempo)
	}
	return tempo, nil
}

func iterFiles(paths []string, f func(p string) error) error {
	var pathErrs []error
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}

		switch info.Mode().Type() {
		// recurse if dir, only audio files
		case os.ModeDir:
			err := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.Type().IsRegular() || !fileutil.IsAudio(path) {
					return nil
				}
				if err := f(path); err != nil {
					pathErrs = append(pathErrs, err)
					return nil
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("walk: %w", err)
			}
		// otherwise try directly, bubble errors
		default:
			if err := f(p); err != nil {
				pathErrs = append(pathErrs, err)
				continue
			}
		}
	}
	return errors.Join(pathErrs...)
}
