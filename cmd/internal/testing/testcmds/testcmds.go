package testcmds

import (
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"

	"go.senan.xyz/sortify/tags"
)

// Tag writes or checks mp3 tags, eg "tag write 'dir/*.mp3' artist Burial , genre dubstep".
func Tag() {
	flag.Parse()

	op := flag.Arg(0)
	switch op {
	case "write", "check":
	default:
		log.Fatalf("bad op %s", op)
	}

	pat := flag.Arg(1)
	paths := parsePattern(pat)
	if len(paths) == 0 {
		log.Fatalf("no paths to match pattern")
	}

	pairs := parseTagMap(flag.Args()[2:])

	var exit int
	for _, p := range paths {
		switch op {
		case "write":
			if err := writeMP3(p, pairs); err != nil {
				log.Fatalf("write tags: %v", err)
			}
		case "check":
			f, err := tags.Store{}.Read(p)
			if err != nil {
				log.Fatalf("read tags: %v", err)
			}
			got := map[string]string{
				"artist": f.Artist,
				"genre":  f.Genre,
				"bpm":    "",
			}
			if f.HasTempo {
				got["bpm"] = tags.FormatTempo(f.Tempo)
			}
			for t, v := range pairs {
				if got[t] != v {
					log.Printf("%s %s exp %q got %q", p, t, v, got[t])
					exit = 1
				}
			}
		}
	}

	os.Exit(exit)
}

func writeMP3(path string, pairs map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("make parents: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("create file: %w", err)
		}
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	for t, v := range pairs {
		switch t {
		case "artist":
			tag.SetArtist(v)
		case "genre":
			tag.SetGenre(v)
		case "bpm":
			tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
				Encoding:    id3v2.EncodingUTF8,
				Description: tags.TempoDesc,
				Value:       v,
			})
		default:
			return fmt.Errorf("unknown tag %q", t)
		}
	}
	return tag.Save()
}

func Find() {
	maxDepth := flag.Int("max-depth", -1, "")
	flag.Parse()

	paths := flag.Args()
	sort.Strings(paths)

	for _, p := range paths {
		err := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			path = filepath.Clean(path)
			if *maxDepth != -1 && strings.Count(path, string(filepath.Separator)) > *maxDepth {
				return nil
			}
			fmt.Println(path)
			return nil
		})
		if err != nil {
			log.Fatal(err)
		}
	}
}

func Touch() {
	flag.Parse()

	for _, p := range flag.Args() {
		if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
			log.Fatalf("mkdirall: %v", err)
		}
		if _, err := os.Create(p); err != nil {
			log.Fatalf("err creating: %v", err)
		}
	}
}

func Rand() {
	flag.Parse()

	path, sizeStr := flag.Arg(0), flag.Arg(1)
	if path == "" || sizeStr == "" {
		log.Fatalf("bad args")
	}

	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("error creating: %v", err)
	}
	defer f.Close()

	size, _ := strconv.Atoi(sizeStr)
	_, _ = io.Copy(f, io.LimitReader(rand.Reader, int64(size)))
}

func parsePattern(pat string) []string {
	// assume the file exists if the pattern doesn't look like a glob
	if !strings.ContainsAny(pat, "*?[") {
		return []string{pat}
	}
	paths, _ := filepath.Glob(pat)
	return paths
}

// parseTagMap reads "k v , k v" pairs. Values with spaces need quoting.
func parseTagMap(args []string) map[string]string {
	r := make(map[string]string)
	var k string
	for _, v := range args {
		if v == "," {
			k = ""
			continue
		}
		if k == "" {
			k = v
			r[k] = ""
			continue
		}
		r[k] = strings.TrimSpace(r[k] + " " + v)
	}
	return r
}
