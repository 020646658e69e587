// Package tags reads the few fields sortify sorts by from each supported container, and
// writes back analysed tempo where the container allows it.
package tags

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/sentriz/audiotags"
)

var (
	ErrUnsupported = errors.New("filetype unsupported")
	ErrNotMP3      = errors.New("no id3 header or mpeg frame sync")
)

// TempoDesc is the description of the TXXX frame tempo is stored in. Serato, Mixxx and
// friends read it alongside TBPM.
const TempoDesc = "BPM"

// MaxTempo is the highest tempo read from a tag. Anything above is treated as unset.
const MaxTempo = 1000

// Fields are the tag values we care about. Empty strings mean the tag wasn't set.
type Fields struct {
	Artist   string
	Genre    string
	Tempo    float64
	HasTempo bool
}

// Store reads and writes tags on disk. The zero value is ready to use.
type Store struct{}

func (Store) Read(path string) (Fields, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return readMP3(path)
	case ".flac":
		return readFLAC(path)
	case ".aiff":
		return readTagLib(path)
	case ".wav":
		return Fields{}, nil
	default:
		return Fields{}, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// WriteTempo stores tempo in the file's tags. Only mp3 files are writable, everything else
// returns ErrUnsupported.
func (Store) WriteTempo(path string, tempo float64) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".mp3" {
		return fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err := sniffMP3(path); err != nil {
		return err
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open mp3: %w", err)
	}
	defer tag.Close()

	tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: TempoDesc,
		Value:       FormatTempo(tempo),
	})
	if err := tag.Save(); err != nil {
		return fmt.Errorf("save mp3: %w", err)
	}
	return nil
}

func readMP3(path string) (Fields, error) {
	if err := sniffMP3(path); err != nil {
		return Fields{}, err
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Fields{}, fmt.Errorf("open mp3: %w", err)
	}
	defer tag.Close()

	f := Fields{
		Artist: strings.TrimSpace(tag.Artist()),
		Genre:  strings.TrimSpace(tag.Genre()),
	}
	for _, fr := range tag.GetFrames("TXXX") {
		udtf, ok := fr.(id3v2.UserDefinedTextFrame)
		if !ok || !strings.EqualFold(udtf.Description, TempoDesc) {
			continue
		}
		f.Tempo, f.HasTempo = parseTempo(udtf.Value)
		if f.HasTempo {
			return f, nil
		}
	}
	if tf, ok := tag.GetLastFrame("TBPM").(id3v2.TextFrame); ok {
		f.Tempo, f.HasTempo = parseTempo(tf.Text)
	}
	return f, nil
}

// sniffMP3 checks path starts like an mp3, since id3v2 happily opens anything.
func sniffMP3(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open mp3: %w", err)
	}
	defer f.Close()

	var head [3]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return fmt.Errorf("%w: read header: %w", ErrNotMP3, err)
	}
	switch {
	case string(head[:]) == "ID3":
		return nil
	case head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return nil
	}
	return ErrNotMP3
}

func readFLAC(path string) (Fields, error) {
	file, err := flac.ParseMetadata(path)
	if err != nil {
		return Fields{}, fmt.Errorf("parse flac: %w", err)
	}

	var f Fields
	for _, meta := range file.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		cmts, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return Fields{}, fmt.Errorf("parse vorbis comment: %w", err)
		}
		f.Artist = first(cmts.Get(flacvorbis.FIELD_ARTIST))
		f.Genre = first(cmts.Get(flacvorbis.FIELD_GENRE))
		f.Tempo, f.HasTempo = parseTempo(first(cmts.Get(TempoDesc)))
		break
	}
	return f, nil
}

func readTagLib(path string) (Fields, error) {
	file, err := audiotags.Open(path)
	if err != nil {
		return Fields{}, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	raw := map[string][]string{}
	for k, vs := range file.ReadTags() {
		k = strings.ToLower(k)
		raw[k] = append(raw[k], vs...)
	}
	f := Fields{
		Artist: first(raw["artist"], nil),
		Genre:  first(raw["genre"], nil),
	}
	f.Tempo, f.HasTempo = parseTempo(first(raw["bpm"], nil))
	return f, nil
}

// FormatTempo renders tempo with as few digits as needed, eg. 128.4 not 128.400000.
func FormatTempo(tempo float64) string {
	return strconv.FormatFloat(tempo, 'f', -1, 64)
}

func parseTempo(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxTempo {
		return 0, false
	}
	return v, true
}

func first(vs []string, err error) string {
	if err != nil {
		return ""
	}
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
