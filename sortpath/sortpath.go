// Package sortpath turns an ordered list of criteria and a track's metadata into the
// folders the track belongs in.
package sortpath

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
	"github.com/rainycape/unidecode"

	"go.senan.xyz/sortify/fileutil"
	"go.senan.xyz/sortify/genre"
	"go.senan.xyz/sortify/metadata"
)

var (
	ErrEmptyOrder         = errors.New("no sort criteria")
	ErrDuplicateCriterion = errors.New("duplicate criterion")
	ErrUnknownCriterion   = errors.New("unknown criterion")
)

type Criterion uint8

const (
	Artist Criterion = iota + 1
	Genre
	TempoRange
	Key
	Alphabetical
)

var criterionNames = map[Criterion]string{
	Artist:       "artist",
	Genre:        "genre",
	TempoRange:   "tempo",
	Key:          "key",
	Alphabetical: "alpha",
}

var criterionAlts = map[string]Criterion{
	"bpm":          TempoRange,
	"bpm range":    TempoRange,
	"bpm-range":    TempoRange,
	"tempo range":  TempoRange,
	"tempo-range":  TempoRange,
	"alphabetical": Alphabetical,
	"letter":       Alphabetical,
}

func (c Criterion) String() string {
	if name, ok := criterionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("criterion(%d)", c)
}

// ParseCriterion accepts a criterion name case-insensitively.
func ParseCriterion(s string) (Criterion, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range criterionNames {
		if name == s {
			return c, nil
		}
	}
	if c, ok := criterionAlts[s]; ok {
		return c, nil
	}
	if guess := closestName(s); guess != "" {
		return 0, fmt.Errorf("%w %q, did you mean %q?", ErrUnknownCriterion, s, guess)
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownCriterion, s)
}

func closestName(s string) string {
	var names []string
	for _, n := range criterionNames {
		names = append(names, n)
	}
	for n := range criterionAlts {
		names = append(names, n)
	}
	slices.Sort(names)

	var best string
	var bestScore float32
	for _, name := range names {
		score, err := edlib.StringsSimilarity(s, name, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if bestScore < 0.75 {
		return ""
	}
	return best
}

// Order is the user's chosen sequence of criteria. Each criterion appears at most once.
type Order []Criterion

// ParseOrder parses a comma separated list like "genre,artist".
func ParseOrder(s string) (Order, error) {
	var order Order
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseCriterion(part)
		if err != nil {
			return nil, err
		}
		order = append(order, c)
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

func (o Order) Validate() error {
	if len(o) == 0 {
		return ErrEmptyOrder
	}
	seen := map[Criterion]struct{}{}
	for _, c := range o {
		if _, ok := criterionNames[c]; !ok {
			return fmt.Errorf("%w %d", ErrUnknownCriterion, c)
		}
		if _, ok := seen[c]; ok {
			return fmt.Errorf("%w %q", ErrDuplicateCriterion, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

func (o Order) Has(c Criterion) bool { return slices.Contains(o, c) }

// Needs reports which analysis results building paths for this order will use. Tempo is
// only wanted when analysis is enabled, key always is.
func (o Order) Needs(tempoAnalysis bool) metadata.Needs {
	return metadata.Needs{
		Tempo: tempoAnalysis && o.Has(TempoRange),
		Key:   o.Has(Key),
	}
}

func (o Order) String() string {
	parts := make([]string, 0, len(o))
	for _, c := range o {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ",")
}

const (
	UnknownArtist = "Unknown Artist"
	UnknownTempo  = "Unknown BPM"
	UnknownKey    = "Unknown Key"
	NonAlpha      = "#"
)

// ZeroTempo decides what a tempo of exactly 0 means. Taggers and analysers disagree on
// whether 0 is a measurement or a placeholder.
type ZeroTempo uint8

const (
	ZeroTempoUnknown ZeroTempo = iota
	ZeroTempoBucket
)

func ParseZeroTempo(s string) (ZeroTempo, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unknown", "":
		return ZeroTempoUnknown, nil
	case "bucket":
		return ZeroTempoBucket, nil
	}
	return 0, fmt.Errorf("unknown zero tempo policy %q, expected \"unknown\" or \"bucket\"", s)
}

func (z ZeroTempo) String() string {
	if z == ZeroTempoBucket {
		return "bucket"
	}
	return "unknown"
}

// TempoBucket labels the 10 BPM wide range containing tempo, eg. 128.4 -> "120-129 BPM".
func TempoBucket(tempo float64) string {
	low := int(math.Floor(tempo/10)) * 10
	return fmt.Sprintf("%d-%d BPM", low, low+9)
}

// TempoLabel is TempoBucket for known tempos and UnknownTempo otherwise.
func TempoLabel(tempo float64, known bool, zero ZeroTempo) string {
	if !known || (tempo == 0 && zero == ZeroTempoUnknown) {
		return UnknownTempo
	}
	return TempoBucket(tempo)
}

// Letter is the upper cased first letter of a filename, or NonAlpha.
func Letter(filename string) string {
	r, _ := utf8.DecodeRuneInString(filename)
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return NonAlpha
	}
	return strings.ToUpper(string(r))
}

type Builder struct {
	Aliases   genre.Aliases
	ZeroTempo ZeroTempo
	// ASCII transliterates folder names, for filesystems or players that choke on anything else.
	ASCII bool
}

// Build returns one folder name per criterion, in order.
func (b Builder) Build(md metadata.Metadata, order Order) []string {
	segments := make([]string, 0, len(order))
	for _, c := range order {
		var seg string
		switch c {
		case Artist:
			seg = or(md.Artist, UnknownArtist)
		case Genre:
			seg = b.Aliases.Normalize(md.Genre)
		case TempoRange:
			seg = TempoLabel(md.Tempo, md.HasTempo, b.ZeroTempo)
		case Key:
			seg = or(md.Key, UnknownKey)
		case Alphabetical:
			seg = Letter(md.Filename)
		default:
			continue
		}
		if b.ASCII {
			seg = unidecode.Unidecode(seg)
		}
		segments = append(segments, fileutil.SafeSegment(seg))
	}
	return segments
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
