// Package genre collapses the many spellings of a genre found in tags into one display name.
package genre

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"
)

const Unknown = "Unknown Genre"

//go:embed aliases.yaml
var defaultAliases []byte

var defaults = func() Aliases {
	a, err := Parse(bytes.NewReader(defaultAliases))
	if err != nil {
		panic(fmt.Sprintf("parse embedded aliases: %v", err))
	}
	return a
}()

// Default returns the alias table shipped with sortify.
func Default() Aliases { return defaults }

// Aliases maps lower-cased raw genre strings to canonical display names. It is never
// mutated after construction, so it's safe to share between goroutines.
type Aliases struct {
	m map[string]string
}

// Parse reads a YAML mapping of canonical name to a list of raw spellings.
func Parse(r io.Reader) (Aliases, error) {
	var raw map[string][]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return Aliases{}, fmt.Errorf("decode aliases: %w", err)
	}

	m := map[string]string{}
	add := func(k, canonical string) error {
		k = key(k)
		if k == "" {
			return fmt.Errorf("empty alias for %q", canonical)
		}
		if prev, ok := m[k]; ok && prev != canonical {
			return fmt.Errorf("alias %q maps to both %q and %q", k, prev, canonical)
		}
		m[k] = canonical
		return nil
	}
	for _, canonical := range slices.Sorted(maps.Keys(raw)) {
		canonical = strings.TrimSpace(canonical)
		if err := add(canonical, canonical); err != nil {
			return Aliases{}, err
		}
		for _, alias := range raw[canonical] {
			if err := add(alias, canonical); err != nil {
				return Aliases{}, err
			}
		}
	}
	return Aliases{m: m}, nil
}

// Load parses an alias file from disk.
func Load(path string) (Aliases, error) {
	f, err := os.Open(path)
	if err != nil {
		return Aliases{}, fmt.Errorf("open aliases: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Merge returns a new table with the entries of o taking precedence over a's.
func (a Aliases) Merge(o Aliases) Aliases {
	m := make(map[string]string, len(a.m)+len(o.m))
	maps.Copy(m, a.m)
	maps.Copy(m, o.m)
	return Aliases{m: m}
}

func (a Aliases) Len() int { return len(a.m) }

// Canonicals lists the distinct display names in the table, sorted.
func (a Aliases) Canonicals() []string {
	return slices.Compact(slices.Sorted(maps.Values(a.m)))
}

// Normalize returns the display genre for raw. Unmapped genres are title cased.
func (a Aliases) Normalize(raw string) string {
	k := key(raw)
	if k == "" {
		return Unknown
	}
	if canonical, ok := a.m[k]; ok {
		return canonical
	}
	// casers keep state, don't share one
	return cases.Title(language.Und).String(k)
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
