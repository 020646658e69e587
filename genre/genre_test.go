package genre

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDrumAndBass(t *testing.T) {
	t.Parallel()

	aliases := Default()
	for _, raw := range []string{
		"dnb", "DnB", "D&B", "d & b", "drum and bass", "Drum N Bass", "drum 'n' bass",
		"drum&bass", "  DRUM & BASS  ", "drumnbass", "Liquid DnB",
	} {
		assert.Equal(t, "Drum & Bass", aliases.Normalize(raw), raw)
	}
}

func TestNormalizeFallback(t *testing.T) {
	t.Parallel()

	aliases := Default()
	assert.Equal(t, Unknown, aliases.Normalize(""))
	assert.Equal(t, Unknown, aliases.Normalize("   "))
	assert.Equal(t, "Electronic", aliases.Normalize("electro"))
	assert.Equal(t, "Shoegaze", aliases.Normalize("shoegaze"))
	assert.Equal(t, "Progressive Bluegrass", aliases.Normalize("  PROGRESSIVE bluegrass "))

	// the zero table still title cases
	var empty Aliases
	assert.Equal(t, "Deep House", empty.Normalize("deep house"))
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	aliases := Default()
	inputs := append(aliases.Canonicals(), "electro", "dnb", "hip hop", "some new genre", "", "hyperpop")
	for _, in := range inputs {
		once := aliases.Normalize(in)
		assert.Equal(t, once, aliases.Normalize(strings.ToLower(once)), in)
	}
}

func TestCanonicalsMapToThemselves(t *testing.T) {
	t.Parallel()

	aliases := Default()
	require.NotZero(t, aliases.Len())
	for _, c := range aliases.Canonicals() {
		assert.Equal(t, c, aliases.Normalize(c))
	}
}

func TestParseConflict(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("House:\n  - deep\nTechno:\n  - DEEP\n"))
	assert.ErrorContains(t, err, `"deep"`)

	_, err = Parse(strings.NewReader("House:\n  - '  '\n"))
	assert.Error(t, err)

	a, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, a.Len())
}

func TestMerge(t *testing.T) {
	t.Parallel()

	user, err := Parse(strings.NewReader("Electro:\n  - electro\n  - electro funk\n"))
	require.NoError(t, err)

	merged := Default().Merge(user)
	assert.Equal(t, "Electro", merged.Normalize("electro"))
	assert.Equal(t, "Electro", merged.Normalize("Electro Funk"))
	assert.Equal(t, "Drum & Bass", merged.Normalize("dnb"))

	// the receiver is untouched
	assert.Equal(t, "Electronic", Default().Normalize("electro"))
}
