package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the section composer:
// - Compose with no disabled paths reproduces the digest
// - Disabled fragments are dropped, the rest keep their order
// - Token estimate is the per-fragment sum of ceil(runes/4)
// - Malformed digests compose to an empty result
// - TogglePath flips one file and ignores unknown paths
// - ToggleDir disables all unless all are disabled, then enables all
// - Toggling a directory twice restores the original membership
// - Sections group by directory with enabled-only token totals
// - FormatTokenCount renders K and M suffixes

const composerDigest = "## src/App.jsx\nComponents: App:1\n## src/components/A.jsx\nComponents: A:1\n## src/components/B.jsx\nComponents: B:1\n## main.py\nfn: main:1"

func TestCompose_NoneDisabled(t *testing.T) {
	t.Parallel()

	c := Compose(composerDigest, nil)
	assert.Equal(t, composerDigest, c.Digest)
	assert.Equal(t, 4, c.FileCount)
}

func TestCompose_DropsDisabled(t *testing.T) {
	t.Parallel()

	c := Compose(composerDigest, NewPathSet("src/components/A.jsx", "not/there.js"))

	assert.Equal(t, "## src/App.jsx\nComponents: App:1\n## src/components/B.jsx\nComponents: B:1\n## main.py\nfn: main:1", c.Digest)
	assert.Equal(t, 3, c.FileCount)

	want := EstimateTokens("## src/App.jsx\nComponents: App:1") +
		EstimateTokens("## src/components/B.jsx\nComponents: B:1") +
		EstimateTokens("## main.py\nfn: main:1")
	assert.Equal(t, want, c.TokenEstimate)
}

func TestCompose_Malformed(t *testing.T) {
	t.Parallel()

	c := Compose("garbage", nil)
	assert.Equal(t, Composition{}, c)
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	// Runes, not bytes.
	assert.Equal(t, 1, EstimateTokens("héé"))
}

func TestSelection_TogglePath(t *testing.T) {
	t.Parallel()

	s := NewSelection(composerDigest, []string{"main.py", "ghost.py"})
	assert.Equal(t, []string{"main.py"}, s.Disabled())

	s.TogglePath("src/App.jsx")
	assert.True(t, s.IsDisabled("src/App.jsx"))

	s.TogglePath("main.py")
	assert.False(t, s.IsDisabled("main.py"))

	s.TogglePath("unknown.js")
	assert.False(t, s.IsDisabled("unknown.js"))
	assert.Equal(t, []string{"src/App.jsx"}, s.Disabled())
}

func TestSelection_ToggleDir(t *testing.T) {
	t.Parallel()

	s := NewSelection(composerDigest, []string{"src/components/A.jsx"})

	// Partially disabled: disable all.
	s.ToggleDir("src/components")
	assert.Equal(t, []string{"src/components/A.jsx", "src/components/B.jsx"}, s.Disabled())

	// All disabled: enable all.
	s.ToggleDir("src/components")
	assert.Empty(t, s.Disabled())

	// Direct children only.
	s.ToggleDir("src")
	assert.Equal(t, []string{"src/App.jsx"}, s.Disabled())
}

func TestSelection_ToggleDirTwiceRestores(t *testing.T) {
	t.Parallel()

	for _, initial := range [][]string{
		nil,
		{"src/components/A.jsx", "src/components/B.jsx"},
	} {
		s := NewSelection(composerDigest, initial)
		before := s.Disabled()
		s.ToggleDir("src/components")
		s.ToggleDir("src/components")
		assert.Equal(t, before, s.Disabled())
	}
}

func TestSelection_Sections(t *testing.T) {
	t.Parallel()

	s := NewSelection(composerDigest, []string{"src/components/B.jsx"})
	sections := s.Sections()

	require.Len(t, sections, 3)
	assert.Equal(t, ".", sections[0].Dir)
	assert.Equal(t, "src", sections[1].Dir)
	assert.Equal(t, "src/components", sections[2].Dir)

	comp := sections[2]
	require.Len(t, comp.Files, 2)
	assert.Equal(t, "A", comp.Files[0].FileName)
	assert.False(t, comp.Files[0].Disabled)
	assert.True(t, comp.Files[1].Disabled)
	assert.Equal(t, 1, comp.Enabled)
	assert.Equal(t, comp.Files[0].Tokens, comp.Tokens)

	c := s.Compose()
	assert.Equal(t, 3, c.FileCount)
	assert.NotContains(t, c.Digest, "B.jsx")
}

func TestFormatTokenCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count int
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{12500, "12.5K"},
		{1_000_000, "1.0M"},
		{2_345_678, "2.3M"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTokenCount(tt.count))
		})
	}
}
