package cli

// Test Plan for CLI output helpers:
// - formatNumber inserts thousands separators
// - printResultSummary reports files, run ID, tiers and skipped files
// - splitLinesKeepNL keeps newlines and terminates the last line
// - unifiedDiff is empty for equal input and marks added/removed lines

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/code-digest/internal/compact"
)

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in))
	}
}

func TestPrintResultSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printResultSummary(&buf, &compact.Result{
		Output:        "## src/a.ts",
		OriginalSize:  4000,
		RunID:         "run-1",
		Files:         3,
		Skipped:       []string{"src/broken.ts"},
		Tiers:         compact.TierCounts{PathOnly: 1, Signatures: 1, Skeleton: 1},
		Duration:      1500 * time.Millisecond,
		TokenEstimate: 3,
	})

	out := buf.String()
	assert.Contains(t, out, "Compacted 3 files in 1.5s")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "4,000 chars")
	assert.Contains(t, out, "1 skeleton, 1 signatures, 1 path-only")
	assert.Contains(t, out, "src/broken.ts")
}

func TestSplitLinesKeepNL(t *testing.T) {
	t.Parallel()

	assert.Nil(t, splitLinesKeepNL(""))
	assert.Equal(t, []string{"a\n", "b\n"}, splitLinesKeepNL("a\nb\n"))
	assert.Equal(t, []string{"a\n", "b\n"}, splitLinesKeepNL("a\nb"))
}

func TestUnifiedDiff(t *testing.T) {
	t.Parallel()

	text, err := unifiedDiff("## a.ts\n## b.ts", "## a.ts\n## b.ts", "old", "new")
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = unifiedDiff("## a.ts\n## b.ts", "## a.ts\n## c.ts", "old", "new")
	require.NoError(t, err)
	assert.Contains(t, text, "--- old")
	assert.Contains(t, text, "+++ new")
	assert.Contains(t, text, "-## b.ts")
	assert.Contains(t, text, "+## c.ts")
}
