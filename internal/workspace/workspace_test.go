package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/code-digest/internal/config"
	"github.com/mvp-joe/code-digest/internal/extract"
)

// Test Plan for Workspace:
// - Latest/Selection/Graph report ErrNoDigest before the first compaction
// - Compact stores the run and Latest returns it
// - Compact of an empty project stores nothing
// - Selection round trips through SaveSelection and drives Composed
// - Graph is built from the composed digest (disabled fragments drop out)
// - Save prunes history beyond Keep

// importExtractor reports one import per file, keyed by base name.
type importExtractor struct {
	imports map[string]string
}

func (e *importExtractor) Supports(path string) bool {
	return strings.HasSuffix(path, ".ts")
}

func (e *importExtractor) Skeleton(ctx context.Context, path string, source []byte) (*extract.Skeleton, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".ts")
	s := &extract.Skeleton{Functions: []extract.Symbol{{Name: name, Line: 1, EndLine: 2}}}
	if spec, ok := e.imports[name]; ok {
		s.Imports = []extract.Import{{Source: spec}}
	}
	return s, nil
}

func (e *importExtractor) Signatures(ctx context.Context, path string, source []byte) ([]extract.Signature, error) {
	return nil, nil
}

func writeFile(t *testing.T, root, rel string, lines int) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x\n", lines-1)+"x"), 0644))
}

func openTestWorkspace(t *testing.T, root string, keep int) *Workspace {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "digest.db")

	ws, err := Open(root, cfg, Options{
		Keep:      keep,
		Extractor: &importExtractor{imports: map[string]string{"a": "./b", "b": "./c"}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestWorkspace_NoDigest(t *testing.T) {
	t.Parallel()

	ws := openTestWorkspace(t, t.TempDir(), 0)
	ctx := context.Background()

	_, err := ws.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoDigest)
	_, err = ws.Selection(ctx)
	assert.ErrorIs(t, err, ErrNoDigest)
	_, err = ws.Graph(ctx)
	assert.ErrorIs(t, err, ErrNoDigest)
}

func TestWorkspace_CompactStoresRun(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "src/a.ts", 800)
	writeFile(t, root, "src/b.ts", 800)
	writeFile(t, root, "src/util/c.ts", 10)
	writeFile(t, root, "README.md", 10)
	ws := openTestWorkspace(t, root, 0)
	ctx := context.Background()

	result, err := ws.Compact(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.Files)

	rec, err := ws.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, rec.RunID)
	assert.Equal(t, result.Output, rec.Output)
	assert.Equal(t, ws.Root(), rec.Root)
	assert.Equal(t, "labeled", rec.Style)

	files, err := ws.Store().DigestFiles(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestWorkspace_CompactEmptyProject(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "notes.txt", 3)
	ws := openTestWorkspace(t, root, 0)

	result, err := ws.Compact(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result)

	_, err = ws.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoDigest)
}

func TestWorkspace_SelectionAndGraph(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "src/a.ts", 800)
	writeFile(t, root, "src/b.ts", 800)
	writeFile(t, root, "src/util/c.ts", 10)
	ws := openTestWorkspace(t, root, 0)
	ctx := context.Background()

	_, err := ws.Compact(ctx)
	require.NoError(t, err)

	g, err := ws.Graph(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Metadata.NodeCount)
	assert.Equal(t, []string{"src/b.ts"}, g.Dependencies("src/a.ts"))

	sel, err := ws.Selection(ctx)
	require.NoError(t, err)
	sel.TogglePath("src/b.ts")
	require.NoError(t, ws.SaveSelection(ctx, sel))

	reloaded, err := ws.Selection(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/b.ts"}, reloaded.Disabled())

	composed, err := ws.Composed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, composed.FileCount)
	assert.NotContains(t, composed.Digest, "## src/b.ts")

	g, err = ws.Graph(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Metadata.NodeCount)
	assert.Empty(t, g.Edges)
}

func TestWorkspace_SavePrunesHistory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "src/a.ts", 10)
	ws := openTestWorkspace(t, root, 2)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := ws.Compact(ctx)
		require.NoError(t, err)
	}

	history, err := ws.Store().ListDigests(ctx, ws.Root(), 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
