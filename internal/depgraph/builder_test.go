package depgraph

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Build:
// - Two fragments without imports or renders give two nodes and no edges
// - "./c" from a/b resolves to a/c.ext; "../x" without a root file x gives no edge
// - Importing a directory reaches its index file
// - Mutual imports give two directed edges and one cycle
// - Labeled and compact import lines both produce edges
// - External and duplicate imports add nothing
// - Renders record prop flow to the declaring file, unioned per target
// - Component name collisions resolve to the later fragment
// - Node facts carry names without lines, decorators, wrappers or counts
// - Nodes carry their path and the raw fragment content
// - Imports of one file by two specifiers give a single edge
// - Groups bucket by directory, source root and project root unlabeled
// - Malformed or empty digests give an empty graph
// - Dependencies and Dependents answer from the edge set
// - Drilling chains are reported from the originating file
// - Progress reporter sees start, every file and completion

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n")
}

func edgeSet(g *Graph) []string {
	var edges []string
	for _, e := range g.Edges {
		edges = append(edges, e.From+" -> "+e.To)
	}
	return edges
}

func TestBuild_ConcreteScenario(t *testing.T) {
	t.Parallel()

	g := Build("## src/a.js\nFunctions: foo:1\n## src/b.js\nComponents: Bar:3\n")

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "src/a.js", g.Nodes[0].ID)
	assert.Equal(t, "src/b.js", g.Nodes[1].ID)
	assert.Equal(t, []string{"foo"}, g.Nodes[0].Functions)
	assert.Equal(t, []string{"Bar"}, g.Nodes[1].Components)
	assert.Empty(t, g.Edges)
	assert.Equal(t, GraphMetadata{NodeCount: 2, EdgeCount: 0, GroupCount: 1}, g.Metadata)
}

func TestBuild_ImportResolution(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## a/b.ts",
		"imports: 1 ext, ./c, ../x",
		"## a/c.ts",
	))

	assert.Equal(t, []string{"a/b.ts -> a/c.ts"}, edgeSet(g))
}

func TestBuild_ImportResolutionWithExtension(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## src/pages/home.tsx",
		"Imports: react, ../lib/api.js, ./missing",
		"## src/lib/api.js",
		"## x.ts",
	))

	assert.Equal(t, []string{"src/pages/home.tsx -> src/lib/api.js"}, edgeSet(g))
}

func TestBuild_IndexCollapse(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## src/App.tsx",
		"imports: ./components, ./components/index",
		"## src/components/index.ts",
		"exports: Button",
	))

	// Both specifiers reach the same file; the edge is recorded once.
	assert.Equal(t, []string{"src/App.tsx -> src/components/index.ts"}, edgeSet(g))
}

func TestBuild_MutualImports(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## src/a.ts",
		"imports: ./b",
		"## src/b.ts",
		"imports: ./a",
		"## src/c.ts",
		"imports: ./a",
	))

	assert.ElementsMatch(t, []string{
		"src/a.ts -> src/b.ts",
		"src/b.ts -> src/a.ts",
		"src/c.ts -> src/a.ts",
	}, edgeSet(g))
	assert.Equal(t, [][]string{{"src/a.ts", "src/b.ts"}}, g.Cycles)
}

func TestBuild_SelfImportIgnored(t *testing.T) {
	t.Parallel()

	g := Build("## src/a.ts\nimports: ./a, ./a.ts")
	assert.Empty(t, g.Edges)
	assert.Empty(t, g.Cycles)
}

func TestBuild_PropFlow(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## src/App.tsx",
		"components: App:1",
		"renders: Card(title,onClick), Card(title,footer), Unknown(x), Layout",
		"## src/Card.tsx",
		"components: Card({title,onClick,footer}):4",
		"## src/Layout.tsx",
		"components: Layout:1",
	))

	app, ok := g.Node("src/App.tsx")
	require.True(t, ok)
	assert.Equal(t, map[string][]string{
		"src/Card.tsx": {"footer", "onClick", "title"},
	}, app.PropsPassed)

	card, ok := g.Node("src/Card.tsx")
	require.True(t, ok)
	assert.Equal(t, []string{"footer", "onClick", "title"}, card.PropsReceived)
	assert.Nil(t, card.PropsPassed)

	// Renders do not create import edges.
	assert.Empty(t, g.Edges)
}

func TestBuild_ComponentCollisionLastWins(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## src/a/Button.tsx",
		"components: Button:1",
		"## src/b/Button.tsx",
		"components: Button:1",
		"## src/Page.tsx",
		"renders: Button(label)",
	))

	page, ok := g.Node("src/Page.tsx")
	require.True(t, ok)
	assert.Equal(t, map[string][]string{"src/b/Button.tsx": {"label"}}, page.PropsPassed)
}

func TestBuild_NodeFacts(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## src/hooks/useCart.ts",
		"fn: @cache load:3, save:9",
		"hooks: useState(2), useEffect(1), useStore",
		"const: 3",
		"## src/config.py",
		"Constants: MAX_ITEMS, TIMEOUT",
	))

	cart, ok := g.Node("src/hooks/useCart.ts")
	require.True(t, ok)
	assert.Equal(t, "useCart", cart.FileName)
	assert.Equal(t, "src/hooks", cart.Dir)
	assert.Equal(t, []string{"load", "save"}, cart.Functions)
	assert.Equal(t, []string{"useState", "useEffect", "useStore"}, cart.Hooks)
	assert.Equal(t, 3, cart.ConstantCount)
	assert.Empty(t, cart.Constants)

	config, ok := g.Node("src/config.py")
	require.True(t, ok)
	assert.Equal(t, []string{"MAX_ITEMS", "TIMEOUT"}, config.Constants)
	assert.Equal(t, 2, config.ConstantCount)

	_, ok = g.Node("src/missing.ts")
	assert.False(t, ok)
}

func TestBuild_NodePathRawAndContexts(t *testing.T) {
	t.Parallel()

	content := joinLines(
		"Components: Card({title}) (memo):3, async Page:9",
		"Contexts: ThemeContext:1",
		"useEffect: [id]:5",
	)
	g := Build("## src/Card.tsx\n" + content)

	node, ok := g.Node("src/Card.tsx")
	require.True(t, ok)
	assert.Equal(t, "src/Card.tsx", node.Path)
	assert.Equal(t, node.ID, node.Path)
	assert.Equal(t, content, node.Raw)
	assert.Equal(t, []string{"Card", "Page"}, node.Components)
	assert.Equal(t, []string{"ThemeContext"}, node.Contexts)
	assert.Equal(t, []string{"title"}, node.PropsReceived)
}

func TestBuild_OneEdgePerFilePair(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## src/App.tsx",
		"imports: ./Button, ./Button.tsx",
		"## src/Button.tsx",
		"components: Button:1",
	))
	assert.Equal(t, []string{"src/App.tsx -> src/Button.tsx"}, edgeSet(g))
	assert.Equal(t, 1, g.Metadata.EdgeCount)
}

func TestBuild_Groups(t *testing.T) {
	t.Parallel()

	text := joinLines(
		"## main.ts",
		"## lib/util.ts",
		"## src/App.tsx",
		"## src/components/Card.tsx",
		"## src/components/List.tsx",
	)

	g := Build(text)
	assert.Equal(t, []Group{
		{Dir: ".", Label: "", NodeIDs: []string{"main.ts"}},
		{Dir: "lib", Label: "lib", NodeIDs: []string{"lib/util.ts"}},
		{Dir: "src", Label: "", NodeIDs: []string{"src/App.tsx"}},
		{Dir: "src/components", Label: "components", NodeIDs: []string{"src/components/Card.tsx", "src/components/List.tsx"}},
	}, g.Groups)

	g = Build(text, WithSourceRoot("lib/"))
	labels := map[string]string{}
	for _, group := range g.Groups {
		labels[group.Dir] = group.Label
	}
	assert.Equal(t, "", labels["lib"])
	assert.Equal(t, "src", labels["src"])
	assert.Equal(t, "src/components", labels["src/components"])
}

func TestBuild_EmptyAndMalformed(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "\n\n", "# Project Compact\n## src/a.ts", "no headers here"} {
		g := Build(text)
		assert.Empty(t, g.Nodes, "text %q", text)
		assert.NotNil(t, g.Nodes)
		assert.NotNil(t, g.Edges)
		assert.NotNil(t, g.Groups)
		assert.Empty(t, g.Cycles)
		assert.Nil(t, g.Dependencies("src/a.ts"))
	}
}

func TestBuild_DuplicateFragmentsKeepFirst(t *testing.T) {
	t.Parallel()

	g := Build("## a.ts\nfn: first:1\n## a.ts\nfn: second:1")
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, []string{"first"}, g.Nodes[0].Functions)
}

func TestGraph_DependenciesAndDependents(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## src/app.ts",
		"imports: ./db, ./util",
		"## src/db.ts",
		"imports: ./util",
		"## src/util.ts",
	))

	assert.Equal(t, []string{"src/db.ts", "src/util.ts"}, g.Dependencies("src/app.ts"))
	assert.Equal(t, []string{"src/app.ts", "src/db.ts"}, g.Dependents("src/util.ts"))
	assert.Nil(t, g.Dependencies("src/util.ts"))
	assert.Nil(t, g.Dependents("src/app.ts"))
	assert.Nil(t, g.Dependents("src/unknown.ts"))

	var zero Graph
	assert.Nil(t, zero.Dependencies("src/app.ts"))
	assert.Nil(t, zero.Dependents("src/app.ts"))
}

func TestBuild_Drilling(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## src/App.tsx",
		"components: App:1",
		"renders: Layout(user,theme)",
		"## src/Layout.tsx",
		"components: Layout({user}):1",
		"renders: Header(user)",
		"## src/Header.tsx",
		"components: Header({user}):1",
		"renders: Avatar(user)",
		"## src/Avatar.tsx",
		"components: Avatar({user}):1",
	))

	assert.Equal(t, []DrillChain{{
		Prop: "user",
		Path: []string{"src/App.tsx", "src/Layout.tsx", "src/Header.tsx", "src/Avatar.tsx"},
	}}, g.Drilling)
}

func TestBuild_NoDrillingForSingleHop(t *testing.T) {
	t.Parallel()

	g := Build(joinLines(
		"## src/App.tsx",
		"renders: Card(title)",
		"## src/Card.tsx",
		"components: Card({title}):1",
	))
	assert.Empty(t, g.Drilling)
}

type recordingProgress struct {
	mu        sync.Mutex
	started   int
	processed []string
	nodes     int
	edges     int
}

func (r *recordingProgress) OnGraphBuildingStart(totalFiles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = totalFiles
}

func (r *recordingProgress) OnGraphFileProcessed(processedFiles, totalFiles int, fileName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, fileName)
}

func (r *recordingProgress) OnGraphBuildingComplete(nodeCount, edgeCount int, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = nodeCount
	r.edges = edgeCount
}

func TestBuild_Progress(t *testing.T) {
	t.Parallel()

	progress := &recordingProgress{}
	Build("## src/a.ts\nimports: ./b\n## src/b.ts", WithProgress(progress))

	assert.Equal(t, 2, progress.started)
	assert.Equal(t, []string{"a", "b"}, progress.processed)
	assert.Equal(t, 2, progress.nodes)
	assert.Equal(t, 1, progress.edges)
}

func TestResolveSpecifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fromDir string
		spec    string
		want    string
		ok      bool
	}{
		{"a", "./c", "a/c", true},
		{"a", "../x", "x", true},
		{".", "../x", "", false},
		{"a/b", "../../c/./d", "c/d", true},
		{"a", "./", "a", true},
		{".", "./", "", false},
		{".", "./lib/util", "lib/util", true},
	}

	for _, tt := range tests {
		t.Run(tt.fromDir+"|"+tt.spec, func(t *testing.T) {
			got, ok := resolveSpecifier(tt.fromDir, tt.spec)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
