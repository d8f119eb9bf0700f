package depgraph

import (
	"errors"
	"log"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/code-digest/internal/digest"
)

// DefaultSourceRoot is the directory drawn without a group label.
const DefaultSourceRoot = "src"

// ProgressReporter reports progress during graph building.
type ProgressReporter interface {
	OnGraphBuildingStart(totalFiles int)
	OnGraphFileProcessed(processedFiles, totalFiles int, fileName string)
	OnGraphBuildingComplete(nodeCount, edgeCount int, duration time.Duration)
}

// builder holds build options.
type builder struct {
	sourceRoot string
	progress   ProgressReporter
}

// Option configures Build.
type Option func(*builder)

// WithSourceRoot sets the directory treated as ungrouped.
func WithSourceRoot(root string) Option {
	return func(b *builder) {
		b.sourceRoot = strings.Trim(root, "/")
	}
}

// WithProgress configures progress reporting.
func WithProgress(progress ProgressReporter) Option {
	return func(b *builder) {
		b.progress = progress
	}
}

// Graph is the dependency graph of one digest.
type Graph struct {
	Metadata GraphMetadata `json:"_metadata"`
	Groups   []Group       `json:"groups"`
	Nodes    []*Node       `json:"nodes"` // In digest order
	Edges    []Edge        `json:"edges"`
	Cycles   [][]string    `json:"cycles,omitempty"`
	Drilling []DrillChain  `json:"drilling,omitempty"`

	index map[string]*Node
	dag   graph.Graph[string, string]
}

// Build parses digest text and derives its graph. Text without fragments
// yields an empty graph.
func Build(text string, opts ...Option) *Graph {
	return BuildFragments(digest.Parse(text), opts...)
}

// BuildFragments derives the graph of already parsed fragments.
func BuildFragments(fragments []digest.Fragment, opts ...Option) *Graph {
	b := &builder{sourceRoot: DefaultSourceRoot}
	for _, opt := range opts {
		opt(b)
	}
	return b.build(fragments)
}

func (b *builder) build(fragments []digest.Fragment) *Graph {
	startTime := time.Now()
	total := len(fragments)
	if b.progress != nil {
		b.progress.OnGraphBuildingStart(total)
	}

	g := &Graph{
		Groups: []Group{},
		Nodes:  []*Node{},
		Edges:  []Edge{},
		index:  make(map[string]*Node, total),
		dag:    graph.New(graph.StringHash, graph.Directed()),
	}

	// Nodes first; every later step resolves against the full node set.
	facts := make(map[string]digest.Facts, total)
	for i, fragment := range fragments {
		if _, exists := g.index[fragment.Path]; exists {
			log.Printf("Warning: duplicate fragment %s ignored\n", fragment.Path)
			continue
		}
		f := digest.ParseFacts(fragment.Content)
		node := newNode(fragment, f)
		g.Nodes = append(g.Nodes, node)
		g.index[node.ID] = node
		facts[node.ID] = f
		_ = g.dag.AddVertex(node.ID)

		if b.progress != nil {
			b.progress.OnGraphFileProcessed(i+1, total, fragment.FileName())
		}
	}

	components := componentIndex(g.Nodes)
	paths := newPathIndex(g.Nodes)

	for _, node := range g.Nodes {
		f := facts[node.ID]

		for _, spec := range f.LocalImports() {
			target, ok := paths.resolve(node.Dir, spec)
			if !ok || target == node.ID {
				continue
			}
			// "./Button" and "./Button.tsx" resolve to the same file; the
			// graph keeps one edge per file pair.
			if err := g.dag.AddEdge(node.ID, target); err != nil {
				if !errors.Is(err, graph.ErrEdgeAlreadyExists) {
					log.Printf("Warning: failed to add edge %s -> %s: %v\n", node.ID, target, err)
				}
				continue
			}
			g.Edges = append(g.Edges, Edge{From: node.ID, To: target})
		}

		for _, item := range f.Renders {
			entry := digest.ParseEntry(item)
			target, ok := components[entry.Name]
			if !ok || len(entry.Args) == 0 {
				continue
			}
			if node.PropsPassed == nil {
				node.PropsPassed = make(map[string][]string)
			}
			node.PropsPassed[target] = union(node.PropsPassed[target], entry.Args)
		}
	}

	g.Groups = buildGroups(g.Nodes, b.sourceRoot)
	g.Cycles = findCycles(g.dag)
	g.Drilling = findDrilling(g.Nodes, g.index)
	g.Metadata = GraphMetadata{
		NodeCount:  len(g.Nodes),
		EdgeCount:  len(g.Edges),
		GroupCount: len(g.Groups),
	}

	duration := time.Since(startTime)
	if b.progress != nil {
		b.progress.OnGraphBuildingComplete(len(g.Nodes), len(g.Edges), duration)
	}
	if len(g.Cycles) > 0 {
		log.Printf("Found %d import cycles", len(g.Cycles))
	}
	return g
}

// newNode collects the names a fragment declares.
func newNode(fragment digest.Fragment, f digest.Facts) *Node {
	node := &Node{
		ID:       fragment.Path,
		Path:     fragment.Path,
		FileName: fragment.FileName(),
		Dir:      fragment.Dir(),
		Raw:      fragment.Content,
	}

	var received []string
	for _, item := range f.Components {
		entry := digest.ParseEntry(item)
		node.Components = append(node.Components, entry.Name)
		received = union(received, entry.Args)
	}
	node.PropsReceived = received

	for _, item := range f.Contexts {
		node.Contexts = append(node.Contexts, digest.EntryName(item))
	}
	for _, item := range f.Functions {
		node.Functions = append(node.Functions, digest.EntryName(item))
	}
	for _, item := range f.Hooks {
		node.Hooks = append(node.Hooks, digest.EntryName(item))
	}

	if len(f.Constants) == 1 {
		if n, err := strconv.Atoi(f.Constants[0]); err == nil {
			node.ConstantCount = n
			return node
		}
	}
	for _, item := range f.Constants {
		node.Constants = append(node.Constants, digest.EntryName(item))
	}
	node.ConstantCount = len(node.Constants)
	return node
}

// componentIndex maps component names to the node declaring them. On a
// name collision the later fragment wins.
func componentIndex(nodes []*Node) map[string]string {
	index := make(map[string]string)
	for _, node := range nodes {
		for _, name := range node.Components {
			index[name] = node.ID
		}
	}
	return index
}

// pathIndex maps import targets to node IDs. Besides each path it holds the
// path without extension and, for index files, the containing directory.
type pathIndex map[string]string

func newPathIndex(nodes []*Node) pathIndex {
	idx := make(pathIndex, len(nodes)*2)
	for _, node := range nodes {
		idx[node.ID] = node.ID
	}
	for _, node := range nodes {
		trimmed := strings.TrimSuffix(node.ID, path.Ext(node.ID))
		idx.register(trimmed, node.ID)
		if path.Base(trimmed) == "index" && node.Dir != "." {
			idx.register(node.Dir, node.ID)
		}
	}
	return idx
}

// register keeps the first node claiming a key.
func (p pathIndex) register(key, id string) {
	if _, exists := p[key]; !exists {
		p[key] = id
	}
}

func (p pathIndex) resolve(fromDir, spec string) (string, bool) {
	target, ok := resolveSpecifier(fromDir, spec)
	if !ok {
		return "", false
	}
	id, ok := p[target]
	return id, ok
}

// resolveSpecifier applies a relative specifier to a directory segment by
// segment. Specifiers that climb above the project root do not resolve.
func resolveSpecifier(fromDir, spec string) (string, bool) {
	var segments []string
	if fromDir != "." && fromDir != "" {
		segments = strings.Split(fromDir, "/")
	}
	for _, seg := range strings.Split(spec, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return "", false
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return "", false
	}
	return strings.Join(segments, "/"), true
}

func buildGroups(nodes []*Node, sourceRoot string) []Group {
	byDir := make(map[string]*Group)
	var dirs []string
	for _, node := range nodes {
		group, ok := byDir[node.Dir]
		if !ok {
			group = &Group{Dir: node.Dir, Label: groupLabel(node.Dir, sourceRoot)}
			byDir[node.Dir] = group
			dirs = append(dirs, node.Dir)
		}
		group.NodeIDs = append(group.NodeIDs, node.ID)
	}

	sort.Strings(dirs)
	groups := make([]Group, 0, len(dirs))
	for _, dir := range dirs {
		groups = append(groups, *byDir[dir])
	}
	return groups
}

// groupLabel is empty for the root and the source root; nested directories
// are labelled relative to the source root.
func groupLabel(dir, sourceRoot string) string {
	if dir == "." || dir == sourceRoot {
		return ""
	}
	if sourceRoot != "" && sourceRoot != "." {
		if rest, ok := strings.CutPrefix(dir, sourceRoot+"/"); ok {
			return rest
		}
	}
	return dir
}

// union merges b into a, returning a sorted slice without duplicates.
func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			merged = append(merged, s)
		}
	}
	sort.Strings(merged)
	return merged
}
