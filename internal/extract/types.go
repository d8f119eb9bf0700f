package extract

import "context"

// Skeleton is the structural summary of one source file.
// Every named entry carries a 1-based start line and EndLine >= Line.
type Skeleton struct {
	Imports    []Import
	Exports    []Export
	Components []Symbol
	Functions  []Symbol
	Hooks      Hooks
	Contexts   []Symbol
	Effects    []Effect
	Constants  int
	Classes    []Class
	Interfaces []TypeDecl
	Types      []TypeDecl

	// Renders lists the capitalized elements a file renders, with the
	// attribute names passed to each, in order of first appearance.
	Renders []Render
}

// Import is a module specifier plus the local names bound from it.
type Import struct {
	Source string
	Names  []string
}

// ExportKind distinguishes default exports from named ones.
type ExportKind string

const (
	ExportDefault ExportKind = "default"
	ExportNamed   ExportKind = "named"
)

// Export is a single exported binding.
type Export struct {
	Name string
	Kind ExportKind
}

// Symbol is a named declaration: a component, a plain function or a context.
type Symbol struct {
	Name       string
	Line       int
	EndLine    int
	Props      []string // destructured first-parameter keys, components only
	Wrapper    string   // higher-order wrapper such as memo or forwardRef
	Decorators []string
	Async      bool
}

// Hooks counts hook-convention calls.
// Builtin maps each built-in hook name to its call count; Custom lists
// the distinct custom hook names in order of first use.
type Hooks struct {
	Builtin map[string]int
	Custom  []string
}

// Empty reports whether no hook calls were seen.
func (h Hooks) Empty() bool {
	return len(h.Builtin) == 0 && len(h.Custom) == 0
}

// Effect is one useEffect call and its dependency array.
type Effect struct {
	Line int
	// Deps holds the array entries; entries that are not plain or dotted
	// references are "?".
	Deps []string
	// NoDeps is set when the call passes no dependency array.
	NoDeps bool
	// Dynamic is set when the dependency argument is not an array literal.
	Dynamic bool
}

// Class is a class-like declaration.
type Class struct {
	Name       string
	Line       int
	EndLine    int
	Bases      []string
	Decorators []string
}

// TypeDecl is an interface or type alias declaration.
type TypeDecl struct {
	Name    string
	Line    int
	EndLine int
}

// Render is one rendered component and the union of props passed to it.
type Render struct {
	Component string
	Props     []string
}

// Signature is one declaration header, used by the signatures tier.
type Signature struct {
	Name      string
	Signature string
	Line      int
}

// Backend extracts structure from source text for a family of languages.
type Backend interface {
	// Name identifies the backend variant, e.g. "ecmascript" or "python".
	Name() string

	// Skeleton returns the structural summary of source.
	// A nil skeleton with a non-nil error means the file could not be parsed.
	Skeleton(ctx context.Context, path string, source []byte) (*Skeleton, error)

	// Signatures returns one entry per top-level declaration header.
	Signatures(ctx context.Context, path string, source []byte) ([]Signature, error)
}
