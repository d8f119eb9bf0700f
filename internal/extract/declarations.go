package extract

import (
	"context"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// declarationTable describes which node kinds of a grammar map onto
// skeleton categories. Kinds not listed are descended into.
type declarationTable struct {
	functions  map[string]bool
	classes    map[string]bool
	methods    map[string]bool
	interfaces map[string]bool
	types      map[string]bool

	// importSource returns the module a node imports, or "" if it is not an import.
	importSource func(n *sitter.Node, source []byte) string

	// constantCount returns how many constants a node declares.
	constantCount func(n *sitter.Node, source []byte) int

	// name overrides the default "name" field lookup.
	name func(n *sitter.Node, source []byte) string

	// bases returns the superclasses or implemented traits of a class-like node.
	bases func(n *sitter.Node, source []byte) []string

	// decorators returns annotations attached to a class-like node.
	decorators func(n *sitter.Node, source []byte) []string
}

// declarationsBackend is a table-driven extractor for languages that only
// need declarations: Rust, Java, C, Ruby and PHP.
type declarationsBackend struct {
	*treeSitterParser
	table declarationTable
}

func set(kinds ...string) map[string]bool {
	m := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

// NewRustBackend creates the Rust declarations backend.
func NewRustBackend() Backend {
	return &declarationsBackend{
		treeSitterParser: newTreeSitterParser(sitter.NewLanguage(rust.Language()), "rust"),
		table: declarationTable{
			functions:  set("function_item"),
			classes:    set("impl_item"),
			methods:    set("function_item"),
			interfaces: set("trait_item"),
			types:      set("struct_item", "enum_item", "union_item", "type_item"),
			importSource: func(n *sitter.Node, source []byte) string {
				if n.Kind() != "use_declaration" {
					return ""
				}
				return extractNodeText(n.ChildByFieldName("argument"), source)
			},
			constantCount: func(n *sitter.Node, source []byte) int {
				if n.Kind() == "const_item" || n.Kind() == "static_item" {
					return 1
				}
				return 0
			},
			name: func(n *sitter.Node, source []byte) string {
				if n.Kind() == "impl_item" {
					return extractNodeText(n.ChildByFieldName("type"), source)
				}
				return extractNodeText(n.ChildByFieldName("name"), source)
			},
			bases: func(n *sitter.Node, source []byte) []string {
				if trait := n.ChildByFieldName("trait"); trait != nil {
					return []string{extractNodeText(trait, source)}
				}
				return nil
			},
		},
	}
}

// NewJavaBackend creates the Java declarations backend.
func NewJavaBackend() Backend {
	return &declarationsBackend{
		treeSitterParser: newTreeSitterParser(sitter.NewLanguage(java.Language()), "java"),
		table: declarationTable{
			classes:    set("class_declaration", "record_declaration"),
			methods:    set("method_declaration", "constructor_declaration"),
			interfaces: set("interface_declaration", "annotation_type_declaration"),
			types:      set("enum_declaration"),
			importSource: func(n *sitter.Node, source []byte) string {
				if n.Kind() != "import_declaration" {
					return ""
				}
				text := strings.TrimSpace(extractNodeText(n, source))
				text = strings.TrimPrefix(text, "import")
				text = strings.TrimSuffix(text, ";")
				text = strings.TrimSpace(text)
				return strings.TrimSpace(strings.TrimPrefix(text, "static "))
			},
			constantCount: func(n *sitter.Node, source []byte) int {
				if n.Kind() != "field_declaration" {
					return 0
				}
				mods := extractNodeText(findChildByType(n, "modifiers"), source)
				if !strings.Contains(mods, "static") || !strings.Contains(mods, "final") {
					return 0
				}
				return len(findChildrenByType(n, "variable_declarator"))
			},
			bases: func(n *sitter.Node, source []byte) []string {
				var bases []string
				if super := n.ChildByFieldName("superclass"); super != nil {
					for _, t := range namedChildren(super) {
						bases = append(bases, extractNodeText(t, source))
					}
				}
				if ifaces := n.ChildByFieldName("interfaces"); ifaces != nil {
					for _, list := range namedChildren(ifaces) {
						for _, t := range namedChildren(list) {
							bases = append(bases, extractNodeText(t, source))
						}
					}
				}
				return bases
			},
			decorators: func(n *sitter.Node, source []byte) []string {
				var names []string
				for _, mod := range namedChildren(findChildByType(n, "modifiers")) {
					if mod.Kind() == "marker_annotation" || mod.Kind() == "annotation" {
						names = append(names, extractNodeText(mod.ChildByFieldName("name"), source))
					}
				}
				return names
			},
		},
	}
}

// NewCBackend creates the C declarations backend.
func NewCBackend() Backend {
	return &declarationsBackend{
		treeSitterParser: newTreeSitterParser(sitter.NewLanguage(c.Language()), "c"),
		table: declarationTable{
			functions: set("function_definition"),
			types:     set("struct_specifier", "union_specifier", "enum_specifier", "type_definition"),
			importSource: func(n *sitter.Node, source []byte) string {
				if n.Kind() != "preproc_include" {
					return ""
				}
				return unquote(extractNodeText(n.ChildByFieldName("path"), source))
			},
			constantCount: func(n *sitter.Node, source []byte) int {
				if n.Kind() == "preproc_def" {
					return 1
				}
				return 0
			},
			name: func(n *sitter.Node, source []byte) string {
				switch n.Kind() {
				case "function_definition":
					return cDeclaratorName(n.ChildByFieldName("declarator"), source)
				case "type_definition":
					return cDeclaratorName(n.ChildByFieldName("declarator"), source)
				case "struct_specifier", "union_specifier", "enum_specifier":
					if n.ChildByFieldName("body") == nil {
						return ""
					}
				}
				return extractNodeText(n.ChildByFieldName("name"), source)
			},
		},
	}
}

// cDeclaratorName unwraps pointer and function declarators down to the identifier.
func cDeclaratorName(node *sitter.Node, source []byte) string {
	for node != nil {
		switch node.Kind() {
		case "identifier", "type_identifier", "field_identifier":
			return extractNodeText(node, source)
		}
		next := node.ChildByFieldName("declarator")
		if next == nil {
			if id := findChildByType(node, "identifier"); id != nil {
				return extractNodeText(id, source)
			}
			return ""
		}
		node = next
	}
	return ""
}

// NewRubyBackend creates the Ruby declarations backend.
func NewRubyBackend() Backend {
	return &declarationsBackend{
		treeSitterParser: newTreeSitterParser(sitter.NewLanguage(ruby.Language()), "ruby"),
		table: declarationTable{
			functions: set("method", "singleton_method"),
			classes:   set("class", "module"),
			methods:   set("method", "singleton_method"),
			importSource: func(n *sitter.Node, source []byte) string {
				if n.Kind() != "call" {
					return ""
				}
				switch extractNodeText(n.ChildByFieldName("method"), source) {
				case "require", "require_relative", "load":
				default:
					return ""
				}
				args := namedChildren(n.ChildByFieldName("arguments"))
				if len(args) == 0 || args[0].Kind() != "string" {
					return ""
				}
				return unquote(extractNodeText(args[0], source))
			},
			constantCount: func(n *sitter.Node, source []byte) int {
				if n.Kind() != "assignment" {
					return 0
				}
				if left := n.ChildByFieldName("left"); left != nil && left.Kind() == "constant" {
					return 1
				}
				return 0
			},
			bases: func(n *sitter.Node, source []byte) []string {
				super := n.ChildByFieldName("superclass")
				if super == nil {
					return nil
				}
				text := strings.TrimSpace(strings.TrimPrefix(extractNodeText(super, source), "<"))
				return []string{text}
			},
		},
	}
}

// NewPHPBackend creates the PHP declarations backend.
func NewPHPBackend() Backend {
	return &declarationsBackend{
		treeSitterParser: newTreeSitterParser(sitter.NewLanguage(php.LanguagePHP()), "php"),
		table: declarationTable{
			functions:  set("function_definition"),
			classes:    set("class_declaration", "enum_declaration"),
			methods:    set("method_declaration"),
			interfaces: set("interface_declaration"),
			types:      set("trait_declaration"),
			importSource: func(n *sitter.Node, source []byte) string {
				if n.Kind() != "namespace_use_clause" {
					return ""
				}
				text := extractNodeText(n, source)
				if idx := strings.Index(text, " as "); idx >= 0 {
					text = text[:idx]
				}
				return strings.TrimSpace(text)
			},
			constantCount: func(n *sitter.Node, source []byte) int {
				if n.Kind() != "const_declaration" {
					return 0
				}
				return len(findChildrenByType(n, "const_element"))
			},
			bases: func(n *sitter.Node, source []byte) []string {
				var bases []string
				for _, kind := range []string{"base_clause", "class_interface_clause"} {
					for _, t := range namedChildren(findChildByType(n, kind)) {
						bases = append(bases, extractNodeText(t, source))
					}
				}
				return bases
			},
		},
	}
}

func (b *declarationsBackend) Name() string { return b.lang }

func (b *declarationsBackend) nameOf(n *sitter.Node, source []byte) string {
	if b.table.name != nil {
		return b.table.name(n, source)
	}
	return extractNodeText(n.ChildByFieldName("name"), source)
}

// Skeleton extracts imports, functions, class-like declarations,
// interfaces, types and constants.
func (b *declarationsBackend) Skeleton(ctx context.Context, path string, source []byte) (*Skeleton, error) {
	s := &Skeleton{}
	err := b.parse(ctx, path, source, func(root *sitter.Node) {
		walkTree(root, func(n *sitter.Node) bool {
			kind := n.Kind()

			if src := oneLine(b.table.importSource(n, source)); src != "" {
				s.Imports = append(s.Imports, Import{Source: src})
				return false
			}
			if b.table.constantCount != nil {
				if count := b.table.constantCount(n, source); count > 0 {
					s.Constants += count
					return false
				}
			}

			line, end := nodeLines(n)
			switch {
			case b.table.classes[kind]:
				if class, ok := b.class(n, source); ok {
					s.Classes = append(s.Classes, class)
				}
				s.Constants += b.memberConstants(n, source)
				return false
			case b.table.functions[kind]:
				if name := b.nameOf(n, source); name != "" {
					s.Functions = append(s.Functions, Symbol{Name: name, Line: line, EndLine: end})
				}
				return false
			case b.table.interfaces[kind]:
				if name := b.nameOf(n, source); name != "" {
					s.Interfaces = append(s.Interfaces, TypeDecl{Name: name, Line: line, EndLine: end})
				}
				return false
			case b.table.types[kind]:
				if name := b.nameOf(n, source); name != "" {
					s.Types = append(s.Types, TypeDecl{Name: name, Line: line, EndLine: end})
				}
				return false
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (b *declarationsBackend) class(n *sitter.Node, source []byte) (Class, bool) {
	name := b.nameOf(n, source)
	if name == "" {
		return Class{}, false
	}
	line, end := nodeLines(n)
	class := Class{Name: name, Line: line, EndLine: end}
	if b.table.bases != nil {
		for _, base := range b.table.bases(n, source) {
			class.Bases = append(class.Bases, oneLine(base))
		}
	}
	if b.table.decorators != nil {
		class.Decorators = b.table.decorators(n, source)
	}
	return class, true
}

// memberConstants counts constants declared inside a class-like body.
func (b *declarationsBackend) memberConstants(class *sitter.Node, source []byte) int {
	if b.table.constantCount == nil {
		return 0
	}
	count := 0
	for _, child := range namedChildren(class) {
		walkTree(child, func(n *sitter.Node) bool {
			if found := b.table.constantCount(n, source); found > 0 {
				count += found
				return false
			}
			return !b.table.methods[n.Kind()]
		})
	}
	return count
}

// methodNodes returns method declarations inside a class body, without
// descending into nested classes.
func (b *declarationsBackend) methodNodes(class *sitter.Node) []*sitter.Node {
	var methods []*sitter.Node
	for _, child := range namedChildren(class) {
		walkTree(child, func(n *sitter.Node) bool {
			if b.table.classes[n.Kind()] {
				return false
			}
			if b.table.methods[n.Kind()] {
				methods = append(methods, n)
				return false
			}
			return true
		})
	}
	return methods
}

// Signatures returns function and class headers with methods indented.
func (b *declarationsBackend) Signatures(ctx context.Context, path string, source []byte) ([]Signature, error) {
	var sigs []Signature
	err := b.parse(ctx, path, source, func(root *sitter.Node) {
		walkTree(root, func(n *sitter.Node) bool {
			kind := n.Kind()
			line, _ := nodeLines(n)
			switch {
			case b.table.classes[kind]:
				name := b.nameOf(n, source)
				sigs = append(sigs, Signature{
					Name:      name,
					Signature: headerText(n, n.ChildByFieldName("body"), source),
					Line:      line,
				})
				for _, method := range b.methodNodes(n) {
					methodLine, _ := nodeLines(method)
					sigs = append(sigs, Signature{
						Name:      name + "." + b.nameOf(method, source),
						Signature: "  " + headerText(method, method.ChildByFieldName("body"), source),
						Line:      methodLine,
					})
				}
				return false
			case b.table.functions[kind], b.table.interfaces[kind]:
				sigs = append(sigs, Signature{
					Name:      b.nameOf(n, source),
					Signature: headerText(n, n.ChildByFieldName("body"), source),
					Line:      line,
				})
				return false
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return sigs, nil
}
