package extract

import (
	"context"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// pythonParser extracts Python sources in-process with tree-sitter.
type pythonParser struct {
	*treeSitterParser
	h Heuristics
}

// NewPythonTreeSitterBackend creates the in-process Python backend.
func NewPythonTreeSitterBackend(h Heuristics) Backend {
	if h == nil {
		h = NewConventionHeuristics()
	}
	return &pythonParser{
		treeSitterParser: newTreeSitterParser(sitter.NewLanguage(python.Language()), "python"),
		h:                h,
	}
}

func (p *pythonParser) Name() string { return "python" }

// Skeleton extracts top-level imports, functions, classes and constants.
// `__all__` supplies the named exports.
func (p *pythonParser) Skeleton(ctx context.Context, path string, source []byte) (*Skeleton, error) {
	skeleton := &Skeleton{}
	err := p.parse(ctx, path, source, func(root *sitter.Node) {
		hooks := newHookCounter(p.h)
		for _, stmt := range namedChildren(root) {
			p.statement(stmt, source, skeleton)
		}
		walkTree(root, func(n *sitter.Node) bool {
			if n.Kind() == "call" {
				fn := n.ChildByFieldName("function")
				if fn != nil && fn.Kind() == "attribute" {
					fn = fn.ChildByFieldName("attribute")
				}
				hooks.observe(extractNodeText(fn, source))
			}
			return true
		})
		skeleton.Hooks = hooks.result()
	})
	if err != nil {
		return nil, err
	}
	return skeleton, nil
}

func (p *pythonParser) statement(node *sitter.Node, source []byte, s *Skeleton) {
	switch node.Kind() {
	case "import_statement":
		for _, name := range namedChildren(node) {
			if name.Kind() == "aliased_import" {
				name = name.ChildByFieldName("name")
			}
			s.Imports = append(s.Imports, Import{Source: extractNodeText(name, source)})
		}

	case "import_from_statement":
		module := node.ChildByFieldName("module_name")
		imp := Import{Source: extractNodeText(module, source)}
		for _, child := range namedChildren(node) {
			if module != nil && child.StartByte() == module.StartByte() {
				continue
			}
			switch child.Kind() {
			case "dotted_name":
				imp.Names = append(imp.Names, extractNodeText(child, source))
			case "aliased_import":
				imp.Names = append(imp.Names, extractNodeText(child.ChildByFieldName("alias"), source))
			case "wildcard_import":
				imp.Names = append(imp.Names, "*")
			}
		}
		s.Imports = append(s.Imports, imp)

	case "decorated_definition":
		var decos []string
		for _, deco := range findChildrenByType(node, "decorator") {
			decos = append(decos, pythonDecoratorName(deco, source))
		}
		if def := node.ChildByFieldName("definition"); def != nil {
			line, _ := nodeLines(node)
			p.definition(def, source, s, decos, line)
		}

	case "function_definition", "class_definition":
		line, _ := nodeLines(node)
		p.definition(node, source, s, nil, line)

	case "type_alias_statement":
		line, end := nodeLines(node)
		left := node.ChildByFieldName("left")
		if left != nil && left.Kind() == "type" {
			if inner := namedChildren(left); len(inner) > 0 {
				left = inner[0]
			}
		}
		name := extractNodeText(left, source)
		if idx := strings.IndexByte(name, '['); idx > 0 {
			name = name[:idx]
		}
		s.Types = append(s.Types, TypeDecl{Name: name, Line: line, EndLine: end})

	case "expression_statement":
		for _, assign := range findChildrenByType(node, "assignment") {
			p.assignment(assign, source, s)
		}
	}
}

// definition records a function or class; line is the first decorator
// line when decorated.
func (p *pythonParser) definition(node *sitter.Node, source []byte, s *Skeleton, decorators []string, line int) {
	_, end := nodeLines(node)

	switch node.Kind() {
	case "function_definition":
		name := extractNodeText(node.ChildByFieldName("name"), source)
		sym := Symbol{
			Name:       name,
			Line:       line,
			EndLine:    end,
			Decorators: decorators,
			Async:      findChildByType(node, "async") != nil,
		}
		if p.h.IsComponent(name) {
			s.Components = append(s.Components, sym)
		} else {
			s.Functions = append(s.Functions, sym)
		}

	case "class_definition":
		class := Class{
			Name:       extractNodeText(node.ChildByFieldName("name"), source),
			Line:       line,
			EndLine:    end,
			Decorators: decorators,
		}
		for _, base := range namedChildren(node.ChildByFieldName("superclasses")) {
			if base.Kind() == "keyword_argument" || base.Kind() == "comment" {
				continue
			}
			class.Bases = append(class.Bases, oneLine(extractNodeText(base, source)))
		}
		s.Classes = append(s.Classes, class)
	}
}

func (p *pythonParser) assignment(assign *sitter.Node, source []byte, s *Skeleton) {
	left := assign.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	name := extractNodeText(left, source)

	if name == "__all__" {
		right := assign.ChildByFieldName("right")
		if right == nil {
			return
		}
		for _, item := range namedChildren(right) {
			if item.Kind() == "string" {
				s.Exports = append(s.Exports, Export{Name: unquote(extractNodeText(item, source)), Kind: ExportNamed})
			}
		}
		return
	}

	if isConstantName(name) {
		s.Constants++
	}
}

// Signatures returns def and class headers, with methods indented under their class.
func (p *pythonParser) Signatures(ctx context.Context, path string, source []byte) ([]Signature, error) {
	var sigs []Signature
	err := p.parse(ctx, path, source, func(root *sitter.Node) {
		for _, stmt := range namedChildren(root) {
			sigs = p.appendSignatures(sigs, stmt, source, "", "")
		}
	})
	if err != nil {
		return nil, err
	}
	return sigs, nil
}

func (p *pythonParser) appendSignatures(sigs []Signature, node *sitter.Node, source []byte, indent, owner string) []Signature {
	switch node.Kind() {
	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil {
			return p.appendSignatures(sigs, def, source, indent, owner)
		}

	case "function_definition":
		line, _ := nodeLines(node)
		name := extractNodeText(node.ChildByFieldName("name"), source)
		if owner != "" {
			name = owner + "." + name
		}
		return append(sigs, Signature{
			Name:      name,
			Signature: indent + headerText(node, node.ChildByFieldName("body"), source),
			Line:      line,
		})

	case "class_definition":
		line, _ := nodeLines(node)
		name := extractNodeText(node.ChildByFieldName("name"), source)
		body := node.ChildByFieldName("body")
		sigs = append(sigs, Signature{
			Name:      name,
			Signature: indent + headerText(node, body, source),
			Line:      line,
		})
		if indent == "" {
			for _, member := range namedChildren(body) {
				sigs = p.appendSignatures(sigs, member, source, "  ", name)
			}
		}
	}
	return sigs
}

// pythonDecoratorName renders a decorator without '@' or call arguments.
func pythonDecoratorName(deco *sitter.Node, source []byte) string {
	children := namedChildren(deco)
	if len(children) == 0 {
		return strings.TrimPrefix(extractNodeText(deco, source), "@")
	}
	expr := children[0]
	if expr.Kind() == "call" {
		expr = expr.ChildByFieldName("function")
	}
	return extractNodeText(expr, source)
}

// isConstantName reports whether name is UPPER_SNAKE_CASE.
func isConstantName(name string) bool {
	hasLetter := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			hasLetter = true
		case unicode.IsDigit(r) || r == '_':
		default:
			return false
		}
	}
	return hasLetter
}
