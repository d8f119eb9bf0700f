package extract

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ecmaScriptBackend extracts JavaScript and TypeScript sources, including JSX.
// Plain TypeScript files use the TypeScript grammar; everything else uses TSX,
// which is a superset that understands JSX.
type ecmaScriptBackend struct {
	ts  *treeSitterParser
	tsx *treeSitterParser
	h   Heuristics
}

// NewECMAScriptBackend creates the JavaScript/TypeScript backend.
func NewECMAScriptBackend(h Heuristics) Backend {
	if h == nil {
		h = NewConventionHeuristics()
	}
	return &ecmaScriptBackend{
		ts:  newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTypescript()), "typescript"),
		tsx: newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTSX()), "tsx"),
		h:   h,
	}
}

func (b *ecmaScriptBackend) Name() string { return "ecmascript" }

func (b *ecmaScriptBackend) parserFor(path string) *treeSitterParser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return b.ts
	default:
		return b.tsx
	}
}

// Skeleton extracts imports, exports, components, functions, hooks,
// contexts, effects, constants, classes, interfaces, types and rendered
// elements. Function and const bindings nested in function bodies count
// alongside top-level ones.
func (b *ecmaScriptBackend) Skeleton(ctx context.Context, path string, source []byte) (*Skeleton, error) {
	skeleton := &Skeleton{}
	err := b.parserFor(path).parse(ctx, path, source, func(root *sitter.Node) {
		w := &ecmaWalker{
			h:       b.h,
			source:  source,
			skel:    skeleton,
			hooks:   newHookCounter(b.h),
			renders: newRenderCollector(),
			imports: map[string]int{},
			visited: map[uint]bool{},
		}
		for _, stmt := range namedChildren(root) {
			w.statement(stmt)
		}
		w.collectCalls(root)
		skeleton.Hooks = w.hooks.result()
		skeleton.Renders = w.renders.result()
		sortByLine(skeleton.Components)
		sortByLine(skeleton.Functions)
	})
	if err != nil {
		return nil, err
	}
	return skeleton, nil
}

// ecmaWalker accumulates a skeleton while visiting one tree.
type ecmaWalker struct {
	h       Heuristics
	source  []byte
	skel    *Skeleton
	hooks   *hookCounter
	renders *renderCollector
	imports map[string]int // source -> index in skel.Imports

	// visited holds the start bytes of declarations already recorded by
	// the top-level pass, so the full-tree pass skips them.
	visited map[uint]bool
}

func (w *ecmaWalker) text(n *sitter.Node) string {
	return extractNodeText(n, w.source)
}

// statement handles one top-level statement.
func (w *ecmaWalker) statement(node *sitter.Node) {
	switch node.Kind() {
	case "import_statement":
		w.importStatement(node)
	case "export_statement":
		w.exportStatement(node)
	case "expression_statement":
		w.commonJSExport(node)
	default:
		w.declaration(node)
	}
}

// declaration records a top-level declaration and returns the names it binds.
func (w *ecmaWalker) declaration(node *sitter.Node) []string {
	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		w.visit(node)
		name := w.text(node.ChildByFieldName("name"))
		if name == "" {
			return nil
		}
		w.addFunction(name, node, node, "")
		return []string{name}

	case "class_declaration", "abstract_class_declaration":
		if name := w.addClass(node, nil); name != "" {
			return []string{name}
		}

	case "interface_declaration":
		name := w.text(node.ChildByFieldName("name"))
		if name == "" {
			return nil
		}
		line, end := nodeLines(node)
		w.skel.Interfaces = append(w.skel.Interfaces, TypeDecl{Name: name, Line: line, EndLine: end})
		return []string{name}

	case "type_alias_declaration", "enum_declaration":
		name := w.text(node.ChildByFieldName("name"))
		if name == "" {
			return nil
		}
		line, end := nodeLines(node)
		w.skel.Types = append(w.skel.Types, TypeDecl{Name: name, Line: line, EndLine: end})
		return []string{name}

	case "lexical_declaration", "variable_declaration":
		return w.variables(node)

	case "ambient_declaration":
		var names []string
		for _, child := range namedChildren(node) {
			names = append(names, w.declaration(child)...)
		}
		return names
	}
	return nil
}

// visit marks a declaration as recorded.
func (w *ecmaWalker) visit(node *sitter.Node) {
	if w.visited != nil {
		w.visited[node.StartByte()] = true
	}
}

// variables classifies each declarator of a const/let/var statement.
func (w *ecmaWalker) variables(node *sitter.Node) []string {
	w.visit(node)
	isConst := node.ChildCount() > 0 && node.Child(0).Kind() == "const"

	var names []string
	for _, decl := range findChildrenByType(node, "variable_declarator") {
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil || nameNode.Kind() != "identifier" {
			continue
		}
		name := w.text(nameNode)
		names = append(names, name)

		value := unwrapExpression(decl.ChildByFieldName("value"))
		if value == nil {
			continue
		}

		switch {
		case isFunctionNode(value):
			w.addFunction(name, decl, value, "")
		case value.Kind() == "call_expression":
			callee := w.text(value.ChildByFieldName("function"))
			switch {
			case w.h.IsWrapper(callee):
				w.addFunction(name, decl, w.wrappedFunction(value), baseName(callee))
			case w.h.IsContextFactory(callee):
				line, end := nodeLines(decl)
				w.skel.Contexts = append(w.skel.Contexts, Symbol{Name: name, Line: line, EndLine: end})
			case isConst:
				w.skel.Constants++
			}
		case isConst:
			w.skel.Constants++
		}
	}
	return names
}

// wrappedFunction finds the function literal inside wrapper calls such as
// memo(forwardRef((props, ref) => ...)).
func (w *ecmaWalker) wrappedFunction(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	for _, arg := range namedChildren(args) {
		arg = unwrapExpression(arg)
		if isFunctionNode(arg) {
			return arg
		}
		if arg.Kind() == "call_expression" && w.h.IsWrapper(w.text(arg.ChildByFieldName("function"))) {
			return w.wrappedFunction(arg)
		}
	}
	return nil
}

// addFunction records a function-like binding as a component or a function.
func (w *ecmaWalker) addFunction(name string, decl, fn *sitter.Node, wrapper string) {
	line, end := nodeLines(decl)
	sym := Symbol{Name: name, Line: line, EndLine: end, Wrapper: wrapper}
	if fn != nil {
		sym.Async = findChildByType(fn, "async") != nil
	}

	if wrapper != "" || w.h.IsComponent(name) {
		sym.Props = w.props(fn)
		w.skel.Components = append(w.skel.Components, sym)
		return
	}
	w.skel.Functions = append(w.skel.Functions, sym)
}

// props returns the keys of a destructured first parameter.
func (w *ecmaWalker) props(fn *sitter.Node) []string {
	if fn == nil {
		return nil
	}
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}

	var first *sitter.Node
	for _, child := range namedChildren(params) {
		if child.Kind() != "comment" {
			first = child
			break
		}
	}
	if first == nil {
		return nil
	}
	if pattern := first.ChildByFieldName("pattern"); pattern != nil {
		first = pattern
	}
	if first.Kind() == "assignment_pattern" {
		first = first.ChildByFieldName("left")
	}
	if first == nil || first.Kind() != "object_pattern" {
		return nil
	}
	return w.objectPatternKeys(first)
}

func (w *ecmaWalker) objectPatternKeys(pattern *sitter.Node) []string {
	var keys []string
	for _, child := range namedChildren(pattern) {
		switch child.Kind() {
		case "shorthand_property_identifier_pattern":
			keys = append(keys, w.text(child))
		case "pair_pattern":
			keys = append(keys, w.text(child.ChildByFieldName("key")))
		case "object_assignment_pattern":
			keys = append(keys, w.text(child.ChildByFieldName("left")))
		case "rest_pattern":
			if inner := namedChildren(child); len(inner) > 0 {
				keys = append(keys, "..."+w.text(inner[0]))
			}
		}
	}
	return keys
}

// addClass records a class declaration and returns its name.
func (w *ecmaWalker) addClass(node *sitter.Node, decorators []string) string {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return ""
	}
	line, end := nodeLines(node)
	class := Class{Name: name, Line: line, EndLine: end}

	class.Decorators = append(class.Decorators, decorators...)
	for _, deco := range findChildrenByType(node, "decorator") {
		class.Decorators = append(class.Decorators, w.decoratorName(deco))
	}

	if heritage := findChildByType(node, "class_heritage"); heritage != nil {
		for _, clause := range namedChildren(heritage) {
			switch clause.Kind() {
			case "extends_clause", "implements_clause":
				for _, base := range namedChildren(clause) {
					if base.Kind() == "type_arguments" {
						continue
					}
					class.Bases = append(class.Bases, oneLine(w.text(base)))
				}
			default:
				class.Bases = append(class.Bases, oneLine(w.text(clause)))
			}
		}
	}

	w.skel.Classes = append(w.skel.Classes, class)
	return name
}

// decoratorName returns the decorator expression without '@' or call arguments.
func (w *ecmaWalker) decoratorName(deco *sitter.Node) string {
	for _, child := range namedChildren(deco) {
		if child.Kind() == "call_expression" {
			return w.text(child.ChildByFieldName("function"))
		}
		return w.text(child)
	}
	return strings.TrimPrefix(w.text(deco), "@")
}

func (w *ecmaWalker) importStatement(node *sitter.Node) {
	source := unquote(w.text(node.ChildByFieldName("source")))
	if source == "" {
		return
	}

	var names []string
	if clause := findChildByType(node, "import_clause"); clause != nil {
		for _, child := range namedChildren(clause) {
			switch child.Kind() {
			case "identifier":
				names = append(names, w.text(child))
			case "namespace_import":
				if id := findChildByType(child, "identifier"); id != nil {
					names = append(names, w.text(id))
				}
			case "named_imports":
				for _, spec := range findChildrenByType(child, "import_specifier") {
					local := spec.ChildByFieldName("alias")
					if local == nil {
						local = spec.ChildByFieldName("name")
					}
					names = append(names, w.text(local))
				}
			}
		}
	}
	w.addImport(source, names)
}

// addImport records a module specifier, merging repeated sources.
func (w *ecmaWalker) addImport(source string, names []string) {
	if idx, ok := w.imports[source]; ok {
		for _, name := range names {
			w.skel.Imports[idx].Names = appendUnique(w.skel.Imports[idx].Names, name)
		}
		return
	}
	w.imports[source] = len(w.skel.Imports)
	w.skel.Imports = append(w.skel.Imports, Import{Source: source, Names: names})
}

func (w *ecmaWalker) addExport(name string, kind ExportKind) {
	if name == "" {
		return
	}
	w.skel.Exports = append(w.skel.Exports, Export{Name: name, Kind: kind})
}

func (w *ecmaWalker) exportStatement(node *sitter.Node) {
	kind := ExportNamed
	if findChildByType(node, "default") != nil {
		kind = ExportDefault
	}

	// export { a } from './x' and export * from './x'
	if source := node.ChildByFieldName("source"); source != nil {
		var names []string
		if clause := findChildByType(node, "export_clause"); clause != nil {
			for _, spec := range findChildrenByType(clause, "export_specifier") {
				names = append(names, w.text(spec.ChildByFieldName("name")))
				w.addExport(w.exportedName(spec), ExportNamed)
			}
		}
		if ns := findChildByType(node, "namespace_export"); ns != nil {
			if ids := namedChildren(ns); len(ids) > 0 {
				w.addExport(w.text(ids[len(ids)-1]), ExportNamed)
			}
		}
		w.addImport(unquote(w.text(source)), names)
		return
	}

	if decl := node.ChildByFieldName("declaration"); decl != nil {
		var decorators []string
		for _, deco := range findChildrenByType(node, "decorator") {
			decorators = append(decorators, w.decoratorName(deco))
		}
		var names []string
		if len(decorators) > 0 && (decl.Kind() == "class_declaration" || decl.Kind() == "abstract_class_declaration") {
			if name := w.addClass(decl, decorators); name != "" {
				names = []string{name}
			}
		} else {
			names = w.declaration(decl)
		}
		for _, name := range names {
			w.addExport(name, kind)
		}
		return
	}

	if value := node.ChildByFieldName("value"); value != nil {
		w.addExport(w.defaultValue(unwrapExpression(value)), ExportDefault)
		return
	}

	if clause := findChildByType(node, "export_clause"); clause != nil {
		for _, spec := range findChildrenByType(clause, "export_specifier") {
			alias := w.text(spec.ChildByFieldName("alias"))
			if alias == "default" {
				w.addExport(w.text(spec.ChildByFieldName("name")), ExportDefault)
				continue
			}
			w.addExport(w.exportedName(spec), ExportNamed)
		}
	}
}

func (w *ecmaWalker) exportedName(spec *sitter.Node) string {
	if alias := spec.ChildByFieldName("alias"); alias != nil {
		return w.text(alias)
	}
	return w.text(spec.ChildByFieldName("name"))
}

// defaultValue resolves the exported name of `export default <expr>`,
// recording named function or class expressions along the way.
func (w *ecmaWalker) defaultValue(value *sitter.Node) string {
	if value == nil {
		return "default"
	}
	switch value.Kind() {
	case "identifier":
		return w.text(value)
	case "call_expression":
		callee := w.text(value.ChildByFieldName("function"))
		if w.h.IsWrapper(callee) {
			for _, arg := range namedChildren(value.ChildByFieldName("arguments")) {
				if arg.Kind() == "identifier" {
					return w.text(arg)
				}
			}
		}
	case "function_expression", "function", "generator_function":
		if name := w.text(value.ChildByFieldName("name")); name != "" {
			w.addFunction(name, value, value, "")
			return name
		}
	case "class":
		if name := w.addClass(value, nil); name != "" {
			return name
		}
	}
	return "default"
}

// commonJSExport recognizes module.exports = X and exports.name = X.
func (w *ecmaWalker) commonJSExport(stmt *sitter.Node) {
	assign := findChildByType(stmt, "assignment_expression")
	if assign == nil {
		return
	}
	left := w.text(assign.ChildByFieldName("left"))
	right := unwrapExpression(assign.ChildByFieldName("right"))

	switch {
	case left == "module.exports" && right != nil && right.Kind() == "identifier":
		w.addExport(w.text(right), ExportDefault)
	case left == "module.exports" && right != nil && right.Kind() == "object":
		for _, prop := range namedChildren(right) {
			switch prop.Kind() {
			case "shorthand_property_identifier":
				w.addExport(w.text(prop), ExportNamed)
			case "pair":
				w.addExport(w.text(prop.ChildByFieldName("key")), ExportNamed)
			}
		}
	case strings.HasPrefix(left, "exports."):
		w.addExport(strings.TrimPrefix(left, "exports."), ExportNamed)
	}
}

// collectCalls walks the whole tree for hook calls, effects, require/import()
// specifiers, rendered JSX elements and nested declarations.
func (w *ecmaWalker) collectCalls(root *sitter.Node) {
	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "function_declaration", "generator_function_declaration":
			if !w.visited[n.StartByte()] {
				w.declaration(n)
			}
		case "lexical_declaration", "variable_declaration":
			if !w.visited[n.StartByte()] {
				w.variables(n)
			}
		case "call_expression":
			fn := n.ChildByFieldName("function")
			if fn == nil {
				return true
			}
			switch fn.Kind() {
			case "identifier":
				name := w.text(fn)
				if name == "require" {
					if src := w.firstStringArg(n); src != "" {
						w.addImport(src, nil)
					}
				}
				w.hooks.observe(name)
				if name == effectHook {
					w.effect(n)
				}
			case "member_expression":
				name := w.text(fn.ChildByFieldName("property"))
				w.hooks.observe(name)
				if name == effectHook {
					w.effect(n)
				}
			case "import":
				if src := w.firstStringArg(n); src != "" {
					w.addImport(src, nil)
				}
			}
		case "jsx_opening_element", "jsx_self_closing_element":
			w.render(n)
		}
		return true
	})
}

const effectHook = "useEffect"

// effect records a useEffect call with its dependency array.
func (w *ecmaWalker) effect(call *sitter.Node) {
	line, _ := nodeLines(call)
	e := Effect{Line: line}

	var args []*sitter.Node
	for _, arg := range namedChildren(call.ChildByFieldName("arguments")) {
		if arg.Kind() != "comment" {
			args = append(args, arg)
		}
	}
	switch {
	case len(args) < 2:
		e.NoDeps = true
	case args[1].Kind() == "array":
		for _, dep := range namedChildren(args[1]) {
			if dep.Kind() != "comment" {
				e.Deps = append(e.Deps, w.dependency(dep))
			}
		}
	default:
		e.Dynamic = true
	}
	w.skel.Effects = append(w.skel.Effects, e)
}

// dependency renders one dependency array entry: identifiers and member
// chains by name, anything else as "?".
func (w *ecmaWalker) dependency(n *sitter.Node) string {
	switch n.Kind() {
	case "identifier":
		return w.text(n)
	case "member_expression":
		return strings.ReplaceAll(oneLine(w.text(n)), "?.", ".")
	}
	return "?"
}

func (w *ecmaWalker) firstStringArg(call *sitter.Node) string {
	args := namedChildren(call.ChildByFieldName("arguments"))
	if len(args) == 0 {
		return ""
	}
	switch args[0].Kind() {
	case "string":
		return unquote(w.text(args[0]))
	case "template_string":
		if findChildByType(args[0], "template_substitution") == nil {
			return unquote(w.text(args[0]))
		}
	}
	return ""
}

// render records a capitalized JSX element and its attribute names.
func (w *ecmaWalker) render(element *sitter.Node) {
	name := w.text(element.ChildByFieldName("name"))
	if name == "" || !w.h.IsComponent(name) {
		return
	}
	var props []string
	for _, attr := range findChildrenByType(element, "jsx_attribute") {
		if key := namedChildren(attr); len(key) > 0 {
			props = append(props, w.text(key[0]))
		}
	}
	w.renders.add(name, props)
}

// Signatures returns headers for functions, arrow bindings, wrapped
// components, contexts, classes with their methods, interfaces and types.
func (b *ecmaScriptBackend) Signatures(ctx context.Context, path string, source []byte) ([]Signature, error) {
	var sigs []Signature
	err := b.parserFor(path).parse(ctx, path, source, func(root *sitter.Node) {
		for _, stmt := range namedChildren(root) {
			sigs = b.appendSignatures(sigs, stmt, source, "")
		}
	})
	if err != nil {
		return nil, err
	}
	return sigs, nil
}

func (b *ecmaScriptBackend) appendSignatures(sigs []Signature, node *sitter.Node, source []byte, prefix string) []Signature {
	line, _ := nodeLines(node)

	switch node.Kind() {
	case "export_statement":
		exportPrefix := "export "
		if findChildByType(node, "default") != nil {
			exportPrefix = "export default "
		}
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			return b.appendSignatures(sigs, decl, source, exportPrefix)
		}
		if value := unwrapExpression(node.ChildByFieldName("value")); value != nil && isFunctionNode(value) {
			return append(sigs, Signature{
				Name:      "default",
				Signature: exportPrefix + headerText(value, value.ChildByFieldName("body"), source),
				Line:      line,
			})
		}

	case "function_declaration", "generator_function_declaration":
		return append(sigs, Signature{
			Name:      extractNodeText(node.ChildByFieldName("name"), source),
			Signature: prefix + headerText(node, node.ChildByFieldName("body"), source),
			Line:      line,
		})

	case "class_declaration", "abstract_class_declaration":
		body := node.ChildByFieldName("body")
		className := extractNodeText(node.ChildByFieldName("name"), source)
		sigs = append(sigs, Signature{
			Name:      className,
			Signature: prefix + headerText(node, body, source),
			Line:      line,
		})
		for _, method := range findChildrenByType(body, "method_definition") {
			methodLine, _ := nodeLines(method)
			sigs = append(sigs, Signature{
				Name:      className + "." + extractNodeText(method.ChildByFieldName("name"), source),
				Signature: "  " + headerText(method, method.ChildByFieldName("body"), source),
				Line:      methodLine,
			})
		}
		return sigs

	case "interface_declaration", "type_alias_declaration", "enum_declaration":
		return append(sigs, Signature{
			Name:      extractNodeText(node.ChildByFieldName("name"), source),
			Signature: prefix + headerText(node, node.ChildByFieldName("body"), source),
			Line:      line,
		})

	case "lexical_declaration", "variable_declaration":
		keyword := ""
		if node.ChildCount() > 0 {
			keyword = node.Child(0).Kind() + " "
		}
		for _, decl := range findChildrenByType(node, "variable_declarator") {
			if sig, ok := b.declaratorSignature(decl, source); ok {
				declLine, _ := nodeLines(decl)
				sigs = append(sigs, Signature{
					Name:      extractNodeText(decl.ChildByFieldName("name"), source),
					Signature: prefix + keyword + sig,
					Line:      declLine,
				})
			}
		}
	}
	return sigs
}

// declaratorSignature renders `name = (...) =>` style headers for function
// bindings, wrapper calls and context factories.
func (b *ecmaScriptBackend) declaratorSignature(decl *sitter.Node, source []byte) (string, bool) {
	value := unwrapExpression(decl.ChildByFieldName("value"))
	if value == nil {
		return "", false
	}

	if isFunctionNode(value) {
		return headerText(decl, value.ChildByFieldName("body"), source), true
	}
	if value.Kind() != "call_expression" {
		return "", false
	}

	callee := extractNodeText(value.ChildByFieldName("function"), source)
	switch {
	case b.h.IsWrapper(callee):
		w := &ecmaWalker{h: b.h, source: source}
		if fn := w.wrappedFunction(value); fn != nil {
			return headerText(decl, fn.ChildByFieldName("body"), source), true
		}
		return collapseSignature(extractNodeText(decl, source)), true
	case b.h.IsContextFactory(callee):
		return collapseSignature(extractNodeText(decl, source)), true
	}
	return "", false
}

// isFunctionNode reports whether n is a function literal.
func isFunctionNode(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "arrow_function", "function_expression", "function", "generator_function":
		return true
	}
	return false
}

// unwrapExpression strips parentheses and TypeScript type assertions.
func unwrapExpression(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Kind() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
			children := namedChildren(n)
			if len(children) == 0 {
				return n
			}
			n = children[0]
		default:
			return n
		}
	}
	return n
}

// sortByLine orders symbols by start line, keeping the order of ties.
func sortByLine(symbols []Symbol) {
	sort.SliceStable(symbols, func(i, j int) bool {
		return symbols[i].Line < symbols[j].Line
	})
}

// baseName strips a namespace qualifier, so React.memo becomes memo.
func baseName(callee string) string {
	if idx := strings.LastIndexByte(callee, '.'); idx >= 0 {
		return callee[idx+1:]
	}
	return callee
}
