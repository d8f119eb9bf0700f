package digest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mvp-joe/code-digest/internal/extract"
)

// Style selects the label family used for skeleton lines.
type Style string

const (
	// StyleLabeled renders capitalized labels ("Imports:", "Components:", ...).
	StyleLabeled Style = "labeled"
	// StyleCompact renders the denser graph-fact labels ("imports:", "fn:", ...).
	StyleCompact Style = "compact"
)

// ParseStyle validates a configured style name. Empty means labeled.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case "", StyleLabeled:
		return StyleLabeled, nil
	case StyleCompact:
		return StyleCompact, nil
	}
	return "", fmt.Errorf("unknown digest style %q (expected %q or %q)", s, StyleLabeled, StyleCompact)
}

// Field labels of the labeled style.
const (
	LabelImports    = "Imports:"
	LabelExports    = "Exports:"
	LabelComponents = "Components:"
	LabelFunctions  = "Functions:"
	LabelContexts   = "Contexts:"
	LabelHooks      = "Hooks:"
	LabelEffects    = "useEffect:"
	LabelConstants  = "Constants:"
	LabelClasses    = "Classes:"
	LabelTypes      = "Types:"
	LabelRenders    = "Renders:"
)

// NoDeps marks an effect without a dependency array.
const NoDeps = "no deps"

// Field labels of the compact style.
const (
	FactImports    = "imports:"
	FactExports    = "exports:"
	FactComponents = "components:"
	FactFunctions  = "fn:"
	FactContexts   = "contexts:"
	FactHooks      = "hooks:"
	FactEffects    = "effects:"
	FactConstants  = "const:"
	FactClasses    = "classes:"
	FactTypes      = "types:"
	FactRenders    = "renders:"
)

// FormatSkeleton renders a skeleton as one line per non-empty category.
// The output is deterministic for a given skeleton and style, and every
// item is folded onto a single line.
func FormatSkeleton(s *extract.Skeleton, style Style) string {
	if s == nil {
		return ""
	}
	if style == StyleCompact {
		return formatCompact(s)
	}

	var lines []string
	add := func(label string, items []string) {
		if len(items) > 0 {
			lines = append(lines, label+" "+joinItems(items))
		}
	}

	imports := make([]string, 0, len(s.Imports))
	for _, imp := range s.Imports {
		imports = append(imports, imp.Source)
	}
	add(LabelImports, imports)
	add(LabelExports, formatExports(s.Exports))
	add(LabelComponents, formatComponents(s.Components))
	add(LabelContexts, formatSymbols(s.Contexts, false))
	add(LabelFunctions, formatSymbols(s.Functions, false))
	add(LabelHooks, formatHooks(s.Hooks))
	add(LabelEffects, formatEffects(s.Effects))
	if s.Constants > 0 {
		lines = append(lines, LabelConstants+" "+strconv.Itoa(s.Constants))
	}
	add(LabelClasses, formatClasses(s.Classes))
	add(LabelTypes, formatTypes(s.Interfaces, s.Types))
	add(LabelRenders, formatRenders(s.Renders))

	return strings.Join(lines, "\n")
}

// formatCompact renders the graph-fact encoding: external imports are only
// counted, local specifiers are listed.
func formatCompact(s *extract.Skeleton) string {
	var lines []string
	add := func(label string, items []string) {
		if len(items) > 0 {
			lines = append(lines, label+" "+joinItems(items))
		}
	}

	if len(s.Imports) > 0 {
		var local []string
		external := 0
		for _, imp := range s.Imports {
			if strings.HasPrefix(imp.Source, ".") {
				local = append(local, imp.Source)
			} else {
				external++
			}
		}
		var parts []string
		if external > 0 {
			parts = append(parts, fmt.Sprintf("%d ext", external))
		}
		add(FactImports, append(parts, local...))
	}
	add(FactExports, formatExports(s.Exports))
	add(FactComponents, formatComponents(s.Components))
	add(FactContexts, formatSymbols(s.Contexts, false))
	add(FactFunctions, formatSymbols(s.Functions, true))
	add(FactHooks, formatHooks(s.Hooks))
	add(FactEffects, formatEffects(s.Effects))
	if s.Constants > 0 {
		lines = append(lines, FactConstants+" "+strconv.Itoa(s.Constants))
	}
	add(FactClasses, formatClasses(s.Classes))
	add(FactTypes, formatTypes(s.Interfaces, s.Types))
	add(FactRenders, formatRenders(s.Renders))

	return strings.Join(lines, "\n")
}

// joinItems folds each item onto one line and joins them with ", ".
// Extracted text can span lines; a field line must not.
func joinItems(items []string) string {
	folded := make([]string, len(items))
	for i, item := range items {
		folded[i] = strings.Join(strings.Fields(item), " ")
	}
	return strings.Join(folded, ", ")
}

func formatExports(exports []extract.Export) []string {
	items := make([]string, 0, len(exports))
	for _, e := range exports {
		if e.Kind == extract.ExportDefault {
			items = append(items, e.Name+" (default)")
		} else {
			items = append(items, e.Name)
		}
	}
	return items
}

// formatComponents renders [async ]Name[({a,b})][ (wrapper)]:line, for
// example "Card({title}) (memo):2".
func formatComponents(components []extract.Symbol) []string {
	items := make([]string, 0, len(components))
	for _, c := range components {
		var sb strings.Builder
		if c.Async {
			sb.WriteString("async ")
		}
		sb.WriteString(c.Name)
		if len(c.Props) > 0 {
			sb.WriteString("({" + strings.Join(c.Props, ",") + "})")
		}
		if c.Wrapper != "" {
			sb.WriteString(" (" + c.Wrapper + ")")
		}
		sb.WriteString(":" + strconv.Itoa(c.Line))
		items = append(items, sb.String())
	}
	return items
}

// formatSymbols renders [async ]name:line; withDecorator prefixes the
// first decorator.
func formatSymbols(symbols []extract.Symbol, withDecorator bool) []string {
	items := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		item := fmt.Sprintf("%s:%d", sym.Name, sym.Line)
		if sym.Async {
			item = "async " + item
		}
		if withDecorator && len(sym.Decorators) > 0 {
			item = "@" + sym.Decorators[0] + " " + item
		}
		items = append(items, item)
	}
	return items
}

// formatEffects renders [a, b.c]:line, "no deps:line" without a
// dependency array, or "?:line" when the array is not a literal.
func formatEffects(effects []extract.Effect) []string {
	items := make([]string, 0, len(effects))
	for _, e := range effects {
		var deps string
		switch {
		case e.NoDeps:
			deps = NoDeps
		case e.Dynamic:
			deps = "?"
		default:
			deps = "[" + strings.Join(e.Deps, ", ") + "]"
		}
		items = append(items, deps+":"+strconv.Itoa(e.Line))
	}
	return items
}

// formatHooks renders built-in hooks with counts in fixed order, then custom hooks.
func formatHooks(h extract.Hooks) []string {
	var items []string
	for _, name := range extract.BuiltinHooks {
		if n := h.Builtin[name]; n > 0 {
			items = append(items, fmt.Sprintf("%s(%d)", name, n))
		}
	}
	return append(items, h.Custom...)
}

// formatClasses renders @deco Name(Base,Other):line.
func formatClasses(classes []extract.Class) []string {
	items := make([]string, 0, len(classes))
	for _, c := range classes {
		var sb strings.Builder
		for _, deco := range c.Decorators {
			sb.WriteString("@" + deco + " ")
		}
		sb.WriteString(c.Name)
		if len(c.Bases) > 0 {
			sb.WriteString("(" + strings.Join(c.Bases, ",") + ")")
		}
		sb.WriteString(":" + strconv.Itoa(c.Line))
		items = append(items, sb.String())
	}
	return items
}

// formatTypes renders interfaces then type aliases as Name:line.
func formatTypes(interfaces, types []extract.TypeDecl) []string {
	items := make([]string, 0, len(interfaces)+len(types))
	for _, t := range interfaces {
		items = append(items, fmt.Sprintf("%s:%d", t.Name, t.Line))
	}
	for _, t := range types {
		items = append(items, fmt.Sprintf("%s:%d", t.Name, t.Line))
	}
	return items
}

// formatRenders renders Comp(a,b), or Comp when nothing is passed.
func formatRenders(renders []extract.Render) []string {
	items := make([]string, 0, len(renders))
	for _, r := range renders {
		if len(r.Props) > 0 {
			items = append(items, r.Component+"("+strings.Join(r.Props, ",")+")")
		} else {
			items = append(items, r.Component)
		}
	}
	return items
}

// FormatSignatures renders one declaration header per line, followed by its
// source line.
func FormatSignatures(sigs []extract.Signature) string {
	lines := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		lines = append(lines, fmt.Sprintf("%s  // line %d", sig.Signature, sig.Line))
	}
	return strings.Join(lines, "\n")
}
