package digest

import (
	"strconv"
	"strings"
	"unicode"
)

// Facts are the comma-separated values of each field line in a fragment.
// Both label families are recognized, so graphs can be built from either style.
type Facts struct {
	Imports    []string
	Exports    []string
	Components []string
	Contexts   []string
	Functions  []string
	Hooks      []string
	Effects    []string
	Constants  []string
	Classes    []string
	Types      []string
	Renders    []string
}

// LocalImports returns the relative specifiers (./ or ../).
func (f Facts) LocalImports() []string {
	var local []string
	for _, imp := range f.Imports {
		if strings.HasPrefix(imp, "./") || strings.HasPrefix(imp, "../") {
			local = append(local, imp)
		}
	}
	return local
}

// ParseFacts scans a fragment's content for field lines. Later lines with
// the same label replace earlier ones.
func ParseFacts(content string) Facts {
	var f Facts
	fields := []struct {
		labels []string
		dst    *[]string
	}{
		{[]string{FactImports, LabelImports}, &f.Imports},
		{[]string{FactExports, LabelExports}, &f.Exports},
		{[]string{FactComponents, LabelComponents}, &f.Components},
		{[]string{FactContexts, LabelContexts}, &f.Contexts},
		{[]string{FactFunctions, LabelFunctions}, &f.Functions},
		{[]string{FactHooks, LabelHooks}, &f.Hooks},
		{[]string{FactEffects, LabelEffects}, &f.Effects},
		{[]string{FactConstants, LabelConstants}, &f.Constants},
		{[]string{FactClasses, LabelClasses}, &f.Classes},
		{[]string{FactTypes, LabelTypes}, &f.Types},
		{[]string{FactRenders, LabelRenders}, &f.Renders},
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
	fieldLoop:
		for _, field := range fields {
			for _, label := range field.labels {
				if strings.HasPrefix(trimmed, label) {
					*field.dst = SplitTopLevel(trimmed[len(label):])
					break fieldLoop
				}
			}
		}
	}
	return f
}

// SplitTopLevel splits s on commas that are not nested inside (), {}, []
// or the angle brackets of a type argument list such as Repo<User, Id>.
// A '<' opens a type argument list only right after an identifier, and
// the '>' of "=>" or "->" never closes one. Items are trimmed and empty
// items dropped.
func SplitTopLevel(s string) []string {
	var (
		items   []string
		depth   int
		angle   int
		prev    rune
		current strings.Builder
	)
	push := func() {
		if item := strings.TrimSpace(current.String()); item != "" {
			items = append(items, item)
		}
		current.Reset()
	}

	for _, r := range s {
		switch r {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		case '<':
			if isIdentRune(prev) {
				angle++
			}
		case '>':
			if angle > 0 && prev != '=' && prev != '-' {
				angle--
			}
		}
		prev = r
		if r == ',' && depth == 0 && angle == 0 {
			push()
			continue
		}
		current.WriteRune(r)
	}
	push()
	return items
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Entry is one parsed list item such as "@cache async load:17" or
// "Card({a,b}) (memo):17".
type Entry struct {
	Decorators []string
	Async      bool
	Name       string
	// Args holds the parenthesized list: props for components, bases for
	// classes, passed props for renders. Braces around props are removed.
	Args []string
	// Wrapper is the higher-order wrapper of a component, e.g. memo.
	Wrapper string
	Line    int
}

// ParseEntry decomposes a list item of the form
// [@deco ...] [async ]Name[(args)][ (wrapper)][:line].
func ParseEntry(item string) Entry {
	var e Entry
	item = strings.TrimSpace(item)

	for strings.HasPrefix(item, "@") {
		idx := strings.IndexByte(item, ' ')
		if idx < 0 {
			break
		}
		e.Decorators = append(e.Decorators, item[1:idx])
		item = strings.TrimSpace(item[idx+1:])
	}

	if rest, ok := strings.CutPrefix(item, "async "); ok {
		e.Async = true
		item = strings.TrimSpace(rest)
	}

	if idx := strings.LastIndexByte(item, ':'); idx >= 0 {
		if line, err := strconv.Atoi(item[idx+1:]); err == nil {
			e.Line = line
			item = item[:idx]
		}
	}

	if idx := strings.LastIndex(item, " ("); idx > 0 && strings.HasSuffix(item, ")") {
		if wrapper := item[idx+2 : len(item)-1]; isWrapperName(wrapper) {
			e.Wrapper = wrapper
			item = strings.TrimSpace(item[:idx])
		}
	}

	if open := strings.IndexByte(item, '('); open >= 0 && strings.HasSuffix(item, ")") {
		inner := item[open+1 : len(item)-1]
		item = item[:open]
		inner = strings.TrimSpace(inner)
		if strings.HasPrefix(inner, "{") && strings.HasSuffix(inner, "}") {
			inner = inner[1 : len(inner)-1]
		}
		e.Args = SplitTopLevel(inner)
	}

	e.Name = strings.TrimSpace(item)
	return e
}

// isWrapperName reports whether s is a plain or dotted identifier.
func isWrapperName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '.' && !isIdentRune(r) {
			return false
		}
	}
	return true
}

// EntryName returns the bare name of a list item.
func EntryName(item string) string {
	return ParseEntry(item).Name
}
