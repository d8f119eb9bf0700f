package digest

import (
	"strconv"
	"strings"

	"github.com/mvp-joe/code-digest/internal/extract"
)

// ParseSkeleton rebuilds a skeleton from labeled field lines. Interfaces
// and types share one line, so both come back as types; end lines are not
// rendered and come back equal to the start line. Formatting the result
// reproduces the input text.
func ParseSkeleton(content string) *extract.Skeleton {
	facts := ParseFacts(content)
	s := &extract.Skeleton{}

	for _, src := range facts.Imports {
		s.Imports = append(s.Imports, extract.Import{Source: src})
	}

	for _, item := range facts.Exports {
		if name, ok := strings.CutSuffix(item, " (default)"); ok {
			s.Exports = append(s.Exports, extract.Export{Name: name, Kind: extract.ExportDefault})
			continue
		}
		s.Exports = append(s.Exports, extract.Export{Name: item, Kind: extract.ExportNamed})
	}

	for _, item := range facts.Components {
		e := ParseEntry(item)
		s.Components = append(s.Components, extract.Symbol{
			Name:    e.Name,
			Line:    e.Line,
			EndLine: e.Line,
			Props:   e.Args,
			Wrapper: e.Wrapper,
			Async:   e.Async,
		})
	}

	for _, item := range facts.Contexts {
		e := ParseEntry(item)
		s.Contexts = append(s.Contexts, extract.Symbol{Name: e.Name, Line: e.Line, EndLine: e.Line})
	}

	for _, item := range facts.Functions {
		e := ParseEntry(item)
		s.Functions = append(s.Functions, extract.Symbol{
			Name:       e.Name,
			Line:       e.Line,
			EndLine:    e.Line,
			Decorators: e.Decorators,
			Async:      e.Async,
		})
	}

	for _, item := range facts.Hooks {
		e := ParseEntry(item)
		if len(e.Args) == 1 {
			if n, err := strconv.Atoi(e.Args[0]); err == nil {
				if s.Hooks.Builtin == nil {
					s.Hooks.Builtin = map[string]int{}
				}
				s.Hooks.Builtin[e.Name] = n
				continue
			}
		}
		s.Hooks.Custom = append(s.Hooks.Custom, e.Name)
	}

	for _, item := range facts.Effects {
		s.Effects = append(s.Effects, parseEffect(item))
	}

	if len(facts.Constants) == 1 {
		if n, err := strconv.Atoi(facts.Constants[0]); err == nil {
			s.Constants = n
		}
	}

	for _, item := range facts.Classes {
		e := ParseEntry(item)
		s.Classes = append(s.Classes, extract.Class{
			Name:       e.Name,
			Line:       e.Line,
			EndLine:    e.Line,
			Bases:      e.Args,
			Decorators: e.Decorators,
		})
	}

	for _, item := range facts.Types {
		e := ParseEntry(item)
		s.Types = append(s.Types, extract.TypeDecl{Name: e.Name, Line: e.Line, EndLine: e.Line})
	}

	for _, item := range facts.Renders {
		e := ParseEntry(item)
		s.Renders = append(s.Renders, extract.Render{Component: e.Name, Props: e.Args})
	}

	return s
}

// parseEffect reverses formatEffects for one "[a, b]:line" item.
func parseEffect(item string) extract.Effect {
	var e extract.Effect
	deps := item
	if idx := strings.LastIndexByte(item, ':'); idx >= 0 {
		if line, err := strconv.Atoi(item[idx+1:]); err == nil {
			e.Line = line
			deps = item[:idx]
		}
	}
	deps = strings.TrimSpace(deps)

	switch {
	case deps == NoDeps:
		e.NoDeps = true
	case strings.HasPrefix(deps, "[") && strings.HasSuffix(deps, "]"):
		e.Deps = SplitTopLevel(deps[1 : len(deps)-1])
	default:
		e.Dynamic = true
	}
	return e
}
