package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Heuristics decides how bindings are classified by naming convention.
// The default follows React conventions; other frameworks can supply their own.
type Heuristics interface {
	// IsComponent reports whether a function-like binding is a UI component.
	IsComponent(name string) bool

	// IsHook reports whether a called name follows the hook convention.
	IsHook(name string) bool

	// IsBuiltinHook reports whether a hook name is provided by the framework.
	IsBuiltinHook(name string) bool

	// IsWrapper reports whether a callee wraps a component (memo, forwardRef, ...).
	IsWrapper(callee string) bool

	// IsContextFactory reports whether a callee creates a context object.
	IsContextFactory(callee string) bool
}

// BuiltinHooks lists the framework hooks in the order they are rendered.
var BuiltinHooks = []string{
	"useState",
	"useEffect",
	"useCallback",
	"useMemo",
	"useRef",
	"useContext",
	"useReducer",
	"useLayoutEffect",
}

// ConventionHeuristics is the React naming convention: components are
// capitalized, hooks are "use" followed by an uppercase letter or digit.
type ConventionHeuristics struct {
	builtins map[string]bool
	wrappers map[string]bool
}

// NewConventionHeuristics creates the default heuristics.
func NewConventionHeuristics() *ConventionHeuristics {
	h := &ConventionHeuristics{
		builtins: make(map[string]bool, len(BuiltinHooks)),
		wrappers: map[string]bool{
			"memo":       true,
			"forwardRef": true,
			"lazy":       true,
		},
	}
	for _, name := range BuiltinHooks {
		h.builtins[name] = true
	}
	return h
}

func (h *ConventionHeuristics) IsComponent(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

func (h *ConventionHeuristics) IsHook(name string) bool {
	if !strings.HasPrefix(name, "use") || len(name) < 4 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name[3:])
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

func (h *ConventionHeuristics) IsBuiltinHook(name string) bool {
	return h.builtins[name]
}

func (h *ConventionHeuristics) IsWrapper(callee string) bool {
	return h.wrappers[strings.TrimPrefix(callee, "React.")]
}

func (h *ConventionHeuristics) IsContextFactory(callee string) bool {
	return strings.TrimPrefix(callee, "React.") == "createContext"
}

// hookCounter accumulates hook calls while walking a tree.
type hookCounter struct {
	h       Heuristics
	builtin map[string]int
	custom  []string
	seen    map[string]bool
}

func newHookCounter(h Heuristics) *hookCounter {
	return &hookCounter{h: h, builtin: map[string]int{}, seen: map[string]bool{}}
}

// observe records a call to name if it follows the hook convention.
func (c *hookCounter) observe(name string) {
	if !c.h.IsHook(name) {
		return
	}
	if c.h.IsBuiltinHook(name) {
		c.builtin[name]++
		return
	}
	if !c.seen[name] {
		c.seen[name] = true
		c.custom = append(c.custom, name)
	}
}

func (c *hookCounter) result() Hooks {
	var hooks Hooks
	if len(c.builtin) > 0 {
		hooks.Builtin = c.builtin
	}
	hooks.Custom = c.custom
	return hooks
}

// renderCollector accumulates rendered components and the union of their props.
type renderCollector struct {
	order []string
	props map[string][]string
	seen  map[string]map[string]bool
}

func newRenderCollector() *renderCollector {
	return &renderCollector{props: map[string][]string{}, seen: map[string]map[string]bool{}}
}

func (r *renderCollector) add(component string, props []string) {
	if _, ok := r.seen[component]; !ok {
		r.seen[component] = map[string]bool{}
		r.order = append(r.order, component)
	}
	for _, p := range props {
		if r.seen[component][p] {
			continue
		}
		r.seen[component][p] = true
		r.props[component] = append(r.props[component], p)
	}
}

func (r *renderCollector) result() []Render {
	if len(r.order) == 0 {
		return nil
	}
	renders := make([]Render, 0, len(r.order))
	for _, name := range r.order {
		renders = append(renders, Render{Component: name, Props: r.props[name]})
	}
	return renders
}
