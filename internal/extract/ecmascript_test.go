package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the ECMAScript backend:
// - Static imports, require() and re-exports become imports with local names
// - Named, default and declaration exports are recorded
// - Capitalized functions and wrapper calls become components with props
// - Lowercase functions become functions
// - Built-in hooks are counted, custom hooks listed once
// - createContext bindings become contexts, other const bindings count as constants
// - Function and const bindings nested in function bodies are recorded
// - useEffect calls record their dependency arrays
// - Capitalized JSX elements become renders with attribute names
// - Interfaces, type aliases, enums and decorated classes with bases
// - Signatures for functions and arrow bindings with export prefixes
// - Grammar selection: .ts uses TypeScript, everything else TSX

const appSource = `import React, { useState } from 'react';
import Header from './components/Header';
import { formatDate as fmt } from '../utils/date';
const api = require('./api');

export const ThemeContext = React.createContext(null);
const MAX_ITEMS = 10;

export function App({ title, items }) {
  const [open, setOpen] = useState(false);
  const [count] = useState(0);
  const user = useAuth();
  useEffect(() => {}, []);
  return <Header title={title} onClose={setOpen} />;
}

export const Card = memo(({ label }) => <div>{label}</div>);

function helper(a, b) {
  return a + b;
}

export default App;
`

func TestECMAScript_Skeleton_ReactComponent(t *testing.T) {
	t.Parallel()

	backend := NewECMAScriptBackend(nil)
	s, err := backend.Skeleton(context.Background(), "src/App.jsx", []byte(appSource))
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, []Import{
		{Source: "react", Names: []string{"React", "useState"}},
		{Source: "./components/Header", Names: []string{"Header"}},
		{Source: "../utils/date", Names: []string{"fmt"}},
		{Source: "./api"},
	}, s.Imports)

	assert.Equal(t, []Export{
		{Name: "ThemeContext", Kind: ExportNamed},
		{Name: "App", Kind: ExportNamed},
		{Name: "Card", Kind: ExportNamed},
		{Name: "App", Kind: ExportDefault},
	}, s.Exports)

	require.Len(t, s.Components, 2)
	assert.Equal(t, "App", s.Components[0].Name)
	assert.Equal(t, 9, s.Components[0].Line)
	assert.Equal(t, 15, s.Components[0].EndLine)
	assert.Equal(t, []string{"title", "items"}, s.Components[0].Props)
	assert.Equal(t, "Card", s.Components[1].Name)
	assert.Equal(t, 17, s.Components[1].Line)
	assert.Equal(t, "memo", s.Components[1].Wrapper)
	assert.Equal(t, []string{"label"}, s.Components[1].Props)

	require.Len(t, s.Functions, 1)
	assert.Equal(t, "helper", s.Functions[0].Name)
	assert.Equal(t, 19, s.Functions[0].Line)
	assert.Equal(t, 21, s.Functions[0].EndLine)

	assert.Equal(t, map[string]int{"useState": 2, "useEffect": 1}, s.Hooks.Builtin)
	assert.Equal(t, []string{"useAuth"}, s.Hooks.Custom)

	assert.Equal(t, []Symbol{{Name: "ThemeContext", Line: 6, EndLine: 6}}, s.Contexts)
	// MAX_ITEMS, the required api binding and user inside App
	assert.Equal(t, 3, s.Constants)
	assert.Equal(t, []Effect{{Line: 13}}, s.Effects)

	assert.Equal(t, []Render{{Component: "Header", Props: []string{"title", "onClose"}}}, s.Renders)
}

func TestECMAScript_Skeleton_TypeScriptDeclarations(t *testing.T) {
	t.Parallel()

	source := `import type { User } from './types';

export interface Props {
  id: string;
}

export type Mode = 'a' | 'b';

@Injectable()
export class UserService extends BaseService implements Disposable {
  async load(id: string): Promise<User> {
    return this.get(id);
  }
}

enum Color { Red }
`
	backend := NewECMAScriptBackend(nil)
	s, err := backend.Skeleton(context.Background(), "src/user.ts", []byte(source))
	require.NoError(t, err)

	assert.Equal(t, []Import{{Source: "./types", Names: []string{"User"}}}, s.Imports)
	assert.Equal(t, []TypeDecl{{Name: "Props", Line: 3, EndLine: 5}}, s.Interfaces)

	require.Len(t, s.Types, 2)
	assert.Equal(t, "Mode", s.Types[0].Name)
	assert.Equal(t, 7, s.Types[0].Line)
	assert.Equal(t, "Color", s.Types[1].Name)

	require.Len(t, s.Classes, 1)
	class := s.Classes[0]
	assert.Equal(t, "UserService", class.Name)
	assert.Equal(t, []string{"BaseService", "Disposable"}, class.Bases)
	assert.Equal(t, []string{"Injectable"}, class.Decorators)

	assert.Empty(t, s.Components)
	assert.True(t, s.Hooks.Empty())
}

func TestECMAScript_Skeleton_NestedBindingsAndEffects(t *testing.T) {
	t.Parallel()

	source := `import React, { memo, useEffect } from 'react';

export const Card = memo(({ title, id }) => {
  const LIMIT = 5;
  const handleClick = () => {};
  function format(value) {
    return value;
  }
  useEffect(() => {}, [id]);
  useEffect(() => {});
  useEffect(() => {}, deps);
  React.useEffect(() => {}, [user?.name, items[0]]);
  return <div onClick={handleClick}>{title}</div>;
});

export async function loadCard(id) {
  let attempts = 0;
  return fetch(id);
}
`
	backend := NewECMAScriptBackend(nil)
	s, err := backend.Skeleton(context.Background(), "src/Card.jsx", []byte(source))
	require.NoError(t, err)

	require.Len(t, s.Components, 1)
	assert.Equal(t, "Card", s.Components[0].Name)
	assert.Equal(t, 3, s.Components[0].Line)
	assert.Equal(t, "memo", s.Components[0].Wrapper)
	assert.Equal(t, []string{"title", "id"}, s.Components[0].Props)

	require.Len(t, s.Functions, 3)
	assert.Equal(t, "handleClick", s.Functions[0].Name)
	assert.Equal(t, 5, s.Functions[0].Line)
	assert.Equal(t, "format", s.Functions[1].Name)
	assert.Equal(t, 6, s.Functions[1].Line)
	assert.Equal(t, "loadCard", s.Functions[2].Name)
	assert.True(t, s.Functions[2].Async)

	// LIMIT only: let bindings are not constants.
	assert.Equal(t, 1, s.Constants)

	assert.Equal(t, map[string]int{"useEffect": 4}, s.Hooks.Builtin)
	assert.Equal(t, []Effect{
		{Line: 9, Deps: []string{"id"}},
		{Line: 10, NoDeps: true},
		{Line: 11, Dynamic: true},
		{Line: 12, Deps: []string{"user.name", "?"}},
	}, s.Effects)
}

func TestECMAScript_Skeleton_ReExportsAndCommonJS(t *testing.T) {
	t.Parallel()

	source := `export { Button, Modal as Dialog } from './ui';
export * from './theme';
const Lazy = React.lazy(() => import('./pages/Lazy'));
module.exports = Lazy;
`
	backend := NewECMAScriptBackend(nil)
	s, err := backend.Skeleton(context.Background(), "index.js", []byte(source))
	require.NoError(t, err)

	var sources []string
	for _, imp := range s.Imports {
		sources = append(sources, imp.Source)
	}
	assert.Equal(t, []string{"./ui", "./theme", "./pages/Lazy"}, sources)

	assert.Contains(t, s.Exports, Export{Name: "Button", Kind: ExportNamed})
	assert.Contains(t, s.Exports, Export{Name: "Dialog", Kind: ExportNamed})
	assert.Contains(t, s.Exports, Export{Name: "Lazy", Kind: ExportDefault})

	require.Len(t, s.Components, 1)
	assert.Equal(t, "Lazy", s.Components[0].Name)
	assert.Equal(t, "lazy", s.Components[0].Wrapper)
}

func TestECMAScript_Skeleton_EmptyFile(t *testing.T) {
	t.Parallel()

	backend := NewECMAScriptBackend(nil)
	s, err := backend.Skeleton(context.Background(), "empty.js", []byte(""))
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Empty(t, s.Imports)
	assert.Empty(t, s.Components)
	assert.Zero(t, s.Constants)
}

func TestECMAScript_Skeleton_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := NewECMAScriptBackend(nil)
	s, err := backend.Skeleton(ctx, "App.jsx", []byte(appSource))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s)
}

func TestECMAScript_Signatures(t *testing.T) {
	t.Parallel()

	source := `export function add(a: number, b: number): number {
  return a + b;
}

export const double = (x: number) => x * 2;

class Counter extends Base {
  increment(by = 1) {
    this.n += by;
  }
}
`
	backend := NewECMAScriptBackend(nil)
	sigs, err := backend.Signatures(context.Background(), "math.ts", []byte(source))
	require.NoError(t, err)

	assert.Equal(t, []Signature{
		{Name: "add", Signature: "export function add(a: number, b: number): number", Line: 1},
		{Name: "double", Signature: "export const double = (x: number) =>", Line: 5},
		{Name: "Counter", Signature: "class Counter extends Base", Line: 7},
		{Name: "Counter.increment", Signature: "  increment(by = 1)", Line: 8},
	}, sigs)
}

func TestECMAScript_GrammarSelection(t *testing.T) {
	t.Parallel()

	backend := NewECMAScriptBackend(nil).(*ecmaScriptBackend)
	assert.Same(t, backend.ts, backend.parserFor("a.ts"))
	assert.Same(t, backend.ts, backend.parserFor("a.mts"))
	assert.Same(t, backend.tsx, backend.parserFor("a.tsx"))
	assert.Same(t, backend.tsx, backend.parserFor("a.jsx"))
	assert.Same(t, backend.tsx, backend.parserFor("a.js"))
}
