package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// maxSignatureRunes bounds a rendered declaration header.
const maxSignatureRunes = 200

// treeSitterParser provides common tree-sitter parsing functionality.
type treeSitterParser struct {
	language *sitter.Language
	lang     string
}

// newTreeSitterParser creates a new tree-sitter parser for the given language.
func newTreeSitterParser(language *sitter.Language, lang string) *treeSitterParser {
	return &treeSitterParser{
		language: language,
		lang:     lang,
	}
}

// parse parses source and hands the root node to fn. The tree is closed
// when fn returns, so nodes must not escape it.
func (p *treeSitterParser) parse(ctx context.Context, path string, source []byte, fn func(root *sitter.Node)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return fmt.Errorf("failed to set %s language: %w", p.lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return fmt.Errorf("failed to parse %s file: %s", p.lang, path)
	}
	defer tree.Close()

	fn(tree.RootNode())
	return ctx.Err()
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// nodeLines returns the 1-based start and end lines of a node.
func nodeLines(node *sitter.Node) (int, int) {
	return int(node.StartPosition().Row) + 1, int(node.EndPosition().Row) + 1
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
// Returning false from the visitor skips the node's children.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		walkTree(child, visitor)
	}
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// findChildrenByType finds all child nodes with the given type.
func findChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var results []*sitter.Node
	if node == nil {
		return results
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			results = append(results, child)
		}
	}
	return results
}

// namedChildren returns the named children of a node.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	results := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := 0; i < int(node.NamedChildCount()); i++ {
		results = append(results, node.NamedChild(uint(i)))
	}
	return results
}

// headerText returns the declaration text from the start of node up to
// the start of body, whitespace-collapsed. Without a body the first
// line of the node is used.
func headerText(node, body *sitter.Node, source []byte) string {
	var text string
	if body != nil && body.StartByte() > node.StartByte() {
		text = string(source[node.StartByte():body.StartByte()])
	} else {
		text = extractNodeText(node, source)
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[:idx]
		}
	}
	return collapseSignature(text)
}

// collapseSignature folds whitespace and bounds the length of a header.
func collapseSignature(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.TrimSuffix(text, " {")
	text = strings.TrimSuffix(text, "{")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) > maxSignatureRunes {
		text = string(runes[:maxSignatureRunes]) + "..."
	}
	return text
}

var (
	bracketPadding = strings.NewReplacer(
		"( ", "(", "[ ", "[", "{ ", "{", "< ", "<",
		" )", ")", " ]", "]", " }", "}", " >", ">",
	)
	trailingComma = strings.NewReplacer(",)", ")", ",]", "]", ",}", "}", ",>", ">")
)

// oneLine folds a multi-line node text into a single line, dropping the
// padding and trailing commas line breaks leave inside brackets:
// "Repo<\n  User,\n  Id,\n>" becomes "Repo<User, Id>".
func oneLine(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return trailingComma.Replace(bracketPadding.Replace(text))
}

// unquote strips matching string delimiters from a literal.
func unquote(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return text[1 : len(text)-1]
		}
		if first == '<' && last == '>' {
			return text[1 : len(text)-1]
		}
	}
	return text
}

// appendUnique appends s to list when it is not already present.
func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
