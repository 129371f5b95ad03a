package parser

import (
	"fmt"
	"strings"

	"rds/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start >= end || end > uint(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// walk visits node and its descendants depth-first. Returning false from fn
// skips the node's children.
func walk(node *sitter.Node, fn func(*sitter.Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		walk(node.Child(i), fn)
	}
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(root *sitter.Node) *sitter.Node {
	var found *sitter.Node
	walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

// syntaxError builds a SYNTAX_ERROR for the first broken node under root.
func syntaxError(path string, source []byte, root *sitter.Node) error {
	node := firstError(root)
	if node == nil {
		node = root
	}
	pos := node.StartPosition()
	line := int(pos.Row) + 1
	col := int(pos.Column) + 1

	msg := "unexpected input"
	if node.IsMissing() {
		msg = fmt.Sprintf("expected %q", node.Kind())
	} else if text := strings.TrimSpace(nodeText(node, source)); text != "" {
		if len(text) > 24 {
			text = text[:24] + "..."
		}
		msg = fmt.Sprintf("unexpected %q", text)
	}
	return errors.Newf(errors.CodeSyntaxError, "%s", msg).
		WithContext(errors.CtxPath, fmt.Sprintf("%s:%d:%d", path, line, col)).
		WithContext(errors.CtxFrame, errors.Frame(string(source), line))
}

// stringContent returns the unquoted value of a string-like node together
// with the byte range of that value.
func stringContent(node *sitter.Node, source []byte) (string, int, int, bool) {
	text := nodeText(node, source)
	if len(text) < 2 {
		return "", 0, 0, false
	}
	q := text[0]
	if (q != '"' && q != '\'' && q != '`') || text[len(text)-1] != q {
		return "", 0, 0, false
	}
	if q == '`' && strings.Contains(text, "${") {
		return "", 0, 0, false
	}
	start := int(node.StartByte()) + 1
	end := int(node.EndByte()) - 1
	return text[1 : len(text)-1], start, end, true
}
