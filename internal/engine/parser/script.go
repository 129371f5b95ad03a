package parser

import (
	"sort"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ScanImports lists static imports, re-exports and dynamic import() calls
// with literal specifiers, in source order.
func (g *Grammars) ScanImports(code []byte) ([]ImportRef, error) {
	tree, err := g.Parse(LangJavaScript, code)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var refs []ImportRef
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		switch n.Kind() {
		case "import_statement", "export_statement":
			if src := n.ChildByFieldName("source"); src != nil {
				if spec, start, end, ok := stringContent(src, code); ok {
					refs = append(refs, ImportRef{Specifier: spec, Start: start, End: end})
				}
			}
			return n.Kind() == "export_statement"
		case "call_expression":
			fn := n.ChildByFieldName("function")
			if fn == nil || fn.Kind() != "import" {
				return true
			}
			if arg := firstArgument(n); arg != nil {
				if spec, start, end, ok := stringContent(arg, code); ok {
					refs = append(refs, ImportRef{Specifier: spec, Start: start, End: end, Dynamic: true})
				}
			}
		}
		return true
	})
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Start < refs[j].Start })
	return refs, nil
}

func firstArgument(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		child := args.NamedChild(i)
		if child.Kind() == "comment" {
			continue
		}
		return child
	}
	return nil
}

// ScanComponents returns the exported top-level components of a module:
// PascalCase functions, classes and function-valued consts.
func (g *Grammars) ScanComponents(lang Language, source []byte) ([]string, error) {
	tree, err := g.Parse(lang, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if isComponentName(name) && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		if stmt.Kind() != "export_statement" || stmt.ChildByFieldName("source") != nil {
			continue
		}
		for j := uint(0); j < stmt.NamedChildCount(); j++ {
			for _, name := range declaredComponents(stmt.NamedChild(j), source) {
				add(name)
			}
		}
	}
	return names, nil
}

func declaredComponents(decl *sitter.Node, source []byte) []string {
	switch decl.Kind() {
	case "function_declaration", "function_expression", "function", "class_declaration", "class":
		if name := decl.ChildByFieldName("name"); name != nil {
			return []string{nodeText(name, source)}
		}
	case "lexical_declaration", "variable_declaration":
		var out []string
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			d := decl.NamedChild(i)
			if d.Kind() != "variable_declarator" {
				continue
			}
			name := d.ChildByFieldName("name")
			value := d.ChildByFieldName("value")
			if name == nil || value == nil || name.Kind() != "identifier" {
				continue
			}
			if isComponentValue(value) {
				out = append(out, nodeText(name, source))
			}
		}
		return out
	}
	return nil
}

func isComponentValue(value *sitter.Node) bool {
	switch value.Kind() {
	case "arrow_function", "function_expression", "function":
		return true
	case "call_expression":
		// memo(...) and forwardRef(...) wrap a render function.
		arg := firstArgument(value)
		return arg != nil && isComponentValue(arg)
	}
	return false
}

func isComponentName(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)
	return unicode.IsUpper(r[0])
}
