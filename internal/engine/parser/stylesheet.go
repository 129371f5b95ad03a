package parser

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"rds/internal/shared/observability"
	"rds/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// StyleProcessor extracts dependencies from stylesheets and scopes class
// names of CSS modules.
type StyleProcessor struct {
	grammars *Grammars
}

func NewStyleProcessor(grammars *Grammars) *StyleProcessor {
	return &StyleProcessor{grammars: grammars}
}

// IsCSSModule reports whether path uses CSS module semantics.
func IsCSSModule(path string) bool {
	return strings.HasSuffix(strings.ToLower(filepath.Base(path)), ".module.css")
}

// ScopedName returns the exported name of class local in the module at path.
func ScopedName(path, local string) string {
	return local + "_" + util.ShortHashString(filepath.ToSlash(path))[:6]
}

// IsExternalReference reports references the dev server never rewrites.
func IsExternalReference(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	for _, prefix := range []string{"data:", "http:", "https:", "//", "#"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Process parses source as CSS.
func (p *StyleProcessor) Process(ctx context.Context, path string, source []byte) (Stylesheet, error) {
	_, span := observability.Tracer.Start(ctx, "parser.ProcessCSS")
	defer span.End()

	out := Stylesheet{Code: string(source), Module: IsCSSModule(path)}
	if out.Module {
		code, exports, order, err := p.scopeClasses(path, source)
		if err != nil {
			observability.Fail(span, err)
			return Stylesheet{}, err
		}
		out.Code, out.Exports, out.ExportOrder = code, exports, order
	}

	deps, err := p.dependencies(path, []byte(out.Code))
	if err != nil {
		observability.Fail(span, err)
		return Stylesheet{}, err
	}
	out.Dependencies = deps
	return out, nil
}

func (p *StyleProcessor) dependencies(path string, code []byte) ([]StyleDependency, error) {
	tree, err := p.grammars.Parse(LangCSS, code)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := firstCSSError(root, code); bad != nil {
		return nil, syntaxError(path, code, bad)
	}

	var deps []StyleDependency
	walk(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "import_statement":
			for i := uint(0); i < n.NamedChildCount(); i++ {
				child := n.NamedChild(i)
				var spec string
				var start, end int
				var ok bool
				switch child.Kind() {
				case "string_value":
					spec, start, end, ok = stringContent(child, code)
				case "call_expression":
					spec, start, end, ok = urlArgument(child, code)
				}
				if ok {
					deps = append(deps, StyleDependency{
						Kind: DepImport, Specifier: spec, Start: start, End: end,
						External: IsExternalReference(spec),
					})
					break
				}
			}
			return false
		case "call_expression":
			if spec, start, end, ok := urlArgument(n, code); ok {
				deps = append(deps, StyleDependency{
					Kind: DepURL, Specifier: spec, Start: start, End: end,
					External: IsExternalReference(spec),
				})
				return false
			}
		}
		return true
	})
	return deps, nil
}

// urlArgument reads the target of url(...) straight from the source, since
// unquoted urls are not always a single token for the grammar.
func urlArgument(call *sitter.Node, code []byte) (string, int, int, bool) {
	name := call.Child(0)
	if name == nil || !strings.EqualFold(nodeText(name, code), "url") {
		return "", 0, 0, false
	}
	text := nodeText(call, code)
	open := strings.IndexByte(text, '(')
	closing := strings.LastIndexByte(text, ')')
	if open < 0 || closing <= open {
		return "", 0, 0, false
	}
	base := int(call.StartByte())
	start, end := base+open+1, base+closing
	for start < end && isSpace(code[start]) {
		start++
	}
	for end > start && isSpace(code[end-1]) {
		end--
	}
	if end-start >= 2 && (code[start] == '"' || code[start] == '\'') && code[end-1] == code[start] {
		start++
		end--
	}
	if start >= end {
		return "", 0, 0, false
	}
	return string(code[start:end]), start, end, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

// firstCSSError ignores damage inside url(...) arguments.
func firstCSSError(root *sitter.Node, code []byte) *sitter.Node {
	var found *sitter.Node
	walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind() == "call_expression" {
			if _, _, _, ok := urlArgument(n, code); ok {
				return false
			}
		}
		if n.IsError() || n.IsMissing() {
			if !insideURL(code, int(n.StartByte())) {
				found = n
			}
			return false
		}
		return n.HasError()
	})
	return found
}

func insideURL(code []byte, off int) bool {
	text := strings.ToLower(string(code[:off]))
	idx := strings.LastIndex(text, "url(")
	if idx < 0 {
		return strings.HasPrefix(strings.ToLower(string(code[off:])), "url(")
	}
	return !strings.Contains(text[idx:], ")")
}

type edit struct {
	start, end int
	text       string
}

func (p *StyleProcessor) scopeClasses(path string, source []byte) (string, map[string]string, []string, error) {
	tree, err := p.grammars.Parse(LangCSS, source)
	if err != nil {
		return "", nil, nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := firstCSSError(root, source); bad != nil {
		return "", nil, nil, syntaxError(path, source, bad)
	}

	exports := map[string]string{}
	var order []string
	var edits []edit

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Kind() {
		case "pseudo_class_selector":
			// :global(...) arguments keep their names.
			isGlobal := false
			for i := uint(0); i < n.NamedChildCount(); i++ {
				c := n.NamedChild(i)
				if c.Kind() == "class_name" && nodeText(c, source) == "global" {
					isGlobal = true
				}
			}
			for i := uint(0); i < n.NamedChildCount(); i++ {
				c := n.NamedChild(i)
				if isGlobal && c.Kind() == "arguments" {
					continue
				}
				visit(c)
			}
			return
		case "class_selector":
			for i := uint(0); i < n.NamedChildCount(); i++ {
				c := n.NamedChild(i)
				if c.Kind() != "class_name" {
					visit(c)
					continue
				}
				local := nodeText(c, source)
				scoped, ok := exports[local]
				if !ok {
					scoped = ScopedName(path, local)
					exports[local] = scoped
					order = append(order, local)
				}
				edits = append(edits, edit{int(c.StartByte()), int(c.EndByte()), scoped})
			}
			return
		case "keyframes_statement", "comment":
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)

	return applyEdits(string(source), edits), exports, order, nil
}

func applyEdits(src string, edits []edit) string {
	if len(edits) == 0 {
		return src
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var b strings.Builder
	last := 0
	for _, e := range edits {
		if e.start < last {
			continue
		}
		b.WriteString(src[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.WriteString(src[last:])
	return b.String()
}
