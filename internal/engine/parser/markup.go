package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"rds/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type attribute struct {
	name       string
	value      string
	valueStart int
	valueEnd   int
}

func startTagOf(element *sitter.Node) *sitter.Node {
	for i := uint(0); i < element.NamedChildCount(); i++ {
		c := element.NamedChild(i)
		if c.Kind() == "start_tag" || c.Kind() == "self_closing_tag" {
			return c
		}
	}
	return nil
}

func tagName(tag *sitter.Node, source []byte) string {
	for i := uint(0); i < tag.NamedChildCount(); i++ {
		c := tag.NamedChild(i)
		if c.Kind() == "tag_name" {
			return strings.ToLower(nodeText(c, source))
		}
	}
	return ""
}

func attributes(tag *sitter.Node, source []byte) []attribute {
	var attrs []attribute
	for i := uint(0); i < tag.NamedChildCount(); i++ {
		a := tag.NamedChild(i)
		if a.Kind() != "attribute" {
			continue
		}
		var at attribute
		for j := uint(0); j < a.NamedChildCount(); j++ {
			c := a.NamedChild(j)
			switch c.Kind() {
			case "attribute_name":
				at.name = nodeText(c, source)
			case "attribute_value":
				at.value = nodeText(c, source)
				at.valueStart, at.valueEnd = int(c.StartByte()), int(c.EndByte())
			case "quoted_attribute_value":
				at.valueStart, at.valueEnd = int(c.StartByte())+1, int(c.EndByte())-1
				if at.valueEnd >= at.valueStart {
					at.value = string(source[at.valueStart:at.valueEnd])
				}
			}
		}
		if at.name != "" {
			attrs = append(attrs, at)
		}
	}
	return attrs
}

func attr(attrs []attribute, name string) (attribute, bool) {
	for _, a := range attrs {
		if strings.EqualFold(a.name, name) {
			return a, true
		}
	}
	return attribute{}, false
}

// BuildSVGComponent turns an SVG document into an ES module whose default
// export renders the same root element through React.
func (g *Grammars) BuildSVGComponent(path string, source []byte) (string, error) {
	tree, err := g.Parse(LangHTML, source)
	if err != nil {
		return "", err
	}
	defer tree.Close()

	var svg *sitter.Node
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if svg != nil {
			return false
		}
		if n.Kind() == "element" {
			if tag := startTagOf(n); tag != nil && tagName(tag, source) == "svg" {
				svg = n
				return false
			}
		}
		return true
	})
	if svg == nil {
		return "", errors.Newf(errors.CodeSyntaxError, "no <svg> root element").
			WithContext(errors.CtxPath, path)
	}

	start := startTagOf(svg)
	props := map[string]string{}
	var keys []string
	for _, a := range attributes(start, source) {
		key := jsxAttributeName(a.name)
		if _, dup := props[key]; !dup {
			keys = append(keys, key)
		}
		props[key] = a.value
	}

	inner := ""
	if start.Kind() == "start_tag" {
		end := int(svg.EndByte())
		for i := uint(0); i < svg.NamedChildCount(); i++ {
			if c := svg.NamedChild(i); c.Kind() == "end_tag" {
				end = int(c.StartByte())
			}
		}
		if end > int(start.EndByte()) {
			inner = strings.TrimSpace(string(source[start.EndByte():end]))
		}
	}

	var b strings.Builder
	b.WriteString("import { createElement } from \"react\";\n")
	b.WriteString("const attrs = {")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", jsString(k), jsString(props[k]))
	}
	b.WriteString("};\n")
	fmt.Fprintf(&b, "const markup = %s;\n", jsString(inner))
	b.WriteString("export default function SvgComponent(props) {\n")
	b.WriteString("  return createElement(\"svg\", { ...attrs, ...props, dangerouslySetInnerHTML: { __html: markup } });\n")
	b.WriteString("}\n")
	return b.String(), nil
}

func jsString(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}

// jsxAttributeName converts SVG attribute spelling to React prop names.
func jsxAttributeName(name string) string {
	switch name {
	case "class":
		return "className"
	case "for":
		return "htmlFor"
	}
	if strings.HasPrefix(name, "data-") || strings.HasPrefix(name, "aria-") {
		return name
	}
	var b strings.Builder
	upper := false
	for _, r := range name {
		if r == '-' || r == ':' {
			upper = true
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		b.WriteRune(r)
	}
	return b.String()
}

// RewriteHTML rewrites the src of module scripts and the href of stylesheet
// links through rewrite, then injects snippet before </body>.
func (g *Grammars) RewriteHTML(source []byte, rewrite func(ref string) (string, bool), snippet string) (string, error) {
	tree, err := g.Parse(LangHTML, source)
	if err != nil {
		return "", err
	}
	defer tree.Close()

	var edits []edit
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		var target string
		switch n.Kind() {
		case "script_element":
			target = "src"
		case "element":
			if tag := startTagOf(n); tag != nil && tagName(tag, source) == "link" {
				attrs := attributes(tag, source)
				if rel, ok := attr(attrs, "rel"); ok && strings.EqualFold(rel.value, "stylesheet") {
					target = "href"
				}
			}
		default:
			return true
		}
		if target == "" {
			return true
		}
		tag := startTagOf(n)
		if tag == nil {
			return false
		}
		if a, ok := attr(attributes(tag, source), target); ok && a.valueEnd > a.valueStart {
			if next, ok := rewrite(a.value); ok {
				edits = append(edits, edit{a.valueStart, a.valueEnd, next})
			}
		}
		return false
	})

	out := applyEdits(string(source), edits)
	return InjectBeforeBody(out, snippet), nil
}

// InjectBeforeBody inserts snippet before the last </body>, or appends it.
func InjectBeforeBody(html, snippet string) string {
	if snippet == "" {
		return html
	}
	idx := strings.LastIndex(strings.ToLower(html), "</body>")
	if idx < 0 {
		return html + snippet
	}
	return html[:idx] + snippet + html[idx:]
}

// InjectIntoHead inserts snippet before </head>. Without a head the snippet
// goes first, so it still runs before any script of the document.
func InjectIntoHead(html, snippet string) string {
	if snippet == "" {
		return html
	}
	idx := strings.Index(strings.ToLower(html), "</head>")
	if idx < 0 {
		return snippet + html
	}
	return html[:idx] + snippet + html[idx:]
}
