package formats

import (
	"fmt"
	"strings"
	"unicode"

	"rds/internal/engine/graph"
)

// Labeler turns a module id into the text shown for it.
type Labeler func(id string) string

func identity(id string) string { return id }

func nodeLabel(n graph.Node, label Labeler) string {
	parts := []string{label(n.URL), string(n.Kind)}
	if n.SelfUpdate {
		parts = append(parts, "self-update")
	}
	if n.Entry {
		parts = append(parts, "entry")
	}
	return strings.Join(parts, "\\n")
}

func sanitizeID(module string) string {
	if module == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range module {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out == "" {
		return "m"
	}
	first := rune(out[0])
	if unicode.IsDigit(first) {
		return "m_" + out
	}
	return out
}

func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// Reachable keeps the nodes reachable from focus along import edges, in the
// order given. An empty focus keeps every node.
func Reachable(nodes []graph.Node, focus string) []graph.Node {
	if focus == "" {
		return nodes
	}
	byURL := index(nodes)
	keep := make(map[string]bool)
	var visit func(string)
	visit = func(url string) {
		if keep[url] {
			return
		}
		n, ok := byURL[url]
		if !ok {
			return
		}
		keep[url] = true
		for _, dep := range n.SrcImports {
			visit(dep)
		}
	}
	visit(focus)

	out := make([]graph.Node, 0, len(keep))
	for _, n := range nodes {
		if keep[n.URL] {
			out = append(out, n)
		}
	}
	return out
}

func index(nodes []graph.Node) map[string]graph.Node {
	byURL := make(map[string]graph.Node, len(nodes))
	for _, n := range nodes {
		byURL[n.URL] = n
	}
	return byURL
}
