package formats

import (
	"fmt"
	"strings"

	"rds/internal/engine/graph"
)

// TreeGenerator prints the import tree below one module followed by the
// modules that import it.
type TreeGenerator struct {
	nodes map[string]graph.Node
	label Labeler
}

func NewTreeGenerator(nodes []graph.Node, label Labeler) *TreeGenerator {
	if label == nil {
		label = identity
	}
	return &TreeGenerator{nodes: index(nodes), label: label}
}

func (t *TreeGenerator) Generate(focus string) (string, error) {
	root, ok := t.nodes[focus]
	if !ok {
		return "", fmt.Errorf("module %s is not in the graph", focus)
	}

	var b strings.Builder
	b.WriteString(t.line(root))
	b.WriteString("\n")
	seen := map[string]bool{focus: true}
	t.walk(&b, root, "", seen)

	b.WriteString("\nImported by:\n")
	if len(root.Importers) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, importer := range root.Importers {
		b.WriteString("  " + t.label(importer) + "\n")
	}
	return b.String(), nil
}

// walk prints each module once; later occurrences are marked and not expanded.
func (t *TreeGenerator) walk(b *strings.Builder, n graph.Node, prefix string, seen map[string]bool) {
	for i, dep := range n.SrcImports {
		last := i == len(n.SrcImports)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		child, ok := t.nodes[dep]
		if !ok {
			b.WriteString(prefix + branch + t.label(dep) + " (missing)\n")
			continue
		}
		if seen[dep] {
			b.WriteString(prefix + branch + t.label(dep) + " (seen)\n")
			continue
		}
		seen[dep] = true
		b.WriteString(prefix + branch + t.line(child) + "\n")
		t.walk(b, child, prefix+next, seen)
	}
}

func (t *TreeGenerator) line(n graph.Node) string {
	tags := []string{string(n.Kind)}
	if n.SelfUpdate {
		tags = append(tags, "self-update")
	}
	if n.Entry {
		tags = append(tags, "entry")
	}
	return fmt.Sprintf("%s [%s]", t.label(n.URL), strings.Join(tags, ", "))
}
