package formats

import (
	"fmt"
	"strings"

	"rds/internal/engine/graph"
)

type MermaidGenerator struct {
	nodes []graph.Node
	label Labeler
}

func NewMermaidGenerator(nodes []graph.Node, label Labeler) *MermaidGenerator {
	if label == nil {
		label = identity
	}
	return &MermaidGenerator{nodes: nodes, label: label}
}

// Generate renders a left-to-right flowchart. Stylesheets and assets get
// their own classes; edges that stop update propagation are dashed.
func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	labels := make([]string, 0, len(m.nodes))
	for _, n := range m.nodes {
		labels = append(labels, m.label(n.URL))
	}
	byLabel := makeIDs(labels)
	ids := make(map[string]string, len(m.nodes))
	for i, n := range m.nodes {
		ids[n.URL] = byLabel[labels[i]]
	}

	byKind := make(map[graph.Kind][]string)
	var entry string
	for _, n := range m.nodes {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[n.URL], escapeLabel(nodeLabel(n, m.label))))
		byKind[n.Kind] = append(byKind[n.Kind], ids[n.URL])
		if n.Entry {
			entry = ids[n.URL]
		}
	}

	b.WriteString("\n")
	b.WriteString("  classDef scriptNode fill:#f7fbff,stroke:#4d6480,stroke-width:1px,color:#000000;\n")
	b.WriteString("  classDef styleNode fill:#f5f0ff,stroke:#6b46c1,stroke-width:1px,color:#000000;\n")
	b.WriteString("  classDef assetNode fill:#efefef,stroke:#808080,stroke-dasharray:4 3,color:#000000;\n")
	for _, kc := range []struct {
		kind  graph.Kind
		class string
	}{
		{graph.KindScript, "scriptNode"},
		{graph.KindStyle, "styleNode"},
		{graph.KindAsset, "assetNode"},
	} {
		if list := byKind[kc.kind]; len(list) > 0 {
			b.WriteString(fmt.Sprintf("  class %s %s;\n", strings.Join(list, ","), kc.class))
		}
	}
	if entry != "" {
		b.WriteString(fmt.Sprintf("  style %s stroke-width:3px;\n", entry))
	}

	b.WriteString("\n")
	byURL := index(m.nodes)
	for _, from := range m.nodes {
		for _, to := range from.SrcImports {
			if _, ok := ids[to]; !ok {
				continue
			}
			arrow := "-->"
			if byURL[to].SelfUpdate {
				arrow = "-.->"
			}
			b.WriteString(fmt.Sprintf("  %s %s %s\n", ids[from.URL], arrow, ids[to]))
		}
	}

	return b.String(), nil
}
