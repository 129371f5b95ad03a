package formats

import (
	"fmt"
	"strings"

	"rds/internal/engine/graph"
)

type TSVGenerator struct {
	nodes []graph.Node
	label Labeler
}

func NewTSVGenerator(nodes []graph.Node, label Labeler) *TSVGenerator {
	if label == nil {
		label = identity
	}
	return &TSVGenerator{nodes: nodes, label: label}
}

// Generate writes one row per import edge, in source order per importer.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("From\tTo\tFromKind\tToKind\tSelfUpdate\n")

	byURL := index(t.nodes)
	for _, from := range t.nodes {
		for _, to := range from.SrcImports {
			target := byURL[to]
			buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%t\n",
				t.label(from.URL), t.label(to), from.Kind, target.Kind, target.SelfUpdate))
		}
	}

	return buf.String(), nil
}
