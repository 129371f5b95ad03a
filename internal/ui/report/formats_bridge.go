package report

import (
	"fmt"

	"rds/internal/engine/graph"
	"rds/internal/ui/report/formats"
)

type Format string

const (
	FormatTree    Format = "tree"
	FormatMermaid Format = "mermaid"
	FormatTSV     Format = "tsv"
)

type TreeGenerator = formats.TreeGenerator
type TSVGenerator = formats.TSVGenerator
type MermaidGenerator = formats.MermaidGenerator

// RenderGraph prints the part of the graph reachable from focus.
func RenderGraph(nodes []graph.Node, focus string, format Format, label formats.Labeler) (string, error) {
	switch format {
	case FormatTree, "":
		return formats.NewTreeGenerator(nodes, label).Generate(focus)
	case FormatMermaid:
		return formats.NewMermaidGenerator(formats.Reachable(nodes, focus), label).Generate()
	case FormatTSV:
		return formats.NewTSVGenerator(formats.Reachable(nodes, focus), label).Generate()
	default:
		return "", fmt.Errorf("unknown graph format %q (want tree, mermaid or tsv)", format)
	}
}
