package cli

import (
	"fmt"
	"strings"
)

func renderHelp(m model) string {
	keys := "Keys: tab panel | / filter | enter imports | esc back | j/k import cursor | o open source | q quit"
	if m.mode == panelActivity {
		keys = "Keys: tab panel | / filter | q quit"
	}
	return statusStyle.Render(keys)
}

func renderModulePanel(m model) string {
	summary := m.moduleList.View()
	details := renderNodeSummary(m)
	if m.showDetails {
		details = renderNodeDetails(m)
	}
	return summary + "\n\n" + details
}

func renderNodeSummary(m model) string {
	n, ok := m.selectedNode()
	if !ok {
		return statusStyle.Render("No modules in the graph yet.")
	}
	return strings.Join([]string{
		"Selected Module",
		fmt.Sprintf("  URL: %s", m.shortName(n.URL)),
		fmt.Sprintf("  Kind: %s", n.Kind),
		fmt.Sprintf("  Self-updating: %t", n.SelfUpdate),
		fmt.Sprintf("  Imports: %d", len(n.SrcImports)),
		fmt.Sprintf("  Imported by: %d", len(n.Importers)),
		"  Press enter for the import drill-down.",
	}, "\n")
}

func renderNodeDetails(m model) string {
	n, ok := m.selectedNode()
	if !ok {
		return statusStyle.Render("No modules in the graph yet.")
	}
	lines := []string{
		fmt.Sprintf("Module Detail: %s", m.shortName(n.URL)),
		fmt.Sprintf("  Imported by (%d): %s", len(n.Importers), m.shortNames(n.Importers)),
		fmt.Sprintf("  Imports (%d):", len(n.SrcImports)),
	}
	for i, dep := range n.SrcImports {
		prefix := "   "
		if i == m.selectedDepIndex {
			prefix = " ->"
		}
		lines = append(lines, fmt.Sprintf("%s %s", prefix, m.shortName(dep)))
	}
	if len(n.SrcImports) == 0 {
		lines = append(lines, "   none")
	}
	lines = append(lines, "  Press esc to exit details, o to open the highlighted import.")
	return strings.Join(lines, "\n")
}
