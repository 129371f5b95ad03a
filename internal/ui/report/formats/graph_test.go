package formats

import (
	"strings"
	"testing"

	"rds/internal/engine/graph"
)

func sampleNodes() []graph.Node {
	return []graph.Node{
		{URL: "/p/src/App.tsx", Kind: graph.KindScript, SelfUpdate: true, SrcImports: []string{"/p/src/App.css", "/p/src/util.ts"}, Importers: []string{"/p/src/main.tsx"}},
		{URL: "/p/src/App.css", Kind: graph.KindStyle, SelfUpdate: true, Importers: []string{"/p/src/App.tsx"}},
		{URL: "/p/src/main.tsx", Kind: graph.KindScript, Entry: true, SrcImports: []string{"/p/src/App.tsx", "/p/src/util.ts"}},
		{URL: "/p/src/other.ts", Kind: graph.KindScript},
		{URL: "/p/src/util.ts", Kind: graph.KindScript, Importers: []string{"/p/src/App.tsx", "/p/src/main.tsx"}},
	}
}

func short(id string) string { return strings.TrimPrefix(id, "/p/") }

func TestReachable(t *testing.T) {
	t.Parallel()

	got := Reachable(sampleNodes(), "/p/src/App.tsx")
	var urls []string
	for _, n := range got {
		urls = append(urls, short(n.URL))
	}
	expected := "src/App.tsx,src/App.css,src/util.ts"
	if strings.Join(urls, ",") != expected {
		t.Fatalf("expected %q, got %q", expected, strings.Join(urls, ","))
	}

	if all := Reachable(sampleNodes(), ""); len(all) != 5 {
		t.Fatalf("expected every node without focus, got %d", len(all))
	}
}

func TestTreeGenerator(t *testing.T) {
	t.Parallel()

	out, err := NewTreeGenerator(sampleNodes(), short).Generate("/p/src/main.tsx")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	expected := strings.Join([]string{
		"src/main.tsx [script, entry]",
		"├── src/App.tsx [script, self-update]",
		"│   ├── src/App.css [style, self-update]",
		"│   └── src/util.ts [script]",
		"└── src/util.ts (seen)",
		"",
		"Imported by:",
		"  (none)",
		"",
	}, "\n")
	if out != expected {
		t.Fatalf("unexpected tree:\n%s", out)
	}

	if _, err := NewTreeGenerator(sampleNodes(), short).Generate("/p/nope.ts"); err == nil {
		t.Fatal("expected error for a module outside the graph")
	}
}

func TestTreeGenerator_ListsImporters(t *testing.T) {
	t.Parallel()

	out, err := NewTreeGenerator(sampleNodes(), short).Generate("/p/src/util.ts")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "Imported by:\n  src/App.tsx\n  src/main.tsx\n") {
		t.Fatalf("expected importers in output:\n%s", out)
	}
}

func TestMermaidGenerator(t *testing.T) {
	t.Parallel()

	out, err := NewMermaidGenerator(Reachable(sampleNodes(), "/p/src/main.tsx"), short).Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, want := range []string{
		"flowchart LR\n",
		"src_main_tsx -.-> src_App_tsx",
		"src_main_tsx --> src_util_ts",
		"class src_App_css styleNode;",
		"style src_main_tsx stroke-width:3px;",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "other") {
		t.Fatalf("unreachable module rendered:\n%s", out)
	}
}

func TestTSVGenerator(t *testing.T) {
	t.Parallel()

	out, err := NewTSVGenerator(sampleNodes(), short).Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header and 4 edges, got %d lines:\n%s", len(lines), out)
	}
	if lines[1] != "src/App.tsx\tsrc/App.css\tscript\tstyle\ttrue" {
		t.Fatalf("unexpected first row %q", lines[1])
	}
}
