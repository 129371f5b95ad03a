package graph

import (
	"fmt"
	"reflect"
	"testing"

	"rds/internal/core/errors"
)

func scripts(urls ...string) []Target {
	out := make([]Target, 0, len(urls))
	for _, u := range urls {
		out = append(out, Target{URL: u, Kind: KindScript})
	}
	return out
}

func mustSet(t *testing.T, g *Graph, from string, targets []Target) []string {
	t.Helper()
	pruned, err := g.SetImports(from, targets)
	if err != nil {
		t.Fatalf("SetImports(%s): %v", from, err)
	}
	return pruned
}

func TestGraph_SetImportsTracksBothDirections(t *testing.T) {
	g := New()
	g.SetEntry("/src/main.tsx")
	mustSet(t, g, "/src/main.tsx", scripts("/src/App.tsx", "/src/util.ts"))
	mustSet(t, g, "/src/App.tsx", scripts("/src/util.ts"))

	main, _ := g.Get("/src/main.tsx")
	if !main.Entry {
		t.Error("expected main to be the entry")
	}
	if !reflect.DeepEqual(main.SrcImports, []string{"/src/App.tsx", "/src/util.ts"}) {
		t.Errorf("unexpected imports: %v", main.SrcImports)
	}
	if got := g.Importers("/src/util.ts"); !reflect.DeepEqual(got, []string{"/src/App.tsx", "/src/main.tsx"}) {
		t.Errorf("unexpected importers: %v", got)
	}
	if nodes, edges := g.Stats(); nodes != 3 || edges != 3 {
		t.Errorf("expected 3 nodes / 3 edges, got %d / %d", nodes, edges)
	}
}

func TestGraph_DroppedEdgeKeepsScriptNode(t *testing.T) {
	g := New()
	mustSet(t, g, "/a.ts", scripts("/b.ts"))
	pruned := mustSet(t, g, "/a.ts", nil)

	if len(pruned) != 0 {
		t.Errorf("script nodes must not be pruned, got %v", pruned)
	}
	if !g.Has("/b.ts") {
		t.Error("expected /b.ts to stay tracked")
	}
	if len(g.Importers("/b.ts")) != 0 {
		t.Error("expected /b.ts to have no importers")
	}
}

func TestGraph_DroppedEdgePrunesStyleChain(t *testing.T) {
	g := New()
	mustSet(t, g, "/App.tsx", []Target{{URL: "/app.css", Kind: KindStyle}})
	mustSet(t, g, "/app.css", []Target{{URL: "/base.css", Kind: KindStyle}})
	mustSet(t, g, "/Other.tsx", []Target{{URL: "/shared.css", Kind: KindStyle}})
	mustSet(t, g, "/App.tsx", []Target{{URL: "/app.css", Kind: KindStyle}, {URL: "/shared.css", Kind: KindStyle}})

	pruned := mustSet(t, g, "/App.tsx", nil)
	if !reflect.DeepEqual(pruned, []string{"/app.css", "/base.css"}) {
		t.Errorf("unexpected pruned set: %v", pruned)
	}
	if g.Has("/app.css") || g.Has("/base.css") {
		t.Error("pruned style nodes must leave the graph")
	}
	if !g.Has("/shared.css") {
		t.Error("style node with a remaining importer must stay")
	}
}

func TestGraph_CycleRejectedWithoutMutation(t *testing.T) {
	g := New()
	mustSet(t, g, "/a.ts", scripts("/b.ts"))
	mustSet(t, g, "/b.ts", scripts("/c.ts"))

	_, err := g.SetImports("/c.ts", scripts("/d.ts", "/a.ts"))
	if !errors.IsCode(err, errors.CodeImportCycle) {
		t.Fatalf("expected IMPORT_CYCLE, got %v", err)
	}
	if g.Has("/d.ts") {
		t.Error("failed SetImports must not create nodes")
	}
	if n, _ := g.Get("/c.ts"); len(n.SrcImports) != 0 {
		t.Errorf("failed SetImports must not add edges, got %v", n.SrcImports)
	}

	_, err = g.SetImports("/a.ts", scripts("/a.ts"))
	if !errors.IsCode(err, errors.CodeImportCycle) {
		t.Errorf("self import must be rejected, got %v", err)
	}
}

func TestGraph_ExistingEdgeIsAlwaysAccepted(t *testing.T) {
	g := New()
	mustSet(t, g, "/a.ts", scripts("/b.ts"))
	mustSet(t, g, "/a.ts", scripts("/b.ts"))
	mustSet(t, g, "/a.ts", scripts("/c.ts", "/b.ts"))

	n, _ := g.Get("/a.ts")
	if !reflect.DeepEqual(n.SrcImports, []string{"/c.ts", "/b.ts"}) {
		t.Errorf("unexpected imports order: %v", n.SrcImports)
	}
}

func TestGraph_AcyclicUnderRandomInsertions(t *testing.T) {
	g := New()
	const n = 12
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if (i*7+j*3)%5 != 0 {
				continue
			}
			from := fmt.Sprintf("/m%d.ts", i)
			node, _ := g.Get(from)
			targets := scripts(node.SrcImports...)
			targets = append(targets, Target{URL: fmt.Sprintf("/m%d.ts", j), Kind: KindScript})
			_, _ = g.SetImports(from, targets)
		}
	}
	for _, node := range g.Nodes() {
		if g.reachesLocked(node.URL, node.URL) {
			t.Fatalf("cycle through %s", node.URL)
		}
	}
}

func TestGraph_Remove(t *testing.T) {
	g := New()
	g.SetEntry("/main.tsx")
	mustSet(t, g, "/main.tsx", scripts("/Card.tsx"))
	mustSet(t, g, "/Card.tsx", []Target{{URL: "/card.css", Kind: KindStyle}})

	res, ok := g.Remove("/Card.tsx")
	if !ok {
		t.Fatal("expected removal")
	}
	if !reflect.DeepEqual(res.Importers, []string{"/main.tsx"}) {
		t.Errorf("unexpected importers: %v", res.Importers)
	}
	if !reflect.DeepEqual(res.Pruned, []string{"/card.css"}) {
		t.Errorf("unexpected pruned: %v", res.Pruned)
	}
	if main, _ := g.Get("/main.tsx"); len(main.SrcImports) != 0 {
		t.Errorf("importer must lose the edge, got %v", main.SrcImports)
	}
	if _, ok := g.Remove("/Card.tsx"); ok {
		t.Error("second removal must report false")
	}
}

func TestGraph_TransitiveImporters(t *testing.T) {
	g := New()
	mustSet(t, g, "/c.ts", scripts("/b.ts"))
	mustSet(t, g, "/b.ts", scripts("/a.ts"))
	mustSet(t, g, "/d.ts", scripts("/a.ts", "/c.ts"))

	got := g.TransitiveImporters("/a.ts")
	want := []string{"/b.ts", "/d.ts", "/c.ts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TransitiveImporters = %v, want %v", got, want)
	}
}

func TestGraph_Propagate(t *testing.T) {
	build := func() *Graph {
		g := New()
		g.SetEntry("/main.tsx")
		mustSet(t, g, "/main.tsx", scripts("/App.tsx", "/util.ts"))
		mustSet(t, g, "/App.tsx", scripts("/Button.tsx", "/format.ts"))
		mustSet(t, g, "/Button.tsx", scripts("/format.ts"))
		g.SetSelfUpdate("/App.tsx", true)
		g.SetSelfUpdate("/Button.tsx", true)
		return g
	}

	tests := []struct {
		name    string
		changed string
		want    []string
		deadEnd bool
	}{
		{"self updating component", "/App.tsx", []string{"/App.tsx"}, false},
		{"plain module below entry", "/util.ts", nil, true},
		{"shared helper absorbed by both importers", "/format.ts", []string{"/App.tsx", "/Button.tsx"}, false},
		{"entry itself", "/main.tsx", nil, true},
		{"unknown module", "/gone.ts", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates, deadEnd := build().Propagate(tt.changed)
			if deadEnd != tt.deadEnd {
				t.Fatalf("deadEnd = %v, want %v", deadEnd, tt.deadEnd)
			}
			if !reflect.DeepEqual(updates, tt.want) {
				t.Errorf("updates = %v, want %v", updates, tt.want)
			}
		})
	}
}

func TestGraph_PropagateShortCircuitsOnDeadEnd(t *testing.T) {
	g := New()
	g.SetEntry("/main.ts")
	mustSet(t, g, "/main.ts", scripts("/a.ts", "/Widget.tsx"))
	mustSet(t, g, "/Widget.tsx", scripts("/shared.ts"))
	mustSet(t, g, "/a.ts", scripts("/shared.ts"))
	g.SetSelfUpdate("/Widget.tsx", true)

	if _, deadEnd := g.Propagate("/shared.ts"); !deadEnd {
		t.Error("a path through non-updating /a.ts to the entry must force a reload")
	}
}
