package graph

import (
	"sort"
	"sync"

	"rds/internal/core/errors"
	"rds/internal/shared/observability"
)

// Kind classifies a module node.
type Kind string

const (
	KindScript Kind = "script"
	KindStyle  Kind = "style"
	KindAsset  Kind = "asset"
)

// Node is a read-only snapshot of a module in the graph.
type Node struct {
	URL        string
	Kind       Kind
	SelfUpdate bool
	Entry      bool
	SrcImports []string
	Importers  []string
}

// Target is an import edge destination passed to SetImports.
type Target struct {
	URL  string
	Kind Kind
}

type node struct {
	url        string
	kind       Kind
	selfUpdate bool
	imports    []string
	importers  map[string]bool
}

// Graph is the arena of module nodes. Edges are stored as key sets in both
// directions and the import relation is kept acyclic.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*node
	entry string
}

func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// Ensure tracks url, creating its node on first use.
func (g *Graph) Ensure(url string, kind Kind) Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.ensureLocked(url, kind)
	g.updateMetricsLocked()
	return g.snapshotLocked(n)
}

func (g *Graph) ensureLocked(url string, kind Kind) *node {
	if n, ok := g.nodes[url]; ok {
		return n
	}
	n := &node{url: url, kind: kind, importers: make(map[string]bool)}
	g.nodes[url] = n
	return n
}

// SetEntry marks url as the page entry point and tracks it.
func (g *Graph) SetEntry(url string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensureLocked(url, KindScript)
	g.entry = url
	g.updateMetricsLocked()
}

// Entry returns the entry point url, or "" before SetEntry.
func (g *Graph) Entry() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entry
}

func (g *Graph) Get(url string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[url]
	if !ok {
		return Node{}, false
	}
	return g.snapshotLocked(n), true
}

func (g *Graph) Has(url string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[url]
	return ok
}

// SetSelfUpdate records whether url can absorb its own updates.
func (g *Graph) SetSelfUpdate(url string, self bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[url]; ok {
		n.selfUpdate = self
	}
}

// SetImports replaces the import edges of from. A new edge that would close
// a cycle fails with IMPORT_CYCLE and leaves the graph untouched; edges that
// already exist are accepted as they are. Style nodes that lose their last
// importer are evicted and returned in pruned.
func (g *Graph) SetImports(from string, targets []Target) (pruned []string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.nodes[from]
	existing := map[string]bool{}
	if ok {
		for _, to := range src.imports {
			existing[to] = true
		}
	}

	next := make([]string, 0, len(targets))
	wanted := make(map[string]bool, len(targets))
	for _, t := range targets {
		if wanted[t.URL] {
			continue
		}
		wanted[t.URL] = true
		next = append(next, t.URL)
		if existing[t.URL] {
			continue
		}
		if t.URL == from || g.reachesLocked(t.URL, from) {
			return nil, errors.ImportCycle(from, t.URL)
		}
	}

	src = g.ensureLocked(from, KindScript)
	for _, t := range targets {
		dst := g.ensureLocked(t.URL, t.Kind)
		dst.importers[from] = true
	}

	var dropped []string
	for _, to := range src.imports {
		if !wanted[to] {
			dropped = append(dropped, to)
		}
	}
	src.imports = next
	for _, to := range dropped {
		pruned = append(pruned, g.unlinkLocked(from, to)...)
	}

	g.updateMetricsLocked()
	return pruned, nil
}

// reachesLocked reports whether to is reachable from start along import edges.
func (g *Graph) reachesLocked(start, to string) bool {
	n, ok := g.nodes[start]
	if !ok {
		return false
	}
	seen := map[string]bool{start: true}
	queue := append([]string(nil), n.imports...)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if curr == to {
			return true
		}
		if seen[curr] {
			continue
		}
		seen[curr] = true
		if cn, ok := g.nodes[curr]; ok {
			queue = append(queue, cn.imports...)
		}
	}
	return false
}

// unlinkLocked removes the back edge from->to and evicts to when it is a
// style node left without importers. Evictions cascade through @import chains.
func (g *Graph) unlinkLocked(from, to string) []string {
	dst, ok := g.nodes[to]
	if !ok {
		return nil
	}
	delete(dst.importers, from)
	if dst.kind != KindStyle || len(dst.importers) > 0 || to == g.entry {
		return nil
	}

	pruned := []string{to}
	delete(g.nodes, to)
	for _, child := range dst.imports {
		pruned = append(pruned, g.unlinkLocked(to, child)...)
	}
	return pruned
}

// Removal describes the structural effect of removing a node.
type Removal struct {
	Importers []string
	Pruned    []string
}

// Remove deletes url from the graph. Former importers lose their edge to it.
func (g *Graph) Remove(url string) (Removal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[url]
	if !ok {
		return Removal{}, false
	}
	res := Removal{Importers: sortedKeys(n.importers)}
	for _, importer := range res.Importers {
		if in, ok := g.nodes[importer]; ok {
			in.imports = without(in.imports, url)
		}
	}
	delete(g.nodes, url)
	for _, to := range n.imports {
		res.Pruned = append(res.Pruned, g.unlinkLocked(url, to)...)
	}
	if g.entry == url {
		g.entry = ""
	}
	g.updateMetricsLocked()
	return res, true
}

// Importers returns the direct importers of url, sorted.
func (g *Graph) Importers(url string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[url]
	if !ok {
		return nil
	}
	return sortedKeys(n.importers)
}

// TransitiveImporters returns every module whose emitted code depends on url,
// nearest first.
func (g *Graph) TransitiveImporters(url string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[url]
	if !ok {
		return nil
	}
	var out []string
	seen := map[string]bool{url: true}
	queue := sortedKeys(n.importers)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if seen[curr] {
			continue
		}
		seen[curr] = true
		out = append(out, curr)
		if cn, ok := g.nodes[curr]; ok {
			queue = append(queue, sortedKeys(cn.importers)...)
		}
	}
	return out
}

// Propagate walks importer edges from url. It returns the self-updating
// modules that absorb the change in discovery order, or deadEnd when some
// path reaches a module without importers before any absorbing module.
func (g *Graph) Propagate(url string) (updates []string, deadEnd bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[string]bool{}
	added := map[string]bool{}
	var visit func(string) bool
	visit = func(curr string) bool {
		if seen[curr] {
			return false
		}
		seen[curr] = true
		n, ok := g.nodes[curr]
		if !ok {
			return true
		}
		if n.selfUpdate {
			if !added[curr] {
				added[curr] = true
				updates = append(updates, curr)
			}
			return false
		}
		if len(n.importers) == 0 {
			return true
		}
		for _, importer := range sortedKeys(n.importers) {
			if visit(importer) {
				return true
			}
		}
		return false
	}
	if visit(url) {
		return nil, true
	}
	return updates, false
}

// Nodes returns snapshots of every node, sorted by url.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, url := range sortedKeys(g.nodes) {
		out = append(out, g.snapshotLocked(g.nodes[url]))
	}
	return out
}

// Stats returns node and edge counts.
func (g *Graph) Stats() (nodes, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes), g.edgeCountLocked()
}

func (g *Graph) edgeCountLocked() int {
	edges := 0
	for _, n := range g.nodes {
		edges += len(n.imports)
	}
	return edges
}

func (g *Graph) updateMetricsLocked() {
	observability.GraphNodes.Set(float64(len(g.nodes)))
	observability.GraphEdges.Set(float64(g.edgeCountLocked()))
}

func (g *Graph) snapshotLocked(n *node) Node {
	return Node{
		URL:        n.url,
		Kind:       n.kind,
		SelfUpdate: n.selfUpdate,
		Entry:      n.url == g.entry,
		SrcImports: append([]string(nil), n.imports...),
		Importers:  sortedKeys(n.importers),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func without(list []string, drop string) []string {
	out := list[:0]
	for _, s := range list {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}
