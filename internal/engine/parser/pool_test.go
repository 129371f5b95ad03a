package parser

import (
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

func jsLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_javascript.Language())
}

func TestParserPool_GetPut(t *testing.T) {
	lang := jsLanguage()
	pool := NewParserPool(lang)

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}

	if pool.Leased() != 1 {
		t.Fatalf("expected 1 leased parser, got %d", pool.Leased())
	}
	pool.Put(sp)
	if pool.Leased() != 0 {
		t.Fatalf("expected no leased parsers, got %d", pool.Leased())
	}
}

func TestParserPool_ReusesParsers(t *testing.T) {
	lang := jsLanguage()
	pool := NewParserPool(lang)

	sp1 := pool.Get()
	pool.Put(sp1)

	sp2 := pool.Get()
	if sp2 == nil {
		t.Fatal("expected non-nil parser on second Get")
	}
	pool.Put(sp2)
}

func TestParserPool_PutNil(t *testing.T) {
	lang := jsLanguage()
	pool := NewParserPool(lang)

	pool.Put(nil)
}

func TestParserPool_ParsesValidModule(t *testing.T) {
	lang := jsLanguage()
	pool := NewParserPool(lang)

	sp := pool.Get()
	defer pool.Put(sp)

	src := []byte("import { h } from \"./h.js\";\nexport const x = h();\n")
	tree := sp.Parse(src, nil)
	if tree == nil {
		t.Fatal("expected non-nil parse tree for valid module")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		t.Fatalf("expected error-free root node, got hasError=%v", root.HasError())
	}
}

func TestParserPool_ConcurrentAccess(t *testing.T) {
	lang := jsLanguage()
	pool := NewParserPool(lang)

	const goroutines = 20
	const iters = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)

	src := []byte("export function run() { return 1; }\n")

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				sp := pool.Get()
				tree := sp.Parse(src, nil)
				if tree == nil {
					t.Errorf("expected non-nil parse tree")
				} else {
					tree.Close()
				}
				pool.Put(sp)
			}
		}()
	}

	wg.Wait()
}

func TestParserPool_LanguageSetAfterReset(t *testing.T) {
	lang := jsLanguage()
	pool := NewParserPool(lang)

	sp := pool.Get()
	sp.Reset()
	pool.Put(sp)

	sp2 := pool.Get()
	defer pool.Put(sp2)

	src := []byte("const ok = () => true;\n")
	tree := sp2.Parse(src, nil)
	if tree == nil {
		t.Fatal("parser with reset language should still parse correctly after Get")
	}
	defer tree.Close()
}
