package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language identifies a grammar known to the dev server.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangCSS        Language = "css"
	LangHTML       Language = "html"
)

// Grammars holds one parser pool per supported language.
type Grammars struct {
	pools map[Language]*ParserPool
}

// NewGrammars compiles the statically linked grammars.
func NewGrammars() *Grammars {
	return &Grammars{pools: map[Language]*ParserPool{
		LangJavaScript: NewParserPool(sitter.NewLanguage(tree_sitter_javascript.Language())),
		LangTypeScript: NewParserPool(sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())),
		LangTSX:        NewParserPool(sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())),
		LangCSS:        NewParserPool(sitter.NewLanguage(tree_sitter_css.Language())),
		LangHTML:       NewParserPool(sitter.NewLanguage(tree_sitter_html.Language())),
	}}
}

// LanguageForPath maps a file extension to its grammar.
func LanguageForPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".css":
		return LangCSS, true
	case ".html", ".htm", ".svg":
		return LangHTML, true
	}
	return "", false
}

// Parse parses source with a pooled parser. The caller closes the tree.
func (g *Grammars) Parse(lang Language, source []byte) (*sitter.Tree, error) {
	pool, ok := g.pools[lang]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s parser returned no tree", lang)
	}
	return tree, nil
}

// Leased sums the parsers currently leased across all pools.
func (g *Grammars) Leased() int {
	n := 0
	for _, p := range g.pools {
		n += p.Leased()
	}
	return n
}
