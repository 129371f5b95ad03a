// Package transform turns project files into browser-ready modules. Results
// are memoized per file and keyed by the source hash; imports are kept as
// offsets into the emitted code so that rendering can splice in the
// content-hashed URLs of their targets.
package transform

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"rds/internal/core/errors"
	"rds/internal/data/transformstore"
	"rds/internal/engine/cache"
	"rds/internal/engine/css/generator"
	"rds/internal/engine/graph"
	"rds/internal/engine/parser"
	"rds/internal/engine/resolver"
	"rds/internal/shared/observability"
	"rds/internal/shared/util"
)

// Import is one rewritable reference in emitted code.
type Import struct {
	Specifier string `json:"specifier"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Dynamic   bool   `json:"dynamic,omitempty"`

	// Filled at link time, never persisted.
	Class  resolver.Kind `json:"-"`
	Target string        `json:"-"`
	Form   Form          `json:"-"`
}

// Result is the cached transform of one file.
type Result struct {
	Path        string            `json:"path"`
	Kind        Kind              `json:"kind"`
	SourceHash  string            `json:"source_hash"`
	Code        string            `json:"code"`
	Imports     []Import          `json:"imports,omitempty"`
	Refresh     bool              `json:"refresh,omitempty"`
	CSSModule   bool              `json:"css_module,omitempty"`
	Exports     map[string]string `json:"exports,omitempty"`
	ExportOrder []string          `json:"export_order,omitempty"`
	// Utilities is set when @apply or @screen was expanded, which ties the
	// result to the current rule table.
	Utilities bool `json:"utilities,omitempty"`

	SelfUpdate bool `json:"-"`
}

// Persister keeps compiled results across restarts.
type Persister interface {
	Load(path, sourceHash string) (transformstore.Entry, bool, error)
	Submit(transformstore.Entry)
}

type Options struct {
	Resolver  *resolver.Resolver
	Graph     *graph.Graph
	Grammars  *parser.Grammars
	Generator *generator.Generator
	// Persister is optional.
	Persister Persister
}

type Pipeline struct {
	root       string
	resolver   *resolver.Resolver
	graph      *graph.Graph
	grammars   *parser.Grammars
	transpiler *parser.Transpiler
	styles     *parser.StyleProcessor
	generator  *generator.Generator
	persist    Persister
	readFile   func(string) ([]byte, error)

	transforms *cache.Cache[string, *Result]
	renders    *cache.Cache[string, *Output]

	mu      sync.Mutex
	exports map[string]string
	onPrune func(paths []string)
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		root:       opts.Resolver.Root(),
		resolver:   opts.Resolver,
		graph:      opts.Graph,
		grammars:   opts.Grammars,
		transpiler: parser.NewTranspiler(opts.Grammars),
		styles:     parser.NewStyleProcessor(opts.Grammars),
		generator:  opts.Generator,
		persist:    opts.Persister,
		readFile:   os.ReadFile,
		transforms: cache.New[string, *Result]("transform"),
		renders:    cache.New[string, *Output]("render"),
		exports:    make(map[string]string),
	}
	p.graph.Ensure(UtilsID, graph.KindStyle)
	p.graph.SetSelfUpdate(UtilsID, true)
	return p
}

// OnPrune registers the listener for stylesheets that lost their last
// importer during a re-scan. It receives served paths.
func (p *Pipeline) OnPrune(fn func(paths []string)) {
	p.mu.Lock()
	p.onPrune = fn
	p.mu.Unlock()
}

func (p *Pipeline) Root() string { return p.root }

// Transform returns the compiled form of the file at path, running the
// compiler on a miss and updating the graph edges of path.
func (p *Pipeline) Transform(ctx context.Context, path string) (*Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "transform.Transform")
	defer span.End()

	res, err := p.transforms.Get(path, func() (*Result, error) {
		return p.build(ctx, path)
	})
	if err != nil {
		observability.Fail(span, err)
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) build(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	kind := KindOf(path)
	defer func() {
		observability.TransformDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	src, err := p.readFile(path)
	if err != nil {
		observability.TransformsTotal.WithLabelValues(string(kind), "error").Inc()
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.CodeNotFound, "%s does not exist", path).
				WithContext(errors.CtxPath, path)
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "read source")
	}
	hash := util.ContentHash(src)
	if kind == KindScript {
		p.generator.ScanFile(path, string(src))
	}

	outcome := "stored"
	res, ok := p.restore(path, hash)
	if !ok {
		outcome = "ok"
		res, err = p.compile(ctx, path, kind, src)
		if err != nil {
			observability.TransformsTotal.WithLabelValues(string(kind), "error").Inc()
			return nil, err
		}
		res.SourceHash = hash
		p.save(res)
	}

	if err := p.link(res); err != nil {
		observability.TransformsTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}
	observability.TransformsTotal.WithLabelValues(string(kind), outcome).Inc()
	slog.Debug("transformed", "path", path, "kind", kind, "imports", len(res.Imports), "outcome", outcome)
	return res, nil
}

func (p *Pipeline) compile(ctx context.Context, path string, kind Kind, src []byte) (*Result, error) {
	res := &Result{Path: path, Kind: kind}
	switch kind {
	case KindScript:
		script, err := p.transpiler.Transpile(ctx, path, src)
		if err != nil {
			return nil, err
		}
		res.Code = script.Code
		res.Imports = fromRefs(script.Imports)
		res.Refresh = strings.Contains(script.Code, parser.RefreshMarker)

	case KindSVG:
		code, err := p.grammars.BuildSVGComponent(path, src)
		if err != nil {
			return nil, err
		}
		refs, err := p.grammars.ScanImports([]byte(code))
		if err != nil {
			return nil, err
		}
		res.Code = code
		res.Imports = fromRefs(refs)

	case KindStyle:
		if err := p.compileStyle(ctx, res, string(src)); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func fromRefs(refs []parser.ImportRef) []Import {
	out := make([]Import, len(refs))
	for i, r := range refs {
		out[i] = Import{Specifier: r.Specifier, Start: r.Start, End: r.End, Dynamic: r.Dynamic}
	}
	return out
}

func (p *Pipeline) compileStyle(ctx context.Context, res *Result, source string) error {
	m := p.generator.Matcher()
	code, screens, err := ExpandScreen(m, res.Path, source)
	if err != nil {
		return err
	}
	code, applied, err := ExpandApply(m, res.Path, code)
	if err != nil {
		return err
	}
	sheet, err := p.styles.Process(ctx, res.Path, []byte(code))
	if err != nil {
		return err
	}

	res.Code = sheet.Code
	res.Utilities = screens || applied
	res.CSSModule = sheet.Module
	if sheet.Module {
		res.Exports = sheet.Exports
		res.ExportOrder = append([]string{}, sheet.ExportOrder...)
	}
	for _, dep := range sheet.Dependencies {
		if dep.External {
			continue
		}
		res.Imports = append(res.Imports, Import{Specifier: dep.Specifier, Start: dep.Start, End: dep.End})
	}
	sort.SliceStable(res.Imports, func(i, j int) bool { return res.Imports[i].Start < res.Imports[j].Start })
	return nil
}

// resolveImports fills in the target of every import of res.
func (p *Pipeline) resolveImports(res *Result) error {
	specs := p.resolver.Specifiers()
	for i := range res.Imports {
		imp := &res.Imports[i]
		spec := imp.Specifier
		if res.Kind == KindStyle && p.resolver.Classify(spec) == resolver.KindDependency {
			// url(img/a.png) and @import "base.css" are relative in CSS.
			spec = "./" + spec
		}

		imp.Form = FormModule
		if res.Kind == KindStyle {
			imp.Form = FormRaw
		}
		imp.Class = p.resolver.Classify(spec)
		switch imp.Class {
		case resolver.KindVirtual:
			if specs.Clean(spec) != UtilsSpecifier {
				return errors.UnresolvedImport(res.Path, imp.Specifier)
			}
			imp.Target = UtilsID
		case resolver.KindDependency:
			imp.Target = DepsPrefix + specs.Clean(spec)
		default:
			target, err := p.resolver.Resolve(spec, res.Path)
			if err != nil {
				return err
			}
			imp.Target = target
		}
	}
	return nil
}

// link resolves imports and records them as graph edges. Stylesheets left
// without importers are evicted and reported through OnPrune.
func (p *Pipeline) link(res *Result) error {
	if err := p.resolveImports(res); err != nil {
		return err
	}

	var targets []graph.Target
	for _, imp := range res.Imports {
		if imp.Class == resolver.KindDependency {
			continue
		}
		kind := graph.KindStyle
		if imp.Target != UtilsID {
			kind = KindOf(imp.Target).node()
		}
		targets = append(targets, graph.Target{URL: imp.Target, Kind: kind})
	}

	p.graph.Ensure(res.Path, res.Kind.node())
	pruned, err := p.graph.SetImports(res.Path, targets)
	if err != nil {
		return err
	}

	res.SelfUpdate = p.selfUpdate(res)
	p.graph.SetSelfUpdate(res.Path, res.SelfUpdate)

	if len(pruned) > 0 {
		p.dropPruned(pruned)
	}
	return nil
}

// selfUpdate decides whether res can replace itself in a running page.
// Components with a refresh registration can; stylesheets can unless a CSS
// module changed its export set.
func (p *Pipeline) selfUpdate(res *Result) bool {
	switch res.Kind {
	case KindScript:
		return res.Refresh
	case KindStyle:
		sig := exportSignature(res.ExportOrder)
		p.mu.Lock()
		defer p.mu.Unlock()
		prev, seen := p.exports[res.Path]
		p.exports[res.Path] = sig
		return !seen || prev == sig
	}
	return false
}

func (p *Pipeline) dropPruned(ids []string) {
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		p.Forget(id)
		paths = append(paths, p.ServedPath(id))
	}
	slog.Debug("pruned stylesheets", "paths", paths)

	p.mu.Lock()
	fn := p.onPrune
	p.mu.Unlock()
	if fn != nil {
		fn(paths)
	}
}

func (p *Pipeline) restore(path, hash string) (*Result, bool) {
	if p.persist == nil {
		return nil, false
	}
	e, ok, err := p.persist.Load(path, hash)
	if err != nil {
		slog.Warn("transform store load failed", "path", path, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(e.Payload, &res); err != nil {
		slog.Debug("discarding stored transform", "path", path, "error", err)
		return nil, false
	}
	return &res, true
}

func (p *Pipeline) save(res *Result) {
	if p.persist == nil || res.Utilities {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		slog.Warn("encode transform", "path", res.Path, "error", err)
		return
	}
	p.persist.Submit(transformstore.Entry{
		Path:       res.Path,
		SourceHash: res.SourceHash,
		Kind:       string(res.Kind),
		Payload:    payload,
	})
}

// Invalidate drops the transform of path and the rendered output of every
// module whose code embeds its URL. It returns those importers, nearest
// first.
func (p *Pipeline) Invalidate(path string) []string {
	p.transforms.Delete(path)
	p.dropRenders(path)
	importers := p.graph.TransitiveImporters(path)
	for _, imp := range importers {
		p.dropRenders(imp)
	}
	return importers
}

// InvalidateUtilities drops every stylesheet whose @apply or @screen
// expansion depends on the rule table, plus the generated stylesheet. It
// returns the dropped stylesheets.
func (p *Pipeline) InvalidateUtilities() []string {
	var ids []string
	p.transforms.DeleteFunc(func(id string, res *Result) bool {
		if res.Utilities {
			ids = append(ids, id)
			return true
		}
		return false
	})
	ids = append(ids, UtilsID)
	for _, id := range ids {
		p.Invalidate(id)
	}
	sort.Strings(ids)
	return ids
}

// Forget drops every cached artifact of path.
func (p *Pipeline) Forget(path string) {
	p.transforms.Delete(path)
	p.dropRenders(path)
	p.mu.Lock()
	delete(p.exports, path)
	p.mu.Unlock()
}

// Reset drops all cached transforms and renders.
func (p *Pipeline) Reset() {
	p.transforms.Clear()
	p.renders.Clear()
	p.mu.Lock()
	p.exports = make(map[string]string)
	p.mu.Unlock()
}

// Cached reports whether path has a live transform.
func (p *Pipeline) Cached(path string) bool {
	return p.transforms.Has(path)
}

// Stats reports cache sizes.
func (p *Pipeline) Stats() (transforms, renders int) {
	return p.transforms.Len(), p.renders.Len()
}
