package resolver

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"rds/internal/core/errors"
	"rds/internal/engine/cache"
	"rds/internal/engine/resolver/drivers"
)

type Kind int

const (
	KindSource Kind = iota
	KindDependency
	KindVirtual
)

func (k Kind) String() string {
	switch k {
	case KindDependency:
		return "dependency"
	case KindVirtual:
		return "virtual"
	default:
		return "source"
	}
}

// VirtualPrefix marks specifiers served from memory.
const VirtualPrefix = "virtual:"

type resolution struct {
	path       string
	candidates []string
}

// Resolver maps import specifiers to absolute file paths. Both hits and
// misses are memoized until Forget is called for an affected path.
type Resolver struct {
	root       string
	extensions []string
	aliases    []alias
	specs      *drivers.JavaScriptSpecifiers
	cache      *cache.Cache[string, resolution]
	exists     func(string) bool
}

type alias struct {
	prefix string
	dir    string
}

func New(root string, extensions []string, aliases map[string]string) *Resolver {
	r := &Resolver{
		root:       filepath.Clean(root),
		extensions: append([]string(nil), extensions...),
		specs:      drivers.NewJavaScriptSpecifiers(),
		cache:      cache.New[string, resolution]("resolve"),
		exists:     isFile,
	}
	for prefix, dir := range aliases {
		r.aliases = append(r.aliases, alias{prefix: prefix, dir: dir})
	}
	// Longest alias first so "@app" wins over "@".
	sort.Slice(r.aliases, func(i, j int) bool {
		return len(r.aliases[i].prefix) > len(r.aliases[j].prefix)
	})
	return r
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func (r *Resolver) Root() string { return r.root }

func (r *Resolver) Specifiers() *drivers.JavaScriptSpecifiers { return r.specs }

// Classify reports how specifier should be served.
func (r *Resolver) Classify(specifier string) Kind {
	specifier = r.specs.Clean(specifier)
	switch {
	case strings.HasPrefix(specifier, VirtualPrefix):
		return KindVirtual
	case r.specs.IsRelative(specifier):
		return KindSource
	case r.matchAlias(specifier) != "":
		return KindSource
	default:
		return KindDependency
	}
}

// Resolve maps specifier, imported from the file importer, to an absolute
// path. Specifiers with an extension resolve to the joined path unchanged;
// others try each extension, then <specifier>/index with each extension.
func (r *Resolver) Resolve(specifier, importer string) (string, error) {
	clean := r.specs.Clean(specifier)
	base, ok := r.join(clean, importer)
	if !ok {
		return "", errors.UnresolvedImport(importer, specifier)
	}

	res, err := r.cache.Get(base, func() (resolution, error) {
		return r.lookup(base), nil
	})
	if err != nil {
		return "", err
	}
	if res.path == "" {
		return "", errors.UnresolvedImport(importer, specifier)
	}
	return res.path, nil
}

func (r *Resolver) join(specifier, importer string) (string, bool) {
	switch {
	case specifier == "":
		return "", false
	case strings.HasPrefix(specifier, "/"):
		return filepath.Join(r.root, filepath.FromSlash(path.Clean(specifier))), true
	case r.specs.IsRelative(specifier):
		return filepath.Join(filepath.Dir(importer), filepath.FromSlash(specifier)), true
	}
	if dir := r.matchAlias(specifier); dir != "" {
		return dir, true
	}
	return "", false
}

func (r *Resolver) matchAlias(specifier string) string {
	for _, a := range r.aliases {
		if specifier == a.prefix {
			return a.dir
		}
		if strings.HasPrefix(specifier, a.prefix+"/") {
			return filepath.Join(a.dir, filepath.FromSlash(strings.TrimPrefix(specifier, a.prefix+"/")))
		}
	}
	return ""
}

func (r *Resolver) lookup(base string) resolution {
	if filepath.Ext(base) != "" {
		return resolution{path: base}
	}
	candidates := make([]string, 0, 2*len(r.extensions))
	for _, ext := range r.extensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range r.extensions {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}
	for _, c := range candidates {
		if r.exists(c) {
			return resolution{path: c}
		}
	}
	return resolution{candidates: candidates}
}

// Forget drops memoized lookups that resolved to path, or that missed but
// would now find path.
func (r *Resolver) Forget(path string) int {
	path = filepath.Clean(path)
	return r.cache.DeleteFunc(func(key string, res resolution) bool {
		if res.path == path || key == path {
			return true
		}
		for _, c := range res.candidates {
			if c == path {
				return true
			}
		}
		return false
	})
}

// Reset drops every memoized lookup.
func (r *Resolver) Reset() {
	r.cache.Clear()
}
