package transform

import (
	"path/filepath"
	"strings"

	"rds/internal/engine/graph"
	"rds/internal/shared/util"
)

// Kind classifies a source file by how it is compiled.
type Kind string

const (
	KindScript Kind = "script"
	KindStyle  Kind = "style"
	KindSVG    Kind = "svg"
	KindAsset  Kind = "asset"
)

func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs", ".jsx", ".ts", ".mts", ".cts", ".tsx", ".json":
		return KindScript
	case ".css":
		return KindStyle
	case ".svg":
		return KindSVG
	}
	return KindAsset
}

func (k Kind) node() graph.Kind {
	switch k {
	case KindScript:
		return graph.KindScript
	case KindStyle:
		return graph.KindStyle
	}
	return graph.KindAsset
}

// Form selects the shape a module is served in.
type Form string

const (
	// FormModule is JavaScript: scripts, and styles or assets imported from
	// a script.
	FormModule Form = "module"
	// FormRaw is the file as the browser expects it without an import:
	// CSS text or asset bytes.
	FormRaw Form = "raw"
)

// DefaultForm is the form served for a request without the import flag.
func DefaultForm(id string) Form {
	if id != UtilsID && KindOf(id) == KindScript {
		return FormModule
	}
	return FormRaw
}

const (
	// UtilsSpecifier is the import specifier of the generated stylesheet.
	UtilsSpecifier = "virtual:utils.css"
	// UtilsID is the graph node of the generated stylesheet.
	UtilsID = UtilsSpecifier
	// UtilsPath is where the generated stylesheet is served.
	UtilsPath = "/@rds/utils.css"

	DepsPrefix    = "/@deps/"
	FSPrefix      = "/@fs"
	RefreshPath   = "/@rds/refresh.js"
	ClientPath    = "/@rds/client.js"
	hashParam     = "h="
	importedParam = "import"
)

// ServedPath returns the browser path of a graph node, without a query.
func (p *Pipeline) ServedPath(id string) string {
	if id == UtilsID {
		return UtilsPath
	}
	if u, ok := util.URLPath(p.root, id); ok {
		return u
	}
	return FSPrefix + filepath.ToSlash(id)
}

// NodeFor maps a browser path back to a graph node id.
func (p *Pipeline) NodeFor(urlPath string) (string, bool) {
	switch {
	case urlPath == UtilsPath:
		return UtilsID, true
	case strings.HasPrefix(urlPath, FSPrefix+"/"):
		return filepath.Clean(filepath.FromSlash(strings.TrimPrefix(urlPath, FSPrefix))), true
	}
	return util.FilePath(p.root, urlPath)
}

// URL builds the content-hashed URL of id in form.
func (p *Pipeline) URL(id string, form Form, hash string) string {
	base := p.ServedPath(id)
	if form == FormModule && DefaultForm(id) != FormModule {
		return base + "?" + importedParam + "&" + hashParam + hash
	}
	return base + "?" + hashParam + hash
}
