package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"rds/internal/core/errors"
	"rds/internal/core/ports"
	"rds/internal/engine/graph"
	"rds/internal/engine/parser"
	"rds/internal/engine/transform"
	"rds/internal/shared/observability"
)

const (
	HMRPath          = "/@rds/hmr"
	HealthPath       = "/@rds/health"
	DevtoolsPath     = "/@rds/devtools"
	DevtoolsCSSPath  = "/@rds/devtools.css"
	refreshPreamble  = `<script type="module" src="` + transform.RefreshPath + `"></script>`
	clientScript     = `<script type="module" src="` + transform.ClientPath + `"></script>`
	devtoolsLink     = `<link rel="stylesheet" href="` + DevtoolsCSSPath + `" data-rds-devtools>`
	defaultIndexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>rds</title>
</head>
<body>
<div id="root"></div>
<script type="module" src="%ENTRY%"></script>
</body>
</html>
`
)

var _ ports.DevService = (*App)(nil)

// Route answers one dev request. Per-file compile errors are reported to the
// overlay and returned; a missing file is a ResponseNotFound, not an error.
func (a *App) Route(ctx context.Context, urlPath string, query url.Values) (ports.Response, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Route")
	defer span.End()

	clean := path.Clean("/" + strings.TrimPrefix(urlPath, "/"))
	switch {
	case clean == "/" || clean == "/index.html":
		return a.serveIndex(ctx)
	case clean == transform.ClientPath:
		return runtimeResponse(clientJS), nil
	case clean == transform.RefreshPath:
		return runtimeResponse(refreshJS), nil
	case clean == HealthPath:
		data, err := json.Marshal(a.Health(ctx))
		if err != nil {
			return ports.Response{}, err
		}
		return ports.Response{Kind: ports.ResponseFile, Content: data, MIME: "application/json"}, nil
	case clean == DevtoolsCSSPath:
		return ports.Response{
			Kind:    ports.ResponseFile,
			Content: []byte(a.Generator.GenerateDevtools()),
			MIME:    transform.MimeCSS,
		}, nil
	case strings.HasPrefix(urlPath, transform.DepsPrefix):
		return a.serveDependency(ctx, strings.TrimPrefix(urlPath, transform.DepsPrefix))
	case strings.HasPrefix(clean, "/@rds/") && clean != transform.UtilsPath:
		return ports.Response{Kind: ports.ResponseNotFound}, nil
	}

	id, ok := a.Pipeline.NodeFor(clean)
	if !ok {
		return ports.Response{Kind: ports.ResponseNotFound}, nil
	}
	if strings.HasPrefix(clean, transform.FSPrefix+"/") && !a.Graph.Has(id) {
		// Files outside the root are only served once something imports them.
		return ports.Response{Kind: ports.ResponseNotFound}, nil
	}

	var form transform.Form
	if query.Has("import") {
		form = transform.FormModule
	}
	out, err := a.Pipeline.Render(ctx, id, form)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			if path.Ext(clean) == "" {
				return a.serveIndex(ctx)
			}
			return ports.Response{Kind: ports.ResponseNotFound}, nil
		}
		observability.Fail(span, err)
		a.noteFailure(err)
		a.HMR.Fail(err)
		return ports.Response{}, err
	}

	hash := query.Get("h")
	return ports.Response{
		Kind:      ports.ResponseFile,
		Content:   out.Content,
		MIME:      out.MIME,
		Cacheable: hash != "" && hash == out.Hash,
	}, nil
}

func runtimeResponse(src []byte) ports.Response {
	return ports.Response{Kind: ports.ResponseFile, Content: src, MIME: transform.MimeJavaScript}
}

func (a *App) serveDependency(ctx context.Context, specifier string) (ports.Response, error) {
	if a.Deps == nil || specifier == "" {
		return ports.Response{Kind: ports.ResponseNotFound}, nil
	}
	location, err := a.Deps.Locate(ctx, specifier)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return ports.Response{Kind: ports.ResponseNotFound}, nil
		}
		return ports.Response{}, err
	}
	return ports.Response{Kind: ports.ResponseRedirect, Location: location}, nil
}

// serveIndex renders index.html with every local script and stylesheet
// reference pointing at its hashed URL, the refresh runtime first in head and
// the HMR client last in body.
func (a *App) serveIndex(ctx context.Context) (ports.Response, error) {
	source, err := os.ReadFile(a.Paths.IndexHTML)
	if err != nil {
		if !os.IsNotExist(err) {
			return ports.Response{}, errors.Wrap(err, errors.CodeInternal, "read index html")
		}
		entry := a.Pipeline.ServedPath(a.Paths.Entry)
		source = []byte(strings.Replace(defaultIndexHTML, "%ENTRY%", entry, 1))
	}
	a.Generator.ScanFile(a.Paths.IndexHTML, string(source))

	html, err := a.Grammars.RewriteHTML(source, func(ref string) (string, bool) {
		return a.indexReference(ctx, ref)
	}, clientScript)
	if err != nil {
		return ports.Response{}, errors.Wrap(err, errors.CodeInternal, "rewrite index html")
	}

	head := refreshPreamble
	if a.currentConfig().CSS.Devtools {
		head += devtoolsLink
	}
	html = parser.InjectIntoHead(html, head)
	return ports.Response{Kind: ports.ResponseFile, Content: []byte(html), MIME: "text/html; charset=utf-8"}, nil
}

// indexReference maps a src or href of index.html to a hashed URL. Compile
// errors are shown on the overlay and leave the reference untouched.
func (a *App) indexReference(ctx context.Context, ref string) (string, bool) {
	specs := a.Resolver.Specifiers()
	if specs.IsExternalURL(ref) || strings.HasPrefix(ref, "/@") {
		return "", false
	}
	clean := specs.Clean(ref)
	var id string
	if strings.HasPrefix(clean, "/") {
		var ok bool
		if id, ok = a.Pipeline.NodeFor(clean); !ok {
			return "", false
		}
	} else {
		id = filepath.Join(filepath.Dir(a.Paths.IndexHTML), filepath.FromSlash(clean))
	}
	if _, err := os.Stat(id); err != nil {
		return "", false
	}

	if transform.KindOf(id) == transform.KindScript {
		a.Graph.Ensure(id, graph.KindScript)
	}
	hashed, err := a.Pipeline.URLOf(ctx, id, transform.DefaultForm(id))
	if err != nil {
		a.noteFailure(err)
		a.HMR.Fail(err)
		return "", false
	}
	return hashed, true
}

// Devtools records class names seen at runtime and reports whether the
// devtools stylesheet changed.
func (a *App) Devtools(classes []string) ports.Response {
	changed := a.Generator.ObserveRuntime(classes)
	body, _ := json.Marshal(map[string]bool{"changed": changed})
	return ports.Response{Kind: ports.ResponseHandled, Content: body, MIME: "application/json"}
}

// Health summarises the server state.
func (a *App) Health(_ context.Context) ports.HealthStatus {
	nodes, edges := a.Graph.Stats()
	failing := a.HMR.Failing()
	status := ports.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Modules:    nodes,
		Edges:      edges,
		Clients:    a.clients(),
		Failing:    failing,
		Components: make(map[string]string),
	}
	if failing {
		status.Status = "degraded"
		status.Components["overlay"] = "showing compile error"
	}

	transforms, renders := a.Pipeline.Stats()
	status.Components["pipeline"] = formatCounts("transforms", transforms, "renders", renders)

	if a.Generator.Ready() {
		status.Components["css"] = "ready"
	} else {
		status.Components["css"] = "scanning"
	}

	switch {
	case a.store != nil:
		if n, err := a.store.Count(); err == nil {
			status.Components["transform_store"] = formatCounts("entries", n)
		} else {
			status.Components["transform_store"] = "error: " + err.Error()
		}
	case a.currentConfig().CacheEnabled():
		status.Status = "degraded"
		status.Components["transform_store"] = "unavailable"
	default:
		status.Components["transform_store"] = "disabled"
	}

	if a.Deps != nil {
		status.Components["deps"] = a.currentConfig().Deps.CDN
	} else {
		status.Components["deps"] = "disabled"
	}
	return status
}

func formatCounts(kv ...any) string {
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", kv[i], kv[i+1]))
	}
	return strings.Join(parts, " ")
}
