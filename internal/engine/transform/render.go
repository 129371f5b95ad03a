package transform

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"rds/internal/core/errors"
	"rds/internal/engine/resolver"
	"rds/internal/shared/observability"
	"rds/internal/shared/util"
)

const (
	MimeJavaScript = "text/javascript; charset=utf-8"
	MimeCSS        = "text/css; charset=utf-8"
)

// Output is a servable rendering of a module.
type Output struct {
	Content []byte
	Hash    string
	Form    Form
	MIME    string
}

func renderKey(id string, form Form) string {
	return string(form) + "|" + id
}

func (p *Pipeline) normalizeForm(id string, form Form) Form {
	if form == "" || DefaultForm(id) == FormModule {
		return DefaultForm(id)
	}
	return form
}

// Render returns id in the requested form with every import rewritten to its
// current content-hashed URL. Rendering an importer renders its imports
// first, so a change anywhere below changes the importer's hash too.
func (p *Pipeline) Render(ctx context.Context, id string, form Form) (*Output, error) {
	ctx, span := observability.Tracer.Start(ctx, "transform.Render")
	defer span.End()

	form = p.normalizeForm(id, form)
	out, err := p.renders.Get(renderKey(id, form), func() (*Output, error) {
		return p.render(ctx, id, form)
	})
	if err != nil {
		observability.Fail(span, err)
		return nil, err
	}
	return out, nil
}

// HashedURL renders id as a module and returns its URL. Hot updates are
// always imported by the client, hence the module form.
func (p *Pipeline) HashedURL(ctx context.Context, id string) (string, error) {
	return p.hashedURL(ctx, id, FormModule)
}

// URLOf renders id in form and returns the hashed URL it is served at.
func (p *Pipeline) URLOf(ctx context.Context, id string, form Form) (string, error) {
	return p.hashedURL(ctx, id, form)
}

func (p *Pipeline) hashedURL(ctx context.Context, id string, form Form) (string, error) {
	out, err := p.Render(ctx, id, form)
	if err != nil {
		return "", err
	}
	return p.URL(id, out.Form, out.Hash), nil
}

func (p *Pipeline) render(ctx context.Context, id string, form Form) (*Output, error) {
	if id == UtilsID {
		css := p.generator.Generate()
		if form == FormModule {
			return scriptOutput(styleModule(UtilsPath, css, nil, nil)), nil
		}
		return styleOutput(css), nil
	}

	res, err := p.Transform(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case res.Kind == KindAsset && form == FormModule:
		raw, err := p.hashedURL(ctx, id, FormRaw)
		if err != nil {
			return nil, err
		}
		return scriptOutput(assetModule(raw)), nil

	case res.Kind == KindAsset, res.Kind == KindSVG && form == FormRaw:
		data, err := p.readFile(id)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeNotFound, "read asset")
		}
		return &Output{
			Content: data,
			Hash:    res.SourceHash[:util.HashLength],
			Form:    FormRaw,
			MIME:    mimeFor(id),
		}, nil

	case res.Kind == KindStyle:
		css, err := p.splice(ctx, res)
		if err != nil {
			return nil, err
		}
		if form == FormModule {
			var order []string
			if res.CSSModule {
				order = append([]string{}, res.ExportOrder...)
			}
			return scriptOutput(styleModule(p.ServedPath(id), css, res.Exports, order)), nil
		}
		return styleOutput(css), nil
	}

	code, err := p.splice(ctx, res)
	if err != nil {
		return nil, err
	}
	if res.Refresh {
		code = wrapRefresh(p.ServedPath(id), code)
	}
	return scriptOutput(code), nil
}

// splice substitutes the placeholder range of every import with the URL it
// is served at.
func (p *Pipeline) splice(ctx context.Context, res *Result) (string, error) {
	var b strings.Builder
	last := 0
	for _, imp := range res.Imports {
		if imp.Start < last || imp.End > len(res.Code) {
			continue
		}
		url := imp.Target
		if imp.Class != resolver.KindDependency {
			hashed, err := p.hashedURL(ctx, imp.Target, imp.Form)
			if errors.IsCode(err, errors.CodeNotFound) {
				// An explicit extension resolves without probing the disk.
				return "", errors.UnresolvedImport(res.Path, imp.Specifier)
			}
			if err != nil {
				return "", err
			}
			url = hashed
		}
		b.WriteString(res.Code[last:imp.Start])
		b.WriteString(url)
		last = imp.End
	}
	b.WriteString(res.Code[last:])
	return b.String(), nil
}

func scriptOutput(code string) *Output {
	return &Output{Content: []byte(code), Hash: util.ShortHashString(code), Form: FormModule, MIME: MimeJavaScript}
}

func styleOutput(css string) *Output {
	return &Output{Content: []byte(css), Hash: util.ShortHashString(css), Form: FormRaw, MIME: MimeCSS}
}

func mimeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (p *Pipeline) dropRenders(id string) {
	p.renders.Delete(renderKey(id, FormModule))
	p.renders.Delete(renderKey(id, FormRaw))
}
