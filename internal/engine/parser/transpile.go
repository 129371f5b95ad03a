package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"rds/internal/core/errors"
	"rds/internal/shared/observability"

	"github.com/evanw/esbuild/pkg/api"
)

// RefreshMarker is the call emitted for every registered component.
const RefreshMarker = "$RefreshReg$("

// Transpiler lowers TypeScript and JSX to browser JavaScript and reports the
// imports of the emitted code.
type Transpiler struct {
	grammars *Grammars
}

func NewTranspiler(grammars *Grammars) *Transpiler {
	return &Transpiler{grammars: grammars}
}

func loaderFor(path string) api.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	case ".json":
		return api.LoaderJSON
	}
	return api.LoaderJS
}

// refreshable reports whether components in path are registered with the
// refresh runtime.
func refreshable(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jsx" || ext == ".tsx"
}

// Transpile compiles source. Syntax errors come back as SYNTAX_ERROR with the
// position embedded in the path context.
func (t *Transpiler) Transpile(ctx context.Context, path string, source []byte) (Script, error) {
	_, span := observability.Tracer.Start(ctx, "parser.Transpile")
	defer span.End()

	res := api.Transform(string(source), api.TransformOptions{
		Loader:     loaderFor(path),
		Format:     api.FormatESModule,
		Target:     api.ES2020,
		JSX:        api.JSXAutomatic,
		JSXDev:     true,
		Sourcefile: path,
		LogLevel:   api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		err := transpileError(path, string(source), res.Errors[0])
		observability.Fail(span, err)
		return Script{}, err
	}

	code := string(res.Code)
	var components []string
	if refreshable(path) {
		lang, _ := LanguageForPath(path)
		names, err := t.grammars.ScanComponents(lang, source)
		if err != nil {
			return Script{}, err
		}
		components = names
		code = appendRegistrations(code, names)
	}

	imports, err := t.grammars.ScanImports([]byte(code))
	if err != nil {
		return Script{}, err
	}
	return Script{Code: code, Imports: imports, Components: components}, nil
}

func appendRegistrations(code string, names []string) string {
	if len(names) == 0 {
		return code
	}
	var b strings.Builder
	b.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		b.WriteByte('\n')
	}
	for _, name := range names {
		fmt.Fprintf(&b, "%s%s, %q);\n", RefreshMarker, name, name)
	}
	return b.String()
}

func transpileError(path, source string, msg api.Message) error {
	err := errors.Newf(errors.CodeSyntaxError, "%s", msg.Text)
	file := path
	if loc := msg.Location; loc != nil {
		file = fmt.Sprintf("%s:%d:%d", path, loc.Line, loc.Column+1)
		err.WithContext(errors.CtxFrame, errors.Frame(source, loc.Line))
	}
	return err.WithContext(errors.CtxPath, file)
}
