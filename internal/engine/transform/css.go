package transform

import (
	"fmt"
	"regexp"
	"strings"

	"rds/internal/core/errors"
	"rds/internal/engine/css/rules"
)

var (
	applyPattern  = regexp.MustCompile(`@apply\s+([^;{}]+);`)
	screenPattern = regexp.MustCompile(`@screen\s+([A-Za-z0-9_-]+)\s*\{`)
)

const importantFlag = "!important"

// ExpandApply replaces each "@apply a b;" with the flattened declarations of
// the listed utilities. Only plain utilities qualify: a variant, a selector
// rewrite or a shared block fails the file. The bool reports whether any
// directive was found.
func ExpandApply(m *rules.Matcher, path, source string) (string, bool, error) {
	locs := applyPattern.FindAllStringSubmatchIndex(source, -1)
	if len(locs) == 0 {
		return source, false, nil
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		tokens := strings.Fields(source[loc[2]:loc[3]])
		important := false
		var decls []rules.Decl
		for _, tok := range tokens {
			if tok == importantFlag {
				important = true
				continue
			}
			mt, ok := m.Match(tok)
			if !ok {
				return "", true, locate(errors.CodeUnmatchedUtility, path, source, loc[0], tok,
					"no utility matches %q in @apply", tok)
			}
			if len(mt.Variants) > 0 || !mt.Entry.Simple() {
				return "", true, locate(errors.CodeUnsupportedComplexUtility, path, source, loc[0], tok,
					"%q cannot be used with @apply: only plain utilities without variants are supported", tok)
			}
			decls = append(decls, mt.Entry.Decls...)
		}
		if important {
			for i := range decls {
				decls[i].Value += " " + importantFlag
			}
		}
		b.WriteString(source[last:loc[0]])
		b.WriteString(rules.DeclString(decls, true))
		last = loc[1]
	}
	b.WriteString(source[last:])
	return b.String(), true, nil
}

// ExpandScreen rewrites "@screen md {" to the media query of the md variant.
func ExpandScreen(m *rules.Matcher, path, source string) (string, bool, error) {
	locs := screenPattern.FindAllStringSubmatchIndex(source, -1)
	if len(locs) == 0 {
		return source, false, nil
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		name := source[loc[2]:loc[3]]
		v, ok := m.Variant(name)
		if !ok {
			return "", true, locate(errors.CodeUnknownScreenVariant, path, source, loc[0], name,
				"unknown screen %q", name)
		}
		if !v.IsMedia() {
			return "", true, locate(errors.CodeNotAScreenVariant, path, source, loc[0], name,
				"%q is not a screen variant", name)
		}
		b.WriteString(source[last:loc[0]])
		b.WriteString("@media " + v.Media + " {")
		last = loc[1]
	}
	b.WriteString(source[last:])
	return b.String(), true, nil
}

func locate(code errors.ErrorCode, path, source string, off int, token, format string, args ...any) error {
	line := errors.LineOf(source, off)
	col := off - strings.LastIndex(source[:off], "\n")
	return errors.Newf(code, format, args...).
		WithContext(errors.CtxPath, fmt.Sprintf("%s:%d:%d", path, line, col)).
		WithContext(errors.CtxFrame, errors.Frame(source, line)).
		WithContext(errors.CtxToken, token)
}
