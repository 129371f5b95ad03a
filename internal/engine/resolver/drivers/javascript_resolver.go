package drivers

import (
	"strings"
)

// JavaScriptSpecifiers normalizes raw import specifiers as written in
// JS/TS/CSS sources.
type JavaScriptSpecifiers struct{}

func NewJavaScriptSpecifiers() *JavaScriptSpecifiers {
	return &JavaScriptSpecifiers{}
}

// Clean strips quotes, whitespace, a node: scheme and any ?query or #hash.
func (r *JavaScriptSpecifiers) Clean(specifier string) string {
	specifier = strings.TrimSpace(specifier)
	specifier = strings.Trim(specifier, "\"'`")
	specifier = strings.TrimPrefix(specifier, "node:")
	if i := strings.IndexAny(specifier, "?#"); i >= 0 {
		specifier = specifier[:i]
	}
	return specifier
}

// PackageName returns the installable package of a bare specifier:
// "react-dom/client" -> "react-dom", "@scope/pkg/sub" -> "@scope/pkg".
func (r *JavaScriptSpecifiers) PackageName(specifier string) string {
	specifier = r.Clean(specifier)
	if specifier == "" {
		return ""
	}
	parts := strings.Split(specifier, "/")
	if strings.HasPrefix(specifier, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return ""
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// IsRelative reports whether specifier points into the project tree by path.
func (r *JavaScriptSpecifiers) IsRelative(specifier string) bool {
	return strings.HasPrefix(specifier, "./") ||
		strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "/")
}

// IsExternalURL reports data:, http(s): and protocol-relative references.
func (r *JavaScriptSpecifiers) IsExternalURL(specifier string) bool {
	lower := strings.ToLower(strings.TrimSpace(specifier))
	return strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//")
}
