package parser

// ImportRef is one import specifier found in emitted code. Start and End
// delimit the specifier text (without quotes) so callers can splice in a
// rewritten URL.
type ImportRef struct {
	Specifier string
	Start     int
	End       int
	Dynamic   bool
}

// Script is the browser-ready output of a script module.
type Script struct {
	Code    string
	Imports []ImportRef
	// Components lists the names registered with the refresh runtime.
	Components []string
}

// DependencyKind distinguishes @import from url() references.
type DependencyKind string

const (
	DepImport DependencyKind = "import"
	DepURL    DependencyKind = "url"
)

// StyleDependency is a reference found in a stylesheet.
type StyleDependency struct {
	Kind      DependencyKind
	Specifier string
	Start     int
	End       int
	// External is set for data:, http(s): and protocol-relative references,
	// which are left untouched.
	External bool
}

// Stylesheet is the processed form of a CSS file.
type Stylesheet struct {
	Code         string
	Dependencies []StyleDependency
	// Exports maps local class names to scoped names for CSS modules.
	Exports     map[string]string
	ExportOrder []string
	Module      bool
}
