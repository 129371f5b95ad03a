package rules

import "strings"

// Decl is one CSS declaration.
type Decl struct {
	Prop  string
	Value string
}

// ParseDecls reads a declaration list such as "padding: 1rem; color: red".
// Malformed entries are skipped.
func ParseDecls(body string) []Decl {
	var decls []Decl
	for _, part := range strings.Split(body, ";") {
		prop, value, ok := strings.Cut(part, ":")
		prop, value = strings.TrimSpace(prop), strings.TrimSpace(value)
		if !ok || prop == "" || value == "" {
			continue
		}
		decls = append(decls, Decl{Prop: prop, Value: value})
	}
	return decls
}

// SelectorRewrite maps the escaped class selector to the selector emitted.
type SelectorRewrite func(selector string) string

// Needs lists output a rule requires beyond its own block.
type Needs struct {
	Defaults  string // shared default block, see Matcher.Defaults
	Keyframes string
	Container bool
}

func (n Needs) Any() bool {
	return n.Defaults != "" || n.Keyframes != "" || n.Container
}

// Rule is one utility definition. Implementations: StaticRule, ThemeRule,
// DirectionThemeRule.
type Rule interface {
	isRule()
}

// StaticRule matches exactly one class name.
type StaticRule struct {
	Name    string
	Decls   []Decl
	Rewrite SelectorRewrite
	Needs   Needs
}

// ThemeRule matches <Prefix>-<key> for every key of a theme section.
// A "DEFAULT" key matches the bare prefix.
type ThemeRule struct {
	Prefix     string
	Section    string
	Properties []string
	Negative   bool
	Arbitrary  bool
	Rewrite    SelectorRewrite
	Needs      Needs
	// Format overrides the default "every property gets the value" output.
	Format func(value string) []Decl
	// KeyframesFromKey requires the keyframes named by the theme key.
	KeyframesFromKey bool
}

// Direction is one side variant of a DirectionThemeRule.
type Direction struct {
	Suffix     string
	Properties []string
}

// DirectionThemeRule matches <Prefix><Separator><Suffix>-<key>, e.g. "px-4"
// with an empty separator or "rounded-t-lg" with "-".
type DirectionThemeRule struct {
	Prefix     string
	Separator  string
	Section    string
	Directions []Direction
	Negative   bool
	Arbitrary  bool
}

func (StaticRule) isRule()         {}
func (ThemeRule) isRule()          {}
func (DirectionThemeRule) isRule() {}

// RuleEntry is one resolvable utility form. Entries are built once and
// shared by every Match returning them.
type RuleEntry struct {
	Key       string
	Rule      Rule
	ThemeKey  string
	Direction string
	Negative  bool
	Order     int
	Decls     []Decl
	Rewrite   SelectorRewrite
	Needs     Needs
}

// Simple reports whether the entry is a plain same-selector declaration
// block, usable by @apply.
func (e *RuleEntry) Simple() bool {
	return e.Rewrite == nil && !e.Needs.Any()
}

func declsFor(props []string, value string) []Decl {
	out := make([]Decl, len(props))
	for i, p := range props {
		out[i] = Decl{Prop: p, Value: value}
	}
	return out
}

func negate(value string) string {
	if len(value) > 0 && value[0] == '-' {
		return value[1:]
	}
	return "-" + value
}

// negatable is the first-character heuristic: only values starting with a
// digit 1-9 may be negated.
func negatable(value string) bool {
	return len(value) > 0 && value[0] >= '1' && value[0] <= '9'
}
