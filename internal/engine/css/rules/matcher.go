// Package rules maps utility class tokens to CSS declarations.
//
// A Matcher is built once from a Theme: every static rule and every
// (rule, theme key, direction, sign) combination is flattened into one
// lookup map, each entry tagged with an increasing Order. Arbitrary values
// ("w-[37px]") are matched by per-rule patterns tried in insertion order.
package rules

import (
	"log/slog"
	"regexp"
	"strings"
)

type Options struct {
	// DarkMode is "media" or "class".
	DarkMode string
	// Plugins are registered after the built-in rules.
	Plugins []Rule
}

// Match is a successful lookup. Variants are listed left to right as written.
type Match struct {
	Token    string
	Entry    *RuleEntry
	Variants []*Variant
}

type arbitrary struct {
	pattern   *regexp.Regexp
	rule      Rule
	direction string
	props     []string
	format    func(string) []Decl
	rewrite   SelectorRewrite
	needs     Needs
	order     int
}

type Matcher struct {
	theme     *Theme
	entries   map[string]*RuleEntry
	arbitrary []arbitrary
	variants  map[string]*Variant
	order     int
}

func NewMatcher(theme *Theme, opts Options) *Matcher {
	if theme == nil {
		theme = DefaultTheme()
	}
	m := &Matcher{
		theme:   theme,
		entries: make(map[string]*RuleEntry),
	}
	m.variants = buildVariants(theme, opts.DarkMode)

	for _, r := range componentRules() {
		m.register(r)
	}
	for _, r := range coreRules() {
		m.register(r)
	}
	for _, r := range opts.Plugins {
		m.register(r)
	}
	return m
}

func (m *Matcher) Theme() *Theme { return m.theme }

func (m *Matcher) Len() int { return len(m.entries) }

func (m *Matcher) Variant(name string) (*Variant, bool) {
	v, ok := m.variants[name]
	return v, ok
}

// Defaults returns the shared block registered under name.
func (m *Matcher) Defaults(name string) string {
	return defaultBlocks[name]
}

// Keyframes returns the @keyframes rule for name, or "".
func (m *Matcher) Keyframes(name string) string {
	body, ok := m.theme.Section("keyframes").Get(name)
	if !ok {
		return ""
	}
	return "@keyframes " + name + " { " + body + " }"
}

func (m *Matcher) add(e *RuleEntry) {
	m.order++
	e.Order = m.order
	if prev, ok := m.entries[e.Key]; ok {
		slog.Warn("utility key collision", "key", e.Key, "previous_order", prev.Order, "order", e.Order)
	}
	m.entries[e.Key] = e
}

func themeKey(prefix, key string) string {
	if key == "DEFAULT" {
		return prefix
	}
	if prefix == "" {
		return key
	}
	return prefix + "-" + key
}

func (m *Matcher) register(r Rule) {
	switch rule := r.(type) {
	case StaticRule:
		m.add(&RuleEntry{Key: rule.Name, Rule: rule, Decls: rule.Decls, Rewrite: rule.Rewrite, Needs: rule.Needs})

	case ThemeRule:
		format := rule.Format
		if format == nil {
			format = func(v string) []Decl { return declsFor(rule.Properties, v) }
		}
		for _, p := range m.theme.Section(rule.Section).Pairs() {
			needs := rule.Needs
			if rule.KeyframesFromKey && m.Keyframes(p.Key) != "" {
				needs.Keyframes = p.Key
			}
			key := themeKey(rule.Prefix, p.Key)
			m.add(&RuleEntry{Key: key, Rule: rule, ThemeKey: p.Key, Decls: format(p.Value), Rewrite: rule.Rewrite, Needs: needs})
			if rule.Negative && negatable(p.Value) {
				m.add(&RuleEntry{Key: "-" + key, Rule: rule, ThemeKey: p.Key, Negative: true, Decls: format(negate(p.Value)), Rewrite: rule.Rewrite, Needs: needs})
			}
		}
		if rule.Arbitrary {
			m.addArbitrary(rule.Prefix, arbitrary{rule: rule, props: rule.Properties, format: rule.Format, rewrite: rule.Rewrite, needs: rule.Needs}, rule.Negative)
		}

	case DirectionThemeRule:
		for _, d := range rule.Directions {
			prefix := rule.Prefix
			if d.Suffix != "" {
				prefix += rule.Separator + d.Suffix
			}
			for _, p := range m.theme.Section(rule.Section).Pairs() {
				key := themeKey(prefix, p.Key)
				m.add(&RuleEntry{Key: key, Rule: rule, ThemeKey: p.Key, Direction: d.Suffix, Decls: declsFor(d.Properties, p.Value)})
				if rule.Negative && negatable(p.Value) {
					m.add(&RuleEntry{Key: "-" + key, Rule: rule, ThemeKey: p.Key, Direction: d.Suffix, Negative: true, Decls: declsFor(d.Properties, negate(p.Value))})
				}
			}
			if rule.Arbitrary {
				m.addArbitrary(prefix, arbitrary{rule: rule, direction: d.Suffix, props: d.Properties}, rule.Negative)
			}
		}

	default:
		slog.Warn("ignoring unknown rule type", "rule", r)
	}
}

func (m *Matcher) addArbitrary(prefix string, a arbitrary, negative bool) {
	sign := ""
	if negative {
		sign = "-?"
	}
	a.pattern = regexp.MustCompile(`^(` + sign + `)` + regexp.QuoteMeta(prefix) + `-\[([^\[\]]+)\]$`)
	m.order++
	a.order = m.order
	m.arbitrary = append(m.arbitrary, a)
}

// Match resolves token. Every variant prefix must be known; the first
// matching rule wins.
func (m *Matcher) Match(token string) (*Match, bool) {
	parts := splitVariants(token)
	if len(parts) == 0 {
		return nil, false
	}
	utility := parts[len(parts)-1]
	if utility == "" {
		return nil, false
	}

	var variants []*Variant
	for _, name := range parts[:len(parts)-1] {
		v, ok := m.variants[name]
		if !ok {
			return nil, false
		}
		variants = append(variants, v)
	}

	entry, ok := m.lookup(utility)
	if !ok {
		return nil, false
	}
	return &Match{Token: token, Entry: entry, Variants: variants}, true
}

func (m *Matcher) lookup(utility string) (*RuleEntry, bool) {
	if e, ok := m.entries[utility]; ok {
		return e, true
	}
	if !strings.HasSuffix(utility, "]") {
		return nil, false
	}
	for _, a := range m.arbitrary {
		sub := a.pattern.FindStringSubmatch(utility)
		if sub == nil {
			continue
		}
		value := strings.ReplaceAll(sub[2], "_", " ")
		negative := sub[1] == "-"
		if negative {
			value = negate(value)
		}
		var decls []Decl
		if a.format != nil {
			decls = a.format(value)
		} else {
			decls = declsFor(a.props, value)
		}
		return &RuleEntry{
			Key:       utility,
			Rule:      a.rule,
			Direction: a.direction,
			Negative:  negative,
			Order:     a.order,
			Decls:     decls,
			Rewrite:   a.rewrite,
			Needs:     a.needs,
		}, true
	}
	return nil, false
}

// splitVariants splits on ':' outside brackets.
func splitVariants(token string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(token); i++ {
		switch token[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 {
				parts = append(parts, token[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, token[start:])
}
