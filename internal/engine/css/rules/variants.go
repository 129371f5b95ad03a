package rules

// Variant conditions a utility: either wraps it in a media query or
// rewrites its selector.
type Variant struct {
	Name string
	// Media is the query condition for media variants, e.g. "(min-width: 768px)".
	Media string
	// Screen names the breakpoint for variants usable in @screen.
	Screen  string
	Rewrite SelectorRewrite
	// Order sorts media blocks in output; 0 for selector variants.
	Order int
}

func (v *Variant) IsMedia() bool {
	return v.Media != ""
}

func pseudo(suffix string) SelectorRewrite {
	return func(selector string) string { return selector + suffix }
}

func ancestor(prefix string) SelectorRewrite {
	return func(selector string) string { return prefix + " " + selector }
}

func sibling(prefix string) SelectorRewrite {
	return func(selector string) string { return prefix + " ~ " + selector }
}

func buildVariants(theme *Theme, darkMode string) map[string]*Variant {
	out := make(map[string]*Variant)
	add := func(v *Variant) { out[v.Name] = v }

	order := 1
	for _, p := range theme.Section("screens").Pairs() {
		add(&Variant{Name: p.Key, Media: "(min-width: " + p.Value + ")", Screen: p.Key, Order: order})
		order++
	}
	add(&Variant{Name: "motion-safe", Media: "(prefers-reduced-motion: no-preference)", Order: order})
	add(&Variant{Name: "motion-reduce", Media: "(prefers-reduced-motion: reduce)", Order: order + 1})
	add(&Variant{Name: "print", Media: "print", Order: order + 2})
	if darkMode == "class" {
		add(&Variant{Name: "dark", Rewrite: ancestor(".dark")})
	} else {
		add(&Variant{Name: "dark", Media: "(prefers-color-scheme: dark)", Order: order + 3})
	}

	pseudos := map[string]string{
		"hover":         ":hover",
		"focus":         ":focus",
		"focus-visible": ":focus-visible",
		"focus-within":  ":focus-within",
		"active":        ":active",
		"visited":       ":visited",
		"disabled":      ":disabled",
		"checked":       ":checked",
		"required":      ":required",
		"invalid":       ":invalid",
		"first":         ":first-child",
		"last":          ":last-child",
		"odd":           ":nth-child(odd)",
		"even":          ":nth-child(even)",
		"empty":         ":empty",
		"placeholder":   "::placeholder",
		"selection":     " *::selection",
		"before":        "::before",
		"after":         "::after",
	}
	for name, suffix := range pseudos {
		add(&Variant{Name: name, Rewrite: pseudo(suffix)})
	}
	for _, state := range []string{"hover", "focus", "active"} {
		add(&Variant{Name: "group-" + state, Rewrite: ancestor(".group:" + state)})
		add(&Variant{Name: "peer-" + state, Rewrite: sibling(".peer:" + state)})
	}
	return out
}
