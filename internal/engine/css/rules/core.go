package rules

import "strings"

func static(name string, kv ...string) StaticRule {
	decls := make([]Decl, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		decls = append(decls, Decl{Prop: kv[i], Value: kv[i+1]})
	}
	return StaticRule{Name: name, Decls: decls}
}

func childRewrite(selector string) string {
	return selector + " > :not([hidden]) ~ :not([hidden])"
}

func placeholderRewrite(selector string) string {
	return selector + "::placeholder"
}

var sides = []Direction{
	{Suffix: "", Properties: nil},
	{Suffix: "x", Properties: []string{"-left", "-right"}},
	{Suffix: "y", Properties: []string{"-top", "-bottom"}},
	{Suffix: "t", Properties: []string{"-top"}},
	{Suffix: "r", Properties: []string{"-right"}},
	{Suffix: "b", Properties: []string{"-bottom"}},
	{Suffix: "l", Properties: []string{"-left"}},
}

// boxSides expands sides for a property family such as "padding".
func boxSides(prop string) []Direction {
	out := make([]Direction, len(sides))
	for i, s := range sides {
		if s.Properties == nil {
			out[i] = Direction{Suffix: s.Suffix, Properties: []string{prop}}
			continue
		}
		props := make([]string, len(s.Properties))
		for j, p := range s.Properties {
			props[j] = prop + p
		}
		out[i] = Direction{Suffix: s.Suffix, Properties: props}
	}
	return out
}

func borderWidthSides() []Direction {
	out := make([]Direction, len(sides))
	for i, s := range sides {
		if s.Properties == nil {
			out[i] = Direction{Suffix: s.Suffix, Properties: []string{"border-width"}}
			continue
		}
		props := make([]string, len(s.Properties))
		for j, p := range s.Properties {
			props[j] = "border" + p + "-width"
		}
		out[i] = Direction{Suffix: s.Suffix, Properties: props}
	}
	return out
}

var radiusSides = []Direction{
	{Suffix: "", Properties: []string{"border-radius"}},
	{Suffix: "t", Properties: []string{"border-top-left-radius", "border-top-right-radius"}},
	{Suffix: "r", Properties: []string{"border-top-right-radius", "border-bottom-right-radius"}},
	{Suffix: "b", Properties: []string{"border-bottom-right-radius", "border-bottom-left-radius"}},
	{Suffix: "l", Properties: []string{"border-top-left-radius", "border-bottom-left-radius"}},
	{Suffix: "tl", Properties: []string{"border-top-left-radius"}},
	{Suffix: "tr", Properties: []string{"border-top-right-radius"}},
	{Suffix: "br", Properties: []string{"border-bottom-right-radius"}},
	{Suffix: "bl", Properties: []string{"border-bottom-left-radius"}},
}

func fontSize(value string) []Decl {
	size, lh, ok := strings.Cut(value, ",")
	if !ok {
		return []Decl{{Prop: "font-size", Value: value}}
	}
	return []Decl{{Prop: "font-size", Value: size}, {Prop: "line-height", Value: lh}}
}

func transformVar(name string) func(string) []Decl {
	return func(value string) []Decl {
		return []Decl{
			{Prop: name, Value: value},
			{Prop: "transform", Value: "var(--tw-transform)"},
		}
	}
}

func scale(value string) []Decl {
	return []Decl{
		{Prop: "--tw-scale-x", Value: value},
		{Prop: "--tw-scale-y", Value: value},
		{Prop: "transform", Value: "var(--tw-transform)"},
	}
}

func ringWidth(value string) []Decl {
	return []Decl{
		{Prop: "box-shadow", Value: "var(--tw-ring-inset) 0 0 0 calc(" + value + " + var(--tw-ring-offset-width)) var(--tw-ring-color)"},
	}
}

// componentRules come first so core utilities win ties in the cascade.
func componentRules() []Rule {
	return []Rule{
		StaticRule{Name: "container", Decls: []Decl{{Prop: "width", Value: "100%"}}, Needs: Needs{Container: true}},
	}
}

func coreRules() []Rule {
	out := []Rule{
		StaticRule{Name: "sr-only", Decls: []Decl{
			{"position", "absolute"}, {"width", "1px"}, {"height", "1px"}, {"padding", "0"},
			{"margin", "-1px"}, {"overflow", "hidden"}, {"clip", "rect(0, 0, 0, 0)"},
			{"white-space", "nowrap"}, {"border-width", "0"},
		}},
		static("pointer-events-none", "pointer-events", "none"),
		static("pointer-events-auto", "pointer-events", "auto"),
		static("visible", "visibility", "visible"),
		static("invisible", "visibility", "hidden"),
		static("static", "position", "static"),
		static("fixed", "position", "fixed"),
		static("absolute", "position", "absolute"),
		static("relative", "position", "relative"),
		static("sticky", "position", "sticky"),
	}

	out = append(out,
		DirectionThemeRule{Prefix: "inset", Separator: "-", Section: "inset", Negative: true, Arbitrary: true, Directions: []Direction{
			{Suffix: "", Properties: []string{"top", "right", "bottom", "left"}},
			{Suffix: "x", Properties: []string{"left", "right"}},
			{Suffix: "y", Properties: []string{"top", "bottom"}},
		}},
		ThemeRule{Prefix: "top", Section: "inset", Properties: []string{"top"}, Negative: true, Arbitrary: true},
		ThemeRule{Prefix: "right", Section: "inset", Properties: []string{"right"}, Negative: true, Arbitrary: true},
		ThemeRule{Prefix: "bottom", Section: "inset", Properties: []string{"bottom"}, Negative: true, Arbitrary: true},
		ThemeRule{Prefix: "left", Section: "inset", Properties: []string{"left"}, Negative: true, Arbitrary: true},
		ThemeRule{Prefix: "z", Section: "zIndex", Properties: []string{"z-index"}, Negative: true},
		ThemeRule{Prefix: "col", Section: "gridColumn", Properties: []string{"grid-column"}},
		DirectionThemeRule{Prefix: "m", Section: "spacing", Negative: true, Arbitrary: true, Directions: boxSides("margin")},
		static("box-border", "box-sizing", "border-box"),
		static("box-content", "box-sizing", "content-box"),
		static("block", "display", "block"),
		static("inline-block", "display", "inline-block"),
		static("inline", "display", "inline"),
		static("flex", "display", "flex"),
		static("inline-flex", "display", "inline-flex"),
		static("table", "display", "table"),
		static("grid", "display", "grid"),
		static("inline-grid", "display", "inline-grid"),
		static("contents", "display", "contents"),
		static("hidden", "display", "none"),
		ThemeRule{Prefix: "h", Section: "height", Properties: []string{"height"}, Arbitrary: true},
		ThemeRule{Prefix: "max-h", Section: "maxHeight", Properties: []string{"max-height"}, Arbitrary: true},
		ThemeRule{Prefix: "min-h", Section: "minHeight", Properties: []string{"min-height"}, Arbitrary: true},
		ThemeRule{Prefix: "w", Section: "width", Properties: []string{"width"}, Arbitrary: true},
		ThemeRule{Prefix: "min-w", Section: "minWidth", Properties: []string{"min-width"}, Arbitrary: true},
		ThemeRule{Prefix: "max-w", Section: "maxWidth", Properties: []string{"max-width"}, Arbitrary: true},
		static("flex-1", "flex", "1 1 0%"),
		static("flex-auto", "flex", "1 1 auto"),
		static("flex-initial", "flex", "0 1 auto"),
		static("flex-none", "flex", "none"),
		static("shrink", "flex-shrink", "1"),
		static("shrink-0", "flex-shrink", "0"),
		static("grow", "flex-grow", "1"),
		static("grow-0", "flex-grow", "0"),
		ThemeRule{Prefix: "translate-x", Section: "spacing", Negative: true, Arbitrary: true, Format: transformVar("--tw-translate-x"), Needs: Needs{Defaults: "transform"}},
		ThemeRule{Prefix: "translate-y", Section: "spacing", Negative: true, Arbitrary: true, Format: transformVar("--tw-translate-y"), Needs: Needs{Defaults: "transform"}},
		ThemeRule{Prefix: "rotate", Section: "rotate", Negative: true, Arbitrary: true, Format: transformVar("--tw-rotate"), Needs: Needs{Defaults: "transform"}},
		ThemeRule{Prefix: "scale", Section: "scale", Format: scale, Needs: Needs{Defaults: "transform"}},
		ThemeRule{Prefix: "animate", Section: "animation", Properties: []string{"animation"}, KeyframesFromKey: true},
		static("cursor-auto", "cursor", "auto"),
		static("cursor-default", "cursor", "default"),
		static("cursor-pointer", "cursor", "pointer"),
		static("cursor-not-allowed", "cursor", "not-allowed"),
		static("select-none", "user-select", "none"),
		static("select-text", "user-select", "text"),
		static("select-all", "user-select", "all"),
		ThemeRule{Prefix: "grid-cols", Section: "gridTemplateColumns", Properties: []string{"grid-template-columns"}, Arbitrary: true},
		static("flex-row", "flex-direction", "row"),
		static("flex-row-reverse", "flex-direction", "row-reverse"),
		static("flex-col", "flex-direction", "column"),
		static("flex-col-reverse", "flex-direction", "column-reverse"),
		static("flex-wrap", "flex-wrap", "wrap"),
		static("flex-wrap-reverse", "flex-wrap", "wrap-reverse"),
		static("flex-nowrap", "flex-wrap", "nowrap"),
		static("items-start", "align-items", "flex-start"),
		static("items-end", "align-items", "flex-end"),
		static("items-center", "align-items", "center"),
		static("items-baseline", "align-items", "baseline"),
		static("items-stretch", "align-items", "stretch"),
		static("justify-start", "justify-content", "flex-start"),
		static("justify-end", "justify-content", "flex-end"),
		static("justify-center", "justify-content", "center"),
		static("justify-between", "justify-content", "space-between"),
		static("justify-around", "justify-content", "space-around"),
		static("justify-evenly", "justify-content", "space-evenly"),
		static("self-auto", "align-self", "auto"),
		static("self-start", "align-self", "flex-start"),
		static("self-end", "align-self", "flex-end"),
		static("self-center", "align-self", "center"),
		static("self-stretch", "align-self", "stretch"),
		DirectionThemeRule{Prefix: "gap", Separator: "-", Section: "spacing", Arbitrary: true, Directions: []Direction{
			{Suffix: "", Properties: []string{"gap"}},
			{Suffix: "x", Properties: []string{"column-gap"}},
			{Suffix: "y", Properties: []string{"row-gap"}},
		}},
		ThemeRule{Prefix: "space-x", Section: "spacing", Properties: []string{"margin-left"}, Negative: true, Rewrite: childRewrite},
		ThemeRule{Prefix: "space-y", Section: "spacing", Properties: []string{"margin-top"}, Negative: true, Rewrite: childRewrite},
		static("overflow-auto", "overflow", "auto"),
		static("overflow-hidden", "overflow", "hidden"),
		static("overflow-visible", "overflow", "visible"),
		static("overflow-scroll", "overflow", "scroll"),
		static("overflow-x-auto", "overflow-x", "auto"),
		static("overflow-y-auto", "overflow-y", "auto"),
		static("overflow-x-hidden", "overflow-x", "hidden"),
		static("overflow-y-hidden", "overflow-y", "hidden"),
		StaticRule{Name: "truncate", Decls: []Decl{{"overflow", "hidden"}, {"text-overflow", "ellipsis"}, {"white-space", "nowrap"}}},
		static("whitespace-normal", "white-space", "normal"),
		static("whitespace-nowrap", "white-space", "nowrap"),
		static("whitespace-pre", "white-space", "pre"),
		static("break-words", "overflow-wrap", "break-word"),
		static("break-all", "word-break", "break-all"),
		DirectionThemeRule{Prefix: "rounded", Separator: "-", Section: "borderRadius", Arbitrary: true, Directions: radiusSides},
		DirectionThemeRule{Prefix: "border", Separator: "-", Section: "borderWidth", Arbitrary: true, Directions: borderWidthSides()},
		static("border-solid", "border-style", "solid"),
		static("border-dashed", "border-style", "dashed"),
		static("border-dotted", "border-style", "dotted"),
		static("border-none", "border-style", "none"),
		ThemeRule{Prefix: "border", Section: "colors", Properties: []string{"border-color"}},
		ThemeRule{Prefix: "bg", Section: "colors", Properties: []string{"background-color"}, Arbitrary: true},
		static("bg-cover", "background-size", "cover"),
		static("bg-contain", "background-size", "contain"),
		static("bg-center", "background-position", "center"),
		static("bg-no-repeat", "background-repeat", "no-repeat"),
		ThemeRule{Prefix: "fill", Section: "colors", Properties: []string{"fill"}},
		ThemeRule{Prefix: "stroke", Section: "colors", Properties: []string{"stroke"}},
		static("object-contain", "object-fit", "contain"),
		static("object-cover", "object-fit", "cover"),
		DirectionThemeRule{Prefix: "p", Section: "spacing", Arbitrary: true, Directions: boxSides("padding")},
		static("text-left", "text-align", "left"),
		static("text-center", "text-align", "center"),
		static("text-right", "text-align", "right"),
		static("text-justify", "text-align", "justify"),
		ThemeRule{Prefix: "font", Section: "fontFamily", Properties: []string{"font-family"}},
		ThemeRule{Prefix: "text", Section: "fontSize", Format: fontSize},
		ThemeRule{Prefix: "font", Section: "fontWeight", Properties: []string{"font-weight"}, Arbitrary: true},
		static("uppercase", "text-transform", "uppercase"),
		static("lowercase", "text-transform", "lowercase"),
		static("capitalize", "text-transform", "capitalize"),
		static("normal-case", "text-transform", "none"),
		static("italic", "font-style", "italic"),
		static("not-italic", "font-style", "normal"),
		ThemeRule{Prefix: "leading", Section: "lineHeight", Properties: []string{"line-height"}, Arbitrary: true},
		ThemeRule{Prefix: "tracking", Section: "letterSpacing", Properties: []string{"letter-spacing"}, Arbitrary: true},
		ThemeRule{Prefix: "text", Section: "colors", Properties: []string{"color"}, Arbitrary: true},
		static("underline", "text-decoration-line", "underline"),
		static("line-through", "text-decoration-line", "line-through"),
		static("no-underline", "text-decoration-line", "none"),
		static("antialiased", "-webkit-font-smoothing", "antialiased", "-moz-osx-font-smoothing", "grayscale"),
		ThemeRule{Prefix: "placeholder", Section: "colors", Properties: []string{"color"}, Rewrite: placeholderRewrite},
		ThemeRule{Prefix: "opacity", Section: "opacity", Properties: []string{"opacity"}},
		ThemeRule{Prefix: "shadow", Section: "boxShadow", Properties: []string{"box-shadow"}},
		static("outline-none", "outline", "2px solid transparent", "outline-offset", "2px"),
		ThemeRule{Prefix: "ring", Section: "ringWidth", Format: ringWidth, Needs: Needs{Defaults: "ring"}},
		ThemeRule{Prefix: "ring", Section: "colors", Properties: []string{"--tw-ring-color"}},
		StaticRule{Name: "transition", Decls: []Decl{
			{"transition-property", "color, background-color, border-color, text-decoration-color, fill, stroke, opacity, box-shadow, transform, filter"},
			{"transition-timing-function", "cubic-bezier(0.4, 0, 0.2, 1)"},
			{"transition-duration", "150ms"},
		}},
		static("transition-none", "transition-property", "none"),
		StaticRule{Name: "transition-colors", Decls: []Decl{
			{"transition-property", "color, background-color, border-color, text-decoration-color, fill, stroke"},
			{"transition-timing-function", "cubic-bezier(0.4, 0, 0.2, 1)"},
			{"transition-duration", "150ms"},
		}},
		ThemeRule{Prefix: "duration", Section: "transitionDuration", Properties: []string{"transition-duration"}},
		ThemeRule{Prefix: "delay", Section: "transitionDelay", Properties: []string{"transition-delay"}},
		ThemeRule{Prefix: "ease", Section: "transitionTimingFunction", Properties: []string{"transition-timing-function"}},
	)
	return out
}

var defaultBlocks = map[string]string{
	"transform": "*, ::before, ::after { --tw-translate-x: 0; --tw-translate-y: 0; --tw-rotate: 0; --tw-scale-x: 1; --tw-scale-y: 1; " +
		"--tw-transform: translateX(var(--tw-translate-x)) translateY(var(--tw-translate-y)) rotate(var(--tw-rotate)) scaleX(var(--tw-scale-x)) scaleY(var(--tw-scale-y)); }",
	"ring": "*, ::before, ::after { --tw-ring-inset: var(--tw-empty,/*!*/ /*!*/); --tw-ring-offset-width: 0px; --tw-ring-offset-color: #fff; --tw-ring-color: rgb(59 130 246 / 0.5); }",
}
