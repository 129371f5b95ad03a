package rules

import (
	"strings"
)

// Block is one rendered utility. Media is empty for base rules.
type Block struct {
	Media      string
	MediaOrder int
	CSS        string
}

// EscapeClass escapes a class name for use in a selector.
func EscapeClass(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r >= 0x80:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteString(`\3` + string(r) + " ")
				continue
			}
			b.WriteRune(r)
		case r == '-':
			if i == 0 && len(name) == 1 {
				b.WriteString(`\-`)
				continue
			}
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Selector returns the rewritten selector for match: the rule's own rewrite
// first, then variants from the innermost (rightmost) outwards.
func (mt *Match) Selector() string {
	sel := "." + EscapeClass(mt.Token)
	if mt.Entry.Rewrite != nil {
		sel = mt.Entry.Rewrite(sel)
	}
	for i := len(mt.Variants) - 1; i >= 0; i-- {
		if v := mt.Variants[i]; v.Rewrite != nil {
			sel = v.Rewrite(sel)
		}
	}
	return sel
}

// Media combines every media variant of the match, and returns the order
// of the outermost one.
func (mt *Match) Media() (string, int) {
	var conds []string
	order := 0
	for _, v := range mt.Variants {
		if !v.IsMedia() {
			continue
		}
		conds = append(conds, v.Media)
		if order == 0 {
			order = v.Order
		}
	}
	return strings.Join(conds, " and "), order
}

// DeclString renders declarations as "prop: value; prop: value;".
func DeclString(decls []Decl, compact bool) string {
	var b strings.Builder
	for i, d := range decls {
		if compact {
			b.WriteString(d.Prop + ":" + d.Value + ";")
			continue
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d.Prop + ": " + d.Value + ";")
	}
	return b.String()
}

// Render renders the declaration block of match, without media wrapping.
func Render(mt *Match) Block {
	media, order := mt.Media()
	return Block{
		Media:      media,
		MediaOrder: order,
		CSS:        mt.Selector() + " { " + DeclString(mt.Entry.Decls, false) + " }",
	}
}

// ContainerBlocks renders the per-screen max-width rules for a container match.
func (m *Matcher) ContainerBlocks(mt *Match) []Block {
	var out []Block
	sel := mt.Selector()
	outer, _ := mt.Media()
	for _, p := range m.theme.Section("screens").Pairs() {
		v := m.variants[p.Key]
		media := "(min-width: " + p.Value + ")"
		if outer != "" {
			media = outer + " and " + media
		}
		order := 0
		if v != nil {
			order = v.Order
		}
		out = append(out, Block{
			Media:      media,
			MediaOrder: order,
			CSS:        sel + " { max-width: " + p.Value + "; }",
		})
	}
	return out
}

// Screens lists breakpoint names in order.
func (m *Matcher) Screens() []string {
	pairs := m.theme.Section("screens").Pairs()
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Key
	}
	return out
}

func (b Block) String() string {
	if b.Media == "" {
		return b.CSS
	}
	return "@media " + b.Media + " { " + b.CSS + " }"
}
