package rules

import (
	"fmt"
	"sort"
	"strconv"
)

// Pair is one theme table entry.
type Pair struct {
	Key   string
	Value string
}

// Table is an insertion-ordered key/value table. Order matters: it decides
// the Order of the rule entries built from it.
type Table struct {
	pairs []Pair
	index map[string]int
}

func NewTable(pairs ...Pair) *Table {
	t := &Table{index: make(map[string]int, len(pairs))}
	for _, p := range pairs {
		t.Set(p.Key, p.Value)
	}
	return t
}

// Set replaces key in place or appends it.
func (t *Table) Set(key, value string) {
	if i, ok := t.index[key]; ok {
		t.pairs[i].Value = value
		return
	}
	t.index[key] = len(t.pairs)
	t.pairs = append(t.pairs, Pair{Key: key, Value: value})
}

func (t *Table) Get(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	i, ok := t.index[key]
	if !ok {
		return "", false
	}
	return t.pairs[i].Value, true
}

func (t *Table) Pairs() []Pair {
	if t == nil {
		return nil
	}
	return t.pairs
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.pairs)
}

func (t *Table) clone() *Table {
	out := NewTable()
	for _, p := range t.Pairs() {
		out.Set(p.Key, p.Value)
	}
	return out
}

func (t *Table) merge(other *Table) *Table {
	out := t.clone()
	for _, p := range other.Pairs() {
		out.Set(p.Key, p.Value)
	}
	return out
}

// Theme holds the named tables rule definitions draw values from.
type Theme struct {
	sections map[string]*Table
}

func (th *Theme) Section(name string) *Table {
	if t, ok := th.sections[name]; ok {
		return t
	}
	return NewTable()
}

func (th *Theme) SetSection(name string, t *Table) {
	th.sections[name] = t
}

// Extend adds or replaces values. New keys are appended in sorted order so
// the resulting table order is deterministic.
func (th *Theme) Extend(overrides map[string]map[string]string) {
	for _, section := range sortedKeys(overrides) {
		t, ok := th.sections[section]
		if !ok {
			t = NewTable()
			th.sections[section] = t
		}
		values := overrides[section]
		for _, key := range sortedKeys(values) {
			t.Set(key, values[key])
		}
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var palette = []struct {
	name   string
	shades [10]string
}{
	{"gray", [10]string{"#f9fafb", "#f3f4f6", "#e5e7eb", "#d1d5db", "#9ca3af", "#6b7280", "#4b5563", "#374151", "#1f2937", "#111827"}},
	{"red", [10]string{"#fef2f2", "#fee2e2", "#fecaca", "#fca5a5", "#f87171", "#ef4444", "#dc2626", "#b91c1c", "#991b1b", "#7f1d1d"}},
	{"yellow", [10]string{"#fefce8", "#fef9c3", "#fef08a", "#fde047", "#facc15", "#eab308", "#ca8a04", "#a16207", "#854d0e", "#713f12"}},
	{"green", [10]string{"#f0fdf4", "#dcfce7", "#bbf7d0", "#86efac", "#4ade80", "#22c55e", "#16a34a", "#15803d", "#166534", "#14532d"}},
	{"blue", [10]string{"#eff6ff", "#dbeafe", "#bfdbfe", "#93c5fd", "#60a5fa", "#3b82f6", "#2563eb", "#1d4ed8", "#1e40af", "#1e3a8a"}},
	{"indigo", [10]string{"#eef2ff", "#e0e7ff", "#c7d2fe", "#a5b4fc", "#818cf8", "#6366f1", "#4f46e5", "#4338ca", "#3730a3", "#312e81"}},
	{"purple", [10]string{"#faf5ff", "#f3e8ff", "#e9d5ff", "#d8b4fe", "#c084fc", "#a855f7", "#9333ea", "#7e22ce", "#6b21a8", "#581c87"}},
	{"pink", [10]string{"#fdf2f8", "#fce7f3", "#fbcfe8", "#f9a8d4", "#f472b6", "#ec4899", "#db2777", "#be185d", "#9d174d", "#831843"}},
}

var shadeNames = [10]string{"50", "100", "200", "300", "400", "500", "600", "700", "800", "900"}

func colors() *Table {
	t := NewTable(
		Pair{"transparent", "transparent"},
		Pair{"current", "currentColor"},
		Pair{"black", "#000"},
		Pair{"white", "#fff"},
	)
	for _, c := range palette {
		for i, shade := range c.shades {
			t.Set(c.name+"-"+shadeNames[i], shade)
		}
	}
	return t
}

func spacing() *Table {
	t := NewTable(Pair{"0", "0px"}, Pair{"px", "1px"})
	steps := []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 5, 6, 7, 8, 9, 10, 11, 12, 14, 16, 20, 24, 28, 32, 36, 40, 44, 48, 52, 56, 60, 64, 72, 80, 96}
	for _, s := range steps {
		key := strconv.FormatFloat(s, 'f', -1, 64)
		t.Set(key, strconv.FormatFloat(s/4, 'f', -1, 64)+"rem")
	}
	return t
}

func fractions() *Table {
	t := NewTable()
	for _, d := range []int{2, 3, 4, 5, 6} {
		for n := 1; n < d; n++ {
			t.Set(fmt.Sprintf("%d/%d", n, d), strconv.FormatFloat(float64(n)*100/float64(d), 'f', 6, 64)+"%")
		}
	}
	for i, p := range t.pairs {
		t.pairs[i].Value = trimZeros(p.Value)
	}
	return t
}

func trimZeros(pct string) string {
	num := pct[:len(pct)-1]
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return pct
	}
	return strconv.FormatFloat(f, 'f', -1, 64) + "%"
}

func numbered(unit string, values ...string) *Table {
	t := NewTable()
	for _, v := range values {
		t.Set(v, v+unit)
	}
	return t
}

// DefaultTheme returns the built-in tables.
func DefaultTheme() *Theme {
	space := spacing()
	th := &Theme{sections: map[string]*Table{
		"colors":  colors(),
		"spacing": space,
		"screens": NewTable(
			Pair{"sm", "640px"}, Pair{"md", "768px"}, Pair{"lg", "1024px"},
			Pair{"xl", "1280px"}, Pair{"2xl", "1536px"},
		),
		"fontSize": NewTable(
			Pair{"xs", "0.75rem,1rem"}, Pair{"sm", "0.875rem,1.25rem"}, Pair{"base", "1rem,1.5rem"},
			Pair{"lg", "1.125rem,1.75rem"}, Pair{"xl", "1.25rem,1.75rem"}, Pair{"2xl", "1.5rem,2rem"},
			Pair{"3xl", "1.875rem,2.25rem"}, Pair{"4xl", "2.25rem,2.5rem"}, Pair{"5xl", "3rem,1"},
			Pair{"6xl", "3.75rem,1"},
		),
		"fontWeight": NewTable(
			Pair{"thin", "100"}, Pair{"extralight", "200"}, Pair{"light", "300"}, Pair{"normal", "400"},
			Pair{"medium", "500"}, Pair{"semibold", "600"}, Pair{"bold", "700"}, Pair{"extrabold", "800"},
			Pair{"black", "900"},
		),
		"fontFamily": NewTable(
			Pair{"sans", `ui-sans-serif, system-ui, -apple-system, "Segoe UI", Roboto, sans-serif`},
			Pair{"serif", `ui-serif, Georgia, Cambria, "Times New Roman", serif`},
			Pair{"mono", `ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, monospace`},
		),
		"lineHeight": NewTable(
			Pair{"none", "1"}, Pair{"tight", "1.25"}, Pair{"snug", "1.375"}, Pair{"normal", "1.5"},
			Pair{"relaxed", "1.625"}, Pair{"loose", "2"},
		),
		"letterSpacing": NewTable(
			Pair{"tighter", "-0.05em"}, Pair{"tight", "-0.025em"}, Pair{"normal", "0em"},
			Pair{"wide", "0.025em"}, Pair{"wider", "0.05em"}, Pair{"widest", "0.1em"},
		),
		"borderRadius": NewTable(
			Pair{"none", "0px"}, Pair{"sm", "0.125rem"}, Pair{"DEFAULT", "0.25rem"}, Pair{"md", "0.375rem"},
			Pair{"lg", "0.5rem"}, Pair{"xl", "0.75rem"}, Pair{"2xl", "1rem"}, Pair{"3xl", "1.5rem"},
			Pair{"full", "9999px"},
		),
		"borderWidth": NewTable(Pair{"DEFAULT", "1px"}, Pair{"0", "0px"}, Pair{"2", "2px"}, Pair{"4", "4px"}, Pair{"8", "8px"}),
		"ringWidth":   NewTable(Pair{"DEFAULT", "3px"}, Pair{"0", "0px"}, Pair{"1", "1px"}, Pair{"2", "2px"}, Pair{"4", "4px"}, Pair{"8", "8px"}),
		"opacity": NewTable(
			Pair{"0", "0"}, Pair{"5", "0.05"}, Pair{"10", "0.1"}, Pair{"20", "0.2"}, Pair{"25", "0.25"},
			Pair{"30", "0.3"}, Pair{"40", "0.4"}, Pair{"50", "0.5"}, Pair{"60", "0.6"}, Pair{"70", "0.7"},
			Pair{"75", "0.75"}, Pair{"80", "0.8"}, Pair{"90", "0.9"}, Pair{"95", "0.95"}, Pair{"100", "1"},
		),
		"zIndex": NewTable(Pair{"0", "0"}, Pair{"10", "10"}, Pair{"20", "20"}, Pair{"30", "30"}, Pair{"40", "40"}, Pair{"50", "50"}, Pair{"auto", "auto"}),
		"boxShadow": NewTable(
			Pair{"sm", "0 1px 2px 0 rgb(0 0 0 / 0.05)"},
			Pair{"DEFAULT", "0 1px 3px 0 rgb(0 0 0 / 0.1), 0 1px 2px -1px rgb(0 0 0 / 0.1)"},
			Pair{"md", "0 4px 6px -1px rgb(0 0 0 / 0.1), 0 2px 4px -2px rgb(0 0 0 / 0.1)"},
			Pair{"lg", "0 10px 15px -3px rgb(0 0 0 / 0.1), 0 4px 6px -4px rgb(0 0 0 / 0.1)"},
			Pair{"xl", "0 20px 25px -5px rgb(0 0 0 / 0.1), 0 8px 10px -6px rgb(0 0 0 / 0.1)"},
			Pair{"2xl", "0 25px 50px -12px rgb(0 0 0 / 0.25)"},
			Pair{"inner", "inset 0 2px 4px 0 rgb(0 0 0 / 0.05)"},
			Pair{"none", "0 0 #0000"},
		),
		"transitionDuration":       numbered("ms", "75", "100", "150", "200", "300", "500", "700", "1000"),
		"transitionDelay":          numbered("ms", "75", "100", "150", "200", "300", "500", "700", "1000"),
		"transitionTimingFunction": NewTable(Pair{"linear", "linear"}, Pair{"in", "cubic-bezier(0.4, 0, 1, 1)"}, Pair{"out", "cubic-bezier(0, 0, 0.2, 1)"}, Pair{"in-out", "cubic-bezier(0.4, 0, 0.2, 1)"}),
		"rotate":                   numbered("deg", "0", "1", "2", "3", "6", "12", "45", "90", "180"),
		"scale": NewTable(
			Pair{"0", "0"}, Pair{"50", ".5"}, Pair{"75", ".75"}, Pair{"90", ".9"}, Pair{"95", ".95"},
			Pair{"100", "1"}, Pair{"105", "1.05"}, Pair{"110", "1.1"}, Pair{"125", "1.25"}, Pair{"150", "1.5"},
		),
		"animation": NewTable(
			Pair{"none", "none"},
			Pair{"spin", "spin 1s linear infinite"},
			Pair{"ping", "ping 1s cubic-bezier(0, 0, 0.2, 1) infinite"},
			Pair{"pulse", "pulse 2s cubic-bezier(0.4, 0, 0.6, 1) infinite"},
			Pair{"bounce", "bounce 1s infinite"},
		),
		"keyframes": NewTable(
			Pair{"spin", "to { transform: rotate(360deg); }"},
			Pair{"ping", "75%, 100% { transform: scale(2); opacity: 0; }"},
			Pair{"pulse", "50% { opacity: .5; }"},
			Pair{"bounce", "0%, 100% { transform: translateY(-25%); animation-timing-function: cubic-bezier(0.8, 0, 1, 1); } 50% { transform: none; animation-timing-function: cubic-bezier(0, 0, 0.2, 1); }"},
		),
	}}

	gridCols := NewTable()
	colSpan := NewTable()
	for i := 1; i <= 12; i++ {
		n := strconv.Itoa(i)
		gridCols.Set(n, "repeat("+n+", minmax(0, 1fr))")
		colSpan.Set("span-"+n, "span "+n+" / span "+n)
	}
	gridCols.Set("none", "none")
	colSpan.Set("span-full", "1 / -1")
	colSpan.Set("auto", "auto")
	th.sections["gridTemplateColumns"] = gridCols
	th.sections["gridColumn"] = colSpan

	th.sections["width"] = space.merge(NewTable(
		Pair{"auto", "auto"}, Pair{"full", "100%"}, Pair{"screen", "100vw"},
		Pair{"min", "min-content"}, Pair{"max", "max-content"}, Pair{"fit", "fit-content"},
	)).merge(fractions())
	th.sections["height"] = space.merge(NewTable(
		Pair{"auto", "auto"}, Pair{"full", "100%"}, Pair{"screen", "100vh"},
		Pair{"min", "min-content"}, Pair{"max", "max-content"}, Pair{"fit", "fit-content"},
	)).merge(fractions())
	th.sections["maxWidth"] = NewTable(
		Pair{"none", "none"}, Pair{"0", "0rem"}, Pair{"xs", "20rem"}, Pair{"sm", "24rem"}, Pair{"md", "28rem"},
		Pair{"lg", "32rem"}, Pair{"xl", "36rem"}, Pair{"2xl", "42rem"}, Pair{"3xl", "48rem"}, Pair{"4xl", "56rem"},
		Pair{"5xl", "64rem"}, Pair{"6xl", "72rem"}, Pair{"7xl", "80rem"}, Pair{"full", "100%"}, Pair{"prose", "65ch"},
	)
	th.sections["minWidth"] = NewTable(Pair{"0", "0px"}, Pair{"full", "100%"}, Pair{"min", "min-content"}, Pair{"max", "max-content"})
	th.sections["minHeight"] = NewTable(Pair{"0", "0px"}, Pair{"full", "100%"}, Pair{"screen", "100vh"})
	th.sections["maxHeight"] = space.merge(NewTable(Pair{"full", "100%"}, Pair{"screen", "100vh"}))
	th.sections["inset"] = space.merge(NewTable(Pair{"auto", "auto"}, Pair{"full", "100%"})).merge(NewTable(Pair{"1/2", "50%"}))
	return th
}
