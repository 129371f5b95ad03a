package generator

import (
	"strings"
	"sync/atomic"
	"testing"

	"rds/internal/engine/css/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator() *Generator {
	return New(rules.NewMatcher(rules.DefaultTheme(), rules.Options{}))
}

func TestTokenize(t *testing.T) {
	src := "export const A = () => <div className=\"flex md:p-4 w-[37px]\">{`text-red-500 ${x}`}</div>;\n// hover:underline"
	tokens := Tokenize(src)

	for _, want := range []string{"flex", "md:p-4", "w-[37px]", "text-red-500", "hover:underline", "div", "className", "export", "const"} {
		assert.Contains(t, tokens, want)
	}
	for _, reject := range []string{"=", "=>", "A", "x", "</div>"} {
		assert.NotContains(t, tokens, reject)
	}
}

func TestScanFile_Idempotent(t *testing.T) {
	g := newGenerator()
	content := `<div class="flex items-center text-red-500 unknown-thing">`

	assert.True(t, g.ScanFile("/src/a.tsx", content))
	first := g.Generate()
	assert.Contains(t, first, ".flex { display: flex; }")
	assert.Contains(t, first, ".items-center { align-items: center; }")
	assert.NotContains(t, first, "unknown-thing")

	assert.False(t, g.ScanFile("/src/a.tsx", content), "same content adds nothing")
	assert.False(t, g.ScanFile("/src/a.tsx", `<div class="flex">`), "subset adds nothing")
	assert.Equal(t, first, g.Generate(), "output is byte-identical without new matches")

	assert.False(t, g.ScanFile("/src/b.tsx", `<div class="flex">`), "known match from another file")
	assert.True(t, g.ScanFile("/src/b.tsx", `<div class="flex p-4">`))
	assert.Contains(t, g.Generate(), ".p-4 { padding: 1rem; }")
}

func TestGenerate_Ordering(t *testing.T) {
	g := newGenerator()
	g.ScanFile("/src/a.tsx", `"lg:p-2 text-red-500 md:flex p-4 flex hover:bg-white"`)

	css := g.Generate()
	flex := strings.Index(css, ".flex {")
	pad := strings.Index(css, ".p-4 {")
	color := strings.Index(css, ".text-red-500 {")
	md := strings.Index(css, "@media (min-width: 768px)")
	lg := strings.Index(css, "@media (min-width: 1024px)")

	require.True(t, flex >= 0 && pad >= 0 && color >= 0 && md >= 0 && lg >= 0, css)
	assert.Less(t, flex, pad)
	assert.Less(t, pad, color)
	assert.Less(t, color, md, "media blocks follow base rules")
	assert.Less(t, md, lg, "screens in breakpoint order")
	assert.Contains(t, css, `  .md\:flex { display: flex; }`)
}

func TestGenerate_Needs(t *testing.T) {
	g := newGenerator()
	g.ScanFile("/src/a.tsx", `"animate-spin ring-2 ring-4 container"`)

	css := g.Generate()
	assert.Equal(t, 1, strings.Count(css, "@keyframes spin"))
	assert.Equal(t, 1, strings.Count(css, "--tw-ring-offset-width: 0px"), "shared defaults emitted once")
	assert.Less(t, strings.Index(css, "--tw-ring-inset"), strings.Index(css, ".ring-2"), "defaults are prepended")
	assert.Contains(t, css, ".container { max-width: 640px; }")
}

func TestListener_AfterReady(t *testing.T) {
	g := newGenerator()
	var calls atomic.Int32
	g.OnUpdate(func() { calls.Add(1) })

	g.ScanFile("/src/a.tsx", `"flex"`)
	assert.Equal(t, int32(0), calls.Load(), "no notifications during the initial build")

	g.MarkReady()
	before := g.Generate()
	g.ScanFile("/src/a.tsx", `"flex grid"`)
	assert.Equal(t, int32(1), calls.Load())
	assert.NotEqual(t, before, g.Generate())

	g.ScanFile("/src/a.tsx", `"flex grid nothing-here"`)
	assert.Equal(t, int32(1), calls.Load(), "unmatched tokens do not notify")
}

func TestDevtools(t *testing.T) {
	g := newGenerator()
	g.ScanFile("/src/a.tsx", `"flex"`)

	assert.True(t, g.ObserveRuntime([]string{"flex", "grid", "not-a-utility"}))
	assert.False(t, g.ObserveRuntime([]string{"grid"}))

	dev := g.GenerateDevtools()
	assert.Contains(t, dev, ".grid { display: grid; }")
	assert.NotContains(t, dev, ".flex")

	g.ScanFile("/src/b.tsx", `"grid"`)
	assert.NotContains(t, g.GenerateDevtools(), ".grid", "promoted to the main sheet")
}

func TestSetMatcher_Resets(t *testing.T) {
	g := newGenerator()
	g.ScanFile("/src/a.tsx", `"bg-brand"`)
	assert.Empty(t, g.Tokens())

	theme := rules.DefaultTheme()
	theme.Extend(map[string]map[string]string{"colors": {"brand": "#123456"}})
	g.SetMatcher(rules.NewMatcher(theme, rules.Options{}))

	assert.True(t, g.ScanFile("/src/a.tsx", `"bg-brand"`))
	assert.Equal(t, []string{"bg-brand"}, g.Tokens())
}
