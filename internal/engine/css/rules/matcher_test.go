package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	return NewMatcher(DefaultTheme(), Options{DarkMode: "media"})
}

func TestMatch_HoverTextColor(t *testing.T) {
	m := newTestMatcher(t)

	mt, ok := m.Match("hover:text-red-500")
	require.True(t, ok)
	require.Len(t, mt.Variants, 1)
	assert.Equal(t, "hover", mt.Variants[0].Name)
	assert.Equal(t, []Decl{{Prop: "color", Value: "#ef4444"}}, mt.Entry.Decls)

	block := Render(mt)
	assert.Equal(t, `.hover\:text-red-500:hover { color: #ef4444; }`, block.CSS)
	assert.Empty(t, block.Media)
}

func TestMatch_Deterministic(t *testing.T) {
	m := newTestMatcher(t)
	for _, token := range []string{"flex", "md:p-4", "-mt-2", "w-[37px]", "nope", "bogus:flex"} {
		a, okA := m.Match(token)
		b, okB := m.Match(token)
		require.Equal(t, okA, okB, token)
		if okA {
			assert.Equal(t, a.Entry.Key, b.Entry.Key, token)
			assert.Equal(t, a.Entry.Order, b.Entry.Order, token)
			assert.Equal(t, a.Entry.Decls, b.Entry.Decls, token)
		}
	}
}

func TestMatch_UnknownVariantFailsWholeToken(t *testing.T) {
	m := newTestMatcher(t)
	_, ok := m.Match("hover:bogus:flex")
	assert.False(t, ok)
	_, ok = m.Match("flex:")
	assert.False(t, ok)
}

func TestMatch_Negative(t *testing.T) {
	m := newTestMatcher(t)

	mt, ok := m.Match("-mt-4")
	require.True(t, ok)
	assert.True(t, mt.Entry.Negative)
	assert.Equal(t, []Decl{{Prop: "margin-top", Value: "-1rem"}}, mt.Entry.Decls)

	// "0px" and "0.5rem" start with 0, so no negative form exists.
	_, ok = m.Match("-mt-0")
	assert.False(t, ok)
	_, ok = m.Match("-mt-0.5")
	assert.False(t, ok)
	// Padding never accepts negatives.
	_, ok = m.Match("-p-4")
	assert.False(t, ok)
}

func TestMatch_Directions(t *testing.T) {
	m := newTestMatcher(t)

	cases := []struct {
		token string
		decls []Decl
	}{
		{"px-2", []Decl{{"padding-left", "0.5rem"}, {"padding-right", "0.5rem"}}},
		{"p-px", []Decl{{"padding", "1px"}}},
		{"rounded", []Decl{{"border-radius", "0.25rem"}}},
		{"rounded-t-lg", []Decl{{"border-top-left-radius", "0.5rem"}, {"border-top-right-radius", "0.5rem"}}},
		{"border-b", []Decl{{"border-bottom-width", "1px"}}},
		{"gap-x-4", []Decl{{"column-gap", "1rem"}}},
		{"text-lg", []Decl{{"font-size", "1.125rem"}, {"line-height", "1.75rem"}}},
		{"w-1/2", []Decl{{"width", "50%"}}},
	}
	for _, tc := range cases {
		mt, ok := m.Match(tc.token)
		if !assert.True(t, ok, tc.token) {
			continue
		}
		assert.Equal(t, tc.decls, mt.Entry.Decls, tc.token)
	}
}

func TestMatch_Arbitrary(t *testing.T) {
	m := newTestMatcher(t)

	mt, ok := m.Match("w-[calc(100%_-_2rem)]")
	require.True(t, ok)
	assert.Equal(t, []Decl{{"width", "calc(100% - 2rem)"}}, mt.Entry.Decls)

	// text-[...] is claimed by the first arbitrary rule registered for "text".
	mt, ok = m.Match("text-[#bada55]")
	require.True(t, ok)
	assert.Equal(t, []Decl{{"color", "#bada55"}}, mt.Entry.Decls)

	mt, ok = m.Match("md:-top-[3px]")
	require.True(t, ok)
	assert.Equal(t, []Decl{{"top", "-3px"}}, mt.Entry.Decls)
	media, order := mt.Media()
	assert.Equal(t, "(min-width: 768px)", media)
	assert.Equal(t, 2, order)
}

func TestMatch_OrderFollowsInsertion(t *testing.T) {
	m := newTestMatcher(t)
	container, _ := m.Match("container")
	block, _ := m.Match("block")
	pad, _ := m.Match("p-4")
	color, _ := m.Match("text-red-500")
	require.NotNil(t, container)
	assert.Less(t, container.Entry.Order, block.Entry.Order)
	assert.Less(t, block.Entry.Order, pad.Entry.Order)
	assert.Less(t, pad.Entry.Order, color.Entry.Order)
}

func TestMatch_PluginsAndCollisions(t *testing.T) {
	m := NewMatcher(DefaultTheme(), Options{Plugins: []Rule{
		StaticRule{Name: "btn", Decls: []Decl{{"padding", "1rem"}}},
		StaticRule{Name: "flex", Decls: []Decl{{"display", "-webkit-flex"}}},
	}})

	btn, ok := m.Match("btn")
	require.True(t, ok)
	flex, ok := m.Match("flex")
	require.True(t, ok)
	assert.Equal(t, "-webkit-flex", flex.Entry.Decls[0].Value, "later registration overwrites")
	assert.Greater(t, flex.Entry.Order, btn.Entry.Order)
}

func TestParseDecls(t *testing.T) {
	got := ParseDecls(" padding: 1rem ; color:red;; bogus ; margin: ")
	assert.Equal(t, []Decl{{"padding", "1rem"}, {"color", "red"}}, got)
	assert.Empty(t, ParseDecls(""))
}

func TestMatch_Needs(t *testing.T) {
	m := newTestMatcher(t)

	spin, ok := m.Match("animate-spin")
	require.True(t, ok)
	assert.Equal(t, "spin", spin.Entry.Needs.Keyframes)
	assert.Contains(t, m.Keyframes("spin"), "@keyframes spin")

	none, ok := m.Match("animate-none")
	require.True(t, ok)
	assert.Empty(t, none.Entry.Needs.Keyframes)

	ring, ok := m.Match("ring-2")
	require.True(t, ok)
	assert.Equal(t, "ring", ring.Entry.Needs.Defaults)
	assert.NotEmpty(t, m.Defaults("ring"))
	assert.False(t, ring.Entry.Simple())

	flex, _ := m.Match("flex")
	assert.True(t, flex.Entry.Simple())
}

func TestVariants(t *testing.T) {
	media := newTestMatcher(t)
	dark, ok := media.Variant("dark")
	require.True(t, ok)
	assert.True(t, dark.IsMedia())

	class := NewMatcher(nil, Options{DarkMode: "class"})
	dark, ok = class.Variant("dark")
	require.True(t, ok)
	assert.False(t, dark.IsMedia())

	mt, ok := class.Match("dark:hover:bg-white")
	require.True(t, ok)
	assert.Equal(t, `.dark .dark\:hover\:bg-white:hover`, mt.Selector())

	md, ok := media.Variant("md")
	require.True(t, ok)
	assert.Equal(t, "md", md.Screen)
	assert.Equal(t, []string{"sm", "md", "lg", "xl", "2xl"}, media.Screens())
}

func TestTheme_Extend(t *testing.T) {
	theme := DefaultTheme()
	theme.Extend(map[string]map[string]string{
		"colors": {"brand": "#123456", "red-500": "#ff0000"},
	})
	m := NewMatcher(theme, Options{})

	mt, ok := m.Match("bg-brand")
	require.True(t, ok)
	assert.Equal(t, "#123456", mt.Entry.Decls[0].Value)

	mt, ok = m.Match("text-red-500")
	require.True(t, ok)
	assert.Equal(t, "#ff0000", mt.Entry.Decls[0].Value)
}
