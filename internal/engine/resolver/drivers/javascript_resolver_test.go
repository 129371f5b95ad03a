package drivers

import "testing"

func TestJavaScriptSpecifiers(t *testing.T) {
	s := NewJavaScriptSpecifiers()

	cleanCases := map[string]string{
		`"./a.ts"`:         "./a.ts",
		"'./logo.svg?url'": "./logo.svg",
		"node:path":        "path",
		" ./b#frag ":       "./b",
	}
	for in, want := range cleanCases {
		if got := s.Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}

	pkgCases := map[string]string{
		"react":            "react",
		"react-dom/client": "react-dom",
		"@scope/pkg/sub":   "@scope/pkg",
		"@scope":           "",
	}
	for in, want := range pkgCases {
		if got := s.PackageName(in); got != want {
			t.Errorf("PackageName(%q) = %q, want %q", in, got, want)
		}
	}

	if !s.IsRelative("../x") || !s.IsRelative("/src/x") || s.IsRelative("react") {
		t.Error("unexpected IsRelative classification")
	}
	if !s.IsExternalURL("data:image/png;base64,xx") || !s.IsExternalURL("https://x/y.png") || s.IsExternalURL("./img.png") {
		t.Error("unexpected IsExternalURL classification")
	}
}
