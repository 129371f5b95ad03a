package util

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./foo/bar  ", expected: "foo/bar"},
		{name: "Relative", input: "foo/../bar", expected: "bar"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{name: "Exact", path: "foo/bar", prefix: "foo/bar", expected: true},
		{name: "Nested", path: "foo/bar/baz", prefix: "foo/bar", expected: true},
		{name: "Neighbor", path: "foo/barista", prefix: "foo/bar", expected: false},
		{name: "Shorter", path: "foo", prefix: "foo/bar", expected: false},
		{name: "MixedSeparators", path: `foo\bar\baz`, prefix: "foo/bar", expected: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasPathPrefix(tc.path, tc.prefix); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	keys := SortedStringKeys(map[string]int{"b": 2, "a": 1, "c": 3})
	expected := []string{"a", "b", "c"}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestURLPathRoundTrip(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "src", "App.tsx")

	u, ok := URLPath(root, file)
	if !ok || u != "/src/App.tsx" {
		t.Fatalf("expected /src/App.tsx, got %q (ok=%v)", u, ok)
	}
	back, ok := FilePath(root, u)
	if !ok || back != file {
		t.Fatalf("expected %q, got %q", file, back)
	}

	if _, ok := URLPath(root, filepath.Join(filepath.Dir(root), "elsewhere.ts")); ok {
		t.Fatal("expected file outside root to be rejected")
	}
	if p, ok := FilePath(root, "/../../etc/passwd"); !ok || p != filepath.Join(root, "etc", "passwd") {
		t.Fatalf("expected traversal to be clamped to root, got %q", p)
	}
}

func TestShortHash(t *testing.T) {
	a := ShortHash([]byte("export const a = 1"))
	b := ShortHash([]byte("export const a = 2"))
	if len(a) != HashLength {
		t.Fatalf("expected %d chars, got %q", HashLength, a)
	}
	if a == b {
		t.Fatal("expected different content to hash differently")
	}
	if a != ShortHashString("export const a = 1") {
		t.Fatal("expected string and byte hashes to agree")
	}
}

func TestDebouncer_CollapsesTriggers(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { runs.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := runs.Load(); got != 1 {
		t.Fatalf("expected 1 run, got %d", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { runs.Add(1) })
	d.Trigger()
	if !d.Cancel() {
		t.Fatal("expected pending execution to be cancelled")
	}
	time.Sleep(60 * time.Millisecond)
	if runs.Load() != 0 {
		t.Fatal("expected cancelled debouncer not to run")
	}
	if d.Cancel() {
		t.Fatal("expected nothing pending after cancel")
	}
}
