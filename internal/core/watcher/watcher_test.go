package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func waitFor(t *testing.T, ch <-chan []Event, path string, op Op) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case events := <-ch:
			for _, e := range events {
				if e.Path == path && e.Op == op {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s %s", op, path)
		}
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changed := make(chan []Event, 8)
	w, err := NewWatcher(50*time.Millisecond, []string{"node_modules"}, []string{"*.exclude.css"}, func(events []Event) {
		changed <- events
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "App.tsx")
	if err := os.WriteFile(testFile, []byte("export const App = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, testFile, OpChanged)

	excludeFile := filepath.Join(tmpDir, "test.exclude.css")
	os.WriteFile(excludeFile, []byte("a{}"), 0o644)
	other := filepath.Join(tmpDir, "notes.txt")
	os.WriteFile(other, []byte("ignored"), 0o644)

	select {
	case events := <-changed:
		for _, e := range events {
			if e.Path == excludeFile || e.Path == other {
				t.Errorf("excluded file triggered event: %s", e.Path)
			}
		}
	case <-time.After(300 * time.Millisecond):
	}

	subdir := filepath.Join(tmpDir, "components")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(subdir, "Button.tsx")
	if err := os.WriteFile(nested, []byte("export const Button = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested, OpChanged)

	if err := os.Remove(nested); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested, OpRemoved)
}

func TestWatcher_IdenticalContentIsDropped(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "style.css")
	content := []byte(".a { color: red; }")
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []Event, 8)
	w, err := NewWatcher(30*time.Millisecond, nil, nil, func(events []Event) {
		changed <- events
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case events := <-changed:
		t.Errorf("unexpected event for identical content: %v", events)
	case <-time.After(200 * time.Millisecond):
	}

	if err := os.WriteFile(testFile, []byte(".a { color: blue; }"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, testFile, OpChanged)
}

func TestWatcher_ExtensionFilter(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, nil, []string{"*.d.ts"}, func([]Event) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	cases := map[string]bool{
		"main.py":    true,
		"App.tsx":    false,
		"logo.svg":   false,
		"types.d.ts": true,
		"index.html": false,
	}
	for name, excluded := range cases {
		if got := w.shouldExcludeFile(name); got != excluded {
			t.Errorf("%s: expected excluded=%v, got %v", name, excluded, got)
		}
	}

	w.SetExtensions(nil)
	if w.shouldExcludeFile("main.py") {
		t.Error("expected empty filter to allow every extension")
	}
}
