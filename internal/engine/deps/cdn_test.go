package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rds/internal/core/errors"
)

func TestCDN_Locate(t *testing.T) {
	root := t.TempDir()
	manifest := `{
  "dependencies": {"react": "^18.2.0", "@scope/ui": "1.2.3", "local": "file:../local"},
  "devDependencies": {"react": "18.0.0", "vitest": "workspace:*"}
}`
	if err := os.WriteFile(filepath.Join(root, ManifestFile), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	cdn := NewCDN("https://cdn.example/", root)

	tests := []struct {
		spec string
		want string
	}{
		{"react", "https://cdn.example/react@^18.2.0?dev"},
		{"react/jsx-dev-runtime", "https://cdn.example/react@^18.2.0/jsx-dev-runtime?dev"},
		{"@scope/ui/button", "https://cdn.example/@scope/ui@1.2.3/button?dev"},
		{"local", "https://cdn.example/local?dev"},
		{"lodash-es", "https://cdn.example/lodash-es?dev"},
	}
	for _, tt := range tests {
		got, err := cdn.Locate(context.Background(), tt.spec)
		if err != nil {
			t.Fatalf("Locate(%q): %v", tt.spec, err)
		}
		if got != tt.want {
			t.Errorf("Locate(%q) = %q, want %q", tt.spec, got, tt.want)
		}
	}

	if _, err := cdn.Locate(context.Background(), "./relative"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for a relative specifier, got %v", err)
	}
}

func TestCDN_ReloadPicksUpManifestChanges(t *testing.T) {
	root := t.TempDir()
	cdn := NewCDN("https://cdn.example", root)

	got, _ := cdn.Locate(context.Background(), "react")
	if got != "https://cdn.example/react?dev" {
		t.Fatalf("unexpected unpinned url %q", got)
	}

	if err := os.WriteFile(filepath.Join(root, ManifestFile), []byte(`{"dependencies":{"react":"19.0.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cdn.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, _ = cdn.Locate(context.Background(), "react")
	if got != "https://cdn.example/react@19.0.0?dev" {
		t.Errorf("expected pinned url after reload, got %q", got)
	}

	if err := os.WriteFile(filepath.Join(root, ManifestFile), []byte(`{`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cdn.Reload(); err == nil {
		t.Error("expected parse error for a broken manifest")
	}
}
