package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "rds v"+Version+"\n", out)
}

func TestCSSCommand(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/App.tsx": `export const App = () => <div className="flex p-4 not-a-utility" />;`,
	})

	out, err := execute(t, "css", "--root", root, filepath.Join(root, "src", "App.tsx"))
	require.NoError(t, err)
	assert.Contains(t, out, ".flex { display: flex; }")
	assert.Contains(t, out, ".p-4 {")
	assert.NotContains(t, out, "not-a-utility")
}

func TestCSSCommand_MissingFile(t *testing.T) {
	root := t.TempDir()
	_, err := execute(t, "css", "--root", root, filepath.Join(root, "missing.tsx"))
	require.Error(t, err)
}

func TestCSSCommand_ConfigThemeApplies(t *testing.T) {
	root := writeProject(t, map[string]string{
		"rds.toml":    "[css.theme.colors]\nbrand = \"#0af\"\n",
		"src/App.tsx": `export const App = () => <p className="text-brand" />;`,
	})

	out, err := execute(t, "css", "--root", root, filepath.Join(root, "src", "App.tsx"))
	require.NoError(t, err)
	assert.Contains(t, out, "#0af")
}

func TestGraphCommand(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/main.tsx":  "import { value } from \"./util\";\nimport \"./style.css\";\nconsole.log(value);\n",
		"src/util.ts":   "export const value = 1;\n",
		"src/style.css": ".a { color: red; }\n",
	})
	disableCache(t, root)

	out, err := execute(t, "graph", "--root", root, "src/main.tsx")
	require.NoError(t, err)
	assert.Contains(t, out, "src/main.tsx [script, entry]")
	assert.Contains(t, out, "src/util.ts [script]")
	assert.Contains(t, out, "src/style.css [style")
	assert.Contains(t, out, "Imported by:\n  (none)")

	out, err = execute(t, "graph", "--root", root, "src/util.ts")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported by:\n  src/main.tsx")
	assert.Contains(t, out, "Reached from entry: src/main.tsx -> src/util.ts")

	out, err = execute(t, "graph", "--root", root, "--format", "tsv", filepath.Join(root, "src", "util.ts"))
	require.NoError(t, err)
	assert.Contains(t, out, "From\tTo")

	_, err = execute(t, "graph", "--root", root, "--format", "dot", "src/main.tsx")
	require.Error(t, err)
}

func disableCache(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "rds.toml"), []byte("[cache]\nenabled = false\n"), 0o644))
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	root := t.TempDir()
	cfg, path, err := loadConfig(root, "")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadConfig_ReadsProjectFile(t *testing.T) {
	root := writeProject(t, map[string]string{
		"rds.toml": "[server]\nport = 4123\n",
	})
	cfg, path, err := loadConfig(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "rds.toml"), path)
	assert.Equal(t, 4123, cfg.Server.Port)
}

func TestApplyDevOptions(t *testing.T) {
	cfg, _, err := loadConfig(t.TempDir(), "")
	require.NoError(t, err)

	applyDevOptions(cfg, devOptions{port: 5173, host: "0.0.0.0", open: true})
	assert.Equal(t, 5173, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.True(t, cfg.Server.Open)

	applyDevOptions(cfg, devOptions{})
	assert.Equal(t, 5173, cfg.Server.Port, "zero flags keep configured values")
}

func TestRelativeTo(t *testing.T) {
	rel := relativeTo("/proj")
	assert.Equal(t, "src/a.ts", rel("/proj/src/a.ts"))
	assert.Equal(t, "/other/b.ts", rel("/other/b.ts"))
	assert.Equal(t, "virtual:utils.css", rel("virtual:utils.css"))
}
