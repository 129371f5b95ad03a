package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
entry = "./src/index.tsx"

[server]
port = 4000
metrics = false

[resolve]
extensions = ["tsx", ".ts", ".tsx"]

[resolve.aliases]
"@" = "src"

[watch]
debounce = "1s"

[exclude]
dirs = ["node_modules", ".git"]
files = ["*.log"]

[css]
dark_mode = "class"
content = ["src/**/*.tsx"]

[css.theme.colors]
brand = "#123456"

[css.utilities]
btn = "padding: 1rem; border-radius: 4px"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Clean(dir), cfg.Root)
	assert.Equal(t, "src/index.tsx", cfg.Entry)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.False(t, cfg.MetricsEnabled())
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, []string{".tsx", ".ts"}, cfg.Resolve.Extensions)
	assert.Equal(t, filepath.Join(dir, "src"), cfg.Resolve.Aliases["@"])
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{".git", "node_modules"}, cfg.Exclude.Dirs)
	assert.Equal(t, "class", cfg.CSS.DarkMode)
	assert.Equal(t, "#123456", cfg.CSS.Theme["colors"]["brand"])
	assert.Equal(t, "padding: 1rem; border-radius: 4px", cfg.CSS.Utilities["btn"])
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOrDefault(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "src/main.tsx", cfg.Entry)
	assert.Equal(t, "index.html", cfg.IndexHTML)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, []string{".ts", ".tsx", ".js", ".jsx"}, cfg.Resolve.Extensions)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "media", cfg.CSS.DarkMode)
	assert.Equal(t, []string{"index.html", "src/**.{ts,tsx,js,jsx,html}"}, cfg.CSS.Content)
	assert.Equal(t, "https://esm.sh", cfg.Deps.CDN)

	paths := ResolvePaths(cfg)
	assert.Equal(t, filepath.Join(dir, ".rds", "cache.db"), paths.CachePath)
	assert.Equal(t, filepath.Join(dir, "src", "main.tsx"), paths.Entry)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "DarkMode", content: "[css]\ndark_mode = \"sometimes\"\n"},
		{name: "Port", content: "[server]\nport = 70000\n"},
		{name: "Alias", content: "[resolve.aliases]\n\"./x\" = \"src\"\n"},
		{name: "Glob", content: "[exclude]\nfiles = [\"[\"]\n"},
		{name: "EmptyThemeValue", content: "[css.theme.colors]\nbrand = \"\"\n"},
		{name: "UtilityDecl", content: "[css.utilities]\nbtn = \"padding\"\n"},
		{name: "UtilityEmpty", content: "[css.utilities]\nbtn = \" ; \"\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_Includes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "theme.toml"), []byte(`
[css.theme.colors]
brand = "#000000"
accent = "#ffffff"
`), 0o644))
	path := writeConfig(t, dir, `
includes = ["theme.toml"]

[css.theme.colors]
brand = "#123456"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "#123456", cfg.CSS.Theme["colors"]["brand"], "own values win over includes")
	assert.Equal(t, "#ffffff", cfg.CSS.Theme["colors"]["accent"])
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RDS_TRACING_ENDPOINT=collector:4317\n"), 0o644))
	t.Setenv("RDS_PORT", "5173")
	t.Setenv("RDS_HOST", "0.0.0.0")

	cfg, err := LoadOrDefault(dir, "")
	require.NoError(t, err)
	os.Unsetenv("RDS_TRACING_ENDPOINT")

	assert.Equal(t, 5173, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "[server]\nport = 4000\n")

	got := make(chan *Config, 1)
	w := NewWatcher(path, func(cfg *Config) {
		select {
		case got <- cfg:
		default:
		}
	})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 4001\n"), 0o644))

	select {
	case cfg := <-got:
		assert.Equal(t, 4001, cfg.Server.Port)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
