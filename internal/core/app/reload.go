package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"

	"rds/internal/core/config"
	"rds/internal/engine/graph"
	"rds/internal/engine/transform"
)

// ApplyConfig swaps in a reloaded configuration. A changed theme, dark mode,
// utility list or content list rebuilds the rule table and rescans; every
// client then reloads. Settings bound at startup only log a restart hint.
func (a *App) ApplyConfig(next *config.Config) error {
	a.changeMu.Lock()
	defer a.changeMu.Unlock()

	prev := a.currentConfig()
	content, err := compileContent(a.Paths.Root, next.CSS.Content)
	if err != nil {
		return err
	}

	if restartRequired(prev, next) {
		slog.Warn("configuration change needs a restart to take effect",
			"fields", "root, entry, server, resolve, cache, deps")
	}

	cssChanged := prev.CSS.DarkMode != next.CSS.DarkMode ||
		!reflect.DeepEqual(prev.CSS.Theme, next.CSS.Theme) ||
		!reflect.DeepEqual(prev.CSS.Utilities, next.CSS.Utilities) ||
		!slices.Equal(prev.CSS.Content, next.CSS.Content)

	a.cfgMu.Lock()
	// Fields that need a restart keep their running values.
	merged := *prev
	merged.CSS = next.CSS
	merged.Watch = next.Watch
	merged.Exclude = next.Exclude
	a.Config = &merged
	a.content = content
	a.cfgMu.Unlock()

	if a.activeWatcher != nil {
		a.activeWatcher.SetDebounce(next.Watch.Debounce)
	}
	if !cssChanged {
		slog.Info("configuration reloaded")
		return nil
	}

	a.Generator.SetMatcher(buildMatcher(&merged))
	dropped := a.Pipeline.InvalidateUtilities()
	files, err := a.ScanDirectories(a.Paths.Root, merged.Exclude.Dirs, content)
	if err != nil {
		return err
	}
	scanned := make(map[string]bool, len(files))
	for _, path := range files {
		a.scanContent(path)
		scanned[path] = true
	}
	scripts := a.rescanScripts(scanned)
	a.Generator.MarkReady()
	slog.Info("configuration reloaded",
		"rescanned", len(files),
		"scripts", scripts,
		"stylesheets", len(dropped))
	a.HMR.Reload()
	return nil
}

func restartRequired(prev, next *config.Config) bool {
	return prev.Root != next.Root ||
		prev.Entry != next.Entry ||
		prev.IndexHTML != next.IndexHTML ||
		!reflect.DeepEqual(prev.Server, next.Server) ||
		!reflect.DeepEqual(prev.Resolve, next.Resolve) ||
		!reflect.DeepEqual(prev.Cache, next.Cache) ||
		prev.Deps != next.Deps
}

// rescanScripts feeds every script module in the graph back to the
// generator. Their compile results stay cached, so the pipeline would not
// scan them again after the matcher was replaced.
func (a *App) rescanScripts(skip map[string]bool) int {
	n := 0
	for _, node := range a.Graph.Nodes() {
		if node.Kind != graph.KindScript || skip[node.URL] || !filepath.IsAbs(node.URL) {
			continue
		}
		if transform.KindOf(node.URL) != transform.KindScript {
			continue
		}
		content, err := os.ReadFile(node.URL)
		if err != nil {
			continue
		}
		a.Generator.ScanFile(node.URL, string(content))
		n++
	}
	return n
}
