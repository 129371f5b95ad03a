package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"rds/internal/core/watcher"
	"rds/internal/engine/transform"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"
)

type contentMatcher struct {
	root  string
	globs []glob.Glob
}

func compileContent(root string, patterns []string) (*contentMatcher, error) {
	m := &contentMatcher{root: root}
	for _, p := range patterns {
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid content pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

func (m *contentMatcher) Match(path string) bool {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, g := range m.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// InitialScan feeds every file matched by the content globs to the CSS
// generator, marks it ready and compiles the entry so the first page load
// finds warm caches.
func (a *App) InitialScan(ctx context.Context) error {
	start := time.Now()
	cfg := a.currentConfig()
	files, err := a.ScanDirectories(a.Paths.Root, cfg.Exclude.Dirs, a.contentFiles())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("failed to read content file", "path", path, "error", err)
				return nil
			}
			a.Generator.ScanFile(path, string(content))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	a.Generator.MarkReady()

	if _, err := os.Stat(a.Paths.Entry); err == nil {
		if _, err := a.Pipeline.Render(ctx, a.Paths.Entry, transform.FormModule); err != nil {
			a.noteFailure(err)
			a.HMR.Fail(err)
		}
	} else {
		slog.Warn("entry module missing", "path", a.Paths.Entry)
	}

	nodes, edges := a.Graph.Stats()
	slog.Info("initial scan complete",
		"content_files", len(files),
		"classes", len(a.Generator.Tokens()),
		"modules", nodes,
		"edges", edges,
		"duration", time.Since(start))
	a.emitUpdate(Update{Modules: nodes, Edges: edges, Failing: a.HMR.Failing(), Duration: time.Since(start)})
	return nil
}

// ScanDirectories walks root and returns the files accepted by content,
// skipping directories whose base name matches an exclude pattern.
func (a *App) ScanDirectories(root string, excludeDirs []string, content *contentMatcher) ([]string, error) {
	dirGlobs := make([]glob.Glob, 0, len(excludeDirs))
	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		dirGlobs = append(dirGlobs, g)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			base := filepath.Base(path)
			for _, g := range dirGlobs {
				if g.Match(base) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if content.Match(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// scanContent rescans path for utility classes when it is a content file.
func (a *App) scanContent(path string) {
	if !a.contentFiles().Match(path) {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}
	a.Generator.ScanFile(path, string(content))
}

func (a *App) StartWatcher() error {
	cfg := a.currentConfig()
	w, err := watcher.NewWatcher(
		cfg.Watch.Debounce,
		cfg.Exclude.Dirs,
		cfg.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}
	// Any file type may be imported as an asset.
	w.SetExtensions(nil)
	a.activeWatcher = w
	return w.Watch([]string{a.Paths.Root})
}
