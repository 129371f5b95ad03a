package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"rds/internal/core/watcher"
	"rds/internal/engine/deps"
	"rds/internal/engine/hmr"
	"rds/internal/engine/transform"
	"rds/internal/shared/observability"
	"rds/internal/shared/util"
)

// batch collects what one HandleChanges call did. Prunes reported by the
// pipeline arrive through note, possibly from a request goroutine.
type batch struct {
	mu       sync.Mutex
	handled  map[string]bool
	changed  []string
	messages []hmr.Type
}

func newBatch() *batch {
	return &batch{handled: make(map[string]bool)}
}

func (b *batch) record(path string, msg hmr.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handled[path] = true
	b.changed = append(b.changed, path)
	if msg.Type != "" {
		b.messages = append(b.messages, msg.Type)
	}
}

func (b *batch) note(msg hmr.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg.Type != "" {
		b.messages = append(b.messages, msg.Type)
	}
}

func (b *batch) markHandled(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handled[path] = true
}

func (b *batch) seen(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handled[path]
}

func (b *batch) summary() ([]string, []hmr.Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.changed), slices.Clone(b.messages)
}

// HandleChanges applies one debounced batch of file system events: caches of
// each file are dropped, the file is recompiled and the outcome is pushed to
// clients. Files that failed earlier are retried afterwards, since the batch
// may have created the import they were missing.
func (a *App) HandleChanges(events []watcher.Event) {
	ctx, span := observability.Tracer.Start(context.Background(), "app.HandleChanges")
	defer span.End()

	a.changeMu.Lock()
	defer a.changeMu.Unlock()

	slog.Info("detected changes", "count", len(events))
	start := time.Now()
	b := newBatch()
	a.active.Store(b)

	for _, ev := range events {
		path := filepath.Clean(ev.Path)
		switch {
		case path == a.Paths.IndexHTML:
			a.scanContent(path)
			b.record(path, a.HMR.Reload())
			continue
		case filepath.Base(path) == deps.ManifestFile && filepath.Dir(path) == a.Paths.Root:
			if a.cdn != nil {
				if err := a.cdn.Reload(); err != nil {
					slog.Warn("failed to reload package manifest", "error", err)
				}
			}
			b.record(path, a.HMR.Reload())
			continue
		}

		if ev.Op == watcher.OpRemoved {
			a.unlink(ctx, path, b)
		} else {
			a.change(ctx, path, b)
		}
	}
	a.retryBroken(ctx, b)
	a.active.Store(nil)

	changed, messages := b.summary()
	nodes, edges := a.Graph.Stats()
	transforms, renders := a.Pipeline.Stats()
	duration := time.Since(start)
	slog.Debug("changes applied", "files", len(changed), "duration", duration)
	a.emitUpdate(Update{
		Changed:    changed,
		Messages:   messages,
		Modules:    nodes,
		Edges:      edges,
		Transforms: transforms,
		Renders:    renders,
		Failing:    a.HMR.Failing(),
		Duration:   duration,
	})
}

func (a *App) change(ctx context.Context, path string, b *batch) {
	a.Resolver.Forget(path)
	a.scanContent(path)
	if !a.Graph.Has(path) {
		// Not part of the running page; it may still satisfy a broken import.
		return
	}

	a.recompile(ctx, path, b)
}

// unlink removes a deleted file. Stylesheets left without importers are
// pruned from the page, and former importers are recompiled so the missing
// import surfaces as an error.
func (a *App) unlink(ctx context.Context, path string, b *batch) {
	a.Resolver.Forget(path)
	a.Generator.Forget(path)
	a.Pipeline.Invalidate(path)
	a.Pipeline.Forget(path)
	a.setBroken(path, false)

	removal, ok := a.Graph.Remove(path)
	if !ok {
		return
	}
	var pruned []string
	if transform.KindOf(path) == transform.KindStyle {
		pruned = append(pruned, a.Pipeline.ServedPath(path))
	}
	for _, id := range removal.Pruned {
		a.Pipeline.Forget(id)
		pruned = append(pruned, a.Pipeline.ServedPath(id))
	}
	if len(pruned) > 0 {
		b.record(path, a.HMR.Prune(pruned))
	} else {
		b.markHandled(path)
	}

	for _, importer := range removal.Importers {
		if b.seen(importer) {
			continue
		}
		a.recompile(ctx, importer, b)
	}
}

func (a *App) recompile(ctx context.Context, path string, b *batch) {
	a.Pipeline.Invalidate(path)
	if _, err := a.Pipeline.Transform(ctx, path); err != nil {
		a.setBroken(path, true)
		b.record(path, a.HMR.Fail(err))
		return
	}
	a.setBroken(path, false)
	b.record(path, a.HMR.Changed(ctx, path))
}

func (a *App) retryBroken(ctx context.Context, b *batch) {
	for _, path := range a.brokenFiles() {
		if b.seen(path) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			a.setBroken(path, false)
			continue
		}
		a.Pipeline.Invalidate(path)
		if _, err := a.Pipeline.Transform(ctx, path); err != nil {
			// Still failing; the overlay already shows it.
			continue
		}
		a.setBroken(path, false)
		b.record(path, a.HMR.Changed(ctx, path))
	}
}

// noteFailure remembers the file a compile error points at so that a later
// change batch retries it.
func (a *App) noteFailure(err error) {
	if file := hmr.SourceFile(err); file != "" && filepath.IsAbs(file) {
		a.setBroken(file, true)
	}
}

func (a *App) setBroken(path string, broken bool) {
	a.brokenMu.Lock()
	defer a.brokenMu.Unlock()
	if broken {
		a.broken[path] = true
	} else {
		delete(a.broken, path)
	}
}

func (a *App) brokenFiles() []string {
	a.brokenMu.Lock()
	defer a.brokenMu.Unlock()
	return util.SortedStringKeys(a.broken)
}
