package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"rds/internal/core/config"
	"rds/internal/core/ports"
	"rds/internal/core/watcher"
	"rds/internal/data/transformstore"
	"rds/internal/engine/css/generator"
	"rds/internal/engine/css/rules"
	"rds/internal/engine/deps"
	"rds/internal/engine/graph"
	"rds/internal/engine/hmr"
	"rds/internal/engine/parser"
	"rds/internal/engine/resolver"
	"rds/internal/engine/transform"
	"rds/internal/shared/util"
)

const (
	// utilitiesDebounce coalesces bursts of newly matched classes into one
	// stylesheet update.
	utilitiesDebounce = 20 * time.Millisecond
	// storeRetention bounds how long an unused transform stays on disk.
	storeRetention = 30 * 24 * time.Hour
)

// Update is the summary handed to the dashboard after each change batch.
type Update struct {
	Changed    []string
	Messages   []hmr.Type
	Modules    int
	Edges      int
	Transforms int
	Renders    int
	Failing    bool
	Duration   time.Duration
}

// Hub is the socket side of the dev server.
type Hub interface {
	hmr.Broadcaster
	Clients() int
}

type App struct {
	cfgMu     sync.RWMutex
	Config    *config.Config
	content   *contentMatcher
	Paths     config.ResolvedPaths
	Grammars  *parser.Grammars
	Resolver  *resolver.Resolver
	Graph     *graph.Graph
	Generator *generator.Generator
	Pipeline  *transform.Pipeline
	HMR       *hmr.Propagator
	Deps      ports.DependencyLocator

	cdn       *deps.CDN
	store     *transformstore.Store
	writer    *transformstore.BatchWriter
	utilities *util.Debouncer

	activeWatcher *watcher.Watcher
	hubMu         sync.RWMutex
	hub           Hub

	// changeMu serializes change batches against config reloads.
	changeMu sync.Mutex
	// active is the batch HandleChanges is filling, nil in between.
	active   atomic.Pointer[batch]
	brokenMu sync.Mutex
	broken   map[string]bool

	updateMu sync.RWMutex
	onUpdate func(Update)
}

func New(cfg *config.Config) (*App, error) {
	paths := config.ResolvePaths(cfg)
	grammars := parser.NewGrammars()
	g := graph.New()
	res := resolver.New(paths.Root, cfg.Resolve.Extensions, cfg.Resolve.Aliases)
	gen := generator.New(buildMatcher(cfg))
	content, err := compileContent(paths.Root, cfg.CSS.Content)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		content:   content,
		Paths:     paths,
		Grammars:  grammars,
		Resolver:  res,
		Graph:     g,
		Generator: gen,
		broken:    make(map[string]bool),
	}

	if cfg.CacheEnabled() {
		a.openStore()
	}
	opts := transform.Options{Resolver: res, Graph: g, Grammars: grammars, Generator: gen}
	if a.writer != nil {
		opts.Persister = a.writer
	}
	a.Pipeline = transform.New(opts)
	a.HMR = hmr.NewPropagator(g, a.Pipeline)
	a.Pipeline.OnPrune(func(paths []string) {
		msg := a.HMR.Prune(paths)
		if b := a.active.Load(); b != nil {
			b.note(msg)
		}
	})

	if cfg.Deps.CDN != "" {
		a.cdn = deps.NewCDN(cfg.Deps.CDN, paths.Root)
		a.Deps = a.cdn
	}

	a.utilities = util.NewDebouncer(utilitiesDebounce, a.pushUtilities)
	gen.OnUpdate(a.utilities.Trigger)

	g.Ensure(paths.Entry, graph.KindScript)
	g.SetEntry(paths.Entry)
	return a, nil
}

func buildMatcher(cfg *config.Config) *rules.Matcher {
	theme := rules.DefaultTheme()
	if len(cfg.CSS.Theme) > 0 {
		theme.Extend(cfg.CSS.Theme)
	}
	opts := rules.Options{DarkMode: cfg.CSS.DarkMode}
	for _, name := range util.SortedStringKeys(cfg.CSS.Utilities) {
		opts.Plugins = append(opts.Plugins, rules.StaticRule{
			Name:  name,
			Decls: rules.ParseDecls(cfg.CSS.Utilities[name]),
		})
	}
	return rules.NewMatcher(theme, opts)
}

// openStore opens the persistent transform cache. A corrupt database is
// discarded once; any other failure leaves the cache disabled.
func (a *App) openStore() {
	store, err := transformstore.Open(a.Paths.CachePath)
	if err != nil && transformstore.IsCorruptError(err) {
		slog.Warn("transform cache corrupt, recreating", "path", a.Paths.CachePath, "error", err)
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(a.Paths.CachePath + suffix)
		}
		store, err = transformstore.Open(a.Paths.CachePath)
	}
	if err != nil {
		slog.Warn("transform cache unavailable", "path", a.Paths.CachePath, "error", err)
		return
	}
	if n, err := store.PruneOlderThan(time.Now().Add(-storeRetention)); err != nil {
		slog.Warn("failed to prune transform cache", "path", a.Paths.CachePath, "error", err)
	} else if n > 0 {
		slog.Debug("pruned stale transforms", "count", n)
	}
	a.store = store
	a.writer = transformstore.NewBatchWriter(store, transformstore.BatchWriterConfig{})
}

func (a *App) currentConfig() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.Config
}

func (a *App) contentFiles() *contentMatcher {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.content
}

// AttachHub connects the propagator to the socket hub.
func (a *App) AttachHub(h Hub) {
	a.hubMu.Lock()
	a.hub = h
	a.hubMu.Unlock()
	a.HMR.SetBroadcaster(h)
}

func (a *App) clients() int {
	a.hubMu.RLock()
	defer a.hubMu.RUnlock()
	if a.hub == nil {
		return 0
	}
	return a.hub.Clients()
}

func (a *App) SetUpdateHandler(handler func(Update)) {
	a.updateMu.Lock()
	a.onUpdate = handler
	a.updateMu.Unlock()
}

func (a *App) emitUpdate(update Update) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(update)
	}
}

// pushUtilities re-renders the generated stylesheet after new classes were
// matched and lets the propagator deliver it.
func (a *App) pushUtilities() {
	a.Pipeline.Invalidate(transform.UtilsID)
	if len(a.Graph.Importers(transform.UtilsID)) == 0 {
		return
	}
	a.HMR.Changed(context.Background(), transform.UtilsID)
}

// Greeting is sent to every newly connected client.
func (a *App) Greeting() []hmr.Message {
	return a.HMR.Greeting()
}

// Close stops background work and flushes pending cache writes.
func (a *App) Close() error {
	a.utilities.Cancel()
	var errs []error
	if a.activeWatcher != nil {
		if err := a.activeWatcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.writer != nil {
		if err := a.writer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
