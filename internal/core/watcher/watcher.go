package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"rds/internal/shared/observability"
	"rds/internal/shared/util"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

type Op int

const (
	OpChanged Op = iota
	OpRemoved
)

func (o Op) String() string {
	if o == OpRemoved {
		return "unlink"
	}
	return "change"
}

type Event struct {
	Path string
	Op   Op
}

// DefaultExtensions are the source types a web project edits.
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".css", ".svg", ".html", ".json"}

type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extFilters   map[string]bool
	onChange     func([]Event)
	callbackMu   sync.Mutex

	pending   map[string]Op
	hashes    map[string]string
	pendingMu sync.Mutex
	timer     *time.Timer
}

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]Event)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledDirs, err := compileAll(excludeDirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compileAll(excludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		onChange:     onChange,
		pending:      make(map[string]Op),
		hashes:       make(map[string]string),
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
	}
	w.SetExtensions(DefaultExtensions)
	return w, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// SetExtensions limits events to files with one of extensions. Empty allows all.
func (w *Watcher) SetExtensions(extensions []string) {
	filter := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		filter[normalized] = true
	}
	w.extFilters = filter
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path, false); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

// watchRecursive adds every directory below root. Files are hashed so
// later writes with identical content are dropped.
func (w *Watcher) watchRecursive(root string, enqueue bool) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		if w.shouldExcludeFile(path) {
			return nil
		}
		if enqueue {
			w.scheduleChange(path, OpChanged)
			return nil
		}
		if data, err := os.ReadFile(path); err == nil {
			w.pendingMu.Lock()
			w.hashes[path] = util.ContentHash(data)
			w.pendingMu.Unlock()
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name, true); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.scheduleChange(event.Name, OpRemoved)
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.scheduleChange(event.Name, OpChanged)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string, op Op) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = op

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = make(map[string]Op)
	w.pendingMu.Unlock()

	events := make([]Event, 0, len(pending))
	for _, path := range util.SortedStringKeys(pending) {
		op := pending[path]
		// A rename reports the old name; the file may be back already.
		if op == OpRemoved {
			if _, err := os.Stat(path); err == nil {
				op = OpChanged
			}
		}
		if op == OpChanged && !w.contentChanged(path) {
			continue
		}
		if op == OpRemoved {
			w.pendingMu.Lock()
			delete(w.hashes, path)
			w.pendingMu.Unlock()
		}
		events = append(events, Event{Path: path, Op: op})
	}

	if len(events) > 0 {
		sort.SliceStable(events, func(i, j int) bool { return events[i].Op < events[j].Op })
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(events)
	}
}

func (w *Watcher) contentChanged(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	sum := util.ContentHash(data)

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if prev, ok := w.hashes[path]; ok && prev == sum {
		return false
	}
	w.hashes[path] = sum
	return true
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))

	if len(w.extFilters) > 0 && !w.extFilters[filepath.Ext(base)] {
		return true
	}

	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
