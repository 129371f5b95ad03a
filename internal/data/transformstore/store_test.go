package transformstore

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveLoadByHash(t *testing.T) {
	store := openTemp(t)

	e := Entry{Path: "/src/App.tsx", SourceHash: "aaaa", Kind: "script", Payload: []byte(`{"code":"x"}`)}
	if err := store.Save(e); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.Load("/src/App.tsx", "aaaa")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(got.Payload) != `{"code":"x"}` || got.Kind != "script" {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}

	if _, ok, err := store.Load("/src/App.tsx", "bbbb"); err != nil || ok {
		t.Errorf("stale hash must miss: ok=%v err=%v", ok, err)
	}

	e.SourceHash = "bbbb"
	e.Payload = []byte(`{"code":"y"}`)
	if err := store.Save(e); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if n, _ := store.Count(); n != 1 {
		t.Errorf("expected a single row per path, got %d", n)
	}
	if _, ok, _ := store.Load("/src/App.tsx", "aaaa"); ok {
		t.Error("old hash must miss after overwrite")
	}
}

func TestStore_DeleteAndPrune(t *testing.T) {
	store := openTemp(t)
	old := time.Now().Add(-48 * time.Hour)
	if err := store.SaveBatch([]Entry{
		{Path: "/a.ts", SourceHash: "1", Kind: "script", Payload: []byte("a"), UpdatedAt: old},
		{Path: "/b.ts", SourceHash: "2", Kind: "script", Payload: []byte("b")},
		{Path: "/c.css", SourceHash: "3", Kind: "style", Payload: []byte("c")},
	}); err != nil {
		t.Fatalf("save batch: %v", err)
	}

	if err := store.Delete("/c.css"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, err := store.PruneOlderThan(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned row, got %d", n)
	}
	if count, _ := store.Count(); count != 1 {
		t.Errorf("expected 1 remaining row, got %d", count)
	}
}

func TestStore_ReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Save(Entry{Path: "/x.ts", SourceHash: "h", Kind: "script", Payload: []byte("x")}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if _, ok, _ := store.Load("/x.ts", "h"); !ok {
		t.Error("expected entry to survive reopen")
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		t.Fatalf("raw open: %v", err)
	}
	defer db.Close()
	var version int
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("expected schema version %d, got %d", SchemaVersion, version)
	}
}

func TestOpen_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir); err == nil {
		t.Error("expected error for directory path")
	}
	if _, err := Open("  "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(os.ErrInvalid) {
		t.Error("os.ErrInvalid should be treated as corrupt")
	}
	if IsCorruptError(nil) {
		t.Error("nil is not corrupt")
	}
}

func TestBatchWriter_FlushAndClose(t *testing.T) {
	store := openTemp(t)
	w := NewBatchWriter(store, BatchWriterConfig{BatchSize: 100, FlushInterval: time.Hour})

	for _, p := range []string{"/a.ts", "/b.ts", "/c.ts"} {
		w.Submit(Entry{Path: p, SourceHash: "h", Kind: "script", Payload: []byte(p)})
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n, _ := store.Count(); n != 3 {
		t.Fatalf("expected 3 rows after flush, got %d", n)
	}

	w.Submit(Entry{Path: "/d.ts", SourceHash: "h", Kind: "script", Payload: []byte("d")})
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n, _ := store.Count(); n != 4 {
		t.Errorf("expected close to drain pending entries, got %d rows", n)
	}

	w.Submit(Entry{Path: "/e.ts", SourceHash: "h", Kind: "script", Payload: []byte("e")})
	if err := w.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
