package transformstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"rds/internal/shared/observability"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Entry is one persisted transform, valid while the source hash matches.
type Entry struct {
	Path       string
	SourceHash string
	Kind       string
	Payload    []byte
	UpdatedAt  time.Time
}

// Store persists transform results across restarts.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("transform store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("transform store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transform store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite transform store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite transform store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Load returns the entry for path when it was stored for sourceHash.
func (s *Store) Load(path, sourceHash string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		e     Entry
		tsRaw string
	)
	err := s.withRetry("load transform", func() error {
		return s.db.QueryRow(
			`SELECT path, source_hash, kind, payload, updated_at_utc FROM transforms WHERE path = ? AND source_hash = ?`,
			path, sourceHash,
		).Scan(&e.Path, &e.SourceHash, &e.Kind, &e.Payload, &tsRaw)
	})
	if errors.Is(err, sql.ErrNoRows) {
		observability.StoreOpsTotal.WithLabelValues("load", "miss").Inc()
		return Entry{}, false, nil
	}
	if err != nil {
		observability.StoreOpsTotal.WithLabelValues("load", "error").Inc()
		return Entry{}, false, err
	}
	if ts, perr := time.Parse(time.RFC3339Nano, tsRaw); perr == nil {
		e.UpdatedAt = ts.UTC()
	}
	_ = s.withRetry("count hit", func() error {
		_, err := s.db.Exec(`UPDATE transforms SET hits = hits + 1 WHERE path = ?`, path)
		return err
	})
	observability.StoreOpsTotal.WithLabelValues("load", "hit").Inc()
	return e, true, nil
}

// Save upserts a single entry.
func (s *Store) Save(e Entry) error {
	return s.SaveBatch([]Entry{e})
}

// SaveBatch upserts entries inside one transaction.
func (s *Store) SaveBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withRetry("save transforms", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.UpdatedAt.IsZero() {
				e.UpdatedAt = time.Now().UTC()
			}
			if _, err := tx.Exec(`
INSERT INTO transforms (path, source_hash, kind, payload, updated_at_utc)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
  source_hash=excluded.source_hash,
  kind=excluded.kind,
  payload=excluded.payload,
  updated_at_utc=excluded.updated_at_utc,
  hits=0
`, e.Path, e.SourceHash, e.Kind, e.Payload, e.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("upsert %q: %w", e.Path, err)
			}
		}
		return tx.Commit()
	})
	result := "ok"
	if err != nil {
		result = "error"
	}
	observability.StoreOpsTotal.WithLabelValues("save", result).Add(float64(len(entries)))
	return err
}

// Delete drops the entry for path.
func (s *Store) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withRetry("delete transform", func() error {
		_, err := s.db.Exec(`DELETE FROM transforms WHERE path = ?`, path)
		return err
	})
}

// PruneOlderThan removes entries not refreshed since cutoff.
func (s *Store) PruneOlderThan(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	err := s.withRetry("prune transforms", func() error {
		res, err := s.db.Exec(`DELETE FROM transforms WHERE updated_at_utc < ?`, cutoff.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	err := s.withRetry("count transforms", func() error {
		return s.db.QueryRow(`SELECT COUNT(*) FROM transforms`).Scan(&n)
	})
	return n, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// IsCorruptError reports errors that warrant deleting the cache file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
