package transformstore

import (
	"log/slog"
	"sync"
	"time"
)

// BatchWriterConfig controls the flush thresholds for the BatchWriter.
type BatchWriterConfig struct {
	// BatchSize defaults to 32 when zero or negative.
	BatchSize int
	// FlushInterval defaults to 500ms when zero or negative.
	FlushInterval time.Duration
}

func (c BatchWriterConfig) batchSize() int {
	if c.BatchSize <= 0 {
		return 32
	}
	return c.BatchSize
}

func (c BatchWriterConfig) flushInterval() time.Duration {
	if c.FlushInterval <= 0 {
		return 500 * time.Millisecond
	}
	return c.FlushInterval
}

// BatchWriter funnels saves through a single writer goroutine so request
// handlers never wait on sqlite.
type BatchWriter struct {
	store *Store
	cfg   BatchWriterConfig

	ch      chan Entry
	flushCh chan chan error
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewBatchWriter starts the writer goroutine. Close drains it.
func NewBatchWriter(store *Store, cfg BatchWriterConfig) *BatchWriter {
	w := &BatchWriter{
		store:   store,
		cfg:     cfg,
		ch:      make(chan Entry, cfg.batchSize()*2),
		flushCh: make(chan chan error, 1),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Submit enqueues e. When the queue is full the entry is written inline.
func (w *BatchWriter) Submit(e Entry) {
	select {
	case <-w.done:
		return
	default:
	}
	select {
	case w.ch <- e:
	default:
		if err := w.store.Save(e); err != nil {
			slog.Warn("transform store write failed", "path", e.Path, "error", err)
		}
	}
}

// Load reads through to the store, so a BatchWriter can back a transform
// cache on its own.
func (w *BatchWriter) Load(path, sourceHash string) (Entry, bool, error) {
	return w.store.Load(path, sourceHash)
}

// Flush writes everything submitted so far and waits for the result.
func (w *BatchWriter) Flush() error {
	result := make(chan error, 1)
	select {
	case w.flushCh <- result:
	case <-w.done:
		return nil
	}
	return <-result
}

// Close flushes pending entries and stops the goroutine.
func (w *BatchWriter) Close() error {
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()
	return w.drainChannel()
}

func (w *BatchWriter) run() {
	defer w.wg.Done()

	batch := make([]Entry, 0, w.cfg.batchSize())
	ticker := time.NewTicker(w.cfg.flushInterval())
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := w.store.SaveBatch(batch)
		if err != nil {
			slog.Warn("transform store batch failed", "entries", len(batch), "error", err)
		}
		batch = batch[:0]
		return err
	}

	for {
		select {
		case e := <-w.ch:
			batch = append(batch, e)
			if len(batch) >= w.cfg.batchSize() {
				drainPending(&batch, w.ch)
				_ = flush()
				ticker.Reset(w.cfg.flushInterval())
			}
		case result := <-w.flushCh:
			drainPending(&batch, w.ch)
			result <- flush()
		case <-ticker.C:
			drainPending(&batch, w.ch)
			_ = flush()
		case <-w.done:
			drainPending(&batch, w.ch)
			_ = flush()
			return
		}
	}
}

func (w *BatchWriter) drainChannel() error {
	var entries []Entry
	drainPending(&entries, w.ch)
	return w.store.SaveBatch(entries)
}

// drainPending moves queued entries into batch without blocking, so a
// Submit followed by Flush always sees the submitted entry.
func drainPending(batch *[]Entry, ch <-chan Entry) {
	for {
		select {
		case e := <-ch:
			*batch = append(*batch, e)
		default:
			return
		}
	}
}
