package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// defaultBuffer is the queue length used when the config leaves it unset.
const defaultBuffer = 4096

// Closer flushes and stops a logging pipeline.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// entry is one record waiting for the writer, with the handler that must
// format it (derived handlers carry their own attrs and groups).
type entry struct {
	h   slog.Handler
	rec slog.Record
}

// writer is shared by an AsyncHandler and every handler derived from it.
type writer struct {
	queue   chan entry
	done    chan struct{}
	dropped atomic.Int64
	close   sync.Once
}

func (w *writer) run() {
	defer close(w.done)
	for e := range w.queue {
		_ = e.h.Handle(context.Background(), e.rec)
	}
}

// AsyncHandler hands records to a single writer goroutine so request paths
// never wait on stdout. A full queue drops the record and counts it.
type AsyncHandler struct {
	inner slog.Handler
	w     *writer
}

// NewAsyncHandler starts the writer for inner with a queue of the given
// length, defaultBuffer when size <= 0.
func NewAsyncHandler(inner slog.Handler, size int) *AsyncHandler {
	if size <= 0 {
		size = defaultBuffer
	}
	w := &writer{
		queue: make(chan entry, size),
		done:  make(chan struct{}),
	}
	go w.run()
	return &AsyncHandler{inner: inner, w: w}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues a clone of rec; the caller may reuse its attrs after return.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.w.queue <- entry{h: h.inner, rec: rec.Clone()}:
	default:
		h.w.dropped.Add(1)
	}
	return nil
}

// WithAttrs shares the writer and wraps a derived inner handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), w: h.w}
}

// WithGroup shares the writer and wraps a derived inner handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), w: h.w}
}

// Dropped returns how many records were discarded because the queue was full.
func (h *AsyncHandler) Dropped() int64 {
	return h.w.dropped.Load()
}

// Close drains the queue and stops the writer. Handle must not be called
// afterwards. When records were dropped, a final warning is written
// synchronously so the loss is visible in the log itself.
func (h *AsyncHandler) Close() {
	h.w.close.Do(func() {
		close(h.w.queue)
		<-h.w.done
		if n := h.w.dropped.Load(); n > 0 {
			rec := slog.NewRecord(time.Now(), slog.LevelWarn, "async log queue overflowed", 0)
			rec.AddAttrs(slog.Int64("dropped", n))
			_ = h.inner.Handle(context.Background(), rec)
		}
	})
}
