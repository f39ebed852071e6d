// Package progress reports byte-level transfer progress to an observer without
// letting a slow observer stall the transfer.
package progress

import (
	"io"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Event is a snapshot of one transfer.
type Event struct {
	Key         string
	Transferred int64
	Total       int64
	Percent     int
}

// Func observes progress events. It runs on a dedicated goroutine.
type Func func(Event)

// Log is the default observer.
func Log(ev Event) {
	log.WithField("key", ev.Key).Debugf("%3d %%", ev.Percent)
}

const eventBuffer = 16

// Reporter counts transferred bytes and forwards percent changes to a Func.
// Add is safe for concurrent use. Events that do not fit in the buffer are
// dropped; Close always delivers a final event.
type Reporter struct {
	key         string
	total       int64
	transferred atomic.Int64
	lastPercent atomic.Int64

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}
}

// NewReporter starts a reporter for a transfer of total bytes. A nil fn
// discards events.
func NewReporter(key string, total int64, fn Func) *Reporter {
	if fn == nil {
		fn = func(Event) {}
	}

	r := &Reporter{
		key:    key,
		total:  total,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	r.lastPercent.Store(-1)

	go func() {
		defer close(r.done)
		for ev := range r.events {
			fn(ev)
		}
	}()

	return r
}

// Add records n more bytes.
func (r *Reporter) Add(n int64) {
	if n <= 0 {
		return
	}
	transferred := r.transferred.Add(n)
	pct := int64(percent(transferred, r.total))

	for {
		last := r.lastPercent.Load()
		if pct <= last {
			return
		}
		if r.lastPercent.CompareAndSwap(last, pct) {
			break
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.events <- r.snapshot(transferred):
	default:
	}
}

// Transferred returns the byte count seen so far.
func (r *Reporter) Transferred() int64 {
	return r.transferred.Load()
}

// Close delivers a final event and waits until the observer has seen every
// queued event. Calling Close more than once is safe.
func (r *Reporter) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	r.events <- r.snapshot(r.transferred.Load())
	close(r.events)
	r.mu.Unlock()

	<-r.done
}

func (r *Reporter) snapshot(transferred int64) Event {
	return Event{
		Key:         r.key,
		Transferred: transferred,
		Total:       r.total,
		Percent:     percent(transferred, r.total),
	}
}

func percent(transferred, total int64) int {
	if total <= 0 {
		return 100
	}
	if transferred >= total {
		return 100
	}
	return int(transferred * 100 / total)
}

// Reader counts bytes read from src.
func (r *Reporter) Reader(src io.Reader) io.Reader {
	return &reader{src: src, reporter: r}
}

// WriterAt counts bytes written to dst.
func (r *Reporter) WriterAt(dst io.WriterAt) io.WriterAt {
	return &writerAt{dst: dst, reporter: r}
}

type reader struct {
	src      io.Reader
	reporter *Reporter
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	r.reporter.Add(int64(n))
	return n, err
}

type writerAt struct {
	dst      io.WriterAt
	reporter *Reporter
}

func (w *writerAt) WriteAt(p []byte, off int64) (int, error) {
	n, err := w.dst.WriteAt(p, off)
	w.reporter.Add(int64(n))
	return n, err
}
