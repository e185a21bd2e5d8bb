// Package dedupe tracks keys already handled: analysis request ids on the
// API and radar file paths on the directory watcher.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMaxSize = 10_000

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so that it can be retried, e.g. after the queue
	// rejected the job.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key  string
	seen time.Time
}

// inMemoryDeduper keeps keys in insertion order. When full, the oldest key is
// evicted. With a ttl, a key older than ttl counts as unseen and is recorded
// again.
type inMemoryDeduper struct {
	mu      sync.Mutex
	keys    map[string]*list.Element
	order   *list.List // front is the oldest key
	maxSize int        // 0 or negative means unbounded
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		keys:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)
	if _, ok := d.keys[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Front())
	}
	d.keys[key] = d.order.PushBack(&entry{key: key, seen: now})
	return false
}

// Unrecord removes key from the seen set.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.keys[key]; ok {
		d.remove(e)
	}
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expire(d.now())
	return int64(d.order.Len())
}

// expire drops keys recorded more than ttl ago. Keys are in insertion order so
// the scan stops at the first fresh one. Must be called with d.mu held.
func (d *inMemoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for e := d.order.Front(); e != nil; e = d.order.Front() {
		if now.Sub(e.Value.(*entry).seen) < d.ttl {
			return
		}
		d.remove(e)
	}
}

func (d *inMemoryDeduper) remove(e *list.Element) {
	delete(d.keys, e.Value.(*entry).key)
	d.order.Remove(e)
}
