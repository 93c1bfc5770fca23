package fetch

import (
	"context"
	"sync"
)

// FetchFunc performs the remote request for a key.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// Handler receives settlements for the keys a Loader was asked for. OnData
// and OnError are only invoked for the latest issued key; both may be called
// from the goroutine that ran the fetch. Deliveries are serialized under the
// loader's lock, so a handler must not call back into the Loader.
type Handler[T any] interface {
	OnData(key string, value T)
	OnError(key string, err error)
}

// HandlerFuncs adapts two closures to the Handler interface.
type HandlerFuncs[T any] struct {
	Data func(key string, value T)
	Err  func(key string, err error)
}

func (h HandlerFuncs[T]) OnData(key string, value T) {
	if h.Data != nil {
		h.Data(key, value)
	}
}

func (h HandlerFuncs[T]) OnError(key string, err error) {
	if h.Err != nil {
		h.Err(key, err)
	}
}

// Loader binds one view to the cache. It tracks the latest issued key with a
// generation counter; a settlement carrying a stale generation lost the race
// to a newer request and is discarded without touching the cache or the
// handler, so rapid successive changes resolve to the newest key no matter
// the order responses arrive in.
type Loader[T any] struct {
	cache   *Cache[T]
	fn      FetchFunc[T]
	handler Handler[T]

	mu  sync.Mutex
	gen uint64
	key string
}

// NewLoader creates a loader over the shared cache.
func NewLoader[T any](cache *Cache[T], fn FetchFunc[T], handler Handler[T]) *Loader[T] {
	return &Loader[T]{cache: cache, fn: fn, handler: handler}
}

// Request asks for the data behind key. A cache hit settles synchronously
// with no remote request; a miss issues the fetch on its own goroutine.
// Issuing a new key supersedes any in-flight request for a previous one.
func (l *Loader[T]) Request(ctx context.Context, key string) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.key = key

	// Deliver cache hits while still holding the lock: the generation bump
	// and the delivery form one atomic step, so a settlement for an older
	// generation can never land after this one.
	if value, ok := l.cache.Get(key); ok {
		l.handler.OnData(key, value)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	go func() {
		value, err := l.fn(ctx, key)
		l.settle(gen, key, value, err)
	}()
}

// Refresh drops the cache entry for the latest key and re-requests it. Used
// after a mutation settles to reconcile with canonical server state.
func (l *Loader[T]) Refresh(ctx context.Context) {
	l.mu.Lock()
	key := l.key
	l.mu.Unlock()
	if key == "" {
		return
	}
	l.cache.Invalidate(key)
	l.Request(ctx, key)
}

// LatestKey reports the most recently issued key.
func (l *Loader[T]) LatestKey() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.key
}

// settle delivers a fetch result. It returns false when the result belonged
// to a superseded request and was dropped. The staleness check and the
// delivery happen under the same lock hold as Request's generation bump, so
// a result that passes the check cannot be overtaken by a newer delivery.
func (l *Loader[T]) settle(gen uint64, key string, value T, err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return false
	}
	if err != nil {
		l.handler.OnError(key, err)
		return true
	}
	l.cache.Put(key, value)
	l.handler.OnData(key, value)
	return true
}
