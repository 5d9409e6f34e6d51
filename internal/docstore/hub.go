package docstore

import (
	"context"
	"errors"
	"sync"

	"workday/internal/core"
)

// Hub fans document changes out to watchers for backends without a native
// change feed. Every watcher runs on its own goroutine and reloads its view
// when signalled; signals coalesce, so a slow handler never blocks a writer
// and always ends up seeing the latest state.
type Hub struct {
	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]*watcher
	closed   bool
}

type watcher struct {
	profile  bool
	from, to string
	signal   chan struct{}
	stop     chan struct{}
	once     sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{watchers: make(map[string]map[int]*watcher)}
}

// WatchProfile emits the result of load now and after every NotifyProfile
// for uid.
func (h *Hub) WatchProfile(ctx context.Context, uid string, load func(context.Context) (core.StoredProfile, error), fn ProfileHandler) (Unsubscribe, error) {
	emit := func(ctx context.Context) {
		sp, err := load(ctx)
		switch {
		case errors.Is(err, ErrNotFound):
			fn(ProfileSnapshot{}, nil)
		case err != nil:
			fn(ProfileSnapshot{}, err)
		default:
			fn(ProfileSnapshot{Profile: sp, Exists: true}, nil)
		}
	}
	return h.add(ctx, uid, &watcher{profile: true}, emit)
}

// WatchRange emits the result of load now and after every NotifyDays for a
// key inside [from, to].
func (h *Hub) WatchRange(ctx context.Context, uid, from, to string, load func(context.Context) (core.WorkSessionsMap, error), fn SessionsHandler) (Unsubscribe, error) {
	emit := func(ctx context.Context) {
		days, err := load(ctx)
		fn(days, err)
	}
	return h.add(ctx, uid, &watcher{from: from, to: to}, emit)
}

func (h *Hub) add(ctx context.Context, uid string, w *watcher, emit func(context.Context)) (Unsubscribe, error) {
	w.signal = make(chan struct{}, 1)
	w.stop = make(chan struct{})

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	id := h.nextID
	h.nextID++
	if h.watchers[uid] == nil {
		h.watchers[uid] = make(map[int]*watcher)
	}
	h.watchers[uid][id] = w
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	unsubscribe := func() {
		w.close()
		cancel()
		h.mu.Lock()
		delete(h.watchers[uid], id)
		if len(h.watchers[uid]) == 0 {
			delete(h.watchers, uid)
		}
		h.mu.Unlock()
	}

	go func() {
		for {
			emit(ctx)
			select {
			case <-w.signal:
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return unsubscribe, nil
}

// NotifyProfile wakes the profile watchers of uid.
func (h *Hub) NotifyProfile(uid string) {
	h.notify(uid, func(w *watcher) bool { return w.profile })
}

// NotifyDays wakes the range watchers of uid covering any of keys.
func (h *Hub) NotifyDays(uid string, keys ...string) {
	h.notify(uid, func(w *watcher) bool {
		if w.profile {
			return false
		}
		for _, k := range keys {
			if InRange(k, w.from, w.to) {
				return true
			}
		}
		return false
	})
}

func (h *Hub) notify(uid string, match func(*watcher) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.watchers[uid] {
		if !match(w) {
			continue
		}
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

// Watchers returns the number of live watchers for uid.
func (h *Hub) Watchers(uid string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[uid])
}

// Close stops every watcher. Later watches fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for uid, ws := range h.watchers {
		for _, w := range ws {
			w.close()
		}
		delete(h.watchers, uid)
	}
}

func (w *watcher) close() {
	w.once.Do(func() { close(w.stop) })
}
