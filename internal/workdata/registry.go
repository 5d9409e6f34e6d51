package workdata

import (
	"context"
	"sync"

	"workday/internal/core"
	"workday/internal/docstore"
	"workday/internal/log"
)

// Registry hands out one signed-in Store per user for processes that serve
// several users, such as the HTTP API.
type Registry struct {
	docs   docstore.Store
	logger *log.Logger
	opts   Options

	mu     sync.Mutex
	stores map[string]*Store
}

func NewRegistry(docs docstore.Store, logger *log.Logger, opts Options) *Registry {
	return &Registry{
		docs:   docs,
		logger: logger,
		opts:   opts,
		stores: make(map[string]*Store),
	}
}

// For returns the store of user, signing it in on first use.
func (r *Registry) For(ctx context.Context, user core.User) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[user.ID]; ok {
		return s
	}
	s := New(r.docs, r.logger, r.opts)
	s.SignIn(ctx, user)
	r.stores[user.ID] = s
	return s
}

// Release signs uid out and forgets its store.
func (r *Registry) Release(uid string) {
	r.mu.Lock()
	s, ok := r.stores[uid]
	delete(r.stores, uid)
	r.mu.Unlock()
	if ok {
		s.SignOut()
	}
}

// Len returns the number of live stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Close signs every user out.
func (r *Registry) Close() {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*Store)
	r.mu.Unlock()
	for _, s := range stores {
		s.SignOut()
	}
}
