package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry tracks open connections by name so a name is never opened twice.
type Registry struct {
	mu     sync.Mutex
	conns  map[string]*DB
	opened atomic.Int64
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*DB)}
}

// IsConnection reports whether a connection is registered under name
func (r *Registry) IsConnection(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[name]
	return ok
}

// Retrieve returns the connection registered under name
func (r *Registry) Retrieve(name string) (*DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	db, ok := r.conns[name]
	if !ok {
		return nil, fmt.Errorf("retrieve %q: %w", name, ErrConnectionClosed)
	}
	return db, nil
}

// Create opens a new connection and registers it under cfg.Name.
// It fails if the name is already taken.
func (r *Registry) Create(cfg Config) (*DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[cfg.Name]; ok {
		return nil, fmt.Errorf("connection %q already exists", cfg.Name)
	}

	db, err := New(cfg)
	if err != nil {
		return nil, err
	}

	r.conns[cfg.Name] = db
	r.opened.Add(1)
	return db, nil
}

// Reopen replaces the connection under name with a freshly opened one.
// Used when a retrieved handle no longer answers a ping.
func (r *Registry) Reopen(ctx context.Context, name string) (*DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.conns[name]
	if !ok {
		return nil, fmt.Errorf("reopen %q: %w", name, ErrConnectionClosed)
	}
	if err := old.QuickCheck(ctx); err == nil {
		return old, nil
	}
	_ = old.Close()

	db, err := New(Config{
		Path:    old.path,
		Profile: old.profile,
		Driver:  old.driver,
		Name:    old.name,
		Version: old.version,
	})
	if err != nil {
		delete(r.conns, name)
		return nil, err
	}

	r.conns[name] = db
	r.opened.Add(1)
	return db, nil
}

// Close closes and unregisters the connection under name
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, ok := r.conns[name]
	if !ok {
		return nil
	}
	delete(r.conns, name)
	return db.Close()
}

// CloseAll closes every registered connection, returning the first error
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, db := range r.conns {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", name, err)
		}
		delete(r.conns, name)
	}
	return firstErr
}

// Names returns the registered connection names in sorted order
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Opened returns how many physical connections this registry has opened
func (r *Registry) Opened() int64 {
	return r.opened.Load()
}
