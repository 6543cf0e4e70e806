// Package session keeps live questionnaire sessions in memory. Each session
// belongs to one user and is serialized behind its own lock; the registry
// drops sessions that have been idle longer than a TTL.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown, expired or foreign session ids.
var ErrNotFound = errors.New("session not found")

type entry[T any] struct {
	mu       sync.Mutex
	owner    int64
	value    T
	lastUsed atomic.Int64 // unix nanoseconds
}

// Registry maps random session ids to values of type T.
type Registry[T any] struct {
	name    string
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]*entry[T]
}

// NewRegistry creates a registry whose sessions expire after ttl of idleness.
// A zero ttl disables expiry.
func NewRegistry[T any](name string, ttl time.Duration) *Registry[T] {
	return &Registry[T]{
		name:    name,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry[T]),
	}
}

// Create stores value for owner and returns the new session id.
func (r *Registry[T]) Create(owner int64, value T) string {
	id := uuid.NewString()
	e := &entry[T]{owner: owner, value: value}
	e.lastUsed.Store(r.now().UnixNano())
	r.mu.Lock()
	r.entries[id] = e
	r.mu.Unlock()
	slog.Debug("session created", "kind", r.name, "id", id, "owner", owner)
	return id
}

// With runs fn with exclusive access to the session value. The session must
// belong to owner.
func (r *Registry[T]) With(id string, owner int64, fn func(T) error) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok && r.expired(e) {
		delete(r.entries, id)
		ok = false
	}
	r.mu.Unlock()
	if !ok || e.owner != owner {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed.Store(r.now().UnixNano())
	return fn(e.value)
}

// Delete removes a session owned by owner.
func (r *Registry[T]) Delete(id string, owner int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.owner != owner {
		return ErrNotFound
	}
	delete(r.entries, id)
	slog.Debug("session deleted", "kind", r.name, "id", id, "owner", owner)
	return nil
}

// Len returns the number of stored sessions, expired ones included until the
// next sweep.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep removes expired sessions and returns how many were dropped.
func (r *Registry[T]) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.entries {
		if r.expired(e) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (r *Registry[T]) Run(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Info("expired idle sessions", "kind", r.name, "count", n)
			}
		}
	}
}

func (r *Registry[T]) expired(e *entry[T]) bool {
	return r.ttl > 0 && r.now().UnixNano()-e.lastUsed.Load() > int64(r.ttl)
}
