// Package subscriber holds the persisted set of chats that receive broadcasts.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPersistence marks failures to read or write the subscriber set.
// A run that hits it must stop: continuing risks telling users something
// the store does not reflect.
var ErrPersistence = errors.New("subscriber persistence")

// Store loads and saves the whole subscriber set.
//
// Load returns an empty set when nothing has been persisted yet.
// Save replaces the persisted set with exactly the given members; readers
// never observe a partially written state.
type Store interface {
	Load(ctx context.Context) (*Set, error)
	Save(ctx context.Context, s *Set) error
}

// Registry applies single subscribe/unsubscribe changes to a Store.
// Changes are serialised within the process; no lock is taken across
// processes, so only one process may write the store at a time.
type Registry struct {
	mu    sync.Mutex
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Subscribe adds id and persists the set before returning.
// Subscribing an existing member is a no-op.
func (r *Registry) Subscribe(ctx context.Context, id int64) (bool, error) {
	return r.update(ctx, func(s *Set) bool { return s.Add(id) })
}

// Unsubscribe removes id and persists the set before returning.
// Unsubscribing an absent id is a no-op.
func (r *Registry) Unsubscribe(ctx context.Context, id int64) (bool, error) {
	return r.update(ctx, func(s *Set) bool { return s.Remove(id) })
}

// List returns the current members.
func (r *Registry) List(ctx context.Context) (*Set, error) {
	return r.store.Load(ctx)
}

func (r *Registry) update(ctx context.Context, mutate func(*Set) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if !mutate(s) {
		return false, nil
	}
	if err := r.store.Save(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}

// Wrap tags err as a persistence failure unless it already is one.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
