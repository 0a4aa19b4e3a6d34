// Package buntstore keeps the subscriber set in a BuntDB file.
package buntstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"dogenews/internal/subscriber"

	"github.com/tidwall/buntdb"
)

const keyPrefix = "subscriber:"

// Store implements subscriber.Store on BuntDB. Each member is a key
// "subscriber:<chat id>"; Save rewrites all of them in one transaction.
type Store struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory store.
func FromMemory() (*Store, error) {
	return Open(":memory:")
}

// Open opens (or creates) the BuntDB file at path.
func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(_ context.Context) (*subscriber.Set, error) {
	set := subscriber.NewSet()

	err := s.db.View(func(tx *buntdb.Tx) error {
		var parseErr error
		err := tx.AscendKeys(keyPrefix+"*", func(key, _ string) bool {
			id, err := strconv.ParseInt(strings.TrimPrefix(key, keyPrefix), 10, 64)
			if err != nil {
				parseErr = fmt.Errorf("bad key %q: %w", key, err)
				return false
			}
			set.Add(id)
			return true
		})
		if err != nil {
			return err
		}
		return parseErr
	})
	if err != nil {
		return nil, subscriber.Wrap("buntdb load", err)
	}
	return set, nil
}

func (s *Store) Save(_ context.Context, set *subscriber.Set) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		var stale []string
		err := tx.AscendKeys(keyPrefix+"*", func(key, _ string) bool {
			stale = append(stale, key)
			return true
		})
		if err != nil {
			return err
		}
		for _, key := range stale {
			if _, err := tx.Delete(key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}

		for _, id := range set.IDs() {
			if _, _, err := tx.Set(keyPrefix+strconv.FormatInt(id, 10), "1", nil); err != nil {
				return fmt.Errorf("set %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return subscriber.Wrap("buntdb save", err)
	}
	return nil
}

// Close closes the database file.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
