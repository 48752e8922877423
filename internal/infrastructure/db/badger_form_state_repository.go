package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/damon-houk/silver-price-form/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
)

const (
	keyPrefix         = "form:"
	maxUpdateAttempts = 10
)

// OpenInMemory opens a Badger database that lives only in process memory
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Disable Badger's default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return db, nil
}

// BadgerFormStateRepository implements the form state repository interface using BadgerDB
type BadgerFormStateRepository struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerFormStateRepository creates a new BadgerDB form state repository.
// Entries expire ttl after their last update.
func NewBadgerFormStateRepository(db *badger.DB, ttl time.Duration) *BadgerFormStateRepository {
	return &BadgerFormStateRepository{db: db, ttl: ttl}
}

// Find retrieves the form state of a session
func (r *BadgerFormStateRepository) Find(ctx context.Context, sessionID string) (*entity.FormState, error) {
	var state *entity.FormState

	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		state, err = get(txn, sessionID)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, entity.ErrStateNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to retrieve form state: %w", err)
	}

	return state, nil
}

// Update applies fn inside a read-write transaction, retrying when a
// concurrent update to the same session wins the commit
func (r *BadgerFormStateRepository) Update(ctx context.Context, sessionID string, fn func(state *entity.FormState) error) (*entity.FormState, error) {
	var state *entity.FormState

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err := r.db.Update(func(txn *badger.Txn) error {
			current, err := get(txn, sessionID)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				current = entity.NewFormState()
			case err != nil:
				return err
			}

			if err := fn(current); err != nil {
				return err
			}

			current.UpdatedAt = time.Now().UTC()
			data, err := json.Marshal(current)
			if err != nil {
				return fmt.Errorf("failed to marshal form state: %w", err)
			}

			e := badger.NewEntry(key(sessionID), data)
			if r.ttl > 0 {
				e = e.WithTTL(r.ttl)
			}

			state = current
			return txn.SetEntry(e)
		})

		if errors.Is(err, badger.ErrConflict) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}

		if err != nil {
			return nil, err
		}

		return state, nil
	}

	return nil, fmt.Errorf("failed to store form state after %d attempts: %w", maxUpdateAttempts, badger.ErrConflict)
}

// Delete discards the form state of a session if fn accepts it. The check
// and the delete share one transaction, retried on conflict like Update.
func (r *BadgerFormStateRepository) Delete(ctx context.Context, sessionID string, fn func(state *entity.FormState) error) error {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err := r.db.Update(func(txn *badger.Txn) error {
			current, err := get(txn, sessionID)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}

			if err := fn(current); err != nil {
				return err
			}

			return txn.Delete(key(sessionID))
		})

		if errors.Is(err, badger.ErrConflict) {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}

		return err
	}

	return fmt.Errorf("failed to delete form state after %d attempts: %w", maxUpdateAttempts, badger.ErrConflict)
}

// Size returns the number of stored sessions that have not expired
func (r *BadgerFormStateRepository) Size() int {
	count := 0
	_ = r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}

func key(sessionID string) []byte {
	return []byte(keyPrefix + sessionID)
}

func get(txn *badger.Txn, sessionID string) (*entity.FormState, error) {
	item, err := txn.Get(key(sessionID))
	if err != nil {
		return nil, err
	}

	var state entity.FormState
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &state)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal form state: %w", err)
	}

	return &state, nil
}
