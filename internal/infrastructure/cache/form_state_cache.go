package cache

import (
	"context"
	"sync"
	"time"

	"github.com/damon-houk/silver-price-form/internal/domain/entity"
)

// DefaultExpiration is how long an untouched form state is kept
const DefaultExpiration = 30 * time.Minute

// CacheEntry represents a cached form state with expiration
type CacheEntry struct {
	State     entity.FormState
	Timestamp time.Time
}

// FormStateCache provides a thread-safe in-memory store for form states
type FormStateCache struct {
	cache      map[string]CacheEntry
	expiration time.Duration
	mutex      sync.RWMutex
}

// NewFormStateCache creates a new form state cache
func NewFormStateCache(expiration time.Duration) *FormStateCache {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}

	return &FormStateCache{
		cache:      make(map[string]CacheEntry),
		expiration: expiration,
	}
}

// Find retrieves a form state from the cache if available and not expired
func (c *FormStateCache) Find(ctx context.Context, sessionID string) (*entity.FormState, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[sessionID]
	if !exists || c.expired(entry, time.Now()) {
		return nil, entity.ErrStateNotFound
	}

	state := entry.State
	return &state, nil
}

// Update applies fn to the session state under the cache lock
func (c *FormStateCache) Update(ctx context.Context, sessionID string, fn func(state *entity.FormState) error) (*entity.FormState, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	state := entity.NewFormState()
	if entry, exists := c.cache[sessionID]; exists && !c.expired(entry, time.Now()) {
		current := entry.State
		state = &current
	}

	if err := fn(state); err != nil {
		return nil, err
	}

	now := time.Now()
	state.UpdatedAt = now.UTC()
	c.cache[sessionID] = CacheEntry{
		State:     *state,
		Timestamp: now,
	}

	result := *state
	return &result, nil
}

// Delete removes a session from the cache if fn accepts its current state
func (c *FormStateCache) Delete(ctx context.Context, sessionID string, fn func(state *entity.FormState) error) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.cache[sessionID]
	if !exists {
		return nil
	}

	if !c.expired(entry, time.Now()) {
		state := entry.State
		if err := fn(&state); err != nil {
			return err
		}
	}

	delete(c.cache, sessionID)
	return nil
}

// Size returns the number of items in the cache
func (c *FormStateCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CleanExpired removes expired entries from the cache. Entries of sessions
// still waiting for a response are kept.
func (c *FormStateCache) CleanExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	count := 0
	now := time.Now()

	for key, entry := range c.cache {
		if c.expired(entry, now) {
			delete(c.cache, key)
			count++
		}
	}

	return count
}

// expired reports whether entry has outlived the expiration. Sessions still
// waiting for a response never expire.
func (c *FormStateCache) expired(entry CacheEntry, now time.Time) bool {
	return !entry.State.Loading && now.Sub(entry.Timestamp) > c.expiration
}

// RunJanitor calls CleanExpired every interval until ctx is done
func (c *FormStateCache) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanExpired()
		}
	}
}
