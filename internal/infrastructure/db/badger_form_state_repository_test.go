// internal/infrastructure/db/badger_form_state_repository_test.go
package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/damon-houk/silver-price-form/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, ttl time.Duration) *BadgerFormStateRepository {
	t.Helper()

	badgerDB, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { badgerDB.Close() })

	return NewBadgerFormStateRepository(badgerDB, ttl)
}

func TestBadgerFormStateRepository(t *testing.T) {
	repo := newTestRepository(t, time.Hour)
	ctx := context.Background()

	t.Run("Missing session", func(t *testing.T) {
		state, err := repo.Find(ctx, "nobody")
		assert.Nil(t, state)
		assert.ErrorIs(t, err, entity.ErrStateNotFound)
	})

	t.Run("Update creates and stores state", func(t *testing.T) {
		result := entity.NewResult(decimal.RequireFromString("27.5"), "USD")

		state, err := repo.Update(ctx, "session-1", func(s *entity.FormState) error {
			assert.Equal(t, entity.OutcomeIdle, s.Outcome.Kind())
			s.Date = "2024-01-15"
			s.Outcome = entity.Success(result)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "2024-01-15", state.Date)

		found, err := repo.Find(ctx, "session-1")
		require.NoError(t, err)
		assert.Equal(t, "2024-01-15", found.Date)
		assert.False(t, found.Loading)

		got, ok := found.Outcome.Result()
		require.True(t, ok)
		assert.Equal(t, "27.5", got.PriceText())
		assert.Equal(t, "USD", got.Currency)
		assert.Equal(t, 1, repo.Size())
	})

	t.Run("Failed update stores nothing", func(t *testing.T) {
		_, err := repo.Update(ctx, "session-1", func(s *entity.FormState) error {
			s.Date = "1999-01-01"
			return entity.ErrSubmissionInProgress
		})
		assert.ErrorIs(t, err, entity.ErrSubmissionInProgress)

		found, err := repo.Find(ctx, "session-1")
		require.NoError(t, err)
		assert.Equal(t, "2024-01-15", found.Date)
	})

	t.Run("Vetoed delete keeps state", func(t *testing.T) {
		err := repo.Delete(ctx, "session-1", func(s *entity.FormState) error {
			assert.Equal(t, "2024-01-15", s.Date)
			return entity.ErrSubmissionInProgress
		})
		assert.ErrorIs(t, err, entity.ErrSubmissionInProgress)

		_, err = repo.Find(ctx, "session-1")
		assert.NoError(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "session-1", func(s *entity.FormState) error { return nil }))

		_, err := repo.Find(ctx, "session-1")
		assert.ErrorIs(t, err, entity.ErrStateNotFound)
		assert.Equal(t, 0, repo.Size())

		// Missing sessions are not an error
		require.NoError(t, repo.Delete(ctx, "session-1", func(s *entity.FormState) error {
			return entity.ErrSubmissionInProgress
		}))
	})
}

func TestBadgerFormStateRepositoryTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping TTL test in short mode")
	}

	// Badger TTLs have one second resolution
	repo := newTestRepository(t, time.Second)
	ctx := context.Background()

	_, err := repo.Update(ctx, "session-1", func(s *entity.FormState) error {
		s.Date = "2024-01-15"
		return nil
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := repo.Find(ctx, "session-1")
		return err == entity.ErrStateNotFound
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, 0, repo.Size())
}

func TestBadgerFormStateRepositoryConcurrentUpdates(t *testing.T) {
	repo := newTestRepository(t, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	started, refused := 0, 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "shared", func(s *entity.FormState) error {
				if s.Loading {
					return entity.ErrSubmissionInProgress
				}
				s.Loading = true
				return nil
			})

			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				started++
			case entity.ErrSubmissionInProgress:
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
	assert.Equal(t, 19, refused)
}
