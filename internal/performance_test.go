package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/damon-houk/silver-price-form/internal/application/service"
	"github.com/damon-houk/silver-price-form/internal/domain/entity"
	"github.com/damon-houk/silver-price-form/internal/domain/repository"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/cache"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/db"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/logger"
	"github.com/stretchr/testify/mock"
)

// MockPredictionAPI answers with a fixed price per date, and rejects every
// tenth date to mix failures into the load
type MockPredictionAPI struct {
	mock.Mock
	calls atomic.Int64
}

func (m *MockPredictionAPI) PredictPrice(ctx context.Context, date string) (*entity.PredictionReply, error) {
	n := m.calls.Add(1)

	// Simulate endpoint latency
	time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)

	body := fmt.Sprintf(`{"status": true, "price": %d.25, "currency": "USD"}`, 20+n%10)
	if n%10 == 0 {
		body = `{"status": false, "error": "model unavailable"}`
	}

	var reply entity.PredictionReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func TestPerformance(t *testing.T) {
	// Skip in short mode or CI
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	badgerDB, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer badgerDB.Close()

	stores := map[string]repository.FormStateRepository{
		"memory": cache.NewFormStateCache(time.Hour),
		"badger": db.NewBadgerFormStateRepository(badgerDB, time.Hour),
	}

	// Performance test configuration
	numSessions := 100
	submissionsPerSession := 3
	concurrency := 10

	for name, states := range stores {
		api := &MockPredictionAPI{}
		formService := service.NewPredictionFormService(api, states, nil, logger.NewJSONLogger(io.Discard, logger.ErrorLevel))

		t.Run(name+" submissions", func(t *testing.T) {
			startTime := time.Now()

			var failures atomic.Int64
			wg := sync.WaitGroup{}
			wg.Add(concurrency)

			sessionsPerWorker := numSessions / concurrency

			for i := 0; i < concurrency; i++ {
				go func(workerID int) {
					defer wg.Done()

					ctx := context.Background()
					for j := 0; j < sessionsPerWorker; j++ {
						sessionID := fmt.Sprintf("session-%d-%d", workerID, j)
						for k := 0; k < submissionsPerSession; k++ {
							date := time.Date(2024, 1, 1+k, 0, 0, 0, 0, time.UTC).Format("2006-01-02")

							state, err := formService.Submit(ctx, sessionID, date)
							if err != nil {
								t.Errorf("Error submitting form: %v", err)
								continue
							}
							if state.Loading {
								t.Errorf("Session %s still loading after submit", sessionID)
							}
							if state.Outcome.Kind() == entity.OutcomeFailure {
								failures.Add(1)
							}
						}
					}
				}(i)
			}

			wg.Wait()
			duration := time.Since(startTime)

			total := numSessions * submissionsPerSession
			if got := int(api.calls.Load()); got != total {
				t.Errorf("Expected %d endpoint calls, got %d", total, got)
			}

			// Calculate throughput
			throughput := float64(total) / duration.Seconds()
			t.Logf("Form submission (%s): %d submissions in %v (%.2f sub/sec), %d failures",
				name, total, duration, throughput, failures.Load())
		})

		t.Run(name+" views", func(t *testing.T) {
			startTime := time.Now()

			wg := sync.WaitGroup{}
			wg.Add(concurrency)

			sessionsPerWorker := numSessions / concurrency

			for i := 0; i < concurrency; i++ {
				go func(workerID int) {
					defer wg.Done()

					ctx := context.Background()
					for j := 0; j < sessionsPerWorker; j++ {
						state, err := formService.View(ctx, fmt.Sprintf("session-%d-%d", workerID, j))
						if err != nil {
							t.Errorf("Error viewing form: %v", err)
							continue
						}
						if state.Date != "2024-01-03" {
							t.Errorf("Expected last submitted date, got %q", state.Date)
						}
					}
				}(i)
			}

			wg.Wait()
			duration := time.Since(startTime)

			// Calculate throughput
			throughput := float64(numSessions) / duration.Seconds()
			t.Logf("Form view (%s): %d views in %v (%.2f views/sec)",
				name, numSessions, duration, throughput)
		})
	}
}
