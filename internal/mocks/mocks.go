// internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/damon-houk/silver-price-form/internal/domain/entity"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/logger"
	"github.com/stretchr/testify/mock"
)

// MockPredictionAPI mocks the PredictionAPI interface
type MockPredictionAPI struct {
	mock.Mock
}

func (m *MockPredictionAPI) PredictPrice(ctx context.Context, date string) (*entity.PredictionReply, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PredictionReply), args.Error(1)
}

// MockFormStateRepository mocks the FormStateRepository interface
type MockFormStateRepository struct {
	mock.Mock
}

func (m *MockFormStateRepository) Find(ctx context.Context, sessionID string) (*entity.FormState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FormState), args.Error(1)
}

func (m *MockFormStateRepository) Update(ctx context.Context, sessionID string, fn func(state *entity.FormState) error) (*entity.FormState, error) {
	args := m.Called(ctx, sessionID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FormState), args.Error(1)
}

func (m *MockFormStateRepository) Delete(ctx context.Context, sessionID string, fn func(state *entity.FormState) error) error {
	args := m.Called(ctx, sessionID, fn)
	return args.Error(0)
}

// MockRecorder mocks the submission metrics recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) SubmissionStarted() {
	m.Called()
}

func (m *MockRecorder) SubmissionFinished(outcome string, elapsed time.Duration) {
	m.Called(outcome, elapsed)
}

func (m *MockRecorder) SubmissionRefused(reason string) {
	m.Called(reason)
}

// MockLogger mocks the logger interface
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Info(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Warn(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Fatal(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) WithField(key string, value interface{}) logger.Logger {
	args := m.Called(key, value)
	return args.Get(0).(logger.Logger)
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	args := m.Called(fields)
	return args.Get(0).(logger.Logger)
}
