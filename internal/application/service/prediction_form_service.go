// Package service internal/application/service/prediction_form_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/damon-houk/silver-price-form/internal/domain/entity"
	"github.com/damon-houk/silver-price-form/internal/domain/repository"
	domainservice "github.com/damon-houk/silver-price-form/internal/domain/service"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/logger"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/middleware"
)

// NetworkErrorMessage is shown when a call fails without explaining why
const NetworkErrorMessage = "Network error"

// Recorder receives submission events for metrics
type Recorder interface {
	SubmissionStarted()
	SubmissionFinished(outcome string, elapsed time.Duration)
	SubmissionRefused(reason string)
}

type noopRecorder struct{}

func (noopRecorder) SubmissionStarted()                       {}
func (noopRecorder) SubmissionFinished(string, time.Duration) {}
func (noopRecorder) SubmissionRefused(string)                 {}

// PredictionFormService holds the prediction form of every session and
// performs its submissions against the prediction API
type PredictionFormService struct {
	api      domainservice.PredictionAPI
	states   repository.FormStateRepository
	recorder Recorder
	logger   logger.Logger
}

// NewPredictionFormService creates a new prediction form service
func NewPredictionFormService(api domainservice.PredictionAPI, states repository.FormStateRepository, recorder Recorder, log logger.Logger) *PredictionFormService {
	if recorder == nil {
		recorder = noopRecorder{}
	}

	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &PredictionFormService{
		api:      api,
		states:   states,
		recorder: recorder,
		logger:   log,
	}
}

// View returns the current form state of a session. A session seen for the
// first time gets an empty form.
func (s *PredictionFormService) View(ctx context.Context, sessionID string) (*entity.FormState, error) {
	state, err := s.states.Find(ctx, sessionID)
	if errors.Is(err, entity.ErrStateNotFound) {
		return entity.NewFormState(), nil
	}

	if err != nil {
		s.logger.Error("Failed to load form state", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to load form state: %w", err)
	}

	return state, nil
}

// Submit sends the date to the prediction API and applies the outcome to the
// session form. It returns entity.ErrDateRequired for an empty date and
// entity.ErrSubmissionInProgress while an earlier submission is pending; in
// both cases the form is left as it was.
func (s *PredictionFormService) Submit(ctx context.Context, sessionID, date string) (*entity.FormState, error) {
	requestID := middleware.GetRequestID(ctx)

	if date == "" {
		s.recorder.SubmissionRefused("date_required")
		return nil, entity.ErrDateRequired
	}

	// Clear the previous outcome and mark the form as loading
	_, err := s.states.Update(ctx, sessionID, func(state *entity.FormState) error {
		if state.Loading {
			return entity.ErrSubmissionInProgress
		}
		state.Date = date
		state.Outcome = entity.Idle()
		state.Loading = true
		return nil
	})

	if errors.Is(err, entity.ErrSubmissionInProgress) {
		s.logger.Warn("Submission refused while another is in flight", map[string]interface{}{
			"request_id": requestID,
			"session_id": sessionID,
		})
		s.recorder.SubmissionRefused("in_progress")
		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("failed to start submission: %w", err)
	}

	s.logger.Info("Submitting prediction request", map[string]interface{}{
		"request_id":  requestID,
		"session_id":  sessionID,
		"silver_date": date,
	})

	s.recorder.SubmissionStarted()
	start := time.Now()

	outcome := s.resolve(ctx, date)

	elapsed := time.Since(start)
	s.recorder.SubmissionFinished(string(outcome.Kind()), elapsed)

	// Loading is cleared whatever the outcome
	state, err := s.states.Update(ctx, sessionID, func(state *entity.FormState) error {
		state.Outcome = outcome
		state.Loading = false
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to store submission outcome", map[string]interface{}{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to finish submission: %w", err)
	}

	fields := map[string]interface{}{
		"request_id":  requestID,
		"session_id":  sessionID,
		"silver_date": date,
		"outcome":     outcome.Kind(),
		"duration_ms": elapsed.Milliseconds(),
	}
	if result, ok := outcome.Result(); ok {
		fields["price"] = result.PriceText()
		fields["currency"] = result.Currency
	}
	if msg, ok := outcome.Error(); ok {
		fields["error"] = msg
	}
	s.logger.Info("Submission completed", fields)

	return state, nil
}

// Reset discards the form state of a session so its next view is empty.
// A session waiting for a response cannot be reset.
func (s *PredictionFormService) Reset(ctx context.Context, sessionID string) error {
	err := s.states.Delete(ctx, sessionID, func(state *entity.FormState) error {
		if state.Loading {
			return entity.ErrSubmissionInProgress
		}
		return nil
	})

	if errors.Is(err, entity.ErrSubmissionInProgress) {
		return err
	}

	if err != nil {
		s.logger.Error("Failed to reset form state", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return fmt.Errorf("failed to reset form state: %w", err)
	}

	s.logger.Info("Form reset", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"session_id": sessionID,
	})

	return nil
}

// resolve calls the API and turns its reply or failure into an outcome
func (s *PredictionFormService) resolve(ctx context.Context, date string) entity.Outcome {
	reply, err := s.api.PredictPrice(ctx, date)
	if err == nil {
		var outcome entity.Outcome
		outcome, err = reply.Outcome()
		if err == nil {
			return outcome
		}
	}

	s.logger.Warn("Prediction request failed", map[string]interface{}{
		"request_id":  middleware.GetRequestID(ctx),
		"silver_date": date,
		"error":       err.Error(),
	})

	if msg := err.Error(); msg != "" {
		return entity.Failure(msg)
	}
	return entity.Failure(NetworkErrorMessage)
}
