package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/damon-houk/silver-price-form/internal/application/service"
	"github.com/damon-houk/silver-price-form/internal/domain/entity"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/logger"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// PredictionHandler exposes the prediction form over a JSON API
type PredictionHandler struct {
	service *service.PredictionFormService
	logger  logger.Logger
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(service *service.PredictionFormService, log logger.Logger) *PredictionHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &PredictionHandler{
		service: service,
		logger:  log,
	}
}

// GetForm handles retrieving the form state of the caller's session
func (h *PredictionHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sessionID := middleware.GetSessionID(r.Context())

	state, err := h.service.View(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Unexpected error in get form", map[string]interface{}{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Internal server error",
			"An unexpected error occurred while loading the form", http.StatusInternalServerError, requestID)
		return
	}

	sendJSON(w, h.logger, http.StatusOK, NewFormStateResponse(state))
}

// SubmitForm handles a prediction submission
func (h *PredictionHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sessionID := middleware.GetSessionID(r.Context())

	h.logger.Info("Handling submit prediction request", map[string]interface{}{
		"request_id": requestID,
		"session_id": sessionID,
	})

	var req SubmitPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	state, err := h.service.Submit(context.WithoutCancel(r.Context()), sessionID, req.Date)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrDateRequired):
			sendErrorResponse(w, h.logger, "Date required",
				"The 'date' field is required", http.StatusBadRequest, requestID)
		case errors.Is(err, entity.ErrSubmissionInProgress):
			sendErrorResponse(w, h.logger, "Submission in progress",
				"A prediction for this form is still pending", http.StatusConflict, requestID)
		default:
			h.logger.Error("Unexpected error in submit prediction", map[string]interface{}{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			})
			sendErrorResponse(w, h.logger, "Internal server error",
				"An unexpected error occurred while submitting the form", http.StatusInternalServerError, requestID)
		}
		return
	}

	sendJSON(w, h.logger, http.StatusOK, NewFormStateResponse(state))
}

// ResetForm handles discarding the form state of the caller's session
func (h *PredictionHandler) ResetForm(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sessionID := middleware.GetSessionID(r.Context())

	if err := h.service.Reset(r.Context(), sessionID); err != nil {
		if errors.Is(err, entity.ErrSubmissionInProgress) {
			sendErrorResponse(w, h.logger, "Submission in progress",
				"A prediction for this form is still pending", http.StatusConflict, requestID)
			return
		}

		h.logger.Error("Unexpected error in reset form", map[string]interface{}{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Internal server error",
			"An unexpected error occurred while resetting the form", http.StatusInternalServerError, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers the prediction handler routes
func (h *PredictionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/predictions", h.GetForm).Methods("GET")
	router.HandleFunc("/api/predictions", h.SubmitForm).Methods("POST")
	router.HandleFunc("/api/predictions", h.ResetForm).Methods("DELETE")

	h.logger.Info("Prediction routes registered", map[string]interface{}{
		"routes": []string{
			"GET /api/predictions",
			"POST /api/predictions",
			"DELETE /api/predictions",
		},
	})
}

// RegisterHealthRoute registers a liveness endpoint
func RegisterHealthRoute(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		sendJSON(w, logger.GetDefaultLogger(), http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
}

// sendJSON writes body as the JSON response. The status line is already
// sent when encoding fails, so the failure can only be logged.
func sendJSON(w http.ResponseWriter, log logger.Logger, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("Failed to write response", map[string]interface{}{
			"status_code": statusCode,
			"error":       err.Error(),
		})
	}
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	resp := ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	}

	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": statusCode,
		"message":     message,
	})

	sendJSON(w, log, statusCode, resp)
}
