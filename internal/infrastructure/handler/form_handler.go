// Package handler internal/infrastructure/handler/form_handler.go
package handler

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/damon-houk/silver-price-form/internal/application/service"
	"github.com/damon-houk/silver-price-form/internal/domain/entity"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/logger"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

const (
	// IdleCaption is the submit button label when the form can be submitted
	IdleCaption = "ทำนายราคา"
	// LoadingCaption is the submit button label while a prediction is pending
	LoadingCaption = "กำลังทำนาย..."
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// resultView is the success panel content
type resultView struct {
	Price    string
	Currency string
}

// formPage is the data rendered by the form template
type formPage struct {
	Date           string
	Loading        bool
	IdleCaption    string
	LoadingCaption string
	Result         *resultView
	HasError       bool
	Error          string
}

func newFormPage(state *entity.FormState) formPage {
	page := formPage{
		Date:           state.Date,
		Loading:        state.Loading,
		IdleCaption:    IdleCaption,
		LoadingCaption: LoadingCaption,
	}

	switch state.Outcome.Kind() {
	case entity.OutcomeSuccess:
		result, _ := state.Outcome.Result()
		page.Result = &resultView{
			Price:    result.PriceText(),
			Currency: result.Currency,
		}
	case entity.OutcomeFailure:
		page.Error, page.HasError = state.Outcome.Error()
	}

	return page
}

// FormHandler serves the prediction form as an HTML page
type FormHandler struct {
	service *service.PredictionFormService
	logger  logger.Logger
}

// NewFormHandler creates a new form handler
func NewFormHandler(service *service.PredictionFormService, log logger.Logger) *FormHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &FormHandler{
		service: service,
		logger:  log,
	}
}

// ShowForm renders the form of the caller's session
func (h *FormHandler) ShowForm(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sessionID := middleware.GetSessionID(r.Context())

	state, err := h.service.View(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load form", map[string]interface{}{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, requestID, http.StatusOK, state)
}

// SubmitForm handles a form post and renders the resulting view
func (h *FormHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sessionID := middleware.GetSessionID(r.Context())

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("Invalid form body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}

	date := r.PostForm.Get("date")

	h.logger.Info("Handling form submission", map[string]interface{}{
		"request_id": requestID,
		"session_id": sessionID,
		"date":       date,
	})

	// The submission runs to completion even if the browser goes away
	ctx := context.WithoutCancel(r.Context())

	state, err := h.service.Submit(ctx, sessionID, date)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, entity.ErrDateRequired):
			status = http.StatusBadRequest
		case errors.Is(err, entity.ErrSubmissionInProgress):
			status = http.StatusConflict
		default:
			h.logger.Error("Unexpected error in form submission", map[string]interface{}{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			})
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		// Show the form as it currently stands
		current, viewErr := h.service.View(r.Context(), sessionID)
		if viewErr != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		h.render(w, requestID, status, current)
		return
	}

	h.render(w, requestID, http.StatusOK, state)
}

func (h *FormHandler) render(w http.ResponseWriter, requestID string, status int, state *entity.FormState) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, newFormPage(state)); err != nil {
		h.logger.Error("Failed to render form", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// RegisterRoutes registers the form handler routes
func (h *FormHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.ShowForm).Methods("GET")
	router.HandleFunc("/", h.SubmitForm).Methods("POST")

	h.logger.Info("Form routes registered", map[string]interface{}{
		"routes": []string{
			"GET /",
			"POST /",
		},
	})
}
