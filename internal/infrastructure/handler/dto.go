package handler

import (
	"encoding/json"
	"time"

	"github.com/damon-houk/silver-price-form/internal/domain/entity"
)

// SubmitPredictionRequest represents the request body for submitting the form
type SubmitPredictionRequest struct {
	Date string `json:"date"`
}

// ResultResponse represents a successful prediction
type ResultResponse struct {
	Price    *json.Number `json:"price" yaml:"price"`
	Currency string       `json:"currency" yaml:"currency"`
}

// FormStateResponse represents the form state returned by the API endpoints
type FormStateResponse struct {
	Date      string          `json:"date" yaml:"date"`
	Loading   bool            `json:"loading" yaml:"loading"`
	Status    string          `json:"status" yaml:"status"`
	Result    *ResultResponse `json:"result,omitempty" yaml:"result,omitempty"`
	Error     *string         `json:"error,omitempty" yaml:"error,omitempty"`
	UpdatedAt string          `json:"updated_at" yaml:"updated_at"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// NewFormStateResponse converts a form state into its API representation
func NewFormStateResponse(state *entity.FormState) FormStateResponse {
	resp := FormStateResponse{
		Date:      state.Date,
		Loading:   state.Loading,
		Status:    string(state.Outcome.Kind()),
		UpdatedAt: state.UpdatedAt.Format(time.RFC3339),
	}

	if result, ok := state.Outcome.Result(); ok {
		resp.Result = &ResultResponse{Currency: result.Currency}
		if price := result.PriceText(); price != "" {
			n := json.Number(price)
			resp.Result.Price = &n
		}
	}

	if msg, ok := state.Outcome.Error(); ok {
		resp.Error = &msg
	}

	return resp
}
