package service

import (
	"context"

	"github.com/damon-houk/silver-price-form/internal/domain/entity"
)

// PredictionAPI defines the interface for the remote price prediction endpoint
type PredictionAPI interface {
	// PredictPrice submits a date and returns the endpoint's reply. An error
	// means no reply could be obtained or parsed.
	PredictPrice(ctx context.Context, date string) (*entity.PredictionReply, error)
}
