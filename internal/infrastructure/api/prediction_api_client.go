package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/damon-houk/silver-price-form/internal/domain/entity"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/logger"
)

// DefaultEndpoint is the address of a locally running prediction service
const DefaultEndpoint = "http://localhost:8000/api/silver"

// PredictionRequest is the JSON body sent to the prediction endpoint
type PredictionRequest struct {
	SilverDate string `json:"silver_date"`
}

// PredictionAPIClient implements the prediction API interface over HTTP
type PredictionAPIClient struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
}

// NewPredictionAPIClient creates a new prediction API client. A nil
// httpClient gets a client without timeout.
func NewPredictionAPIClient(endpoint string, httpClient *http.Client, log logger.Logger) *PredictionAPIClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &PredictionAPIClient{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     log,
	}
}

// Endpoint returns the URL the client posts to
func (c *PredictionAPIClient) Endpoint() string {
	return c.endpoint
}

// PredictPrice posts the date to the endpoint and decodes its reply.
// The body is decoded whatever the status code: rejections are carried in
// the reply itself. There are no retries.
func (c *PredictionAPIClient) PredictPrice(ctx context.Context, date string) (*entity.PredictionReply, error) {
	payload, err := json.Marshal(PredictionRequest{SilverDate: date})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Sending prediction request", map[string]interface{}{
		"endpoint":    c.endpoint,
		"silver_date": date,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Prediction response received", map[string]interface{}{
		"endpoint":    c.endpoint,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
		"body":        string(bodyBytes),
	})

	var reply entity.PredictionReply
	if err := json.Unmarshal(bodyBytes, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &reply, nil
}
