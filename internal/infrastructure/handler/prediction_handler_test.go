package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/damon-houk/silver-price-form/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenWriter accepts headers but fails every body write, like a client
// that hung up mid-response
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (w brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestSendJSON(t *testing.T) {
	t.Run("Writes the body", func(t *testing.T) {
		var buf bytes.Buffer
		w := httptest.NewRecorder()

		sendJSON(w, logger.NewJSONLogger(&buf, logger.DebugLevel), http.StatusCreated, map[string]string{"status": "ok"})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
		assert.Empty(t, buf.String())
	})

	t.Run("Write failure is logged", func(t *testing.T) {
		var buf bytes.Buffer
		w := brokenWriter{httptest.NewRecorder()}

		sendJSON(w, logger.NewJSONLogger(&buf, logger.DebugLevel), http.StatusOK, map[string]string{"status": "ok"})

		assert.Equal(t, http.StatusOK, w.Code)

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, "Failed to write response", entry["message"])
		assert.Equal(t, "connection reset by peer", entry["error"])
		assert.Equal(t, float64(http.StatusOK), entry["status_code"])
		assert.Contains(t, entry["caller"], "prediction_handler.go")
	})

	t.Run("Unencodable body is logged", func(t *testing.T) {
		var buf bytes.Buffer
		w := httptest.NewRecorder()

		sendJSON(w, logger.NewJSONLogger(&buf, logger.DebugLevel), http.StatusOK, map[string]interface{}{"bad": make(chan int)})

		assert.Contains(t, buf.String(), "Failed to write response")
	})
}
