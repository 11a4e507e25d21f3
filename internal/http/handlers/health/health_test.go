package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/dating-app/internal/storage"
	"github.com/magabrotheeeer/dating-app/internal/storage/memory"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name      string
		store     Pinger
		wantCode  int
		wantError string
	}{
		{name: "ok", store: memory.New(), wantCode: http.StatusOK},
		{name: "ping fails", store: failingPinger{}, wantCode: http.StatusServiceUnavailable, wantError: "storage unavailable"},
		{name: "not configured", store: storage.Unconfigured{Reason: "empty dsn"}, wantCode: http.StatusServiceUnavailable, wantError: "storage is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(log, tt.store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				assert.Equal(t, "OK", got["status"])
			}
		})
	}
}
