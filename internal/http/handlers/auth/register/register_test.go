package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/dating-app/internal/lib/apperr"
	"github.com/magabrotheeeer/dating-app/internal/models"
	"github.com/magabrotheeeer/dating-app/internal/services/account"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, in account.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	input := account.RegisterInput{
		Name:      "Ana",
		Email:     "ana@x.com",
		Password:  "secret123",
		BirthDate: "1995-04-12",
	}
	created := &models.User{
		ID:                 "2f0c7c4e-1b8a-4b7e-9a53-0d3f3c1b2a11",
		Name:               "Ana",
		Email:              "ana@x.com",
		SubscriptionStatus: models.StatusPending,
	}

	tests := []struct {
		name           string
		body           string
		mockInput      *account.RegisterInput
		mockUser       *models.User
		mockErr        error
		wantStatusCode int
		wantStatus     string
		wantError      string
	}{
		{
			name:           "success",
			body:           `{"name":"Ana","email":"ana@x.com","password":"secret123","birth_date":"1995-04-12"}`,
			mockInput:      &input,
			mockUser:       created,
			wantStatusCode: http.StatusCreated,
			wantStatus:     "OK",
		},
		{
			name:           "camel case birth date",
			body:           `{"name":"Ana","email":"ana@x.com","password":"secret123","birthDate":"1995-04-12"}`,
			mockInput:      &input,
			mockUser:       created,
			wantStatusCode: http.StatusCreated,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json",
			body:           "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "invalid request body",
		},
		{
			name:           "underage",
			body:           `{"name":"Ana","email":"ana@x.com","password":"secret123","birth_date":"1995-04-12"}`,
			mockInput:      &input,
			mockErr:        apperr.Validation("you must be at least 18 years old"),
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "you must be at least 18 years old",
		},
		{
			name:           "duplicate email",
			body:           `{"name":"Ana","email":"ana@x.com","password":"secret123","birth_date":"1995-04-12"}`,
			mockInput:      &input,
			mockErr:        apperr.New(apperr.KindDuplicateEmail, "email already registered"),
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "email already registered",
		},
		{
			name:           "storage unavailable",
			body:           `{"name":"Ana","email":"ana@x.com","password":"secret123","birth_date":"1995-04-12"}`,
			mockInput:      &input,
			mockErr:        apperr.New(apperr.KindStoreUnavailable, "service temporarily unavailable"),
			wantStatusCode: http.StatusServiceUnavailable,
			wantStatus:     "Error",
			wantError:      "service temporarily unavailable",
		},
		{
			name:           "unexpected error",
			body:           `{"name":"Ana","email":"ana@x.com","password":"secret123","birth_date":"1995-04-12"}`,
			mockInput:      &input,
			mockErr:        errors.New("boom"),
			wantStatusCode: http.StatusInternalServerError,
			wantStatus:     "Error",
			wantError:      "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.mockInput != nil {
				svc.On("Register", mock.Anything, *tt.mockInput).Return(tt.mockUser, tt.mockErr).Once()
			}
			handler := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantStatus, got["status"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				data, ok := got["data"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, created.ID, data["id"])
				assert.Equal(t, "pending", data["subscription_status"])
				assert.NotContains(t, data, "password_hash")
			}
			svc.AssertExpectations(t)
		})
	}
}
