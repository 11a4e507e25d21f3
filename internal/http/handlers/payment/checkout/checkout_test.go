package checkout

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/dating-app/internal/lib/apperr"
	"github.com/magabrotheeeer/dating-app/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

const userID = "2f0c7c4e-1b8a-4b7e-9a53-0d3f3c1b2a11"

func serve(t *testing.T, h *Handler) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/users/"+userID+"/checkout", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", userID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	req = req.WithContext(context.WithValue(ctx, middleware.RequestIDKey, "reqid123"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	return rec.Code, got
}

func TestCheckoutHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	user := &models.User{ID: userID, Name: "Ana Maria", Email: "ana@x.com", SubscriptionStatus: models.StatusPending}

	t.Run("link", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("GetByID", mock.Anything, userID).Return(user, nil).Once()

		code, got := serve(t, New(log, svc, "https://pay.kiwify.com.br", "45SDQNS"))
		assert.Equal(t, http.StatusOK, code)
		data := got["data"].(map[string]any)
		assert.Equal(t, "https://pay.kiwify.com.br/45SDQNS?email=ana%40x.com&name=Ana+Maria", data["checkout_url"])
		assert.Equal(t, "pending", data["subscription_status"])
		svc.AssertExpectations(t)
	})

	t.Run("not configured", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("GetByID", mock.Anything, userID).Return(user, nil).Once()

		code, got := serve(t, New(log, svc, "https://pay.kiwify.com.br", ""))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "checkout is not configured", got["error"])
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("GetByID", mock.Anything, userID).
			Return(nil, apperr.New(apperr.KindNotFound, "user not found")).Once()

		code, got := serve(t, New(log, svc, "https://pay.kiwify.com.br", "45SDQNS"))
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "user not found", got["error"])
	})
}
