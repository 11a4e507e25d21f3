package transactions

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

func (m *ServiceMock) ListTransactions(ctx context.Context, id string) ([]*models.Transaction, error) {
	args := m.Called(ctx, id)
	list, _ := args.Get(0).([]*models.Transaction)
	return list, args.Error(1)
}

const userID = "2f0c7c4e-1b8a-4b7e-9a53-0d3f3c1b2a11"

func serve(t *testing.T, svc *ServiceMock) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/users/"+userID+"/transactions", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", userID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	req = req.WithContext(context.WithValue(ctx, middleware.RequestIDKey, "reqid123"))
	rec := httptest.NewRecorder()

	New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	return rec, got
}

func TestTransactionsHandler(t *testing.T) {
	ext := "ord-1"
	at := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

	t.Run("list", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("ListTransactions", mock.Anything, userID).Return([]*models.Transaction{
			{ID: "t2", UserID: userID, Status: models.TransactionRefunded, Amount: 1990, ExternalTransactionID: &ext, TransactionDate: at},
			{ID: "t1", UserID: userID, Status: models.TransactionPaid, Amount: 1990, ExternalTransactionID: &ext, TransactionDate: at},
		}, nil).Once()

		rec, got := serve(t, svc)
		assert.Equal(t, http.StatusOK, rec.Code)
		data := got["data"].([]any)
		require.Len(t, data, 2)
		first := data[0].(map[string]any)
		assert.Equal(t, "refunded", first["status"])
		assert.Equal(t, float64(1990), first["amount"])
		assert.Equal(t, "ord-1", first["external_transaction_id"])
		svc.AssertExpectations(t)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("ListTransactions", mock.Anything, userID).Return(nil, nil).Once()

		rec, _ := serve(t, svc)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("ListTransactions", mock.Anything, userID).
			Return(nil, apperr.New(apperr.KindNotFound, "user not found")).Once()

		rec, got := serve(t, svc)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "user not found", got["error"])
	})
}
