// Package transactions реализует HTTP-обработчик истории платежей пользователя.
package transactions

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dating-app/internal/http/response"
	"github.com/magabrotheeeer/dating-app/internal/lib/apperr"
	"github.com/magabrotheeeer/dating-app/internal/lib/sl"
	"github.com/magabrotheeeer/dating-app/internal/models"
)

// Service описывает чтение журнала платежей.
type Service interface {
	ListTransactions(ctx context.Context, id string) ([]*models.Transaction, error)
}

// Handler обрабатывает GET /users/{id}/transactions.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary История платежей
// @Description Возвращает транзакции пользователя, начиная с последней.
// @Tags Users
// @Produce  json
// @Param id path string true "ID пользователя (UUID)"
// @Success 200 {object} response.Response{data=[]models.Transaction}
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/{id}/transactions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.transactions"

	id := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", id),
	)

	list, err := h.service.ListTransactions(r.Context(), id)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			log.Error("failed to list transactions", sl.Err(err))
		}
		response.RenderError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Transaction{}
	}

	log.Debug("transactions listed", slog.Int("count", len(list)))
	render.JSON(w, r, response.StatusOKWithData(list))
}
