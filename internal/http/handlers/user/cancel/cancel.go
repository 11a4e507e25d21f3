// Package cancel реализует HTTP-обработчик отмены подписки по запросу пользователя.
package cancel

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

type Service interface {
	CancelSubscription(ctx context.Context, id string) (*models.User, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Переводит подписку в статус cancelled. Повторный вызов ничего не меняет.
// @Tags Users
// @Produce  json
// @Param id path string true "ID пользователя (UUID)"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/{id}/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.cancel"

	id := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", id),
	)

	user, err := h.service.CancelSubscription(r.Context(), id)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			log.Error("failed to cancel subscription", sl.Err(err))
		}
		response.RenderError(w, r, err)
		return
	}

	log.Info("cancel request handled", slog.String("subscription_status", string(user.SubscriptionStatus)))
	render.JSON(w, r, response.StatusOKWithData(user))
}
