// Package update реализует HTTP-обработчик частичного обновления профиля.
package update

import (
	"context"
	"encoding/json"
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

// Request — изменяемые поля профиля. Отсутствующее поле не меняется.
type Request struct {
	Name  *string `json:"name,omitempty" example:"Ana Maria"`
	Email *string `json:"email,omitempty" example:"ana.maria@example.com"`
}

// Service описывает обновление профиля.
type Service interface {
	UpdateProfile(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
}

// Handler обрабатывает PATCH /users/{id}.
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
// @Summary Обновить профиль
// @Description Меняет имя и/или email пользователя.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param id path string true "ID пользователя (UUID)"
// @Param request body Request true "Новые значения"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации или email уже занят"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.update"

	id := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", id),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), id, models.UserPatch{Name: req.Name, Email: req.Email})
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindInternal, apperr.KindStoreUnavailable:
			log.Error("failed to update profile", sl.Err(err))
		default:
			log.Info("profile update rejected", sl.Err(err))
		}
		response.RenderError(w, r, err)
		return
	}

	log.Info("profile updated")
	render.JSON(w, r, response.StatusOKWithData(user))
}
