// Package register реализует HTTP-обработчик регистрации пользователя.
//
// Обработчик декодирует JSON, передаёт данные в сервис учётных записей
// и возвращает созданного пользователя со статусом подписки pending.
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dating-app/internal/http/response"
	"github.com/magabrotheeeer/dating-app/internal/lib/sl"
	"github.com/magabrotheeeer/dating-app/internal/models"
	"github.com/magabrotheeeer/dating-app/internal/services/account"
)

// Request — входные данные для регистрации.
// Дата рождения принимается как birth_date или birthDate в формате YYYY-MM-DD.
type Request struct {
	Name            string `json:"name" example:"Ana"`
	Email           string `json:"email" example:"ana@example.com"`
	Password        string `json:"password" example:"secret123"`
	BirthDate       string `json:"birth_date,omitempty" example:"1995-04-12"`
	BirthDateCompat string `json:"birthDate,omitempty" swaggerignore:"true"`
}

func (r Request) birthDate() string {
	if r.BirthDate != "" {
		return r.BirthDate
	}
	return r.BirthDateCompat
}

// Service описывает операцию регистрации.
type Service interface {
	Register(ctx context.Context, in account.RegisterInput) (*models.User, error)
}

// Handler обрабатывает POST /register.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик регистрации.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создаёт учётную запись. Пользователь должен быть старше 18 лет; статус подписки — pending.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные пользователя"
// @Success 201 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации или email уже занят"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	user, err := h.service.Register(r.Context(), account.RegisterInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		BirthDate: req.birthDate(),
	})
	if err != nil {
		log.Info("registration rejected", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(user))
}
