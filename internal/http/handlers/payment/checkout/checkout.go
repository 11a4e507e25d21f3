// Package checkout реализует HTTP-обработчик, выдающий ссылку на оплату подписки.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dating-app/internal/http/response"
	"github.com/magabrotheeeer/dating-app/internal/lib/apperr"
	"github.com/magabrotheeeer/dating-app/internal/lib/sl"
	"github.com/magabrotheeeer/dating-app/internal/models"
	"github.com/magabrotheeeer/dating-app/internal/paymentprovider"
)

// Service описывает чтение пользователя, для которого формируется ссылка.
type Service interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Handler обрабатывает GET /users/{id}/checkout.
type Handler struct {
	log       *slog.Logger
	service   Service
	baseURL   string
	productID string
}

// New создаёт обработчик. baseURL и productID берутся из настроек Kiwify.
func New(log *slog.Logger, service Service, baseURL, productID string) *Handler {
	return &Handler{
		log:       log,
		service:   service,
		baseURL:   baseURL,
		productID: productID,
	}
}

// Data — тело успешного ответа.
type Data struct {
	CheckoutURL        string                    `json:"checkout_url"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscription_status"`
}

// ServeHTTP godoc
// @Summary Ссылка на оплату
// @Description Возвращает ссылку на страницу оплаты Kiwify с предзаполненными email и именем.
// @Tags Payments
// @Produce  json
// @Param id path string true "ID пользователя (UUID)"
// @Success 200 {object} response.Response{data=Data}
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 503 {object} response.ErrorResponse "Оплата не настроена или хранилище недоступно"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/{id}/checkout [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.checkout"

	id := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", id),
	)

	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			log.Error("failed to get user", sl.Err(err))
		}
		response.RenderError(w, r, err)
		return
	}

	link, err := paymentprovider.CheckoutURL(h.baseURL, h.productID, user.Email, user.Name)
	if err != nil {
		log.Error("failed to build checkout url", sl.Err(err))
		if errors.Is(err, paymentprovider.ErrCheckoutNotConfigured) {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("checkout is not configured"))
			return
		}
		response.RenderError(w, r, apperr.Internal("failed to build checkout url", err))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Data{
		CheckoutURL:        link,
		SubscriptionStatus: user.SubscriptionStatus,
	}))
}
