// Package webhook реализует приём уведомлений Kiwify о платежах.
//
// Тело запроса проверяется по подписи (если задан секрет), нормализуется
// в models.PaymentEvent и передаётся сервису сверки. На любой принятый
// запрос, включая неизвестные типы событий, отвечаем 200, чтобы провайдер
// не повторял доставку.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dating-app/internal/http/response"
	"github.com/magabrotheeeer/dating-app/internal/lib/apperr"
	"github.com/magabrotheeeer/dating-app/internal/lib/sl"
	"github.com/magabrotheeeer/dating-app/internal/models"
	"github.com/magabrotheeeer/dating-app/internal/paymentprovider"
	"github.com/magabrotheeeer/dating-app/internal/services/reconciler"
)

// maxBodySize ограничивает размер уведомления.
const maxBodySize = 1 << 20

// Service описывает сверку платёжного события.
type Service interface {
	Reconcile(ctx context.Context, ev models.PaymentEvent) (reconciler.Result, error)
}

// Handler обрабатывает POST /webhooks/kiwify.
type Handler struct {
	log     *slog.Logger
	service Service
	secret  string
	now     func() time.Time
}

// New создаёт обработчик. Пустой secret отключает проверку подписи.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:     log,
		service: service,
		secret:  secret,
		now:     time.Now,
	}
}

// ServeHTTP godoc
// @Summary Уведомление Kiwify
// @Description Принимает событие оплаты, возврата или отмены и обновляет статус подписки покупателя.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param signature query string false "HMAC-SHA1 подпись тела"
// @Success 200 {object} response.Response{data=reconciler.Result}
// @Failure 400 {object} response.ErrorResponse "Некорректное тело уведомления"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Failure 404 {object} response.ErrorResponse "Покупатель не найден"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /webhooks/kiwify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if h.secret != "" {
		signature := r.URL.Query().Get("signature")
		if signature == "" {
			signature = r.Header.Get(paymentprovider.SignatureHeader)
		}
		if !paymentprovider.VerifySignature(h.secret, body, signature) {
			log.Warn("invalid or missing webhook signature")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid signature"))
			return
		}
	}

	ev, err := paymentprovider.Normalize(body, h.now())
	if err != nil {
		log.Warn("malformed webhook payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("malformed payment notification"))
		return
	}
	log.Info("webhook received",
		slog.String("event", ev.RawKind),
		slog.String("external_id", ev.ExternalTransactionID),
	)

	res, err := h.service.Reconcile(r.Context(), ev)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindValidation, apperr.KindUnknownCustomer:
			log.Warn("webhook rejected", sl.Err(err))
		default:
			log.Error("failed to reconcile payment event", sl.Err(err))
		}
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(res))
}
