package datingapp

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/dating-app/docs"
	"github.com/magabrotheeeer/dating-app/internal/config"
	"github.com/magabrotheeeer/dating-app/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/dating-app/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/dating-app/internal/http/handlers/health"
	"github.com/magabrotheeeer/dating-app/internal/http/handlers/payment/checkout"
	"github.com/magabrotheeeer/dating-app/internal/http/handlers/payment/webhook"
	"github.com/magabrotheeeer/dating-app/internal/http/handlers/user/cancel"
	"github.com/magabrotheeeer/dating-app/internal/http/handlers/user/read"
	"github.com/magabrotheeeer/dating-app/internal/http/handlers/user/transactions"
	"github.com/magabrotheeeer/dating-app/internal/http/handlers/user/update"
	"github.com/magabrotheeeer/dating-app/internal/http/middlewarectx"
	"github.com/magabrotheeeer/dating-app/internal/metrics"
	"github.com/magabrotheeeer/dating-app/internal/services/account"
	"github.com/magabrotheeeer/dating-app/internal/services/reconciler"
	"github.com/magabrotheeeer/dating-app/internal/storage"
)

// Deps — зависимости, из которых собираются обработчики.
type Deps struct {
	Accounts   *account.Service
	Reconciler *reconciler.Service
	Store      storage.Store
	Limiter    *middlewarectx.RateLimiter
	Gatherer   prometheus.Gatherer
	Kiwify     config.Kiwify
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	webhookHandler := webhook.New(logger, d.Reconciler, d.Kiwify.WebhookSecret)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(d.Limiter.Middleware)
			r.Post("/register", register.New(logger, d.Accounts).ServeHTTP)
			r.Post("/login", login.New(logger, d.Accounts).ServeHTTP)
		})

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", read.New(logger, d.Accounts).ServeHTTP)
			r.Patch("/", update.New(logger, d.Accounts).ServeHTTP)
			r.Post("/cancel", cancel.New(logger, d.Accounts).ServeHTTP)
			r.Get("/transactions", transactions.New(logger, d.Accounts).ServeHTTP)
			r.Get("/checkout", checkout.New(logger, d.Accounts, d.Kiwify.CheckoutBaseURL, d.Kiwify.ProductID).ServeHTTP)
		})

		// Уведомления провайдера приходят без аутентификации, подлинность проверяется подписью
		r.Post("/webhooks/kiwify", webhookHandler.ServeHTTP)
	})
	r.Post("/webhook/kiwify", webhookHandler.ServeHTTP)

	r.Get("/health", health.New(logger, d.Store).ServeHTTP)
	r.Handle("/metrics", metrics.Handler(d.Gatherer))
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
