// Package datingapp собирает сервис учётных записей и приём платёжных уведомлений
// в одно HTTP-приложение.
package datingapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/magabrotheeeer/dating-app/internal/cache"
	"github.com/magabrotheeeer/dating-app/internal/config"
	"github.com/magabrotheeeer/dating-app/internal/http/middlewarectx"
	"github.com/magabrotheeeer/dating-app/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/dating-app/internal/lib/sl"
	"github.com/magabrotheeeer/dating-app/internal/metrics"
	"github.com/magabrotheeeer/dating-app/internal/migrations"
	"github.com/magabrotheeeer/dating-app/internal/services/account"
	"github.com/magabrotheeeer/dating-app/internal/services/reconciler"
	"github.com/magabrotheeeer/dating-app/internal/storage"
	"github.com/magabrotheeeer/dating-app/internal/storage/memory"
	"github.com/magabrotheeeer/dating-app/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

type userCache interface {
	account.Cache
	Close() error
}

type statusPublisher interface {
	account.Publisher
	Close() error
}

// App — собранное приложение: HTTP-сервер и его зависимости.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	store     storage.Store
	cache     userCache
	publisher statusPublisher
}

// New подключает хранилище, кеш и брокер согласно cfg и собирает маршруты.
// Кеш и брокер необязательны: при пустом адресе или ошибке подключения
// используются заглушки.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "datingapp.New"

	store, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profileCache := openCache(ctx, cfg.RedisConnection, logger)
	publisher := openPublisher(ctx, cfg.RabbitMQ, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	accounts := account.New(logger, store, profileCache, publisher, collector)
	payments := reconciler.New(logger, store, profileCache, publisher, collector, cfg.Kiwify.DefaultAmount)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Accounts:   accounts,
		Reconciler: payments,
		Store:      store,
		Limiter:    middlewarectx.NewRateLimiter(logger, cfg.HTTPServer.RateLimitRPS, cfg.HTTPServer.RateLimitBurst),
		Gatherer:   reg,
		Kiwify:     cfg.Kiwify,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server:    srv,
		logger:    logger,
		store:     store,
		cache:     profileCache,
		publisher: publisher,
	}, nil
}

func openStorage(ctx context.Context, cfg config.Storage, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	case config.DriverPostgres:
		if cfg.ConnectionString == "" {
			logger.Error("storage connection string is empty, storage operations will fail with 503")
			return storage.Unconfigured{Reason: "storage connection string is empty"}, nil
		}
		db, err := repository.New(ctx, cfg.ConnectionString)
		if err != nil {
			return nil, err
		}
		if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openCache(ctx context.Context, cfg config.RedisConnection, logger *slog.Logger) userCache {
	if cfg.Addr == "" {
		logger.Info("redis address is empty, user cache disabled")
		return cache.Noop{}
	}
	c, err := cache.InitServer(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to redis, user cache disabled", sl.Err(err))
		return cache.Noop{}
	}
	return c
}

func openPublisher(ctx context.Context, cfg config.RabbitMQ, logger *slog.Logger) statusPublisher {
	if cfg.URL == "" {
		logger.Info("rabbitmq url is empty, status events are not published")
		return rabbitmq.NoopPublisher{}
	}
	conn, err := rabbitmq.Connect(ctx, cfg.URL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		logger.Error("failed to connect to rabbitmq, status events are not published", sl.Err(err))
		return rabbitmq.NoopPublisher{}
	}
	p, err := rabbitmq.NewPublisher(conn, cfg.Exchange)
	if err != nil {
		_ = conn.Close()
		logger.Error("failed to set up rabbitmq channel, status events are not published", sl.Err(err))
		return rabbitmq.NoopPublisher{}
	}
	return p
}

// Handler возвращает корневой HTTP-обработчик приложения.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.Close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.Close()
		return err
	}
}

// Close освобождает соединения с хранилищем, кешем и брокером.
func (a *App) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("failed to close rabbitmq publisher", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close redis client", sl.Err(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close storage", sl.Err(err))
	}
}
