// Package storage описывает контракт хранилища пользователей и транзакций
// и общие для всех реализаций ошибки.
//
// Реализации: repository.Storage (PostgreSQL), memory.Storage (в памяти процесса)
// и Unconfigured — вариант для случая, когда хранилище не настроено.
package storage

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/dating-app/internal/models"
)

var (
	// ErrUserExists — пользователь с таким email уже существует.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound — пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrTransactionExists — транзакция с таким внешним идентификатором и статусом уже записана.
	ErrTransactionExists = errors.New("transaction already exists")
	// ErrUnavailable — хранилище недоступно или не настроено.
	ErrUnavailable = errors.New("storage unavailable")
)

// Store — полный набор операций хранилища.
type Store interface {
	// CreateUser сохраняет пользователя и возвращает его с заполненными ID и датами.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	// GetUserByID возвращает пользователя по ID или ErrUserNotFound.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUserByEmail возвращает пользователя по email или ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// FindUsersByEmail возвращает не более limit пользователей с точным совпадением email.
	FindUsersByEmail(ctx context.Context, email string, limit int) ([]*models.User, error)
	// UpdateUserProfile частично обновляет имя и email.
	UpdateUserProfile(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	// UpdateSubscriptionStatus одной операцией меняет статус и возвращает предыдущий.
	UpdateSubscriptionStatus(ctx context.Context, id string, status models.SubscriptionStatus) (models.SubscriptionStatus, error)
	// CreateTransaction добавляет запись в журнал платежей.
	CreateTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
	// LatestTransaction возвращает последнюю по времени вставки транзакцию пользователя или nil.
	LatestTransaction(ctx context.Context, userID string) (*models.Transaction, error)
	// ListTransactions возвращает транзакции пользователя, новые первыми.
	ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error)
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
	// Close освобождает ресурсы.
	Close() error
}
