package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/dating-app/internal/models"
)

// Unconfigured — хранилище-заглушка для запуска без строки подключения.
// Каждая операция возвращает ErrUnavailable. Сервисы проверяют этот вариант
// через IsUnconfigured до начала работы.
type Unconfigured struct {
	// Reason попадает в текст ошибки, например "storage connection string is empty".
	Reason string
}

var _ Store = Unconfigured{}

// IsUnconfigured сообщает, что v — хранилище-заглушка.
func IsUnconfigured(v any) bool {
	switch v.(type) {
	case Unconfigured, *Unconfigured:
		return true
	}
	return false
}

func (u Unconfigured) err(op string) error {
	if u.Reason == "" {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w: %s", op, ErrUnavailable, u.Reason)
}

func (u Unconfigured) CreateUser(context.Context, models.User) (*models.User, error) {
	return nil, u.err("storage.CreateUser")
}

func (u Unconfigured) GetUserByID(context.Context, string) (*models.User, error) {
	return nil, u.err("storage.GetUserByID")
}

func (u Unconfigured) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, u.err("storage.GetUserByEmail")
}

func (u Unconfigured) FindUsersByEmail(context.Context, string, int) ([]*models.User, error) {
	return nil, u.err("storage.FindUsersByEmail")
}

func (u Unconfigured) UpdateUserProfile(context.Context, string, models.UserPatch) (*models.User, error) {
	return nil, u.err("storage.UpdateUserProfile")
}

func (u Unconfigured) UpdateSubscriptionStatus(context.Context, string, models.SubscriptionStatus) (models.SubscriptionStatus, error) {
	return "", u.err("storage.UpdateSubscriptionStatus")
}

func (u Unconfigured) CreateTransaction(context.Context, models.Transaction) (*models.Transaction, error) {
	return nil, u.err("storage.CreateTransaction")
}

func (u Unconfigured) LatestTransaction(context.Context, string) (*models.Transaction, error) {
	return nil, u.err("storage.LatestTransaction")
}

func (u Unconfigured) ListTransactions(context.Context, string) ([]*models.Transaction, error) {
	return nil, u.err("storage.ListTransactions")
}

func (u Unconfigured) Ping(context.Context) error {
	return u.err("storage.Ping")
}

func (u Unconfigured) Close() error {
	return nil
}
