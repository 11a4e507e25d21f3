// Package models содержит доменные модели приложения: пользователя с его статусом подписки,
// транзакции платёжного провайдера и нормализованные платёжные события.
// Структуры используются в бизнес-логике, хранилище и HTTP-слое.
package models

import "time"

// SubscriptionStatus описывает состояние подписки пользователя.
type SubscriptionStatus string

const (
	// StatusPending — пользователь зарегистрирован, но ещё не оплатил подписку.
	StatusPending SubscriptionStatus = "pending"
	// StatusActive — подписка оплачена.
	StatusActive SubscriptionStatus = "active"
	// StatusCancelled — подписка отменена или оплата возвращена.
	StatusCancelled SubscriptionStatus = "cancelled"
	// StatusExpired — срок подписки истёк. Ни одно событие не переводит пользователя в этот статус.
	StatusExpired SubscriptionStatus = "expired"
)

// Valid сообщает, является ли статус одним из допустимых значений.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// User представляет зарегистрированного пользователя сервиса знакомств.
type User struct {
	ID                 string             `json:"id"`                  // Уникальный идентификатор (UUID)
	Name               string             `json:"name"`                // Отображаемое имя
	Email              string             `json:"email"`               // Электронная почта (уникальная, в нижнем регистре)
	PasswordHash       string             `json:"-"`                   // bcrypt-хэш пароля, наружу не отдаётся
	BirthDate          time.Time          `json:"birth_date"`          // Дата рождения
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"` // Текущий статус подписки
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// UserPatch описывает частичное обновление профиля. nil-поле не изменяется.
type UserPatch struct {
	Name  *string
	Email *string
}

// Empty сообщает, что в патче нет ни одного поля для обновления.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil
}
