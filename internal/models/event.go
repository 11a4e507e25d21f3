package models

import "time"

// EventKind — тип платёжного события после нормализации.
type EventKind string

const (
	EventOrderPaid             EventKind = "order.paid"
	EventOrderRefunded         EventKind = "order.refunded"
	EventSubscriptionCancelled EventKind = "subscription.cancelled"
	// EventUnknown — событие, которое сервис не обрабатывает.
	EventUnknown EventKind = "unknown"
)

// PaymentEvent — единое внутреннее представление уведомления платёжного провайдера,
// независимо от того, в какой из схем оно пришло.
type PaymentEvent struct {
	Kind                  EventKind
	RawKind               string // Исходное значение типа события от провайдера
	CustomerEmail         string
	CustomerName          string
	Amount                int64 // В центах
	HasAmount             bool
	ExternalTransactionID string
	OccurredAt            time.Time
}

// StatusChange публикуется в брокер сообщений при фактической смене статуса подписки.
type StatusChange struct {
	UserID                string             `json:"user_id"`
	Email                 string             `json:"email"`
	From                  SubscriptionStatus `json:"from"`
	To                    SubscriptionStatus `json:"to"`
	Event                 string             `json:"event"`
	ExternalTransactionID string             `json:"external_transaction_id,omitempty"`
	OccurredAt            time.Time          `json:"occurred_at"`
}
