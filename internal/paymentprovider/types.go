// Package paymentprovider — граница с платёжным провайдером Kiwify:
// разбор уведомлений в единое событие, проверка подписи и ссылка на оплату.
package paymentprovider

import (
	"encoding/json"
	"errors"
)

// ErrMalformedPayload — тело уведомления не является JSON-объектом или в нём нет типа события.
var ErrMalformedPayload = errors.New("malformed payment notification")

// customer — данные покупателя во вложенном объекте Customer.
type customer struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Name     string `json:"name"`
}

func (c *customer) displayName() string {
	if c == nil {
		return ""
	}
	if c.FullName != "" {
		return c.FullName
	}
	return c.Name
}

// eventData — вложенный объект data в схеме с полем event.
type eventData struct {
	Customer       *customer       `json:"Customer"`
	OrderID        string          `json:"order_id"`
	SubscriptionID string          `json:"subscription_id"`
	OrderAmount    json.RawMessage `json:"order_amount"`
	CreatedAt      string          `json:"created_at"`
}

// notification покрывает обе схемы уведомлений Kiwify:
// с полями event/data и плоскую с order_status и customer_email.
type notification struct {
	Event string     `json:"event"`
	Data  *eventData `json:"data"`

	OrderID          string          `json:"order_id"`
	OrderStatus      string          `json:"order_status"`
	WebhookEventType string          `json:"webhook_event_type"`
	CustomerEmail    string          `json:"customer_email"`
	CustomerName     string          `json:"customer_name"`
	SaleValue        json.RawMessage `json:"sale_value"`
	SaleDate         string          `json:"sale_date"`
	ProductID        string          `json:"product_id"`
	Customer         *customer       `json:"Customer"`
	SubscriptionID   string          `json:"subscription_id"`
}
