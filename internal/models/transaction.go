package models

import "time"

// TransactionStatus описывает статус записи в журнале платежей.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionPaid      TransactionStatus = "paid"
	TransactionRefunded  TransactionStatus = "refunded"
	TransactionCancelled TransactionStatus = "cancelled"
)

// Transaction — неизменяемая запись журнала платежей пользователя.
// Amount хранится в минимальных единицах валюты (центах).
type Transaction struct {
	ID                    string            `json:"id"`
	UserID                string            `json:"user_id"`
	TransactionDate       time.Time         `json:"transaction_date"`
	Status                TransactionStatus `json:"status"`
	Amount                int64             `json:"amount"`
	ExternalTransactionID *string           `json:"external_transaction_id,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
}
