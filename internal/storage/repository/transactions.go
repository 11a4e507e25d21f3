package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/dating-app/internal/models"
	"github.com/magabrotheeeer/dating-app/internal/storage"
)

const transactionColumns = `id, user_id, transaction_date, status, amount, external_transaction_id, created_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var externalID sql.NullString
	if err := row.Scan(&t.ID, &t.UserID, &t.TransactionDate, &t.Status, &t.Amount,
		&externalID, &t.CreatedAt); err != nil {
		return nil, err
	}
	if externalID.Valid {
		t.ExternalTransactionID = &externalID.String
	}
	return t, nil
}

// CreateTransaction добавляет запись в журнал платежей.
// Если запись с той же парой (external_transaction_id, status) уже есть,
// возвращается storage.ErrTransactionExists.
func (s *Storage) CreateTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	const op = "storage.CreateTransaction"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO transactions (user_id, transaction_date, status, amount, external_transaction_id)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT ON CONSTRAINT transactions_external_id_status_key DO NOTHING
			  RETURNING ` + transactionColumns
	created, err := scanTransaction(s.DB.QueryRowContext(ctx, query,
		tx.UserID, tx.TransactionDate, tx.Status, tx.Amount, tx.ExternalTransactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrTransactionExists)
		}
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return created, nil
}

// LatestTransaction возвращает последнюю записанную транзакцию пользователя или nil, если их нет.
func (s *Storage) LatestTransaction(ctx context.Context, userID string) (*models.Transaction, error) {
	const op = "storage.LatestTransaction"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + `
			  FROM transactions
			  WHERE user_id = $1
			  ORDER BY created_at DESC
			  LIMIT 1`
	t, err := scanTransaction(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return t, nil
}

// ListTransactions возвращает журнал платежей пользователя, начиная с последних записей.
func (s *Storage) ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error) {
	const op = "storage.ListTransactions"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + `
			  FROM transactions
			  WHERE user_id = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	res := make([]*models.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return res, nil
}
