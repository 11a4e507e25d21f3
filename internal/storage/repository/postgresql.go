// Package repository реализует хранилище пользователей и журнала платежей на PostgreSQL.
//
// Соединение открывается через database/sql с драйвером pgx. Ошибки драйвера
// переводятся в ошибки пакета storage: нарушение уникальности email становится
// storage.ErrUserExists, повтор транзакции — storage.ErrTransactionExists,
// а обрыв соединения — storage.ErrUnavailable.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/dating-app/internal/storage"
)

const (
	constraintUsersEmail         = "users_email_key"
	constraintTransactionsDedupe = "transactions_external_id_status_key"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

var _ storage.Store = (*Storage)(nil)

// New создаёт подключение к PostgreSQL и проверяет его.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return &Storage{
		DB: db,
	}, nil
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.Ping"
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// mapError переводит ошибку драйвера в ошибку пакета storage, сохраняя исходную причину.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == constraintUsersEmail:
			return fmt.Errorf("%w: %w", storage.ErrUserExists, err)
		case pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == constraintTransactionsDedupe:
			return fmt.Errorf("%w: %w", storage.ErrTransactionExists, err)
		case pgErr.Code == pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%w: %w", storage.ErrUserNotFound, err)
		case pgErr.Code == pgerrcode.InvalidTextRepresentation:
			// некорректный UUID в условии WHERE
			return fmt.Errorf("%w: %w", storage.ErrUserNotFound, err)
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgErr.Code == pgerrcode.AdminShutdown,
			pgErr.Code == pgerrcode.CannotConnectNow,
			pgErr.Code == pgerrcode.TooManyConnections:
			return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return err
}

func checkContext(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return nil
	}
}
