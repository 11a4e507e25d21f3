package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/dating-app/internal/models"
	"github.com/magabrotheeeer/dating-app/internal/storage"
)

const userColumns = `id, name, email, password_hash, birth_date, subscription_status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.BirthDate,
		&u.SubscriptionStatus, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его вместе с присвоенным ID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO users (name, email, password_hash, birth_date, subscription_status)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING ` + userColumns
	created, err := scanUser(s.DB.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.BirthDate, user.SubscriptionStatus))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return created, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUserByID"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по нормализованному email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// FindUsersByEmail возвращает не более limit пользователей с указанным email.
// Используется сверкой платежей, чтобы отличить единственное совпадение от неоднозначного.
func (s *Storage) FindUsersByEmail(ctx context.Context, email string, limit int) ([]*models.User, error) {
	const op = "storage.FindUsersByEmail"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 ORDER BY created_at LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, email, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return users, nil
}

// UpdateUserProfile изменяет имя и/или email пользователя и возвращает обновлённую запись.
func (s *Storage) UpdateUserProfile(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	const op = "storage.UpdateUserProfile"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE users
			  SET name = COALESCE($2, name),
			      email = COALESCE($3, email),
			      updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id, patch.Name, patch.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// UpdateSubscriptionStatus атомарно меняет статус подписки и возвращает предыдущий статус.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, id string,
	status models.SubscriptionStatus) (models.SubscriptionStatus, error) {
	const op = "storage.UpdateSubscriptionStatus"
	if err := checkContext(ctx, op); err != nil {
		return "", err
	}

	query := `UPDATE users AS u
			  SET subscription_status = $2, updated_at = NOW()
			  FROM (SELECT id, subscription_status FROM users WHERE id = $1 FOR UPDATE) AS prev
			  WHERE u.id = prev.id
			  RETURNING prev.subscription_status`
	var previous models.SubscriptionStatus
	if err := s.DB.QueryRowContext(ctx, query, id, status).Scan(&previous); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, mapError(err))
	}
	return previous, nil
}
