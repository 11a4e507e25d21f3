// Package memory реализует storage.Store в памяти процесса.
// Используется при локальном запуске и в тестах сервисов.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/dating-app/internal/models"
	"github.com/magabrotheeeer/dating-app/internal/storage"
)

type dedupeKey struct {
	externalID string
	status     models.TransactionStatus
}

// Storage хранит пользователей и журнал платежей в map под общим мьютексом.
type Storage struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	byEmail map[string]string
	txs     map[string][]*models.Transaction
	dedupe  map[dedupeKey]struct{}
	now     func() time.Time
}

var _ storage.Store = (*Storage)(nil)

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
		txs:     make(map[string][]*models.Transaction),
		dedupe:  make(map[dedupeKey]struct{}),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func checkContext(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return nil
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyTransaction(t *models.Transaction) *models.Transaction {
	c := *t
	if t.ExternalTransactionID != nil {
		id := *t.ExternalTransactionID
		c.ExternalTransactionID = &id
	}
	return &c
}

// CreateUser сохраняет пользователя, присваивая ему UUID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.memory.CreateUser"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
	}

	now := s.now()
	user.ID = uuid.NewString()
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.StatusPending
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = &user
	s.byEmail[user.Email] = user.ID
	return copyUser(&user), nil
}

// GetUserByID возвращает копию пользователя по ID.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.memory.GetUserByID"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return copyUser(u), nil
}

// GetUserByEmail возвращает копию пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.memory.GetUserByEmail"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return copyUser(s.users[id]), nil
}

// FindUsersByEmail возвращает совпадения по email. Индекс уникален, поэтому их не больше одного.
func (s *Storage) FindUsersByEmail(ctx context.Context, email string, limit int) ([]*models.User, error) {
	const op = "storage.memory.FindUsersByEmail"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok || limit <= 0 {
		return nil, nil
	}
	return []*models.User{copyUser(s.users[id])}, nil
}

// UpdateUserProfile применяет патч к профилю пользователя.
func (s *Storage) UpdateUserProfile(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	const op = "storage.memory.UpdateUserProfile"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if patch.Email != nil && *patch.Email != u.Email {
		if _, taken := s.byEmail[*patch.Email]; taken {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		delete(s.byEmail, u.Email)
		u.Email = *patch.Email
		s.byEmail[u.Email] = u.ID
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	u.UpdatedAt = s.now()
	return copyUser(u), nil
}

// UpdateSubscriptionStatus меняет статус подписки и возвращает предыдущий.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, id string,
	status models.SubscriptionStatus) (models.SubscriptionStatus, error) {
	const op = "storage.memory.UpdateSubscriptionStatus"
	if err := checkContext(ctx, op); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return "", fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	previous := u.SubscriptionStatus
	u.SubscriptionStatus = status
	u.UpdatedAt = s.now()
	return previous, nil
}

// CreateTransaction добавляет запись в журнал. Пара (внешний ID, статус) уникальна.
func (s *Storage) CreateTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	const op = "storage.memory.CreateTransaction"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[tx.UserID]; !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var key *dedupeKey
	if tx.ExternalTransactionID != nil {
		key = &dedupeKey{externalID: *tx.ExternalTransactionID, status: tx.Status}
		if _, ok := s.dedupe[*key]; ok {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrTransactionExists)
		}
	}

	tx.ID = uuid.NewString()
	tx.CreatedAt = s.now()
	if tx.TransactionDate.IsZero() {
		tx.TransactionDate = tx.CreatedAt
	}
	stored := copyTransaction(&tx)
	s.txs[tx.UserID] = append(s.txs[tx.UserID], stored)
	if key != nil {
		s.dedupe[*key] = struct{}{}
	}
	return copyTransaction(stored), nil
}

// LatestTransaction возвращает последнюю добавленную транзакцию пользователя или nil.
func (s *Storage) LatestTransaction(ctx context.Context, userID string) (*models.Transaction, error) {
	const op = "storage.memory.LatestTransaction"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.txs[userID]
	if len(list) == 0 {
		return nil, nil
	}
	return copyTransaction(list[len(list)-1]), nil
}

// ListTransactions возвращает журнал пользователя от новых записей к старым.
func (s *Storage) ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error) {
	const op = "storage.memory.ListTransactions"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.txs[userID]
	res := make([]*models.Transaction, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		res = append(res, copyTransaction(list[i]))
	}
	return res, nil
}

// Ping всегда успешен.
func (s *Storage) Ping(ctx context.Context) error {
	return checkContext(ctx, "storage.memory.Ping")
}

// Close ничего не освобождает.
func (s *Storage) Close() error {
	return nil
}
