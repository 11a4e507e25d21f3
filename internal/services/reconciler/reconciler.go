// Package reconciler применяет платёжные события провайдера к статусу подписки пользователя
// и ведёт журнал транзакций.
//
// Событие сопоставляется с пользователем по email, в журнал добавляется запись,
// затем статус подписки меняется одной операцией хранилища. Повторная доставка
// того же события распознаётся по уникальности пары (внешний ID, статус транзакции).
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/dating-app/internal/cache"
	"github.com/magabrotheeeer/dating-app/internal/lib/apperr"
	"github.com/magabrotheeeer/dating-app/internal/lib/sl"
	"github.com/magabrotheeeer/dating-app/internal/models"
	"github.com/magabrotheeeer/dating-app/internal/storage"
)

// Repository описывает операции хранилища, нужные сверке.
type Repository interface {
	FindUsersByEmail(ctx context.Context, email string, limit int) ([]*models.User, error)
	CreateTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
	LatestTransaction(ctx context.Context, userID string) (*models.Transaction, error)
	UpdateSubscriptionStatus(ctx context.Context, id string, status models.SubscriptionStatus) (models.SubscriptionStatus, error)
}

// Cache сбрасывает закешированный профиль после смены статуса.
type Cache interface {
	Invalidate(ctx context.Context, key string) error
}

// Publisher отправляет события о смене статуса подписки.
type Publisher interface {
	PublishStatusChange(ctx context.Context, change models.StatusChange) error
}

// Metrics учитывает исходы обработки событий.
type Metrics interface {
	RecordWebhookEvent(kind, outcome string)
	RecordStatusTransition(from, to string)
}

// Outcome — итог обработки события.
type Outcome string

const (
	// OutcomeApplied — событие записано в журнал и применено к статусу.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate — событие уже было обработано раньше.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored — тип события не поддерживается, ничего не изменено.
	OutcomeIgnored Outcome = "ignored"

	outcomeUnknownCustomer = "unknown_customer"
	outcomeInvalid         = "invalid"
	outcomeFailed          = "failed"
)

// Transition — запись журнала и статус подписки, к которым приводит событие.
type Transition struct {
	TransactionStatus  models.TransactionStatus
	SubscriptionStatus models.SubscriptionStatus
}

var transitions = map[models.EventKind]Transition{
	models.EventOrderPaid:             {models.TransactionPaid, models.StatusActive},
	models.EventOrderRefunded:         {models.TransactionRefunded, models.StatusCancelled},
	models.EventSubscriptionCancelled: {models.TransactionCancelled, models.StatusCancelled},
}

// TransitionFor возвращает переход для типа события. false — событие не обрабатывается.
func TransitionFor(kind models.EventKind) (Transition, bool) {
	t, ok := transitions[kind]
	return t, ok
}

// Result описывает, что было сделано при обработке события.
type Result struct {
	Outcome             Outcome                   `json:"outcome"`
	UserID              string                    `json:"user_id,omitempty"`
	PreviousStatus      models.SubscriptionStatus `json:"previous_status,omitempty"`
	CurrentStatus       models.SubscriptionStatus `json:"subscription_status,omitempty"`
	TransactionRecorded bool                      `json:"transaction_recorded"`
	StatusUpdated       bool                      `json:"status_updated"`
}

// Service сверяет платёжные события с учётными записями.
type Service struct {
	repo          Repository
	cache         Cache
	publisher     Publisher
	metrics       Metrics
	log           *slog.Logger
	defaultAmount int64
	now           func() time.Time
}

// New создаёт сервис сверки. defaultAmount (в центах) записывается в журнал,
// если провайдер не прислал сумму.
func New(log *slog.Logger, repo Repository, c Cache, publisher Publisher, metrics Metrics, defaultAmount int64) *Service {
	return &Service{
		repo:          repo,
		cache:         c,
		publisher:     publisher,
		metrics:       metrics,
		log:           log,
		defaultAmount: defaultAmount,
		now:           time.Now,
	}
}

// Reconcile применяет событие. Ошибка возвращается только тогда, когда провайдеру
// нужно сообщить о неуспехе: некорректное событие, неизвестный покупатель или сбой хранилища.
func (s *Service) Reconcile(ctx context.Context, ev models.PaymentEvent) (Result, error) {
	const op = "reconciler.Reconcile"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event", ev.RawKind),
		slog.String("external_id", ev.ExternalTransactionID),
	)
	kind := string(ev.Kind)

	transition, ok := TransitionFor(ev.Kind)
	if !ok {
		log.Info("ignoring unsupported payment event")
		s.metrics.RecordWebhookEvent(kind, string(OutcomeIgnored))
		return Result{Outcome: OutcomeIgnored}, nil
	}

	if storage.IsUnconfigured(s.repo) {
		s.metrics.RecordWebhookEvent(kind, outcomeFailed)
		return Result{}, apperr.New(apperr.KindStoreUnavailable, "service temporarily unavailable: storage is not configured")
	}

	if ev.CustomerEmail == "" {
		s.metrics.RecordWebhookEvent(kind, outcomeInvalid)
		return Result{}, apperr.Validation("customer email is missing")
	}

	user, err := s.resolveUser(ctx, ev.CustomerEmail)
	if err != nil {
		if apperr.Is(err, apperr.KindUnknownCustomer) {
			log.Warn("payment event for unknown customer", slog.String("email", ev.CustomerEmail))
			s.metrics.RecordWebhookEvent(kind, outcomeUnknownCustomer)
		} else {
			log.Error("failed to resolve customer", sl.Err(err))
			s.metrics.RecordWebhookEvent(kind, outcomeFailed)
		}
		return Result{}, err
	}
	log = log.With(slog.String("user_id", user.ID))
	res := Result{Outcome: OutcomeApplied, UserID: user.ID}

	recorded, duplicate, txErr := s.record(ctx, user.ID, ev, transition)
	res.TransactionRecorded = recorded
	if duplicate {
		res.Outcome = OutcomeDuplicate
		current, err := s.isLatest(ctx, user.ID, ev, transition)
		if err != nil {
			log.Error("failed to check latest transaction", sl.Err(err))
			s.metrics.RecordWebhookEvent(kind, outcomeFailed)
			return res, storeError(err)
		}
		if !current {
			// более новая транзакция уже определила статус
			log.Info("duplicate payment event superseded by a newer one")
			res.CurrentStatus = user.SubscriptionStatus
			s.metrics.RecordWebhookEvent(kind, string(OutcomeDuplicate))
			return res, nil
		}
	}
	if txErr != nil {
		if errors.Is(txErr, storage.ErrUserNotFound) {
			s.metrics.RecordWebhookEvent(kind, outcomeUnknownCustomer)
			return res, apperr.Wrap(apperr.KindUnknownCustomer, "customer not found", txErr)
		}
		log.Error("failed to record transaction", sl.Err(txErr))
	}

	previous, err := s.repo.UpdateSubscriptionStatus(ctx, user.ID, transition.SubscriptionStatus)
	if err != nil {
		log.Error("failed to update subscription status", sl.Err(err))
		s.metrics.RecordWebhookEvent(kind, outcomeFailed)
		if errors.Is(err, storage.ErrUserNotFound) {
			return res, apperr.Wrap(apperr.KindUnknownCustomer, "customer not found", err)
		}
		return res, storeError(err)
	}
	res.StatusUpdated = true
	res.PreviousStatus = previous
	res.CurrentStatus = transition.SubscriptionStatus

	if previous != transition.SubscriptionStatus {
		s.onStatusChanged(ctx, log, user, ev, previous, transition.SubscriptionStatus)
	}

	if txErr != nil {
		s.metrics.RecordWebhookEvent(kind, outcomeFailed)
		if errors.Is(txErr, storage.ErrUnavailable) {
			return res, apperr.Wrap(apperr.KindStoreUnavailable, "failed to record transaction", txErr)
		}
		return res, apperr.Internal("failed to record transaction", txErr)
	}

	s.metrics.RecordWebhookEvent(kind, string(res.Outcome))
	log.Info("payment event reconciled",
		slog.String("outcome", string(res.Outcome)),
		slog.String("previous_status", string(previous)),
		slog.String("status", string(res.CurrentStatus)),
	)
	return res, nil
}

// resolveUser находит единственного пользователя с email покупателя.
func (s *Service) resolveUser(ctx context.Context, email string) (*models.User, error) {
	users, err := s.repo.FindUsersByEmail(ctx, email, 2)
	if err != nil {
		return nil, storeError(err)
	}
	switch len(users) {
	case 1:
		return users[0], nil
	case 0:
		return nil, apperr.New(apperr.KindUnknownCustomer, "customer not found")
	default:
		return nil, apperr.New(apperr.KindUnknownCustomer, "customer email matches more than one user")
	}
}

// record добавляет транзакцию в журнал. duplicate — такая запись уже есть.
func (s *Service) record(ctx context.Context, userID string, ev models.PaymentEvent,
	transition Transition) (recorded, duplicate bool, err error) {
	amount := s.defaultAmount
	if ev.HasAmount {
		amount = ev.Amount
	}
	date := ev.OccurredAt
	if date.IsZero() {
		date = s.now().UTC()
	}
	tx := models.Transaction{
		UserID:          userID,
		TransactionDate: date,
		Status:          transition.TransactionStatus,
		Amount:          amount,
	}
	if ev.ExternalTransactionID != "" {
		externalID := ev.ExternalTransactionID
		tx.ExternalTransactionID = &externalID
	}

	_, err = s.repo.CreateTransaction(ctx, tx)
	switch {
	case err == nil:
		return true, false, nil
	case errors.Is(err, storage.ErrTransactionExists):
		return false, true, nil
	default:
		return false, false, err
	}
}

// isLatest сообщает, что запись этого события — последняя в журнале пользователя,
// то есть повторная доставка может безопасно применить статус ещё раз.
func (s *Service) isLatest(ctx context.Context, userID string, ev models.PaymentEvent, transition Transition) (bool, error) {
	latest, err := s.repo.LatestTransaction(ctx, userID)
	if err != nil {
		return false, err
	}
	if latest == nil || latest.ExternalTransactionID == nil {
		return false, nil
	}
	return *latest.ExternalTransactionID == ev.ExternalTransactionID &&
		latest.Status == transition.TransactionStatus, nil
}

func (s *Service) onStatusChanged(ctx context.Context, log *slog.Logger, user *models.User,
	ev models.PaymentEvent, from, to models.SubscriptionStatus) {
	s.metrics.RecordStatusTransition(string(from), string(to))

	if err := s.cache.Invalidate(ctx, cache.UserKey(user.ID)); err != nil {
		log.Warn("failed to invalidate cached user", sl.Err(err))
	}

	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now().UTC()
	}
	change := models.StatusChange{
		UserID:                user.ID,
		Email:                 user.Email,
		From:                  from,
		To:                    to,
		Event:                 string(ev.Kind),
		ExternalTransactionID: ev.ExternalTransactionID,
		OccurredAt:            occurredAt,
	}
	if err := s.publisher.PublishStatusChange(ctx, change); err != nil {
		log.Error("failed to publish status change", sl.Err(err))
	}
}

func storeError(err error) *apperr.Error {
	if errors.Is(err, storage.ErrUnavailable) {
		return apperr.Wrap(apperr.KindStoreUnavailable, "service temporarily unavailable", err)
	}
	return apperr.Internal("internal error", err)
}
