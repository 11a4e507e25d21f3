// Package account содержит бизнес-логику учётных записей: регистрацию, вход,
// чтение и изменение профиля, отмену подписки и историю платежей.
package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/dating-app/internal/cache"
	"github.com/magabrotheeeer/dating-app/internal/lib/apperr"
	"github.com/magabrotheeeer/dating-app/internal/lib/password"
	"github.com/magabrotheeeer/dating-app/internal/lib/sl"
	"github.com/magabrotheeeer/dating-app/internal/models"
	"github.com/magabrotheeeer/dating-app/internal/storage"
)

// MinAge — минимальный возраст пользователя сервиса.
const MinAge = 18

// BirthDateLayout — формат даты рождения во входных данных.
const BirthDateLayout = "2006-01-02"

// EventUserCancel — значение поля Event в StatusChange при отмене подписки самим пользователем.
const EventUserCancel = "user.cancel_request"

const (
	msgUnavailable        = "service temporarily unavailable: storage is not configured"
	msgUserNotFound       = "user not found"
	msgEmailTaken         = "email already registered"
	msgInvalidCredentials = "invalid credentials"
)

// UserRepository описывает операции хранилища, нужные сервису.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	UpdateSubscriptionStatus(ctx context.Context, id string, status models.SubscriptionStatus) (models.SubscriptionStatus, error)
	ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error)
}

// Cache кеширует профили пользователей.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, key string) error
}

// Publisher отправляет события о смене статуса подписки.
type Publisher interface {
	PublishStatusChange(ctx context.Context, change models.StatusChange) error
}

// Metrics учитывает результаты операций.
type Metrics interface {
	RecordRegistration(result string)
	RecordLogin(result string)
	RecordStatusTransition(from, to string)
}

// RegisterInput — данные для регистрации.
type RegisterInput struct {
	Name      string `validate:"required"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=6,max=72"`
	BirthDate string `validate:"required"`
}

// Service реализует операции с учётными записями.
type Service struct {
	users     UserRepository
	cache     Cache
	publisher Publisher
	metrics   Metrics
	log       *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник текущего времени (для проверки возраста).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New создаёт сервис учётных записей.
func New(log *slog.Logger, users UserRepository, c Cache, publisher Publisher, metrics Metrics, opts ...Option) *Service {
	s := &Service{
		users:     users,
		cache:     c,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		validate:  validator.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register создаёт пользователя со статусом подписки pending.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "account.Register"
	log := s.log.With(slog.String("op", op))

	if storage.IsUnconfigured(s.users) {
		s.metrics.RecordRegistration("unavailable")
		return nil, apperr.New(apperr.KindStoreUnavailable, msgUnavailable)
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.BirthDate = strings.TrimSpace(in.BirthDate)
	if err := s.validate.Struct(in); err != nil {
		s.metrics.RecordRegistration("invalid")
		return nil, validationError(err)
	}

	birthDate, err := s.parseBirthDate(in.BirthDate)
	if err != nil {
		s.metrics.RecordRegistration("invalid")
		return nil, err
	}

	// validator считает руны, bcrypt ограничен байтами
	if len(in.Password) > password.MaxBytes {
		s.metrics.RecordRegistration("invalid")
		return nil, apperr.Validation("password must be at most 72 bytes")
	}

	hash, err := password.GetHash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			s.metrics.RecordRegistration("invalid")
			return nil, apperr.Wrap(apperr.KindValidation, "password must be at most 72 bytes", err)
		}
		s.metrics.RecordRegistration("error")
		return nil, apperr.Internal("failed to create account", err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Name:               in.Name,
		Email:              in.Email,
		PasswordHash:       hash,
		BirthDate:          birthDate,
		SubscriptionStatus: models.StatusPending,
	})
	if err != nil {
		appErr := storeError(err)
		s.metrics.RecordRegistration(appErr.Kind.String())
		if appErr.Kind != apperr.KindDuplicateEmail {
			log.Error("failed to create user", sl.Err(err))
		}
		return nil, appErr
	}

	s.metrics.RecordRegistration("ok")
	log.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Authenticate проверяет email и пароль. Для неизвестного email и неверного пароля
// возвращается одна и та же ошибка, а время ответа не зависит от существования email.
func (s *Service) Authenticate(ctx context.Context, email, rawPassword string) (*models.User, error) {
	const op = "account.Authenticate"
	log := s.log.With(slog.String("op", op))

	if storage.IsUnconfigured(s.users) {
		return nil, apperr.New(apperr.KindStoreUnavailable, msgUnavailable)
	}

	email = normalizeEmail(email)
	if email == "" || rawPassword == "" {
		s.metrics.RecordLogin("invalid")
		return nil, apperr.Validation("email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			_ = password.CompareDummy(rawPassword)
			s.metrics.RecordLogin(apperr.KindInvalidCredentials.String())
			return nil, apperr.Wrap(apperr.KindInvalidCredentials, msgInvalidCredentials, err)
		}
		log.Error("failed to load user", sl.Err(err))
		return nil, storeError(err)
	}

	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			log.Error("stored password hash is unusable", slog.String("user_id", user.ID), sl.Err(err))
		}
		s.metrics.RecordLogin(apperr.KindInvalidCredentials.String())
		return nil, apperr.Wrap(apperr.KindInvalidCredentials, msgInvalidCredentials, err)
	}

	s.metrics.RecordLogin("ok")
	return user, nil
}

// GetByID возвращает пользователя по ID, сначала пытаясь прочитать его из кеша.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	const op = "account.GetByID"
	log := s.log.With(slog.String("op", op), slog.String("user_id", id))

	if storage.IsUnconfigured(s.users) {
		return nil, apperr.New(apperr.KindStoreUnavailable, msgUnavailable)
	}
	if !validID(id) {
		return nil, apperr.New(apperr.KindNotFound, msgUserNotFound)
	}

	var cached models.User
	found, err := s.cache.Get(ctx, cache.UserKey(id), &cached)
	if err != nil {
		log.Warn("failed to read user from cache", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		appErr := storeError(err)
		if appErr.Kind != apperr.KindNotFound {
			log.Error("failed to load user", sl.Err(err))
		}
		return nil, appErr
	}

	// Set не перетирает недавнюю инвалидацию, см. cache.Cache.Set
	if err := s.cache.Set(ctx, cache.UserKey(id), user); err != nil {
		log.Warn("failed to cache user", sl.Err(err))
	}
	return user, nil
}

// UpdateProfile частично обновляет имя и/или email пользователя.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	const op = "account.UpdateProfile"
	log := s.log.With(slog.String("op", op), slog.String("user_id", id))

	if storage.IsUnconfigured(s.users) {
		return nil, apperr.New(apperr.KindStoreUnavailable, msgUnavailable)
	}
	if !validID(id) {
		return nil, apperr.New(apperr.KindNotFound, msgUserNotFound)
	}
	if patch.Empty() {
		return nil, apperr.Validation("nothing to update: provide name or email")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		patch.Name = &name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if err := s.validate.Var(email, "required,email"); err != nil {
			return nil, apperr.Validation("invalid email")
		}
		patch.Email = &email
	}

	user, err := s.users.UpdateUserProfile(ctx, id, patch)
	if err != nil {
		appErr := storeError(err)
		if appErr.Kind == apperr.KindInternal || appErr.Kind == apperr.KindStoreUnavailable {
			log.Error("failed to update profile", sl.Err(err))
		}
		return nil, appErr
	}

	s.invalidate(ctx, log, id)
	log.Info("profile updated")
	return user, nil
}

// CancelSubscription переводит подписку пользователя в статус cancelled по его запросу.
func (s *Service) CancelSubscription(ctx context.Context, id string) (*models.User, error) {
	const op = "account.CancelSubscription"
	log := s.log.With(slog.String("op", op), slog.String("user_id", id))

	if storage.IsUnconfigured(s.users) {
		return nil, apperr.New(apperr.KindStoreUnavailable, msgUnavailable)
	}
	if !validID(id) {
		return nil, apperr.New(apperr.KindNotFound, msgUserNotFound)
	}

	previous, err := s.users.UpdateSubscriptionStatus(ctx, id, models.StatusCancelled)
	if err != nil {
		appErr := storeError(err)
		if appErr.Kind != apperr.KindNotFound {
			log.Error("failed to cancel subscription", sl.Err(err))
		}
		return nil, appErr
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		log.Error("failed to reload user", sl.Err(err))
		return nil, storeError(err)
	}

	if previous != models.StatusCancelled {
		s.metrics.RecordStatusTransition(string(previous), string(models.StatusCancelled))
		s.invalidate(ctx, log, id)
		change := models.StatusChange{
			UserID:     id,
			Email:      user.Email,
			From:       previous,
			To:         models.StatusCancelled,
			Event:      EventUserCancel,
			OccurredAt: s.now().UTC(),
		}
		if err := s.publisher.PublishStatusChange(ctx, change); err != nil {
			log.Error("failed to publish status change", sl.Err(err))
		}
		log.Info("subscription cancelled", slog.String("previous_status", string(previous)))
	}
	return user, nil
}

// ListTransactions возвращает историю платежей пользователя, начиная с последних.
func (s *Service) ListTransactions(ctx context.Context, id string) ([]*models.Transaction, error) {
	const op = "account.ListTransactions"
	log := s.log.With(slog.String("op", op), slog.String("user_id", id))

	if storage.IsUnconfigured(s.users) {
		return nil, apperr.New(apperr.KindStoreUnavailable, msgUnavailable)
	}
	if !validID(id) {
		return nil, apperr.New(apperr.KindNotFound, msgUserNotFound)
	}

	if _, err := s.users.GetUserByID(ctx, id); err != nil {
		appErr := storeError(err)
		if appErr.Kind != apperr.KindNotFound {
			log.Error("failed to load user", sl.Err(err))
		}
		return nil, appErr
	}

	txs, err := s.users.ListTransactions(ctx, id)
	if err != nil {
		log.Error("failed to list transactions", sl.Err(err))
		return nil, storeError(err)
	}
	return txs, nil
}

func (s *Service) invalidate(ctx context.Context, log *slog.Logger, id string) {
	if err := s.cache.Invalidate(ctx, cache.UserKey(id)); err != nil {
		log.Warn("failed to invalidate cached user", sl.Err(err))
	}
}

func (s *Service) parseBirthDate(raw string) (time.Time, error) {
	birthDate, err := time.Parse(BirthDateLayout, raw)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid birth date, expected YYYY-MM-DD")
	}
	now := s.now().UTC()
	if birthDate.After(now) {
		return time.Time{}, apperr.Validation("birth date is in the future")
	}
	if Age(birthDate, now) < MinAge {
		return time.Time{}, apperr.Validation("you must be at least 18 years old")
	}
	return birthDate, nil
}

// Age возвращает количество полных лет на момент now.
func Age(birthDate, now time.Time) int {
	age := now.Year() - birthDate.Year()
	if now.Month() < birthDate.Month() ||
		(now.Month() == birthDate.Month() && now.Day() < birthDate.Day()) {
		age--
	}
	return age
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// storeError переводит ошибку хранилища в ошибку бизнес-уровня.
func storeError(err error) *apperr.Error {
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		return apperr.Wrap(apperr.KindStoreUnavailable, msgUnavailable, err)
	case errors.Is(err, storage.ErrUserNotFound):
		return apperr.Wrap(apperr.KindNotFound, msgUserNotFound, err)
	case errors.Is(err, storage.ErrUserExists):
		return apperr.Wrap(apperr.KindDuplicateEmail, msgEmailTaken, err)
	default:
		return apperr.Internal("internal error", err)
	}
}

// validationError превращает ошибку validator в сообщение для пользователя по первому полю.
func validationError(err error) *apperr.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apperr.Validation("invalid request")
	}
	for _, fe := range errs {
		if fe.Tag() == "required" {
			return apperr.Validation("all fields are required")
		}
	}
	fe := errs[0]
	switch fe.Tag() {
	case "email":
		return apperr.Validation("invalid email")
	case "min":
		if fe.Field() == "Password" {
			return apperr.Validation("password must be at least 6 characters")
		}
		return apperr.Validation("field " + fe.Field() + " is too short")
	case "max":
		if fe.Field() == "Password" {
			return apperr.Validation("password must be at most 72 characters")
		}
		return apperr.Validation("field " + fe.Field() + " is too long")
	default:
		return apperr.Validation("field " + fe.Field() + " is not valid")
	}
}
