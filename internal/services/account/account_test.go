package account_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/dating-app/internal/cache"
	"github.com/magabrotheeeer/dating-app/internal/lib/apperr"
	"github.com/magabrotheeeer/dating-app/internal/lib/password"
	"github.com/magabrotheeeer/dating-app/internal/metrics"
	"github.com/magabrotheeeer/dating-app/internal/models"
	"github.com/magabrotheeeer/dating-app/internal/services/account"
	"github.com/magabrotheeeer/dating-app/internal/storage"
	"github.com/magabrotheeeer/dating-app/internal/storage/memory"
)

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(users account.UserRepository, c account.Cache, p account.Publisher) *account.Service {
	return account.New(discardLogger(), users, c, p, metrics.Nop{}, account.WithClock(func() time.Time { return fixedNow }))
}

func newMemoryService() (*account.Service, *memory.Storage) {
	store := memory.New()
	return newService(store, cache.Noop{}, &noopPublisher{}), store
}

type noopPublisher struct{}

func (noopPublisher) PublishStatusChange(context.Context, models.StatusChange) error { return nil }

func validInput() account.RegisterInput {
	return account.RegisterInput{
		Name:      "Ana",
		Email:     "ana@x.com",
		Password:  "secret1",
		BirthDate: "1995-04-10",
	}
}

func TestRegister(t *testing.T) {
	svc, store := newMemoryService()
	ctx := context.Background()

	in := validInput()
	in.Email = "  Ana@X.com "
	user, err := svc.Register(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ana@x.com", user.Email)
	assert.Equal(t, models.StatusPending, user.SubscriptionStatus)
	assert.Equal(t, time.Date(1995, 4, 10, 0, 0, 0, 0, time.UTC), user.BirthDate)

	stored, err := store.GetUserByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	require.NoError(t, password.CompareHash(stored.PasswordHash, "secret1"))
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *account.RegisterInput)
		wantMsg string
	}{
		{
			name:    "missing name",
			mutate:  func(in *account.RegisterInput) { in.Name = "  " },
			wantMsg: "all fields are required",
		},
		{
			name:    "missing birth date",
			mutate:  func(in *account.RegisterInput) { in.BirthDate = "" },
			wantMsg: "all fields are required",
		},
		{
			name:    "malformed email",
			mutate:  func(in *account.RegisterInput) { in.Email = "ana-at-x.com" },
			wantMsg: "invalid email",
		},
		{
			name:    "short password",
			mutate:  func(in *account.RegisterInput) { in.Password = "12345" },
			wantMsg: "password must be at least 6 characters",
		},
		{
			name:    "long password",
			mutate:  func(in *account.RegisterInput) { in.Password = strings.Repeat("a", 73) },
			wantMsg: "password must be at most 72 characters",
		},
		{
			name:    "multibyte password over 72 bytes",
			mutate:  func(in *account.RegisterInput) { in.Password = strings.Repeat("é", 40) },
			wantMsg: "password must be at most 72 bytes",
		},
		{
			name:    "bad date format",
			mutate:  func(in *account.RegisterInput) { in.BirthDate = "10/04/1995" },
			wantMsg: "invalid birth date, expected YYYY-MM-DD",
		},
		{
			name:    "future birth date",
			mutate:  func(in *account.RegisterInput) { in.BirthDate = "2030-01-01" },
			wantMsg: "birth date is in the future",
		},
		{
			name:    "under age by one day",
			mutate:  func(in *account.RegisterInput) { in.BirthDate = "2008-06-16" },
			wantMsg: "you must be at least 18 years old",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newMemoryService()
			in := validInput()
			tt.mutate(&in)

			user, err := svc.Register(context.Background(), in)
			require.Error(t, err)
			assert.Nil(t, user)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
			assert.Equal(t, tt.wantMsg, apperr.Message(err))
		})
	}
}

func TestRegisterExactlyEighteen(t *testing.T) {
	svc, _ := newMemoryService()
	in := validInput()
	in.BirthDate = "2008-06-15"

	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Email = "ANA@x.com"
	_, err = svc.Register(ctx, in)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDuplicateEmail))
	assert.Equal(t, "email already registered", apperr.Message(err))
}

func TestRegisterStoreFailure(t *testing.T) {
	repo := new(UserRepoMock)
	repo.On("CreateUser", mock.Anything, mock.AnythingOfType("models.User")).
		Return(nil, errors.New("connection reset")).Once()

	svc := newService(repo, cache.Noop{}, noopPublisher{})
	_, err := svc.Register(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Equal(t, "internal error", apperr.Message(err))
	repo.AssertExpectations(t)
}

func TestUnconfiguredStore(t *testing.T) {
	svc := newService(storage.Unconfigured{Reason: "no connection string"}, cache.Noop{}, noopPublisher{})
	ctx := context.Background()
	id := uuid.NewString()

	_, err := svc.Register(ctx, validInput())
	assert.True(t, apperr.Is(err, apperr.KindStoreUnavailable))

	_, err = svc.Authenticate(ctx, "ana@x.com", "secret1")
	assert.True(t, apperr.Is(err, apperr.KindStoreUnavailable))

	_, err = svc.GetByID(ctx, id)
	assert.True(t, apperr.Is(err, apperr.KindStoreUnavailable))

	_, err = svc.UpdateProfile(ctx, id, models.UserPatch{Name: strPtr("x")})
	assert.True(t, apperr.Is(err, apperr.KindStoreUnavailable))

	_, err = svc.CancelSubscription(ctx, id)
	assert.True(t, apperr.Is(err, apperr.KindStoreUnavailable))

	_, err = svc.ListTransactions(ctx, id)
	assert.True(t, apperr.Is(err, apperr.KindStoreUnavailable))
}

func TestStoreUnavailableDuringCall(t *testing.T) {
	repo := new(UserRepoMock)
	repo.On("GetUserByEmail", mock.Anything, "ana@x.com").
		Return(nil, storage.ErrUnavailable).Once()

	svc := newService(repo, cache.Noop{}, noopPublisher{})
	_, err := svc.Authenticate(context.Background(), "ana@x.com", "secret1")
	assert.True(t, apperr.Is(err, apperr.KindStoreUnavailable))
	repo.AssertExpectations(t)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantKind apperr.Kind
		wantErr  bool
	}{
		{name: "valid credentials", email: "ana@x.com", password: "secret1"},
		{name: "email is case insensitive", email: " ANA@x.com", password: "secret1"},
		{name: "wrong password", email: "ana@x.com", password: "wrong!!", wantErr: true,
			wantKind: apperr.KindInvalidCredentials},
		{name: "unknown email", email: "nobody@x.com", password: "secret1", wantErr: true,
			wantKind: apperr.KindInvalidCredentials},
		{name: "missing password", email: "ana@x.com", password: "", wantErr: true,
			wantKind: apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, tt.wantKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, registered.ID, user.ID)
		})
	}
}

func TestAuthenticateSameMessageForUnknownAndWrongPassword(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()
	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	_, errWrong := svc.Authenticate(ctx, "ana@x.com", "wrong!!")
	_, errUnknown := svc.Authenticate(ctx, "nobody@x.com", "wrong!!")
	assert.Equal(t, apperr.Message(errWrong), apperr.Message(errUnknown))
}

func TestGetByID(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, registered.Email, got.Email)

	_, err = svc.GetByID(ctx, uuid.NewString())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.GetByID(ctx, "not-a-uuid")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetByIDUsesCache(t *testing.T) {
	id := uuid.NewString()
	repo := new(UserRepoMock)
	c := new(CacheMock)

	c.On("Get", mock.Anything, cache.UserKey(id), mock.Anything).Return(true, nil).Once()

	svc := newService(repo, c, noopPublisher{})
	_, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)

	repo.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
	c.AssertExpectations(t)
}

func TestGetByIDCacheMissPopulatesCache(t *testing.T) {
	id := uuid.NewString()
	user := &models.User{ID: id, Email: "ana@x.com"}
	repo := new(UserRepoMock)
	c := new(CacheMock)

	c.On("Get", mock.Anything, cache.UserKey(id), mock.Anything).Return(false, errors.New("redis down")).Once()
	repo.On("GetUserByID", mock.Anything, id).Return(user, nil).Once()
	c.On("Set", mock.Anything, cache.UserKey(id), user).Return(nil).Once()

	svc := newService(repo, c, noopPublisher{})
	got, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()

	ana, err := svc.Register(ctx, validInput())
	require.NoError(t, err)
	bia := validInput()
	bia.Email = "bia@x.com"
	_, err = svc.Register(ctx, bia)
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, ana.ID, models.UserPatch{Name: strPtr("  Ana Maria ")})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, "ana@x.com", updated.Email)

	updated, err = svc.UpdateProfile(ctx, ana.ID, models.UserPatch{Email: strPtr("ANA.M@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "ana.m@x.com", updated.Email)

	tests := []struct {
		name     string
		id       string
		patch    models.UserPatch
		wantKind apperr.Kind
	}{
		{name: "empty patch", id: ana.ID, patch: models.UserPatch{}, wantKind: apperr.KindValidation},
		{name: "blank name", id: ana.ID, patch: models.UserPatch{Name: strPtr(" ")}, wantKind: apperr.KindValidation},
		{name: "malformed email", id: ana.ID, patch: models.UserPatch{Email: strPtr("nope")}, wantKind: apperr.KindValidation},
		{name: "email taken", id: ana.ID, patch: models.UserPatch{Email: strPtr("bia@x.com")}, wantKind: apperr.KindDuplicateEmail},
		{name: "unknown user", id: uuid.NewString(), patch: models.UserPatch{Name: strPtr("x")}, wantKind: apperr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(ctx, tt.id, tt.patch)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestUpdateProfileInvalidatesCache(t *testing.T) {
	id := uuid.NewString()
	repo := new(UserRepoMock)
	c := new(CacheMock)
	name := "Ana"

	repo.On("UpdateUserProfile", mock.Anything, id, models.UserPatch{Name: &name}).
		Return(&models.User{ID: id, Name: name}, nil).Once()
	c.On("Invalidate", mock.Anything, cache.UserKey(id)).Return(nil).Once()

	svc := newService(repo, c, noopPublisher{})
	_, err := svc.UpdateProfile(context.Background(), id, models.UserPatch{Name: strPtr("Ana")})
	require.NoError(t, err)

	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestCancelSubscription(t *testing.T) {
	store := memory.New()
	pub := new(PublisherMock)
	c := new(CacheMock)
	svc := newService(store, c, pub)
	ctx := context.Background()

	c.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Maybe()
	c.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	user, err := svc.Register(ctx, validInput())
	require.NoError(t, err)
	_, err = store.UpdateSubscriptionStatus(ctx, user.ID, models.StatusActive)
	require.NoError(t, err)

	c.On("Invalidate", mock.Anything, cache.UserKey(user.ID)).Return(nil).Once()
	pub.On("PublishStatusChange", mock.Anything, mock.MatchedBy(func(ch models.StatusChange) bool {
		return ch.UserID == user.ID && ch.From == models.StatusActive &&
			ch.To == models.StatusCancelled && ch.Event == account.EventUserCancel
	})).Return(errors.New("broker down")).Once()

	cancelled, err := svc.CancelSubscription(ctx, user.ID)
	require.NoError(t, err, "publish failures must not fail the cancellation")
	assert.Equal(t, models.StatusCancelled, cancelled.SubscriptionStatus)

	// повторная отмена ничего не публикует
	again, err := svc.CancelSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, again.SubscriptionStatus)

	pub.AssertExpectations(t)
	c.AssertExpectations(t)

	_, err = svc.CancelSubscription(ctx, uuid.NewString())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListTransactions(t *testing.T) {
	svc, store := newMemoryService()
	ctx := context.Background()

	user, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	txs, err := svc.ListTransactions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = store.CreateTransaction(ctx, models.Transaction{UserID: user.ID, Status: models.TransactionPaid, Amount: 1990})
	require.NoError(t, err)

	txs, err = svc.ListTransactions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(1990), txs[0].Amount)

	_, err = svc.ListTransactions(ctx, uuid.NewString())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAge(t *testing.T) {
	birth := time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 17, account.Age(birth, time.Date(2018, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 18, account.Age(birth, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 26, account.Age(birth, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)))
}

func strPtr(s string) *string { return &s }
