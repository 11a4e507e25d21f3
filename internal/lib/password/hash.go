// Package password реализует одностороннее хеширование и проверку паролей пользователей.
//
// GetHash создает bcrypt-хеш для хранения, CompareHash проверяет введённый пароль,
// а CompareDummy выполняет холостую проверку, чтобы время ответа на вход
// не зависело от существования email.
package password

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxBytes — предел bcrypt на длину пароля в байтах.
const MaxBytes = 72

var (
	// ErrMismatch возвращается, когда пароль не соответствует хэшу.
	ErrMismatch = errors.New("password does not match hash")
	// ErrTooLong возвращается для пароля длиннее MaxBytes байт.
	ErrTooLong = errors.New("password is longer than 72 bytes")
)

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// GetHash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	if len(password) > MaxBytes {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает nil при совпадении, ErrMismatch при несовпадении
// и обёрнутую ошибку bcrypt, если хэш повреждён.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CompareDummy тратит на проверку столько же времени, сколько CompareHash,
// и всегда возвращает ErrMismatch.
func CompareDummy(externalPassword string) error {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dating-app-dummy-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(externalPassword))
	return ErrMismatch
}
