package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Kiwify подписывает уведомления HMAC-SHA1
	"encoding/hex"
	"strings"
)

// SignatureHeader — заголовок, в котором может прийти подпись уведомления.
// Kiwify также передаёт её в query-параметре signature.
const SignatureHeader = "X-Kiwify-Signature"

// Sign возвращает hex-подпись HMAC-SHA1 тела уведомления.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature сравнивает подпись уведомления с ожидаемой за постоянное время.
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.ToLower(strings.TrimSpace(signature))
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
