package paymentprovider

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrCheckoutNotConfigured — не задан адрес страницы оплаты или идентификатор продукта.
var ErrCheckoutNotConfigured = errors.New("checkout is not configured")

// CheckoutURL собирает ссылку на страницу оплаты продукта с предзаполненными email и именем.
func CheckoutURL(baseURL, productID, email, name string) (string, error) {
	const op = "paymentprovider.CheckoutURL"
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(productID) == "" {
		return "", fmt.Errorf("%s: %w", op, ErrCheckoutNotConfigured)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	u = u.JoinPath(productID)

	q := u.Query()
	q.Set("email", email)
	q.Set("name", name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
