package paymentprovider

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/dating-app/internal/models"
)

var kindAliases = map[string]models.EventKind{
	"order.paid":     models.EventOrderPaid,
	"paid":           models.EventOrderPaid,
	"approved":       models.EventOrderPaid,
	"order_approved": models.EventOrderPaid,

	"order.refunded": models.EventOrderRefunded,
	"refunded":       models.EventOrderRefunded,
	"chargedback":    models.EventOrderRefunded,
	"chargeback":     models.EventOrderRefunded,
	"order_refunded": models.EventOrderRefunded,

	"subscription.cancelled": models.EventSubscriptionCancelled,
	"subscription.canceled":  models.EventSubscriptionCancelled,
	"subscription_canceled":  models.EventSubscriptionCancelled,
	"subscription_cancelled": models.EventSubscriptionCancelled,
	"cancelled":              models.EventSubscriptionCancelled,
	"canceled":               models.EventSubscriptionCancelled,
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseKind приводит тип события провайдера к одному из поддерживаемых. Неизвестные дают EventUnknown.
func ParseKind(raw string) models.EventKind {
	if kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return kind
	}
	return models.EventUnknown
}

// Normalize разбирает уведомление Kiwify в любой из двух схем в models.PaymentEvent.
// now используется, когда провайдер не прислал время события.
func Normalize(body []byte, now time.Time) (models.PaymentEvent, error) {
	const op = "paymentprovider.Normalize"

	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return models.PaymentEvent{}, fmt.Errorf("%s: %w: %v", op, ErrMalformedPayload, err)
	}

	var ev models.PaymentEvent
	var rawAmount json.RawMessage
	var rawTime string

	switch {
	case n.Event != "":
		// схема event/data
		ev.RawKind = n.Event
		if n.Data != nil {
			ev.CustomerEmail = emailOf(n.Data.Customer)
			ev.CustomerName = n.Data.Customer.displayName()
			ev.ExternalTransactionID = firstNonEmpty(n.Data.OrderID, n.Data.SubscriptionID)
			rawAmount = n.Data.OrderAmount
			rawTime = n.Data.CreatedAt
		}
	case n.OrderStatus != "" || n.WebhookEventType != "":
		// плоская схема
		ev.RawKind = firstNonEmpty(n.WebhookEventType, n.OrderStatus)
		ev.CustomerEmail = firstNonEmpty(n.CustomerEmail, emailOf(n.Customer))
		ev.CustomerName = firstNonEmpty(n.CustomerName, n.Customer.displayName())
		ev.ExternalTransactionID = firstNonEmpty(n.OrderID, n.SubscriptionID)
		rawAmount = n.SaleValue
		rawTime = n.SaleDate
	default:
		return models.PaymentEvent{}, fmt.Errorf("%s: %w: no event type", op, ErrMalformedPayload)
	}

	ev.Kind = ParseKind(ev.RawKind)
	// в плоской схеме webhook_event_type может быть неизвестен, а order_status — нет
	if ev.Kind == models.EventUnknown && n.Event == "" && n.OrderStatus != "" {
		if kind := ParseKind(n.OrderStatus); kind != models.EventUnknown {
			ev.Kind = kind
			ev.RawKind = n.OrderStatus
		}
	}
	ev.CustomerEmail = NormalizeEmail(ev.CustomerEmail)
	ev.CustomerName = strings.TrimSpace(ev.CustomerName)

	if len(rawAmount) > 0 && string(rawAmount) != "null" {
		cents, err := parseAmount(rawAmount)
		if err != nil {
			return models.PaymentEvent{}, fmt.Errorf("%s: %w: %v", op, ErrMalformedPayload, err)
		}
		ev.Amount = cents
		ev.HasAmount = true
	}

	ev.OccurredAt = parseTime(rawTime, now)
	return ev, nil
}

// NormalizeEmail приводит email к виду, в котором он хранится: без пробелов по краям и в нижнем регистре.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailOf(c *customer) string {
	if c == nil {
		return ""
	}
	return c.Email
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parseTime(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now
}

// parseAmount принимает число или строку с суммой в основных единицах и возвращает центы.
func parseAmount(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return 0, fmt.Errorf("amount is neither number nor string: %s", raw)
		}
		s = num.String()
	}
	return ParseCents(s)
}

// ParseCents переводит десятичную сумму ("19.90", "19,9", "20") в центы без потерь округления.
// Отрицательные суммы и суммы, не помещающиеся в int64 центов, отклоняются.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, errors.New("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount %q", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	frac += strings.Repeat("0", 2-len(frac))

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if units > (math.MaxInt64-99)/100 {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return units*100 + cents, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
