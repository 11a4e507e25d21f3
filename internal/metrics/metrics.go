// Package metrics собирает метрики сервиса в Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы обработки платёжного события.
const (
	OutcomeApplied         = "applied"
	OutcomeDuplicate       = "duplicate"
	OutcomeIgnored         = "ignored"
	OutcomeUnknownCustomer = "unknown_customer"
	OutcomeInvalid         = "invalid"
	OutcomeFailed          = "failed"
)

// Collector хранит счётчики сервиса и регистрирует их в переданном реестре.
type Collector struct {
	webhookEvents     *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	registrations     *prometheus.CounterVec
	logins            *prometheus.CounterVec
}

// NewCollector создаёт Collector и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dating_webhook_events_total",
			Help: "Платёжные события по типу и исходу обработки",
		}, []string{"kind", "outcome"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dating_subscription_transitions_total",
			Help: "Фактические смены статуса подписки",
		}, []string{"from", "to"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dating_registrations_total",
			Help: "Попытки регистрации по результату",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dating_logins_total",
			Help: "Попытки входа по результату",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.webhookEvents,
		c.statusTransitions,
		c.registrations,
		c.logins,
	)

	return c
}

// RecordWebhookEvent учитывает обработанное платёжное событие.
func (c *Collector) RecordWebhookEvent(kind, outcome string) {
	c.webhookEvents.WithLabelValues(kind, outcome).Inc()
}

// RecordStatusTransition учитывает смену статуса подписки.
func (c *Collector) RecordStatusTransition(from, to string) {
	c.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordRegistration учитывает попытку регистрации.
func (c *Collector) RecordRegistration(result string) {
	c.registrations.WithLabelValues(result).Inc()
}

// RecordLogin учитывает попытку входа.
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// Handler возвращает HTTP-обработчик для сбора метрик Prometheus.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop ничего не записывает. Используется в тестах сервисов.
type Nop struct{}

func (Nop) RecordWebhookEvent(string, string)     {}
func (Nop) RecordStatusTransition(string, string) {}
func (Nop) RecordRegistration(string)             {}
func (Nop) RecordLogin(string)                    {}
