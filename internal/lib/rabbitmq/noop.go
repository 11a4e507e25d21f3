package rabbitmq

import (
	"context"

	"github.com/magabrotheeeer/dating-app/internal/models"
)

// NoopPublisher используется, когда RabbitMQ не настроен.
type NoopPublisher struct{}

func (NoopPublisher) PublishStatusChange(context.Context, models.StatusChange) error { return nil }

func (NoopPublisher) Close() error { return nil }
