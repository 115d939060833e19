package services

import (
	"context"
	"time"

	"tokoorders/pkg/rabbitmq"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)

// EventPublisher delivers domain events. *rabbitmq.Client implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, routingKey string, env rabbitmq.Envelope) error
}

type OrderPlacedItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderPlacedEvent struct {
	OrderID     int64             `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      int64             `json:"user_id"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Items       []OrderPlacedItem `json:"items"`
}

type OrderStatusChangedEvent struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

type OrderDeletedEvent struct {
	OrderID int64 `json:"order_id"`
}

// publish sends an event for a change that is already committed. Failures
// are logged and otherwise ignored.
func (o options) publish(ctx context.Context, eventType string, payload interface{}, at time.Time) {
	if o.events == nil {
		return
	}
	env, err := rabbitmq.NewEnvelope(eventType, o.producer, requestIDFrom(ctx), payload, at)
	if err != nil {
		o.logger.Warn("failed to build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := o.events.PublishEvent(ctx, eventType, env); err != nil {
		o.logger.Warn("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("event_id", env.EventID),
			zap.Error(err))
	}
}
