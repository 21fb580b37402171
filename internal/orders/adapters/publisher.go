package adapters

import (
	"context"

	"souq-backend/internal/orders/domain"
	"souq-backend/pkg/events"
	"souq-backend/pkg/logger"
	"souq-backend/pkg/rabbitmq"
)

// RabbitMQPublisher implements EventPublisher using RabbitMQ
type RabbitMQPublisher struct {
	publisher *rabbitmq.Publisher
	log       *logger.Logger
}

// NewRabbitMQPublisher creates a new RabbitMQ event publisher
func NewRabbitMQPublisher(publisher *rabbitmq.Publisher, log *logger.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		publisher: publisher,
		log:       log,
	}
}

// PublishOrderCreated publishes an order created event
func (p *RabbitMQPublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	traceID := logger.GetTraceID(ctx)

	event := events.NewOrderCreatedEvent(
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.TotalCents,
		len(order.Items),
		order.CreatedAt,
		traceID,
	)

	return p.publisher.Publish(ctx, events.RoutingKeyOrderCreated, event)
}

// PublishOrderPaid publishes a settlement event
func (p *RabbitMQPublisher) PublishOrderPaid(ctx context.Context, order *domain.Order, credits []domain.SellerCredit) error {
	traceID := logger.GetTraceID(ctx)

	settlements := make([]events.SellerSettlement, len(credits))
	for i, credit := range credits {
		settlements[i] = events.SellerSettlement{
			SellerID:    credit.SellerID,
			AmountCents: credit.AmountCents,
		}
	}

	event := events.NewOrderPaidEvent(order.ID, order.UserID, order.TotalCents, settlements, traceID)

	return p.publisher.Publish(ctx, events.RoutingKeyOrderPaid, event)
}

// PublishOrderDelivered publishes a fulfillment event
func (p *RabbitMQPublisher) PublishOrderDelivered(ctx context.Context, order *domain.Order) error {
	traceID := logger.GetTraceID(ctx)

	deliveredAt := order.UpdatedAt
	if order.DeliveredAt != nil {
		deliveredAt = *order.DeliveredAt
	}

	event := events.NewOrderDeliveredEvent(order.ID, order.UserID, deliveredAt, traceID)

	return p.publisher.Publish(ctx, events.RoutingKeyOrderDelivered, event)
}
