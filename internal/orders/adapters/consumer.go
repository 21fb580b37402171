package adapters

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"souq-backend/internal/orders/domain"
	apperrors "souq-backend/pkg/errors"
	"souq-backend/pkg/events"
	"souq-backend/pkg/logger"
	"souq-backend/pkg/rabbitmq"
)

// PaymentConfirmer settles a paid order; implemented by the order use case
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, orderID string) (*domain.Order, error)
}

// PaymentSucceededConsumer is the processor's confirmation channel: it
// consumes payment.succeeded events and drives settlement through the
// engine. Repeat confirmations are acknowledged as no-ops.
type PaymentSucceededConsumer struct {
	consumer  *rabbitmq.Consumer
	confirmer PaymentConfirmer
	log       *logger.Logger
}

// NewPaymentSucceededConsumer creates a consumer bound to the payments exchange
func NewPaymentSucceededConsumer(conn *rabbitmq.Connection, confirmer PaymentConfirmer, log *logger.Logger) (*PaymentSucceededConsumer, error) {
	consumer, err := rabbitmq.NewConsumer(
		conn,
		"orders.payment-succeeded", // queue name
		events.ExchangePayments,    // exchange
		[]string{events.RoutingKeyPaymentSucceeded},
		log,
	)
	if err != nil {
		return nil, err
	}

	return &PaymentSucceededConsumer{
		consumer:  consumer,
		confirmer: confirmer,
		log:       log,
	}, nil
}

// Start starts consuming payment.succeeded events
func (c *PaymentSucceededConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *PaymentSucceededConsumer) handleMessage(ctx context.Context, body []byte) error {
	var event events.PaymentSucceededEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.log.WithContext(ctx).Error("failed to unmarshal PaymentSucceededEvent",
			zap.Error(err),
		)
		// Malformed payloads never become valid; drop instead of requeue.
		return nil
	}

	orderID := event.Payload.OrderID
	if orderID == "" {
		c.log.WithContext(ctx).Error("payment.succeeded event carries no order id")
		return nil
	}

	if _, err := c.confirmer.ConfirmPayment(ctx, orderID); err != nil {
		if apperrors.Is(err, apperrors.CodeConflict) {
			c.log.WithContext(ctx).Info("order already settled, ignoring repeat confirmation",
				zap.String("order_id", orderID),
			)
			return nil
		}
		return err
	}

	c.log.WithContext(ctx).Info("settled order from payment event",
		zap.String("order_id", orderID),
	)

	return nil
}
