package events

import "time"

// Exchange names
const (
	ExchangeOrders   = "orders.events"
	ExchangePayments = "payments.events"
)

// Routing keys
const (
	RoutingKeyOrderCreated     = "order.created"
	RoutingKeyOrderPaid        = "order.paid"
	RoutingKeyOrderDelivered   = "order.delivered"
	RoutingKeyPaymentSucceeded = "payment.succeeded"
)

// OrderCreatedEvent is published when an order is created
type OrderCreatedEvent struct {
	Version   string              `json:"version"`
	EventType string              `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	TraceID   string              `json:"trace_id"`
	Payload   OrderCreatedPayload `json:"payload"`
}

// OrderCreatedPayload contains order data
type OrderCreatedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber int       `json:"order_number"`
	UserID      string    `json:"user_id"`
	TotalCents  int64     `json:"total_cents"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(orderID string, orderNumber int, userID string, totalCents int64, itemCount int, createdAt time.Time, traceID string) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		Version:   "1.0",
		EventType: RoutingKeyOrderCreated,
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload: OrderCreatedPayload{
			OrderID:     orderID,
			OrderNumber: orderNumber,
			UserID:      userID,
			TotalCents:  totalCents,
			ItemCount:   itemCount,
			CreatedAt:   createdAt,
		},
	}
}

// SellerSettlement is one seller's share of a paid order
type SellerSettlement struct {
	SellerID    string `json:"seller_id"`
	AmountCents int64  `json:"amount_cents"`
}

// OrderPaidEvent is published when payment is confirmed and sellers settled
type OrderPaidEvent struct {
	Version   string           `json:"version"`
	EventType string           `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`
	TraceID   string           `json:"trace_id"`
	Payload   OrderPaidPayload `json:"payload"`
}

// OrderPaidPayload contains settlement data
type OrderPaidPayload struct {
	OrderID     string             `json:"order_id"`
	UserID      string             `json:"user_id"`
	TotalCents  int64              `json:"total_cents"`
	Settlements []SellerSettlement `json:"settlements"`
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(orderID, userID string, totalCents int64, settlements []SellerSettlement, traceID string) *OrderPaidEvent {
	return &OrderPaidEvent{
		Version:   "1.0",
		EventType: RoutingKeyOrderPaid,
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload: OrderPaidPayload{
			OrderID:     orderID,
			UserID:      userID,
			TotalCents:  totalCents,
			Settlements: settlements,
		},
	}
}

// OrderDeliveredEvent is published when fulfillment completes
type OrderDeliveredEvent struct {
	Version   string                `json:"version"`
	EventType string                `json:"event_type"`
	Timestamp time.Time             `json:"timestamp"`
	TraceID   string                `json:"trace_id"`
	Payload   OrderDeliveredPayload `json:"payload"`
}

// OrderDeliveredPayload contains delivery data
type OrderDeliveredPayload struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// NewOrderDeliveredEvent creates a new OrderDeliveredEvent
func NewOrderDeliveredEvent(orderID, userID string, deliveredAt time.Time, traceID string) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		Version:   "1.0",
		EventType: RoutingKeyOrderDelivered,
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload: OrderDeliveredPayload{
			OrderID:     orderID,
			UserID:      userID,
			DeliveredAt: deliveredAt,
		},
	}
}

// PaymentSucceededEvent is consumed from the payment processor's
// confirmation channel
type PaymentSucceededEvent struct {
	Version   string                  `json:"version"`
	EventType string                  `json:"event_type"`
	Timestamp time.Time               `json:"timestamp"`
	TraceID   string                  `json:"trace_id"`
	Payload   PaymentSucceededPayload `json:"payload"`
}

// PaymentSucceededPayload identifies the paid order
type PaymentSucceededPayload struct {
	OrderID string `json:"order_id"`
}
