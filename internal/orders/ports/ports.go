package ports

import (
	"context"
	"time"

	"gorm.io/gorm"

	"souq-backend/internal/orders/domain"
)

// ListFilter narrows order listings
type ListFilter struct {
	// UserID restricts results to one purchaser when non-empty
	UserID string
	// Status restricts results to one order status when non-empty
	Status domain.OrderStatus
}

// TxRunner executes a function inside a storage transaction. Lifecycle
// transitions that touch several aggregates commit or roll back as one unit.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// WithTx returns a repository scoped to the given transaction
	WithTx(tx *gorm.DB) OrderRepository

	// Create persists a new order; a duplicate order number surfaces as
	// gorm.ErrDuplicatedKey so the caller can redraw
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its items
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List retrieves orders matching the filter, newest first
	List(ctx context.Context, filter ListFilter) ([]*domain.Order, error)

	// Delete removes an order by ID
	Delete(ctx context.Context, id string) error

	// UpdateStatus sets the order status and stamps, administrative path
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, deliveredAt, cancelledAt *time.Time) error

	// SetProcessing moves the order status to Processing (COD initiation).
	// Returns false when the order is Delivered or Cancelled.
	SetProcessing(ctx context.Context, id string) (bool, error)

	// MarkPaid atomically transitions payment status Pending to Paid and
	// order status to Processing. Returns false when the order was not in
	// Pending or sits in a terminal order status, so concurrent
	// confirmations admit exactly one winner and a cancelled order is
	// never resurrected by a late confirmation.
	MarkPaid(ctx context.Context, id string) (bool, error)

	// MarkDelivered atomically transitions a paid, non-terminal order to
	// Delivered and stamps the delivery time. Returns false when the
	// precondition no longer holds.
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) (bool, error)
}

// ProductInfo is the catalog's view of a product
type ProductInfo struct {
	ID         string
	Name       string
	SellerID   string
	PriceCents int64
	Stock      int
}

// InventoryLedger exposes catalog stock owned by the product service
type InventoryLedger interface {
	// GetProduct retrieves price, stock and seller for a product
	GetProduct(ctx context.Context, productID string) (*ProductInfo, error)

	// GetStock reads the current stock level
	GetStock(ctx context.Context, productID string) (int, error)

	// DecrementStock conditionally subtracts qty where stock covers it,
	// in a single atomic statement. Returns false when stock is short.
	// Runs inside the given transaction so a later failure restores it.
	DecrementStock(ctx context.Context, tx *gorm.DB, productID string, qty int) (bool, error)
}

// SellerLedger exposes seller balances owned by the seller registry
type SellerLedger interface {
	// CreditBalance atomically adds amountCents to the seller's balance
	// inside the given transaction, recording the settlement keyed by
	// (orderID, sellerID) so retries credit at most once
	CreditBalance(ctx context.Context, tx *gorm.DB, orderID, sellerID string, amountCents int64) error
}

// PaymentGateway wraps the external payment processor
type PaymentGateway interface {
	// CreateIntent registers a payment of amountCents and returns the
	// client-confirmable secret
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (string, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// PublishOrderCreated publishes an order created event
	PublishOrderCreated(ctx context.Context, order *domain.Order) error

	// PublishOrderPaid publishes a settlement event
	PublishOrderPaid(ctx context.Context, order *domain.Order, credits []domain.SellerCredit) error

	// PublishOrderDelivered publishes a fulfillment event
	PublishOrderDelivered(ctx context.Context, order *domain.Order) error
}
