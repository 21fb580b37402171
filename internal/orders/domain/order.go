package domain

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how the purchaser pays for an order
type PaymentMethod string

const (
	PaymentMethodCOD         PaymentMethod = "COD"
	PaymentMethodCreditCard  PaymentMethod = "CreditCard"
	PaymentMethodInstallment PaymentMethod = "Installment"
)

// ShippingMethod is how an order reaches the purchaser
type ShippingMethod string

const (
	ShippingMethodHomeDelivery  ShippingMethod = "HomeDelivery"
	ShippingMethodPickupStation ShippingMethod = "PickupStation"
)

// PaymentStatus tracks the payment side of the order lifecycle.
// Pending may move to Paid or Failed; Paid is terminal.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

// OrderStatus tracks the fulfillment side of the order lifecycle.
// Delivered and Cancelled are terminal.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// ValidPaymentMethod reports whether m is a known payment method
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCreditCard, PaymentMethodInstallment:
		return true
	}
	return false
}

// ValidShippingMethod reports whether m is a known shipping method
func ValidShippingMethod(m ShippingMethod) bool {
	switch m {
	case ShippingMethodHomeDelivery, ShippingMethodPickupStation:
		return true
	}
	return false
}

// ValidOrderStatus reports whether s is a known order status
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s permits no further order status transitions
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// OrderItem is one purchased line, captured at creation time. Unit prices
// are historical fact: later catalog changes never affect an existing order.
type OrderItem struct {
	ProductID      string
	SellerID       string
	Quantity       int
	UnitPriceCents int64
}

// SubtotalCents returns quantity times unit price for this line
func (i OrderItem) SubtotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// ShippingAddress is the destination captured with the order
type ShippingAddress struct {
	FullName       string
	Phone          string
	Address        string
	City           string
	Region         string
	AdditionalInfo string
}

// Complete reports whether every required address field is present
func (a ShippingAddress) Complete() bool {
	return a.FullName != "" && a.Phone != "" && a.Address != "" &&
		a.City != "" && a.Region != ""
}

// SellerCredit is one seller's share of a paid order
type SellerCredit struct {
	SellerID    string
	AmountCents int64
}

// Order is the aggregate root. Once created it is owned exclusively by the
// order store and mutated only through the lifecycle operations.
type Order struct {
	ID              string
	OrderNumber     int
	UserID          string
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	ShippingMethod  ShippingMethod
	ShippingCents   int64
	TotalCents      int64
	PaymentStatus   PaymentStatus
	OrderStatus     OrderStatus
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrder builds and validates a new order in state (Pending, Pending).
// The submitted total must equal the recomputed items total plus shipping;
// the client value is an assertion to verify, not a source of truth.
func NewOrder(userID string, items []OrderItem, address ShippingAddress,
	paymentMethod PaymentMethod, shippingMethod ShippingMethod,
	shippingCents, totalCents int64) (*Order, error) {

	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, item := range items {
		if item.ProductID == "" {
			return nil, ErrProductRefRequired
		}
		if item.SellerID == "" {
			return nil, ErrSellerRefRequired
		}
		if item.Quantity <= 0 {
			return nil, ErrItemQuantity
		}
		if item.UnitPriceCents < 0 {
			return nil, ErrItemPrice
		}
	}
	if !address.Complete() {
		return nil, ErrAddressIncomplete
	}
	if !ValidPaymentMethod(paymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if !ValidShippingMethod(shippingMethod) {
		return nil, ErrInvalidShippingMethod
	}
	if shippingCents < 0 {
		return nil, ErrShippingPrice
	}

	order := &Order{
		ID:              uuid.New().String(),
		OrderNumber:     NewOrderNumber(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: address,
		PaymentMethod:   paymentMethod,
		ShippingMethod:  shippingMethod,
		ShippingCents:   shippingCents,
		TotalCents:      totalCents,
		PaymentStatus:   PaymentStatusPending,
		OrderStatus:     OrderStatusPending,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if expected := order.ItemsTotalCents() + shippingCents; totalCents != expected {
		return nil, NewTotalMismatch(totalCents, expected)
	}

	return order, nil
}

// NewOrderNumber draws a human-facing five digit order number. Uniqueness is
// enforced by the store at write time; callers retry on collision.
func NewOrderNumber() int {
	return 10000 + rand.Intn(90000)
}

// ItemsTotalCents returns the recomputed sum of all line subtotals
func (o *Order) ItemsTotalCents() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.SubtotalCents()
	}
	return total
}

// SellerSubtotals groups line subtotals by seller, preserving the order in
// which each seller first appears. The credited sum always equals the items
// total.
func (o *Order) SellerSubtotals() []SellerCredit {
	index := make(map[string]int, len(o.Items))
	var credits []SellerCredit

	for _, item := range o.Items {
		if i, ok := index[item.SellerID]; ok {
			credits[i].AmountCents += item.SubtotalCents()
			continue
		}
		index[item.SellerID] = len(credits)
		credits = append(credits, SellerCredit{
			SellerID:    item.SellerID,
			AmountCents: item.SubtotalCents(),
		})
	}

	return credits
}
