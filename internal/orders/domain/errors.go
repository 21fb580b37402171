package domain

import (
	"fmt"

	"souq-backend/pkg/errors"
)

// Domain-specific errors
var (
	ErrUserIDRequired        = errors.NewValidation("user id is required", nil)
	ErrNoItems               = errors.NewValidation("no order items provided", nil)
	ErrProductRefRequired    = errors.NewValidation("every order item needs a product reference", nil)
	ErrSellerRefRequired     = errors.NewValidation("every order item needs a seller reference", nil)
	ErrItemQuantity          = errors.NewValidation("item quantity must be greater than 0", nil)
	ErrItemPrice             = errors.NewValidation("item unit price must not be negative", nil)
	ErrAddressIncomplete     = errors.NewValidation("shipping address is incomplete", nil)
	ErrInvalidPaymentMethod  = errors.NewValidation("invalid or missing payment method", nil)
	ErrInvalidShippingMethod = errors.NewValidation("invalid or missing shipping method", nil)
	ErrShippingPrice         = errors.NewValidation("shipping price must not be negative", nil)
)

// NewTotalMismatch reports a submitted total that does not match the value
// recomputed from the order's own items and shipping price
func NewTotalMismatch(submitted, expected int64) error {
	return errors.NewValidation("total price does not match the order amount", map[string]interface{}{
		"submitted_cents": submitted,
		"expected_cents":  expected,
	})
}

// NewOrderNotFound creates a not found error with the order ID
func NewOrderNotFound(id string) error {
	return errors.NewNotFound("order", id)
}

// NewAlreadyPaid signals a repeated payment confirmation. Callers treating
// confirmation as idempotent ignore this at the API edge.
func NewAlreadyPaid(id string) error {
	return errors.NewConflict(fmt.Sprintf("order '%s' is already paid", id))
}

// NewAlreadyDelivered signals a repeated completion
func NewAlreadyDelivered(id string) error {
	return errors.NewConflict(fmt.Sprintf("order '%s' is already delivered", id))
}

// NewPaymentRequired rejects completion of an unpaid order
func NewPaymentRequired(id string) error {
	return errors.NewPrecondition(fmt.Sprintf("order '%s' must be paid before completion", id))
}

// NewTerminalStatus rejects transitions out of Delivered or Cancelled
func NewTerminalStatus(id string, status OrderStatus) error {
	return errors.NewConflict(fmt.Sprintf("order '%s' is %s and permits no further transitions", id, status))
}

// NewInsufficientStock names the product that cannot cover the requested
// quantity
func NewInsufficientStock(productID string, requested, available int) error {
	return errors.NewInsufficientStock(
		fmt.Sprintf("insufficient stock for product '%s'", productID),
		map[string]interface{}{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		})
}
