package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"souq-backend/internal/orders/domain"
	"souq-backend/internal/orders/ports"
	apperrors "souq-backend/pkg/errors"
	"souq-backend/pkg/logger"
)

// orderNumberAttempts bounds redraws after an order number collision
const orderNumberAttempts = 3

// OrderUseCase drives the order lifecycle: creation, payment initiation,
// settlement, fulfillment and administrative updates. All cross-aggregate
// coordination happens through storage atomicity, never in-process state.
type OrderUseCase struct {
	repo           ports.OrderRepository
	inventory      ports.InventoryLedger
	sellers        ports.SellerLedger
	gateway        ports.PaymentGateway
	publisher      ports.EventPublisher
	tx             ports.TxRunner
	currency       string
	gatewayTimeout time.Duration
	log            *logger.Logger
}

// NewOrderUseCase creates a new order use case
func NewOrderUseCase(
	repo ports.OrderRepository,
	inventory ports.InventoryLedger,
	sellers ports.SellerLedger,
	gateway ports.PaymentGateway,
	publisher ports.EventPublisher,
	tx ports.TxRunner,
	currency string,
	gatewayTimeout time.Duration,
	log *logger.Logger,
) *OrderUseCase {
	if currency == "" {
		currency = "egp"
	}
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &OrderUseCase{
		repo:           repo,
		inventory:      inventory,
		sellers:        sellers,
		gateway:        gateway,
		publisher:      publisher,
		tx:             tx,
		currency:       currency,
		gatewayTimeout: gatewayTimeout,
		log:            log,
	}
}

// OrderItemInput is one requested line item
type OrderItemInput struct {
	ProductID      string
	SellerID       string
	Quantity       int
	UnitPriceCents int64
}

// CreateOrderInput represents the input for creating an order
type CreateOrderInput struct {
	UserID          string
	Items           []OrderItemInput
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	ShippingMethod  domain.ShippingMethod
	ShippingCents   int64
	TotalCents      int64
}

// CreateOrderOutput represents the output of creating an order
type CreateOrderOutput struct {
	Order *domain.Order
}

// CreateOrder validates the request, verifies prices against the catalog and
// persists the order in state (Pending, Pending). No stock or balance is
// touched here; both are deferred to settlement and fulfillment.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderOutput, error) {
	items := make([]domain.OrderItem, len(input.Items))
	for i, item := range input.Items {
		items[i] = domain.OrderItem{
			ProductID:      item.ProductID,
			SellerID:       item.SellerID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		}
	}

	order, err := domain.NewOrder(input.UserID, items, input.ShippingAddress,
		input.PaymentMethod, input.ShippingMethod, input.ShippingCents, input.TotalCents)
	if err != nil {
		return nil, err
	}

	// The submitted unit prices are assertions; the catalog is the source
	// of truth at creation time.
	for _, item := range order.Items {
		product, err := uc.inventory.GetProduct(ctx, item.ProductID)
		if err != nil {
			if apperrors.Is(err, apperrors.CodeNotFound) {
				return nil, apperrors.NewValidation("order references an unknown product", map[string]interface{}{
					"product_id": item.ProductID,
				})
			}
			return nil, err
		}
		if product.SellerID != item.SellerID {
			return nil, apperrors.NewValidation("item seller does not match the catalog", map[string]interface{}{
				"product_id": item.ProductID,
				"seller_id":  item.SellerID,
			})
		}
		if product.PriceCents != item.UnitPriceCents {
			return nil, apperrors.NewValidation("item price does not match the catalog", map[string]interface{}{
				"product_id":      item.ProductID,
				"submitted_cents": item.UnitPriceCents,
				"catalog_cents":   product.PriceCents,
			})
		}
	}

	// Order numbers are random five digit values; redraw on collision.
	for attempt := 0; ; attempt++ {
		err = uc.repo.Create(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < orderNumberAttempts-1 {
			order.OrderNumber = domain.NewOrderNumber()
			continue
		}
		return nil, apperrors.NewPersistence("failed to create order", err)
	}

	// Publish event (async, don't fail on error)
	if uc.publisher != nil {
		if err := uc.publisher.PublishOrderCreated(ctx, order); err != nil {
			uc.log.WithContext(ctx).Error("failed to publish order created event",
				zap.Error(err),
				zap.String("order_id", order.ID),
			)
		}
	}

	uc.log.WithContext(ctx).Info("order created",
		zap.String("order_id", order.ID),
		zap.Int("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID),
		zap.Int64("total_cents", order.TotalCents),
	)

	return &CreateOrderOutput{Order: order}, nil
}

// InitiatePaymentInput represents the input for initiating a payment
type InitiatePaymentInput struct {
	OrderID     string
	Method      domain.PaymentMethod
	AmountCents int64
}

// InitiatePaymentOutput carries the order and, for card methods, the
// client-confirmable secret from the processor
type InitiatePaymentOutput struct {
	Order        *domain.Order
	ClientSecret string
}

// InitiatePayment starts the payment flow for an order. Card and installment
// methods obtain a gateway intent; cash on delivery moves the order straight
// to Processing. The order stays Pending/Pending on gateway failure, so
// initiation is always safe to retry.
func (uc *OrderUseCase) InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*InitiatePaymentOutput, error) {
	order, err := uc.repo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		return nil, domain.NewAlreadyPaid(order.ID)
	}
	if order.OrderStatus.Terminal() {
		return nil, domain.NewTerminalStatus(order.ID, order.OrderStatus)
	}

	if input.AmountCents != order.TotalCents {
		return nil, domain.NewTotalMismatch(input.AmountCents, order.TotalCents)
	}

	switch input.Method {
	case domain.PaymentMethodCreditCard, domain.PaymentMethodInstallment:
		gatewayCtx, cancel := context.WithTimeout(ctx, uc.gatewayTimeout)
		defer cancel()

		secret, err := uc.gateway.CreateIntent(gatewayCtx, order.TotalCents, uc.currency, map[string]string{
			"order_id":       order.ID,
			"user_id":        order.UserID,
			"payment_method": string(input.Method),
		})
		if err != nil {
			return nil, apperrors.NewGateway("payment processor unavailable", err)
		}

		uc.log.WithContext(ctx).Info("payment initiated",
			zap.String("order_id", order.ID),
			zap.String("payment_method", string(input.Method)),
		)

		return &InitiatePaymentOutput{Order: order, ClientSecret: secret}, nil

	case domain.PaymentMethodCOD:
		won, err := uc.repo.SetProcessing(ctx, order.ID)
		if err != nil {
			return nil, apperrors.NewPersistence("failed to move order to processing", err)
		}

		order, err = uc.repo.GetByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if !won {
			return nil, domain.NewTerminalStatus(order.ID, order.OrderStatus)
		}

		uc.log.WithContext(ctx).Info("payment on delivery, order processing",
			zap.String("order_id", order.ID),
		)

		return &InitiatePaymentOutput{Order: order}, nil

	default:
		return nil, apperrors.NewUnsupportedMethod(string(input.Method))
	}
}

// ConfirmPayment settles a paid order: the Pending to Paid transition and
// every seller credit commit in one transaction, or none of them do. A
// second confirmation, concurrent or late, loses the compare-and-set and
// gets a conflict with nothing written.
func (uc *OrderUseCase) ConfirmPayment(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		return nil, domain.NewAlreadyPaid(order.ID)
	}
	if order.OrderStatus.Terminal() {
		return nil, domain.NewTerminalStatus(order.ID, order.OrderStatus)
	}

	credits := order.SellerSubtotals()

	err = uc.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := uc.repo.WithTx(tx)

		won, err := repo.MarkPaid(ctx, order.ID)
		if err != nil {
			return apperrors.NewPersistence("failed to mark order paid", err)
		}
		if !won {
			return domain.NewAlreadyPaid(order.ID)
		}

		for _, credit := range credits {
			if err := uc.sellers.CreditBalance(ctx, tx, order.ID, credit.SellerID, credit.AmountCents); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err = uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if uc.publisher != nil {
		if err := uc.publisher.PublishOrderPaid(ctx, order, credits); err != nil {
			uc.log.WithContext(ctx).Error("failed to publish order paid event",
				zap.Error(err),
				zap.String("order_id", order.ID),
			)
		}
	}

	uc.log.WithContext(ctx).Info("payment confirmed and sellers settled",
		zap.String("order_id", order.ID),
		zap.Int("sellers", len(credits)),
		zap.Int64("total_cents", order.TotalCents),
	)

	return order, nil
}

// CompleteOrder fulfills a paid order: every line's stock is decremented
// conditionally inside one transaction and the order becomes Delivered. Any
// short line rolls the whole operation back, so a partial decrement never
// survives.
func (uc *OrderUseCase) CompleteOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus != domain.PaymentStatusPaid {
		return nil, domain.NewPaymentRequired(order.ID)
	}
	if order.OrderStatus == domain.OrderStatusDelivered {
		return nil, domain.NewAlreadyDelivered(order.ID)
	}
	if order.OrderStatus == domain.OrderStatusCancelled {
		return nil, domain.NewTerminalStatus(order.ID, order.OrderStatus)
	}

	// Advisory pre-check; the conditional decrements below are the
	// authoritative guard against concurrent completions.
	for _, item := range order.Items {
		stock, err := uc.inventory.GetStock(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if stock < item.Quantity {
			return nil, domain.NewInsufficientStock(item.ProductID, item.Quantity, stock)
		}
	}

	deliveredAt := time.Now()

	err = uc.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, item := range order.Items {
			covered, err := uc.inventory.DecrementStock(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return apperrors.NewPersistence("failed to decrement stock", err)
			}
			if !covered {
				stock, _ := uc.inventory.GetStock(ctx, item.ProductID)
				return domain.NewInsufficientStock(item.ProductID, item.Quantity, stock)
			}
		}

		won, err := uc.repo.WithTx(tx).MarkDelivered(ctx, order.ID, deliveredAt)
		if err != nil {
			return apperrors.NewPersistence("failed to mark order delivered", err)
		}
		if !won {
			return domain.NewAlreadyDelivered(order.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err = uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if uc.publisher != nil {
		if err := uc.publisher.PublishOrderDelivered(ctx, order); err != nil {
			uc.log.WithContext(ctx).Error("failed to publish order delivered event",
				zap.Error(err),
				zap.String("order_id", order.ID),
			)
		}
	}

	uc.log.WithContext(ctx).Info("order completed",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
	)

	return order, nil
}

// UpdateOrderStatus sets the order status directly, stamping delivery and
// cancellation times. This administrative path bypasses the payment and
// stock invariants and must stay restricted to trusted roles; terminal
// states still refuse further transitions.
func (uc *OrderUseCase) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return nil, apperrors.NewValidation("unknown order status", map[string]interface{}{
			"order_status": string(status),
		})
	}

	order, err := uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.OrderStatus.Terminal() && status != order.OrderStatus {
		return nil, domain.NewTerminalStatus(order.ID, order.OrderStatus)
	}

	// Stamps are set once and never move.
	deliveredAt := order.DeliveredAt
	cancelledAt := order.CancelledAt
	now := time.Now()
	if status == domain.OrderStatusDelivered && deliveredAt == nil {
		deliveredAt = &now
	}
	if status == domain.OrderStatusCancelled && cancelledAt == nil {
		cancelledAt = &now
	}

	if err := uc.repo.UpdateStatus(ctx, orderID, status, deliveredAt, cancelledAt); err != nil {
		return nil, apperrors.NewPersistence("failed to update order status", err)
	}

	uc.log.WithContext(ctx).Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("order_status", string(status)),
	)

	return uc.repo.GetByID(ctx, orderID)
}

// ListOrders retrieves orders matching the filter
func (uc *OrderUseCase) ListOrders(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	return uc.repo.List(ctx, filter)
}

// GetOrder retrieves a single order
func (uc *OrderUseCase) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return uc.repo.GetByID(ctx, orderID)
}

// DeleteOrder removes an order
func (uc *OrderUseCase) DeleteOrder(ctx context.Context, orderID string) error {
	return uc.repo.Delete(ctx, orderID)
}
