package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"souq-backend/internal/orders/domain"
	"souq-backend/internal/orders/ports"
	apperrors "souq-backend/pkg/errors"
)

// OrderModel is the GORM model for orders (persistence layer)
type OrderModel struct {
	ID             string           `gorm:"primaryKey;size:36"`
	OrderNumber    int              `gorm:"uniqueIndex;not null"`
	UserID         string           `gorm:"size:36;index;not null"`
	Items          []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	FullName       string           `gorm:"size:120;not null"`
	Phone          string           `gorm:"size:32;not null"`
	Address        string           `gorm:"size:255;not null"`
	City           string           `gorm:"size:80;not null"`
	Region         string           `gorm:"size:80;not null"`
	AdditionalInfo string           `gorm:"size:255"`
	PaymentMethod  string           `gorm:"size:16;not null"`
	ShippingMethod string           `gorm:"size:16;not null"`
	ShippingCents  int64            `gorm:"not null"`
	TotalCents     int64            `gorm:"not null"`
	PaymentStatus  string           `gorm:"size:10;not null;default:'Pending'"`
	OrderStatus    string           `gorm:"size:12;not null;default:'Pending'"`
	DeliveredAt    *time.Time
	CancelledAt    *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the GORM model for one order line
type OrderItemModel struct {
	ID             uint   `gorm:"primaryKey"`
	OrderID        string `gorm:"size:36;index;not null"`
	ProductID      string `gorm:"size:36;not null"`
	SellerID       string `gorm:"size:36;not null"`
	Quantity       int    `gorm:"not null"`
	UnitPriceCents int64  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *gorm.DB
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository
func NewPostgresOrderRepository(db *gorm.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Migrate runs auto-migration for the order models
func (r *PostgresOrderRepository) Migrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &OrderItemModel{})
}

// WithTx returns a repository scoped to the given transaction
func (r *PostgresOrderRepository) WithTx(tx *gorm.DB) ports.OrderRepository {
	if tx == nil {
		return r
	}
	return &PostgresOrderRepository{db: tx}
}

// Create persists a new order with its items
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := toModel(order)

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		// Duplicated keys pass through untouched so the order-number
		// generator can redraw.
		return result.Error
	}

	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt

	return nil
}

// GetByID retrieves an order with its items
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel

	result := r.db.WithContext(ctx).Preload("Items").First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewOrderNotFound(id)
		}
		return nil, apperrors.NewPersistence("failed to get order", result.Error)
	}

	return toDomain(&model), nil
}

// List retrieves orders matching the filter, newest first
func (r *PostgresOrderRepository) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("order_status = ?", string(filter.Status))
	}

	var models []OrderModel
	result := query.Order("created_at DESC").Find(&models)
	if result.Error != nil {
		return nil, apperrors.NewPersistence("failed to list orders", result.Error)
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = toDomain(&models[i])
	}

	return orders, nil
}

// Delete deletes an order by ID
func (r *PostgresOrderRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&OrderModel{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.NewPersistence("failed to delete order", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewOrderNotFound(id)
	}
	return nil
}

// UpdateStatus sets the order status and stamps, administrative path
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, deliveredAt, cancelledAt *time.Time) error {
	result := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"order_status": string(status),
			"delivered_at": deliveredAt,
			"cancelled_at": cancelledAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewOrderNotFound(id)
	}
	return nil
}

// terminalStatuses are the order statuses that permit no further
// transitions; every conditional transition below excludes them
var terminalStatuses = []string{
	string(domain.OrderStatusDelivered),
	string(domain.OrderStatusCancelled),
}

// SetProcessing moves an open order to Processing. Returns false when the
// order is already in a terminal state.
func (r *PostgresOrderRepository) SetProcessing(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND order_status NOT IN ?", id, terminalStatuses).
		Update("order_status", string(domain.OrderStatusProcessing))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkPaid performs the Pending to Paid compare-and-set. Exactly one caller
// can win it for a given order, and never on a terminal order.
func (r *PostgresOrderRepository) MarkPaid(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND payment_status = ? AND order_status NOT IN ?",
			id, string(domain.PaymentStatusPending), terminalStatuses).
		Updates(map[string]interface{}{
			"payment_status": string(domain.PaymentStatusPaid),
			"order_status":   string(domain.OrderStatusProcessing),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkDelivered transitions a paid, non-terminal order to Delivered
func (r *PostgresOrderRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND payment_status = ? AND order_status NOT IN ?",
			id, string(domain.PaymentStatusPaid), terminalStatuses).
		Updates(map[string]interface{}{
			"order_status": string(domain.OrderStatusDelivered),
			"delivered_at": deliveredAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// toModel converts a domain entity to a GORM model
func toModel(order *domain.Order) *OrderModel {
	items := make([]OrderItemModel, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemModel{
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			SellerID:       item.SellerID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		}
	}

	return &OrderModel{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Items:          items,
		FullName:       order.ShippingAddress.FullName,
		Phone:          order.ShippingAddress.Phone,
		Address:        order.ShippingAddress.Address,
		City:           order.ShippingAddress.City,
		Region:         order.ShippingAddress.Region,
		AdditionalInfo: order.ShippingAddress.AdditionalInfo,
		PaymentMethod:  string(order.PaymentMethod),
		ShippingMethod: string(order.ShippingMethod),
		ShippingCents:  order.ShippingCents,
		TotalCents:     order.TotalCents,
		PaymentStatus:  string(order.PaymentStatus),
		OrderStatus:    string(order.OrderStatus),
		DeliveredAt:    order.DeliveredAt,
		CancelledAt:    order.CancelledAt,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

// toDomain converts a GORM model to a domain entity
func toDomain(model *OrderModel) *domain.Order {
	items := make([]domain.OrderItem, len(model.Items))
	for i, item := range model.Items {
		items[i] = domain.OrderItem{
			ProductID:      item.ProductID,
			SellerID:       item.SellerID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		}
	}

	return &domain.Order{
		ID:          model.ID,
		OrderNumber: model.OrderNumber,
		UserID:      model.UserID,
		Items:       items,
		ShippingAddress: domain.ShippingAddress{
			FullName:       model.FullName,
			Phone:          model.Phone,
			Address:        model.Address,
			City:           model.City,
			Region:         model.Region,
			AdditionalInfo: model.AdditionalInfo,
		},
		PaymentMethod:  domain.PaymentMethod(model.PaymentMethod),
		ShippingMethod: domain.ShippingMethod(model.ShippingMethod),
		ShippingCents:  model.ShippingCents,
		TotalCents:     model.TotalCents,
		PaymentStatus:  domain.PaymentStatus(model.PaymentStatus),
		OrderStatus:    domain.OrderStatus(model.OrderStatus),
		DeliveredAt:    model.DeliveredAt,
		CancelledAt:    model.CancelledAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}
