package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"souq-backend/internal/orders/ports"
	apperrors "souq-backend/pkg/errors"
)

// ProductModel is the GORM model for catalog products. The engine only
// reads prices and consumes stock; everything else about the catalog lives
// in its own service.
type ProductModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	Name       string `gorm:"size:255;not null"`
	SellerID   string `gorm:"size:36;index;not null"`
	PriceCents int64  `gorm:"not null"`
	Stock      int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// PostgresInventoryLedger implements InventoryLedger over the product table
type PostgresInventoryLedger struct {
	db *gorm.DB
}

// NewPostgresInventoryLedger creates a new inventory ledger
func NewPostgresInventoryLedger(db *gorm.DB) *PostgresInventoryLedger {
	return &PostgresInventoryLedger{db: db}
}

// Migrate runs auto-migration for the product model
func (l *PostgresInventoryLedger) Migrate() error {
	return l.db.AutoMigrate(&ProductModel{})
}

// GetProduct retrieves price, stock and seller for a product
func (l *PostgresInventoryLedger) GetProduct(ctx context.Context, productID string) (*ports.ProductInfo, error) {
	var model ProductModel

	result := l.db.WithContext(ctx).First(&model, "id = ?", productID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("product", productID)
		}
		return nil, apperrors.NewPersistence("failed to get product", result.Error)
	}

	return &ports.ProductInfo{
		ID:         model.ID,
		Name:       model.Name,
		SellerID:   model.SellerID,
		PriceCents: model.PriceCents,
		Stock:      model.Stock,
	}, nil
}

// GetStock reads the current stock level
func (l *PostgresInventoryLedger) GetStock(ctx context.Context, productID string) (int, error) {
	var stock int

	result := l.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ?", productID).
		Select("stock").
		Scan(&stock)
	if result.Error != nil {
		return 0, apperrors.NewPersistence("failed to read stock", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, apperrors.NewNotFound("product", productID)
	}

	return stock, nil
}

// DecrementStock subtracts qty in a single conditional statement so two
// concurrent completions can never both pass the check. A false return
// means the remaining stock does not cover qty.
func (l *PostgresInventoryLedger) DecrementStock(ctx context.Context, tx *gorm.DB, productID string, qty int) (bool, error) {
	db := tx
	if db == nil {
		db = l.db
	}

	result := db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}
