package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "souq-backend/pkg/errors"
)

// SellerModel is the GORM model for seller accounts. The engine only
// credits balances; registration and payout live in the seller registry.
type SellerModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:255;not null"`
	BalanceCents int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SellerModel) TableName() string {
	return "sellers"
}

// SettlementModel records one seller's credit for one order. The unique
// (order, seller) key makes settlement retries credit at most once.
type SettlementModel struct {
	ID          uint      `gorm:"primaryKey"`
	OrderID     string    `gorm:"size:36;not null;uniqueIndex:idx_settlements_order_seller"`
	SellerID    string    `gorm:"size:36;not null;uniqueIndex:idx_settlements_order_seller"`
	AmountCents int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (SettlementModel) TableName() string {
	return "settlements"
}

// PostgresSellerLedger implements SellerLedger over the seller table
type PostgresSellerLedger struct {
	db *gorm.DB
}

// NewPostgresSellerLedger creates a new seller ledger
func NewPostgresSellerLedger(db *gorm.DB) *PostgresSellerLedger {
	return &PostgresSellerLedger{db: db}
}

// Migrate runs auto-migration for the seller and settlement models
func (l *PostgresSellerLedger) Migrate() error {
	return l.db.AutoMigrate(&SellerModel{}, &SettlementModel{})
}

// CreditBalance records the settlement and adds the amount to the seller's
// balance. Runs inside the caller's transaction: all credits of one order
// commit with its Paid transition or none do. A settlement that already
// exists is left alone so a retry never credits twice. An unknown seller
// fails the settlement instead of silently dropping the credit.
func (l *PostgresSellerLedger) CreditBalance(ctx context.Context, tx *gorm.DB, orderID, sellerID string, amountCents int64) error {
	db := tx
	if db == nil {
		db = l.db
	}

	settlement := SettlementModel{
		OrderID:     orderID,
		SellerID:    sellerID,
		AmountCents: amountCents,
	}
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&settlement)
	if result.Error != nil {
		return apperrors.NewPersistence("failed to record settlement", result.Error)
	}
	if result.RowsAffected == 0 {
		// Already settled for this (order, seller) pair.
		return nil
	}

	update := db.WithContext(ctx).Model(&SellerModel{}).
		Where("id = ?", sellerID).
		UpdateColumn("balance_cents", gorm.Expr("balance_cents + ?", amountCents))
	if update.Error != nil {
		return apperrors.NewPersistence("failed to credit seller balance", update.Error)
	}
	if update.RowsAffected == 0 {
		return apperrors.NewNotFound("seller", sellerID)
	}

	return nil
}
