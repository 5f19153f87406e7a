package migrations

import (
	"time"

	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts. Intended to replace adapter-level automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&paymentOrderRecord{},
	)
}

// Payment order schema mirrors the payments Postgres adapter.
type paymentOrderRecord struct {
	PaymentHash      string     `gorm:"primaryKey;column:payment_hash;size:128"`
	ProductID        string     `gorm:"column:product_id;size:255;index"`
	Quantity         int64      `gorm:"column:quantity;not null"`
	AmountSats       int64      `gorm:"column:amount_sats;not null"`
	Memo             string     `gorm:"column:memo"`
	PaymentRequest   string     `gorm:"column:payment_request;type:text"`
	Status           string     `gorm:"column:status;type:varchar(16);not null;index:idx_payment_orders_status_expires"`
	CreatedAt        time.Time  `gorm:"column:created_at;index"`
	ExpiresAt        *time.Time `gorm:"column:expires_at;index:idx_payment_orders_status_expires"`
	SettledAt        *time.Time `gorm:"column:settled_at"`
	EscrowReleasedAt *time.Time `gorm:"column:escrow_released_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (paymentOrderRecord) TableName() string { return "payment_orders" }
