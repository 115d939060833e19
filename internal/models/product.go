package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry together with its on-hand stock.
// Stock only changes inside an order placement transaction.
type Product struct {
	ID        int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string          `json:"name" gorm:"type:varchar(255);not null" validate:"required,min=1,max=255"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Stock     int             `json:"stock" gorm:"not null;default:0;check:chk_products_stock,stock >= 0" validate:"gte=0"`
	IsDeleted bool            `json:"-" gorm:"not null;default:false;index"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StockSnapshot is what the ledger returns for a locked product row.
type StockSnapshot struct {
	ProductID int64
	Stock     int
	Price     decimal.Decimal
}
