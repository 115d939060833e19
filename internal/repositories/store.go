package repositories

import (
	"context"
	"time"

	"tokoorders/internal/models"

	"github.com/shopspring/decimal"
)

// InventoryLedger is the transactional view of product stock. Both methods
// must be called from inside Store.WithinTx.
type InventoryLedger interface {
	// LockAndRead takes an exclusive lock on the product row, held until the
	// enclosing transaction ends, and returns its current stock and price.
	// Missing or soft-deleted products yield a not_found error.
	LockAndRead(ctx context.Context, productID int64) (models.StockSnapshot, error)
	// Decrement subtracts quantity only if enough stock remains and returns the
	// number of rows changed. Zero rows is not an error.
	Decrement(ctx context.Context, productID int64, quantity int, at time.Time) (int64, error)
}

// OrderWriter mutates orders and their items inside a transaction.
type OrderWriter interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertItem(ctx context.Context, item *models.OrderItem) error
	SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
	// UpdateStatus sets status and updated_at in one statement. When from is
	// non-empty the row is only changed if its current status is listed.
	UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus, from []models.OrderStatus, at time.Time) (int64, error)
	CurrentStatus(ctx context.Context, orderID int64) (models.OrderStatus, error)
	DeleteItems(ctx context.Context, orderID int64) (int64, error)
	DeleteOrder(ctx context.Context, orderID int64) (int64, error)
}

// Tx exposes the repositories bound to one open transaction.
type Tx interface {
	Ledger() InventoryLedger
	Orders() OrderWriter
}

// Store runs units of work. fn's error rolls the transaction back; a nil
// return commits it. Every exit path ends the transaction.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Reader serves the read-only listings.
type Reader interface {
	ListOrders(ctx context.Context, filter models.OrderFilter, limit, offset int) ([]models.Order, error)
	CountOrders(ctx context.Context, filter models.OrderFilter) (int64, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	// OrderStats totals all orders plus those created in [dayStart, dayEnd).
	OrderStats(ctx context.Context, dayStart, dayEnd time.Time) (models.OrderStats, error)
}

// Catalog maintains products outside of order placement.
type Catalog interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdatePrice(ctx context.Context, productID int64, price decimal.Decimal) error
	DeleteProduct(ctx context.Context, productID int64) error
}

// Backend bundles everything a storage driver provides.
type Backend interface {
	Store
	Reader
	Catalog
	Ping(ctx context.Context) error
}
