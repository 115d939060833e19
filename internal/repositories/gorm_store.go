package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tokoorders/internal/apperrors"
	"tokoorders/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMStore is the relational Backend used for postgres and sqlite.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a new instance of GORMStore.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

// WithinTx runs fn in a database transaction.
func (s *GORMStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
	return classify("transaction", err)
}

func (s *GORMStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify("ping", err)
	}
	return classify("ping", sqlDB.PingContext(ctx))
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) Ledger() InventoryLedger { return t }
func (t *gormTx) Orders() OrderWriter     { return t }

// LockAndRead issues SELECT ... FOR UPDATE. The sqlite dialect drops the
// locking clause; sqlite serializes writers at the database level instead.
func (t *gormTx) LockAndRead(ctx context.Context, productID int64) (models.StockSnapshot, error) {
	var product models.Product
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "stock", "price").
		Where("id = ? AND is_deleted = ?", productID, false).
		Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StockSnapshot{}, apperrors.NotFound("product", productID)
		}
		return models.StockSnapshot{}, classify(fmt.Sprintf("lock product %d", productID), err)
	}
	return models.StockSnapshot{ProductID: product.ID, Stock: product.Stock, Price: product.Price}, nil
}

func (t *gormTx) Decrement(ctx context.Context, productID int64, quantity int, at time.Time) (int64, error) {
	res := t.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_deleted = ? AND stock >= ?", productID, false, quantity).
		UpdateColumns(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": at,
		})
	if res.Error != nil {
		return 0, classify(fmt.Sprintf("decrement stock of product %d", productID), res.Error)
	}
	return res.RowsAffected, nil
}

func (t *gormTx) InsertOrder(ctx context.Context, order *models.Order) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return classify("insert order", err)
	}
	return nil
}

func (t *gormTx) InsertItem(ctx context.Context, item *models.OrderItem) error {
	if err := t.db.WithContext(ctx).Create(item).Error; err != nil {
		return classify("insert order item", err)
	}
	return nil
}

func (t *gormTx) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	err := t.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("total_amount", total).Error
	if err != nil {
		return classify("update order total", err)
	}
	return nil
}

func (t *gormTx) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus, from []models.OrderStatus, at time.Time) (int64, error) {
	q := t.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID)
	if len(from) > 0 {
		q = q.Where("status IN ?", statusStrings(from))
	}
	res := q.UpdateColumns(map[string]interface{}{
		"status":     string(status),
		"updated_at": at,
	})
	if res.Error != nil {
		return 0, classify("update order status", res.Error)
	}
	return res.RowsAffected, nil
}

func (t *gormTx) CurrentStatus(ctx context.Context, orderID int64) (models.OrderStatus, error) {
	var order models.Order
	err := t.db.WithContext(ctx).Select("id", "status").Where("id = ?", orderID).Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.NotFound("order", orderID)
		}
		return "", classify("read order status", err)
	}
	return order.Status, nil
}

func (t *gormTx) DeleteItems(ctx context.Context, orderID int64) (int64, error) {
	res := t.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderItem{})
	if res.Error != nil {
		return 0, classify("delete order items", res.Error)
	}
	return res.RowsAffected, nil
}

func (t *gormTx) DeleteOrder(ctx context.Context, orderID int64) (int64, error) {
	res := t.db.WithContext(ctx).Where("id = ?", orderID).Delete(&models.Order{})
	if res.Error != nil {
		return 0, classify("delete order", res.Error)
	}
	return res.RowsAffected, nil
}

func statusStrings(statuses []models.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
