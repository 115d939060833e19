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
)

func (s *GORMStore) filteredOrders(ctx context.Context, filter models.OrderFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.UserID > 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	return q
}

// ListOrders returns order headers, newest first.
func (s *GORMStore) ListOrders(ctx context.Context, filter models.OrderFilter, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := s.filteredOrders(ctx, filter).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, classify("list orders", err)
	}
	return orders, nil
}

func (s *GORMStore) CountOrders(ctx context.Context, filter models.OrderFilter) (int64, error) {
	var total int64
	if err := s.filteredOrders(ctx, filter).Count(&total).Error; err != nil {
		return 0, classify("count orders", err)
	}
	return total, nil
}

// GetOrder loads the header with its items.
func (s *GORMStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, classify(fmt.Sprintf("get order %d", id), err)
	}
	return &order, nil
}

func (s *GORMStore) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, classify("list products", err)
	}
	return products, nil
}

func (s *GORMStore) CountProducts(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("is_deleted = ?", false).Count(&total).Error; err != nil {
		return 0, classify("count products", err)
	}
	return total, nil
}

func (s *GORMStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, classify(fmt.Sprintf("get product %d", id), err)
	}
	return &product, nil
}

type orderTotals struct {
	OrderCount int64
	AmountSum  decimal.Decimal
}

func (s *GORMStore) sumOrders(q *gorm.DB) (orderTotals, error) {
	var totals orderTotals
	err := q.Model(&models.Order{}).
		Select("COUNT(*) AS order_count, COALESCE(SUM(total_amount), 0) AS amount_sum").
		Scan(&totals).Error
	return totals, err
}

func (s *GORMStore) OrderStats(ctx context.Context, dayStart, dayEnd time.Time) (models.OrderStats, error) {
	all, err := s.sumOrders(s.db.WithContext(ctx))
	if err != nil {
		return models.OrderStats{}, classify("order stats", err)
	}
	today, err := s.sumOrders(s.db.WithContext(ctx).Where("created_at >= ? AND created_at < ?", dayStart, dayEnd))
	if err != nil {
		return models.OrderStats{}, classify("order stats", err)
	}
	return models.OrderStats{
		TotalOrders: all.OrderCount,
		TotalAmount: all.AmountSum,
		TodayOrders: today.OrderCount,
		TodayAmount: today.AmountSum,
	}, nil
}

// CreateProduct inserts a catalog entry.
func (s *GORMStore) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.Stock < 0 || product.Price.IsNegative() {
		return apperrors.InvalidInput("product %q must have non-negative price and stock", product.Name)
	}
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return classify("create product", err)
	}
	return nil
}

// UpdatePrice changes the list price. Existing order items keep the price
// they were reserved at.
func (s *GORMStore) UpdatePrice(ctx context.Context, productID int64, price decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_deleted = ?", productID, false).
		Update("price", price)
	if res.Error != nil {
		return classify("update product price", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("product", productID)
	}
	return nil
}

// DeleteProduct soft-deletes a product so past order items stay resolvable.
func (s *GORMStore) DeleteProduct(ctx context.Context, productID int64) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_deleted = ?", productID, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return classify("delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("product", productID)
	}
	return nil
}
