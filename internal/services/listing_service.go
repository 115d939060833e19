package services

import (
	"context"
	"time"

	"tokoorders/internal/apperrors"
	"tokoorders/internal/models"
	"tokoorders/internal/repositories"
)

const (
	DefaultOrderPageSize   = 20
	DefaultProductPageSize = 50
)

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

// ListingConfig sizes pages and fixes the day boundary used by Stats.
type ListingConfig struct {
	OrderPageSize   int
	ProductPageSize int
	Location        *time.Location
}

// ListingService serves read-only views of orders and products.
type ListingService struct {
	reader repositories.Reader
	cfg    ListingConfig
	options
}

func NewListingService(reader repositories.Reader, cfg ListingConfig, opts ...Option) *ListingService {
	if cfg.OrderPageSize <= 0 {
		cfg.OrderPageSize = DefaultOrderPageSize
	}
	if cfg.ProductPageSize <= 0 {
		cfg.ProductPageSize = DefaultProductPageSize
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ListingService{reader: reader, cfg: cfg, options: applyOptions(opts)}
}

// window normalizes page and returns the row offset and page count.
// Asking past the last page is an input error unless there are no rows.
func window(page int, total int64, size int) (int, int, int, error) {
	if page < 1 {
		page = 1
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	if total > 0 && page > totalPages {
		return 0, 0, 0, apperrors.InvalidInput("Requested page exceeds total pages")
	}
	return page, (page - 1) * size, totalPages, nil
}

func (s *ListingService) ListOrders(ctx context.Context, page int, filter models.OrderFilter) (*Page[models.Order], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.InvalidStatus(string(filter.Status))
	}

	total, err := s.reader.CountOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	page, offset, totalPages, err := window(page, total, s.cfg.OrderPageSize)
	if err != nil {
		return nil, err
	}

	orders, err := s.reader.ListOrders(ctx, filter, s.cfg.OrderPageSize, offset)
	if err != nil {
		return nil, err
	}
	return &Page[models.Order]{Data: orders, Page: page, TotalPages: totalPages, TotalItems: total}, nil
}

func (s *ListingService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	if id <= 0 {
		return nil, apperrors.NotFound("order", id)
	}
	return s.reader.GetOrder(ctx, id)
}

func (s *ListingService) ListProducts(ctx context.Context, page int) (*Page[models.Product], error) {
	total, err := s.reader.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	page, offset, totalPages, err := window(page, total, s.cfg.ProductPageSize)
	if err != nil {
		return nil, err
	}

	products, err := s.reader.ListProducts(ctx, s.cfg.ProductPageSize, offset)
	if err != nil {
		return nil, err
	}
	return &Page[models.Product]{Data: products, Page: page, TotalPages: totalPages, TotalItems: total}, nil
}

func (s *ListingService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, apperrors.NotFound("product", id)
	}
	return s.reader.GetProduct(ctx, id)
}

// Stats totals all orders and those created today in the configured zone.
func (s *ListingService) Stats(ctx context.Context) (models.OrderStats, error) {
	now := s.clock.Now().In(s.cfg.Location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
	dayEnd := dayStart.AddDate(0, 0, 1)
	return s.reader.OrderStats(ctx, dayStart.UTC(), dayEnd.UTC())
}
