package services_test

import (
	"context"
	"testing"
	"time"

	"tokoorders/internal/apperrors"
	"tokoorders/internal/models"
	"tokoorders/internal/repositories"
	"tokoorders/internal/services"
	"tokoorders/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOrders_Pagination(t *testing.T) {
	store := repositories.NewMemoryStore()
	p := testutil.SeedProduct(t, store, "P", "1.00", 100)
	engine := newEngine(store)
	for i := 0; i < 5; i++ {
		_, err := engine.PlaceOrder(context.Background(), models.Cart{BuyerID: int64(i%2 + 1), Items: []models.CartItem{{ProductID: p, Quantity: 1}}})
		require.NoError(t, err)
	}
	listing := services.NewListingService(store, services.ListingConfig{OrderPageSize: 2})

	tests := []struct {
		name      string
		page      int
		filter    models.OrderFilter
		wantPage  int
		wantRows  int
		wantPages int
		wantTotal int64
	}{
		{"first page", 1, models.OrderFilter{}, 1, 2, 3, 5},
		{"last page is short", 3, models.OrderFilter{}, 3, 1, 3, 5},
		{"page below one is clamped", -4, models.OrderFilter{}, 1, 2, 3, 5},
		{"filter by buyer", 1, models.OrderFilter{UserID: 2}, 1, 2, 1, 2},
		{"filter by status", 1, models.OrderFilter{Status: models.StatusShipped}, 1, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := listing.ListOrders(context.Background(), tt.page, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Len(t, page.Data, tt.wantRows)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Equal(t, tt.wantTotal, page.TotalItems)
		})
	}

	_, err := listing.ListOrders(context.Background(), 4, models.OrderFilter{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "Requested page exceeds total pages")

	_, err = listing.ListOrders(context.Background(), 1, models.OrderFilter{Status: "lost"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestListProducts_DefaultPageSize(t *testing.T) {
	store := repositories.NewMemoryStore()
	for i := 0; i < 51; i++ {
		testutil.SeedProduct(t, store, "P", "1.00", 1)
	}
	listing := services.NewListingService(store, services.ListingConfig{})

	page, err := listing.ListProducts(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, page.Data, 50)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, int64(1), page.Data[0].ID)

	page, err = listing.ListProducts(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(51), page.Data[0].ID)

	_, err = listing.ListProducts(context.Background(), 3)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestListProducts_EmptyCatalogIsNotAnError(t *testing.T) {
	listing := services.NewListingService(repositories.NewMemoryStore(), services.ListingConfig{})

	page, err := listing.ListProducts(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.TotalPages)
}

func TestGetOrderAndProduct_NotFound(t *testing.T) {
	listing := services.NewListingService(repositories.NewMemoryStore(), services.ListingConfig{})

	_, err := listing.GetOrder(context.Background(), 3)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = listing.GetProduct(context.Background(), -1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStats_TodayFollowsConfiguredZone(t *testing.T) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	store := repositories.NewMemoryStore()
	p := testutil.SeedProduct(t, store, "P", "2.50", 100)

	// 2026-03-13 23:30 Taipei is yesterday; 2026-03-14 00:30 Taipei is today.
	yesterday := time.Date(2026, 3, 13, 15, 30, 0, 0, time.UTC)
	today := time.Date(2026, 3, 13, 16, 30, 0, 0, time.UTC)
	for _, at := range []time.Time{yesterday, today, today} {
		at := at
		engine := newEngine(store, services.WithClock(services.ClockFunc(func() time.Time { return at })),
			services.WithNumberGenerator(services.NewTimestampNumberGenerator("ORD", taipei)))
		_, err := engine.PlaceOrder(context.Background(), models.Cart{BuyerID: 1, Items: []models.CartItem{{ProductID: p, Quantity: 2}}})
		require.NoError(t, err)
	}

	now := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	listing := services.NewListingService(store, services.ListingConfig{Location: taipei},
		services.WithClock(services.ClockFunc(func() time.Time { return now })))

	stats, err := listing.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalOrders)
	assert.True(t, dec("15.00").Equal(stats.TotalAmount), stats.TotalAmount.String())
	assert.EqualValues(t, 2, stats.TodayOrders)
	assert.True(t, dec("10.00").Equal(stats.TodayAmount), stats.TodayAmount.String())
}

func TestTimestampNumberGenerator(t *testing.T) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	gen := services.NewTimestampNumberGenerator("ORD", taipei)

	number, err := gen.Next(time.Date(2026, 3, 13, 16, 30, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Regexp(t, `^ORD20260314003005[1-9][0-9]{5}$`, number)
}
