package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tokoorders/internal/apperrors"
	"tokoorders/internal/models"
	"tokoorders/internal/repositories"
	"tokoorders/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func insertOrder(t *testing.T, store repositories.Store, number string, userID int64, createdAt time.Time, total string) int64 {
	t.Helper()

	order := &models.Order{
		UserID:      userID,
		Number:      number,
		Status:      models.StatusPending,
		TotalAmount: decimal.RequireFromString(total),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	err := store.WithinTx(context.Background(), func(tx repositories.Tx) error {
		if err := tx.Orders().InsertOrder(context.Background(), order); err != nil {
			return err
		}
		return tx.Orders().InsertItem(context.Background(), &models.OrderItem{
			OrderID:   order.ID,
			ProductID: 1,
			Quantity:  1,
			UnitPrice: order.TotalAmount,
			Subtotal:  order.TotalAmount,
		})
	})
	require.NoError(t, err)
	return order.ID
}

func TestLedger_LockAndRead(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := testutil.SeedProduct(t, backend, "Laptop", "1200.50", 4)
			gone := testutil.SeedProduct(t, backend, "Retired", "1.00", 9)
			require.NoError(t, backend.DeleteProduct(ctx, gone))

			err := backend.WithinTx(ctx, func(tx repositories.Tx) error {
				snap, err := tx.Ledger().LockAndRead(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, 4, snap.Stock)
				assert.True(t, decimal.RequireFromString("1200.50").Equal(snap.Price))

				_, err = tx.Ledger().LockAndRead(ctx, 9999)
				assert.ErrorIs(t, err, apperrors.ErrNotFound)

				_, err = tx.Ledger().LockAndRead(ctx, gone)
				assert.ErrorIs(t, err, apperrors.ErrNotFound)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestLedger_DecrementIsConditional(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := testutil.SeedProduct(t, backend, "Keyboard", "75.00", 5)

			err := backend.WithinTx(ctx, func(tx repositories.Tx) error {
				n, err := tx.Ledger().Decrement(ctx, id, 3, fixedNow)
				require.NoError(t, err)
				assert.EqualValues(t, 1, n)

				n, err = tx.Ledger().Decrement(ctx, id, 3, fixedNow)
				require.NoError(t, err)
				assert.EqualValues(t, 0, n, "only 2 left")

				snap, err := tx.Ledger().LockAndRead(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, 2, snap.Stock)
				return nil
			})
			require.NoError(t, err)

			p, err := backend.GetProduct(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 2, p.Stock)
		})
	}
}

func TestWithinTx_RollbackDiscardsEverything(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := testutil.SeedProduct(t, backend, "Mouse", "25.00", 10)
			boom := apperrors.InsufficientStock(id, 99, 10)

			err := backend.WithinTx(ctx, func(tx repositories.Tx) error {
				order := &models.Order{UserID: 1, Number: "ORD-ROLLBACK", Status: models.StatusPending, CreatedAt: fixedNow, UpdatedAt: fixedNow}
				require.NoError(t, tx.Orders().InsertOrder(ctx, order))
				n, err := tx.Ledger().Decrement(ctx, id, 4, fixedNow)
				require.NoError(t, err)
				require.EqualValues(t, 1, n)
				return boom
			})
			assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

			p, err := backend.GetProduct(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 10, p.Stock)

			total, err := backend.CountOrders(ctx, models.OrderFilter{})
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestWithinTx_PlainErrorsBecomeStoreUnavailable(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			err := backend.WithinTx(context.Background(), func(tx repositories.Tx) error {
				return errors.New("disk on fire")
			})
			assert.True(t, apperrors.IsKind(err, apperrors.KindStoreUnavailable))
		})
	}
}

func TestOrders_DuplicateNumberIsConflict(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			insertOrder(t, backend, "ORD-DUP", 1, fixedNow, "10.00")

			err := backend.WithinTx(context.Background(), func(tx repositories.Tx) error {
				return tx.Orders().InsertOrder(context.Background(), &models.Order{
					UserID: 2, Number: "ORD-DUP", Status: models.StatusPending, CreatedAt: fixedNow, UpdatedAt: fixedNow,
				})
			})
			assert.ErrorIs(t, err, apperrors.ErrConflict)
		})
	}
}

func TestOrders_UpdateStatus(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := insertOrder(t, backend, "ORD-STATUS", 1, fixedNow, "10.00")
			later := fixedNow.Add(time.Hour)

			err := backend.WithinTx(ctx, func(tx repositories.Tx) error {
				n, err := tx.Orders().UpdateStatus(ctx, id, models.StatusShipped, []models.OrderStatus{models.StatusProcessing}, later)
				require.NoError(t, err)
				assert.EqualValues(t, 0, n, "pending is not a predecessor of shipped")

				n, err = tx.Orders().UpdateStatus(ctx, id, models.StatusProcessing, []models.OrderStatus{models.StatusPending}, later)
				require.NoError(t, err)
				assert.EqualValues(t, 1, n)

				n, err = tx.Orders().UpdateStatus(ctx, 424242, models.StatusProcessing, nil, later)
				require.NoError(t, err)
				assert.EqualValues(t, 0, n)

				status, err := tx.Orders().CurrentStatus(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, models.StatusProcessing, status)

				_, err = tx.Orders().CurrentStatus(ctx, 424242)
				assert.ErrorIs(t, err, apperrors.ErrNotFound)
				return nil
			})
			require.NoError(t, err)

			order, err := backend.GetOrder(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, models.StatusProcessing, order.Status)
			assert.True(t, later.Equal(order.UpdatedAt))
		})
	}
}

func TestOrders_DeleteIsAtomic(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := insertOrder(t, backend, "ORD-DEL", 1, fixedNow, "10.00")

			// Items removed, then the header delete misses: nothing may change.
			err := backend.WithinTx(ctx, func(tx repositories.Tx) error {
				n, err := tx.Orders().DeleteItems(ctx, id)
				require.NoError(t, err)
				assert.EqualValues(t, 1, n)
				return apperrors.NotFound("order", id)
			})
			assert.ErrorIs(t, err, apperrors.ErrNotFound)

			order, err := backend.GetOrder(ctx, id)
			require.NoError(t, err)
			assert.Len(t, order.Items, 1)

			err = backend.WithinTx(ctx, func(tx repositories.Tx) error {
				if _, err := tx.Orders().DeleteItems(ctx, id); err != nil {
					return err
				}
				n, err := tx.Orders().DeleteOrder(ctx, id)
				require.NoError(t, err)
				assert.EqualValues(t, 1, n)
				return nil
			})
			require.NoError(t, err)

			_, err = backend.GetOrder(ctx, id)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
		})
	}
}

func TestReader_ListOrdersNewestFirst(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := insertOrder(t, backend, "ORD-A", 7, fixedNow.Add(-2*time.Hour), "10.00")
			second := insertOrder(t, backend, "ORD-B", 8, fixedNow.Add(-time.Hour), "20.00")
			third := insertOrder(t, backend, "ORD-C", 7, fixedNow, "30.00")

			orders, err := backend.ListOrders(ctx, models.OrderFilter{}, 2, 0)
			require.NoError(t, err)
			require.Len(t, orders, 2)
			assert.Equal(t, third, orders[0].ID)
			assert.Equal(t, second, orders[1].ID)

			orders, err = backend.ListOrders(ctx, models.OrderFilter{}, 2, 2)
			require.NoError(t, err)
			require.Len(t, orders, 1)
			assert.Equal(t, first, orders[0].ID)

			orders, err = backend.ListOrders(ctx, models.OrderFilter{UserID: 7}, 10, 0)
			require.NoError(t, err)
			assert.Len(t, orders, 2)

			total, err := backend.CountOrders(ctx, models.OrderFilter{Status: models.StatusPending, UserID: 8})
			require.NoError(t, err)
			assert.EqualValues(t, 1, total)

			total, err = backend.CountOrders(ctx, models.OrderFilter{Status: models.StatusShipped})
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestReader_ListProductsSkipsDeleted(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := testutil.SeedProduct(t, backend, "A", "1.00", 1)
			b := testutil.SeedProduct(t, backend, "B", "2.00", 2)
			c := testutil.SeedProduct(t, backend, "C", "3.00", 3)
			require.NoError(t, backend.DeleteProduct(ctx, b))

			products, err := backend.ListProducts(ctx, 50, 0)
			require.NoError(t, err)
			require.Len(t, products, 2)
			assert.Equal(t, a, products[0].ID)
			assert.Equal(t, c, products[1].ID)

			total, err := backend.CountProducts(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 2, total)

			_, err = backend.GetProduct(ctx, b)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
			assert.ErrorIs(t, backend.UpdatePrice(ctx, b, decimal.NewFromInt(5)), apperrors.ErrNotFound)
		})
	}
}

func TestReader_OrderStats(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
			insertOrder(t, backend, "ORD-Y", 1, dayStart.Add(-time.Hour), "12.50")
			insertOrder(t, backend, "ORD-T1", 1, dayStart.Add(time.Hour), "10.00")
			insertOrder(t, backend, "ORD-T2", 2, dayStart.Add(2*time.Hour), "5.25")

			stats, err := backend.OrderStats(context.Background(), dayStart, dayStart.Add(24*time.Hour))
			require.NoError(t, err)
			assert.EqualValues(t, 3, stats.TotalOrders)
			assert.True(t, decimal.RequireFromString("27.75").Equal(stats.TotalAmount), stats.TotalAmount.String())
			assert.EqualValues(t, 2, stats.TodayOrders)
			assert.True(t, decimal.RequireFromString("15.25").Equal(stats.TodayAmount), stats.TodayAmount.String())
		})
	}
}

func TestCatalog_RejectsNegativeStock(t *testing.T) {
	for name, backend := range testutil.Backends(t) {
		t.Run(name, func(t *testing.T) {
			err := backend.CreateProduct(context.Background(), &models.Product{Name: "Bad", Price: decimal.NewFromInt(1), Stock: -1})
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}
