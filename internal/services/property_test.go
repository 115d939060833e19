package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"tokoorders/internal/apperrors"
	"tokoorders/internal/models"
	"tokoorders/internal/repositories"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// Random concurrent carts against random stock levels: whatever interleaving
// happens, committed quantities never exceed the initial stock and every
// order total equals the sum of its lines.
func TestPlaceOrder_PropertyNoOversell(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := repositories.NewMemoryStore()

		productCount := rapid.IntRange(1, 4).Draw(rt, "products")
		initial := make(map[int64]int, productCount)
		prices := make(map[int64]decimal.Decimal, productCount)
		for i := 0; i < productCount; i++ {
			cents := rapid.IntRange(0, 100000).Draw(rt, fmt.Sprintf("price_cents_%d", i))
			p := &models.Product{
				Name:  fmt.Sprintf("P%d", i),
				Price: decimal.New(int64(cents), -2),
				Stock: rapid.IntRange(0, 20).Draw(rt, fmt.Sprintf("stock_%d", i)),
			}
			if err := store.CreateProduct(ctx, p); err != nil {
				rt.Fatalf("seed: %v", err)
			}
			initial[p.ID] = p.Stock
			prices[p.ID] = p.Price
		}

		cartCount := rapid.IntRange(1, 8).Draw(rt, "carts")
		carts := make([]models.Cart, cartCount)
		for c := range carts {
			lines := rapid.IntRange(1, 3).Draw(rt, fmt.Sprintf("lines_%d", c))
			for l := 0; l < lines; l++ {
				carts[c].Items = append(carts[c].Items, models.CartItem{
					ProductID: int64(rapid.IntRange(1, productCount).Draw(rt, fmt.Sprintf("product_%d_%d", c, l))),
					Quantity:  rapid.IntRange(1, 8).Draw(rt, fmt.Sprintf("qty_%d_%d", c, l)),
				})
			}
			carts[c].BuyerID = int64(c + 1)
		}

		engine := newEngine(store)
		results := make([]*models.Placement, cartCount)
		errs := make([]error, cartCount)
		var wg sync.WaitGroup
		for i := range carts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = engine.PlaceOrder(ctx, carts[i])
			}(i)
		}
		wg.Wait()

		reserved := make(map[int64]int)
		for i, cart := range carts {
			if errs[i] != nil {
				if !apperrors.IsKind(errs[i], apperrors.KindInsufficientStock) {
					rt.Fatalf("cart %d: unexpected error %v", i, errs[i])
				}
				continue
			}
			want := decimal.Zero
			for _, line := range cart.Items {
				reserved[line.ProductID] += line.Quantity
				want = want.Add(prices[line.ProductID].Mul(decimal.NewFromInt(int64(line.Quantity))))
			}
			if !want.Equal(results[i].TotalAmount) {
				rt.Fatalf("cart %d: total %s, want %s", i, results[i].TotalAmount, want)
			}
		}

		for id, start := range initial {
			p, err := store.GetProduct(ctx, id)
			if err != nil {
				rt.Fatalf("product %d: %v", id, err)
			}
			if p.Stock < 0 {
				rt.Fatalf("product %d oversold: stock %d", id, p.Stock)
			}
			if p.Stock != start-reserved[id] {
				rt.Fatalf("product %d: stock %d, want %d", id, p.Stock, start-reserved[id])
			}
		}
	})
}
