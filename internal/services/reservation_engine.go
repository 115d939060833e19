package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tokoorders/internal/apperrors"
	"tokoorders/internal/models"
	"tokoorders/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReservationEngine places orders. Stock reservation, the order header and
// its items are written in a single transaction: either all of them commit
// or none do.
type ReservationEngine struct {
	store    repositories.Store
	validate *validator.Validate
	options
}

// NewReservationEngine creates a new ReservationEngine.
func NewReservationEngine(store repositories.Store, opts ...Option) *ReservationEngine {
	return &ReservationEngine{
		store:    store,
		validate: validator.New(),
		options:  applyOptions(opts),
	}
}

// PlaceOrder reserves stock for every line of cart and records the order.
//
// Lines are processed in ascending product id order so that two carts
// touching the same products always lock rows in the same sequence.
func (e *ReservationEngine) PlaceOrder(ctx context.Context, cart models.Cart) (*models.Placement, error) {
	if err := e.validate.Struct(cart); err != nil {
		return nil, e.rejected(cart, validationError("", err))
	}

	lines := make([]models.CartItem, len(cart.Items))
	copy(lines, cart.Items)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	var (
		placement models.Placement
		placed    []OrderPlacedItem
		now       time.Time
	)
	err := e.store.WithinTx(ctx, func(tx repositories.Tx) error {
		now = e.clock.Now().UTC()
		number, err := e.numbers.Next(now)
		if err != nil {
			return apperrors.Wrap("generate order number", err)
		}

		order := &models.Order{
			UserID:      cart.BuyerID,
			Number:      number,
			Status:      models.StatusPending,
			TotalAmount: decimal.Zero,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Orders().InsertOrder(ctx, order); err != nil {
			return err
		}

		total := decimal.Zero
		placed = placed[:0]
		for _, line := range lines {
			item, err := e.reserveLine(ctx, tx, order.ID, line, now)
			if err != nil {
				return err
			}
			total = total.Add(item.Subtotal)
			placed = append(placed, OrderPlacedItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Subtotal:  item.Subtotal,
			})
		}

		if err := tx.Orders().SetTotal(ctx, order.ID, total); err != nil {
			return err
		}

		placement = models.Placement{OrderID: order.ID, OrderNumber: number, TotalAmount: total}
		return nil
	})
	if err != nil {
		return nil, e.rejected(cart, err)
	}

	e.logger.Info("order placed",
		zap.Int64("order_id", placement.OrderID),
		zap.String("order_number", placement.OrderNumber),
		zap.Int64("buyer_id", cart.BuyerID),
		zap.String("total_amount", placement.TotalAmount.StringFixed(2)))

	e.publish(ctx, EventOrderPlaced, OrderPlacedEvent{
		OrderID:     placement.OrderID,
		OrderNumber: placement.OrderNumber,
		UserID:      cart.BuyerID,
		TotalAmount: placement.TotalAmount,
		Items:       placed,
	}, now)

	return &placement, nil
}

// reserveLine locks the product, takes quantity out of stock and records the
// item at the price read under the lock.
func (e *ReservationEngine) reserveLine(ctx context.Context, tx repositories.Tx, orderID int64, line models.CartItem, now time.Time) (*models.OrderItem, error) {
	if err := e.validate.Struct(line); err != nil {
		return nil, validationError(fmt.Sprintf("item for product %d: ", line.ProductID), err)
	}

	snap, err := tx.Ledger().LockAndRead(ctx, line.ProductID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.InsufficientStock(line.ProductID, line.Quantity, 0)
		}
		return nil, err
	}
	if snap.Stock < line.Quantity {
		return nil, apperrors.InsufficientStock(line.ProductID, line.Quantity, snap.Stock)
	}

	affected, err := tx.Ledger().Decrement(ctx, line.ProductID, line.Quantity, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, apperrors.InsufficientStock(line.ProductID, line.Quantity, snap.Stock)
	}

	item := &models.OrderItem{
		OrderID:   orderID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		UnitPrice: snap.Price,
		Subtotal:  snap.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
	}
	if err := tx.Orders().InsertItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// rejected logs a failed placement. Only store failures are incidents.
func (e *ReservationEngine) rejected(cart models.Cart, err error) error {
	fields := []zap.Field{
		zap.Int64("buyer_id", cart.BuyerID),
		zap.Int("lines", len(cart.Items)),
		zap.String("reason", string(apperrors.KindOf(err))),
		zap.Error(err),
	}
	if apperrors.IsKind(err, apperrors.KindStoreUnavailable) {
		e.logger.Error("order placement failed", fields...)
	} else {
		e.logger.Info("order placement rejected", fields...)
	}
	return err
}

func validationError(prefix string, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.InvalidInput("%s%v", prefix, err)
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("Field '%s' failed on the '%s' tag", fe.Field(), fe.Tag()))
	}
	return apperrors.InvalidInput("%s%s", prefix, strings.Join(msgs, "; "))
}
