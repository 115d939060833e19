package services

import (
	"context"
	"time"

	"tokoorders/internal/apperrors"
	"tokoorders/internal/models"
	"tokoorders/internal/repositories"

	"go.uber.org/zap"
)

// StatusGuard applies lifecycle changes to existing orders.
//
// In strict mode only the moves allowed by models.OrderStatus.CanTransitionTo
// are accepted, and the check is part of the UPDATE itself so it cannot race
// with a concurrent change. Without strict mode any valid status may be set.
type StatusGuard struct {
	store  repositories.Store
	strict bool
	options
}

func NewStatusGuard(store repositories.Store, strict bool, opts ...Option) *StatusGuard {
	return &StatusGuard{store: store, strict: strict, options: applyOptions(opts)}
}

// Transition moves order orderID to status.
func (g *StatusGuard) Transition(ctx context.Context, orderID int64, status string) error {
	next := models.OrderStatus(status)
	if !next.Valid() {
		return apperrors.InvalidStatus(status)
	}
	if orderID <= 0 {
		return apperrors.NotFound("order", orderID)
	}

	var now time.Time
	err := g.store.WithinTx(ctx, func(tx repositories.Tx) error {
		now = g.clock.Now().UTC()

		var from []models.OrderStatus
		if g.strict {
			from = models.PredecessorsOf(next)
			if len(from) == 0 {
				return rejectTransition(ctx, tx, orderID, next)
			}
		}

		affected, err := tx.Orders().UpdateStatus(ctx, orderID, next, from, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			if !g.strict {
				return apperrors.NotFound("order", orderID)
			}
			return rejectTransition(ctx, tx, orderID, next)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindStoreUnavailable) {
			g.logger.Error("order status update failed", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return err
	}

	g.logger.Info("order status updated", zap.Int64("order_id", orderID), zap.String("status", status))
	g.publish(ctx, EventOrderStatusChanged, OrderStatusChangedEvent{OrderID: orderID, Status: status}, now)
	return nil
}

// rejectTransition explains why a guarded update changed nothing.
func rejectTransition(ctx context.Context, tx repositories.Tx, orderID int64, next models.OrderStatus) error {
	current, err := tx.Orders().CurrentStatus(ctx, orderID)
	if err != nil {
		return err
	}
	return apperrors.InvalidTransition(string(current), string(next))
}

// Delete removes an order and its items together. A missing order rolls the
// item delete back and reports not found.
func (g *StatusGuard) Delete(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return apperrors.NotFound("order", orderID)
	}

	var now time.Time
	err := g.store.WithinTx(ctx, func(tx repositories.Tx) error {
		now = g.clock.Now().UTC()
		if _, err := tx.Orders().DeleteItems(ctx, orderID); err != nil {
			return err
		}
		affected, err := tx.Orders().DeleteOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperrors.NotFound("order", orderID)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindStoreUnavailable) {
			g.logger.Error("order delete failed", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return err
	}

	g.logger.Info("order deleted", zap.Int64("order_id", orderID))
	g.publish(ctx, EventOrderDeleted, OrderDeletedEvent{OrderID: orderID}, now)
	return nil
}
