package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// nextStatuses lists the moves allowed from each status. Delivered and
// cancelled are terminal.
var nextStatuses = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// Statuses returns every known status in lifecycle order.
func Statuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range nextStatuses[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PredecessorsOf returns the statuses an order may be in for a move to next
// to be legal. The result is empty for pending.
func PredecessorsOf(next OrderStatus) []OrderStatus {
	var from []OrderStatus
	for _, s := range Statuses() {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// Order is the header of a placed order. TotalAmount is fixed at placement.
type Order struct {
	ID          int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      int64           `json:"user_id" gorm:"not null;index"`
	Number      string          `json:"order_number" gorm:"column:order_number;type:varchar(40);not null;uniqueIndex"`
	Status      OrderStatus     `json:"status" gorm:"type:varchar(16);not null;default:pending;index"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:numeric(14,2);not null;default:0"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Items       []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderItem is one line of an order. UnitPrice is the product price at the
// moment the line was reserved.
type OrderItem struct {
	ID        int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   int64           `json:"order_id" gorm:"not null;index"`
	ProductID int64           `json:"product_id" gorm:"not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:numeric(14,2);not null"`
}

// OrderFilter narrows order listings. Zero values mean no filter.
type OrderFilter struct {
	Status OrderStatus
	UserID int64
}

// OrderStats summarises order volume.
type OrderStats struct {
	TotalOrders int64           `json:"total_orders"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TodayOrders int64           `json:"today_orders"`
	TodayAmount decimal.Decimal `json:"today_amount"`
}
