package models

import "github.com/shopspring/decimal"

// CartItem is one requested line of a new order.
type CartItem struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

// Cart is a placement request. Items are validated one by one while the
// order is being reserved, so the tag on Items only checks presence.
type Cart struct {
	BuyerID int64      `json:"buyer_id" validate:"gt=0"`
	Items   []CartItem `json:"items" validate:"required,min=1"`
}

// Placement is the result of a committed order.
type Placement struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
