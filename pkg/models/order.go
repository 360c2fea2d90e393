package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order references one customer and one product.
// TotalAmount is fixed when the order is written and is not affected by later
// product price changes.
type Order struct {
	ID          int64           `json:"id" db:"id"`
	CustomerID  int64           `json:"customer_id" db:"customer_id"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	Quantity    int             `json:"quantity" db:"quantity"`
	OrderDate   time.Time       `json:"order_date" db:"order_date"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
}

// OrderView is the denormalized transfer object returned by the orders endpoints
type OrderView struct {
	Order
	CustomerName string `json:"customer_name"`
	ProductName  string `json:"product_name"`
}

// OrderRequest is the body of POST and PUT /orders.
type OrderRequest struct {
	CustomerID *int64     `json:"customer_id"`
	ProductID  *int64     `json:"product_id"`
	Quantity   *int       `json:"quantity"`
	OrderDate  *time.Time `json:"order_date"`
}

// OrderInput is a validated create request
type OrderInput struct {
	CustomerID int64
	ProductID  int64
	Quantity   int
	OrderDate  time.Time
}

// OrderPatch carries a partial order update
type OrderPatch struct {
	CustomerID *int64
	ProductID  *int64
	Quantity   *int
	OrderDate  *time.Time
}

// Recomputes reports whether applying the patch changes the order total.
func (p OrderPatch) Recomputes() bool {
	return p.Quantity != nil || p.ProductID != nil
}
