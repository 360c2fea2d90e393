package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire as a JSON number, e.g. 29.99 rather than "29.99".
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog entry; Price is never negative.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Category    string          `json:"category" db:"category"`
}

// ProductRequest is the body of POST and PUT /products.
// On create Name and Price are required; on update every field is optional.
type ProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
}

// ProductPatch carries a partial product update
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
}

// Customer places orders
type Customer struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	RegisteredDate time.Time `json:"registered_date" db:"registered_date"`
}

// CustomerRequest is the body of POST and PUT /customers.
type CustomerRequest struct {
	Name           *string    `json:"name"`
	Email          *string    `json:"email"`
	RegisteredDate *time.Time `json:"registered_date"`
}

// CustomerPatch carries a partial customer update
type CustomerPatch struct {
	Name           *string
	Email          *string
	RegisteredDate *time.Time
}
