// Package cart holds the per-session shopping cart: the only mutable
// client-visible state before checkout.
package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyQuantity rejects adds with a non-positive quantity.
	ErrEmptyQuantity = errors.New("cart: quantity must be at least 1")
)

// LineItem is one (product, size, quantity, customization) entry.
//
// UnitPrice is the base variant price captured at add time and is advisory
// only: size and customization surcharges are derived at every read, and the
// authoritative charge is recomputed from the live catalog at checkout.
type LineItem struct {
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name"`
	SizeCode      string          `json:"size_code"`
	Quantity      int             `json:"quantity"`
	ColorName     string          `json:"color_name,omitempty"`
	CategoryID    int64           `json:"category_id,omitempty"`
	CategoryName  string          `json:"category_name,omitempty"`
	Customization string          `json:"customization,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// Cart is the ordered collection of line items for one session.
type Cart struct {
	Items []LineItem `json:"items"`
}

// Store persists carts keyed by session ID. Implementations must never leak
// state across sessions; a missing cart is returned as an empty one, not an
// error.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}
