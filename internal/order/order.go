// Package order defines the durable order records and the persistence port
// for the checkout and reconciliation flows.
//
// A PendingOrder is created at checkout time, before payment is confirmed.
// While it is unpaid its serialized line-item snapshot is the sole source of
// truth: no OrderItem rows exist yet. The finalize transition flips the paid
// flag, clears the snapshot and materializes the items, exactly once.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound means no order exists for the given ID.
	ErrNotFound = errors.New("order: not found")

	// ErrAlreadyFinalized is the normal outcome of the second confirmation
	// arriving for an order that is already paid. Not a failure.
	ErrAlreadyFinalized = errors.New("order: already finalized")
)

// LineItem is a denormalized snapshot of what the customer bought,
// deliberately decoupled from the live catalog so historical orders survive
// catalog edits and deletions.
type LineItem struct {
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ColorName     string          `json:"color_name,omitempty"`
	CategoryName  string          `json:"category_name,omitempty"`
	SizeCode      string          `json:"size_code"`
	Quantity      int             `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Customization string          `json:"customization,omitempty"`
}

// Subtotal is the line's contribution to the order total.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PendingOrder is the durable placeholder created at checkout.
//
// The ID is an unguessable token, distinct from any internal row id; it is
// the only correlating value ever handed to the payment processor.
type PendingOrder struct {
	ID               string
	CustomerName     string
	CustomerEmail    string
	CreatedAt        time.Time
	Paid             bool
	PendingItems     []LineItem
	PaymentSessionID string
}

// Order is a finalized, paid order with materialized items.
type Order struct {
	ID            string
	CustomerName  string
	CustomerEmail string
	CreatedAt     time.Time
	Items         []LineItem
}

// Total sums the materialized line items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

// Repository is the persistence port for pending and finalized orders.
type Repository interface {
	// CreatePending persists a new unpaid order with its snapshot.
	CreatePending(ctx context.Context, po *PendingOrder) error

	// SetPaymentSession records the processor session ID on the pending order.
	SetPaymentSession(ctx context.Context, orderID, sessionID string) error

	// GetPending returns the pending order, or ErrNotFound.
	GetPending(ctx context.Context, orderID string) (*PendingOrder, error)

	// Finalize applies the one-way PENDING_UNPAID -> PAID transition as a
	// single atomic unit: it materializes the snapshot into item rows, sets
	// the paid flag and clears the snapshot. Exactly one concurrent caller
	// succeeds; later or losing callers get ErrAlreadyFinalized. Unknown IDs
	// get ErrNotFound.
	Finalize(ctx context.Context, orderID string) (*Order, error)
}
