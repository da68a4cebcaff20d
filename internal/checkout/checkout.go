// Package checkout turns a session cart into a pending order and a hosted
// payment session.
//
// Checkout is the authoritative pricing point: whatever the cart displayed,
// every surviving line item is re-resolved against the live catalog and
// repriced here before the amount is sent to the processor.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/teamwear/storefront/internal/cart"
	"github.com/teamwear/storefront/internal/catalog"
	"github.com/teamwear/storefront/internal/order"
	"github.com/teamwear/storefront/internal/orderlog"
	"github.com/teamwear/storefront/internal/payment"
	"github.com/teamwear/storefront/internal/pricing"
)

// ErrEmptyCart means there is nothing to check out, either because the cart
// was empty or because every item went stale since it was added. The caller
// redirects back to the catalog.
var ErrEmptyCart = errors.New("checkout: cart is empty")

// Coordinator validates the cart, persists the pending order and requests
// the hosted payment session.
type Coordinator struct {
	cart       *cart.Service
	catalog    catalog.Catalog
	orders     order.Repository
	processor  payment.Processor
	log        orderlog.Repository // nil-safe: lifecycle logging skipped if nil
	successURL string
	cancelURL  string
}

func NewCoordinator(
	cartSvc *cart.Service,
	cat catalog.Catalog,
	orders order.Repository,
	processor payment.Processor,
	log orderlog.Repository,
	successURL, cancelURL string,
) *Coordinator {
	return &Coordinator{
		cart:       cartSvc,
		catalog:    cat,
		orders:     orders,
		processor:  processor,
		log:        log,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// Checkout runs the full hand-off and returns the hosted checkout URL for
// the caller to redirect to.
//
// If the processor call fails after the pending order was persisted, the
// pending row is left behind as an orphan: it carries no session ID, no
// customer-visible order ever comes from it, and an external sweep reclaims
// it. The external call cannot sit inside a local transaction boundary, so
// no rollback is attempted.
func (c *Coordinator) Checkout(ctx context.Context, sessionID, customerName, customerEmail string) (string, error) {
	items, err := c.cart.Items(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("checkout: read cart: %w", err)
	}
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	validated, err := c.revalidate(ctx, items)
	if err != nil {
		return "", err
	}
	if len(validated) == 0 {
		return "", ErrEmptyCart
	}

	po := &order.PendingOrder{
		ID:            uuid.NewString(),
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		CreatedAt:     time.Now().UTC(),
		PendingItems:  validated,
	}
	if err := c.orders.CreatePending(ctx, po); err != nil {
		return "", fmt.Errorf("checkout: persist pending order: %w", err)
	}
	c.logEvent(ctx, po.ID, orderlog.EventCheckoutStarted, map[string]any{
		"items": len(validated),
	})

	session, err := c.processor.CreateSession(ctx, payment.CreateSessionParams{
		LineItems:     toSessionItems(validated),
		SuccessURL:    c.successURL,
		CancelURL:     c.cancelURL,
		CustomerEmail: customerEmail,
		OrderID:       po.ID,
	})
	if err != nil {
		// Orphaned pending order: harmless unpaid row, reclaimed externally.
		slog.ErrorContext(ctx, "payment session creation failed, pending order orphaned",
			"order_id", po.ID, "error", err)
		c.logEvent(ctx, po.ID, orderlog.EventSessionFailed, map[string]any{
			"error": err.Error(),
		})
		return "", fmt.Errorf("checkout: create payment session: %w", err)
	}

	if err := c.orders.SetPaymentSession(ctx, po.ID, session.ID); err != nil {
		return "", fmt.Errorf("checkout: record payment session: %w", err)
	}
	c.logEvent(ctx, po.ID, orderlog.EventSessionCreated, map[string]any{
		"session_id": session.ID,
	})

	if err := c.cart.Clear(ctx, sessionID); err != nil {
		// The pending order and session already exist; a lingering cart is
		// the lesser evil. Log and continue.
		slog.WarnContext(ctx, "cart clear failed after checkout", "session_id", sessionID, "error", err)
	}

	slog.InfoContext(ctx, "checkout complete",
		"order_id", po.ID,
		"session_id", session.ID,
		"items", len(validated),
	)
	return session.URL, nil
}

// revalidate re-resolves every line item against the catalog, silently
// dropping products that disappeared and sizes no longer offered. A cart may
// legitimately go stale between add and checkout; that is not a failure.
// Lookups run concurrently, insertion order is preserved.
func (c *Coordinator) revalidate(ctx context.Context, items []cart.LineItem) ([]order.LineItem, error) {
	slots := make([]*order.LineItem, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			product, err := c.catalog.GetProduct(gctx, item.ProductID)
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil // dropped
			}
			if err != nil {
				return fmt.Errorf("checkout: resolve product %d: %w", item.ProductID, err)
			}
			if !product.HasSize(item.SizeCode) {
				return nil // dropped
			}

			variant := product.VariantFor(item.CategoryID)
			unit := pricing.Quote(variant.Price, item.SizeCode, item.Customization != "")

			slots[i] = &order.LineItem{
				ProductID:     product.ID,
				ProductName:   product.Name,
				ColorName:     variant.ColorName,
				CategoryName:  variant.CategoryName,
				SizeCode:      item.SizeCode,
				Quantity:      item.Quantity,
				UnitCost:      unit,
				Customization: item.Customization,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	validated := make([]order.LineItem, 0, len(items))
	for _, slot := range slots {
		if slot != nil {
			validated = append(validated, *slot)
		}
	}
	return validated, nil
}

func toSessionItems(items []order.LineItem) []payment.SessionLineItem {
	out := make([]payment.SessionLineItem, len(items))
	for i, item := range items {
		out[i] = payment.SessionLineItem{
			Name:        item.ProductName,
			Description: describe(item),
			UnitAmount:  minorUnits(item.UnitCost),
			Quantity:    item.Quantity,
		}
	}
	return out
}

func describe(item order.LineItem) string {
	desc := "Size " + catalog.SizeLabel(item.SizeCode)
	if item.ColorName != "" {
		desc += ", " + item.ColorName
	}
	if item.Customization != "" {
		desc += ", Back: " + item.Customization
	}
	return desc
}

// minorUnits converts a currency amount to cents for the processor.
func minorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (c *Coordinator) logEvent(ctx context.Context, orderID string, event orderlog.Event, detail any) {
	if c.log == nil {
		return
	}
	if err := c.log.Save(ctx, orderlog.NewEntry(ctx, orderID, event, detail)); err != nil {
		slog.WarnContext(ctx, "order log write failed", "order_id", orderID, "event", string(event), "error", err)
	}
}
